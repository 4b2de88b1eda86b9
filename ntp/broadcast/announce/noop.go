/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package announce

// Noop is a noop implementation of Notifier interface
// Use it if nobody needs to know
type Noop struct{}

// WakeWaiters is implementing Notifier interface. Doing nothing
func (n *Noop) WakeWaiters() error {
	return nil
}

// Send is implementing Notifier interface. Doing nothing
func (n *Noop) Send(string) error {
	return nil
}
