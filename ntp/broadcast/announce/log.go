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

import (
	log "github.com/sirupsen/logrus"
)

// Log sends messages to the process log
type Log struct {
	Wake bool
}

// WakeWaiters wakes sleepers if enabled
func (l *Log) WakeWaiters() error {
	return waker(l.Wake).wake()
}

// Send logs msg
func (l *Log) Send(msg string) error {
	log.Info(msg)
	return nil
}
