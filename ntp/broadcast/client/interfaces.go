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

package client

// Stats is a metric collection interface
type Stats interface {
	// IncFrames atomically add 1 to the counter
	IncFrames()
	// IncIgnored atomically add 1 to the counter
	IncIgnored()
	// IncTransient atomically add 1 to the counter
	IncTransient()
	// IncSamples atomically add 1 to the counter
	IncSamples()
	// IncDiscarded atomically add 1 to the counter
	IncDiscarded()
	// IncAnnounces atomically add 1 to the counter
	IncAnnounces()
	// IncWakeups atomically add 1 to the counter
	IncWakeups()
	// SetCorrection atomically sets the last correction
	SetCorrection(ticks int64)
	// SetOffset atomically sets the zone offset
	SetOffset(seconds int64)
}
