//go:build !linux

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

package clock

import (
	"errors"
	"time"

	"github.com/facebook/bntp/hosttime"
)

var errNoSystem = errors.New("system clock access is only supported on linux")

// System is a Clock over the kernel realtime clock
type System struct {
	Zone  Zone
	Codec hosttime.Codec
}

// Read returns the system time in the host encoding
func (s *System) Read() (hosttime.HostTime, error) {
	return toHostTime(s.Codec, s.Zone, time.Now())
}

// Write steps the system clock to h
func (s *System) Write(hosttime.HostTime) error {
	return errNoSystem
}

// Step steps clock by given step
func Step(int32, time.Duration) (int, error) {
	return 0, errNoSystem
}

// WakeWaiters wakes everyone sleeping on an absolute time
func WakeWaiters() error {
	return errNoSystem
}
