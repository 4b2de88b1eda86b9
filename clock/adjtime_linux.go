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
	"time"

	"golang.org/x/sys/unix"
)

// clock_adjtime modes from usr/include/linux/timex.h
const (
	// add 'time' to current time
	adjSetOffset uint32 = 0x0100
	// select nanosecond resolution
	adjNano uint32 = 0x2000
)

// Step steps clock by given step.
// A zero step still notifies the kernel that the clock was set.
func Step(clockid int32, step time.Duration) (state int, err error) {
	tx := &unix.Timex{}
	tx.Modes = adjSetOffset | adjNano
	tx.Time.Sec = int64(step / time.Second)
	// with ADJ_NANO the usec field holds nanoseconds
	tx.Time.Usec = int64(step % time.Second)
	// the field tv_usec must always be non-negative
	if tx.Time.Usec < 0 {
		tx.Time.Sec--
		tx.Time.Usec += int64(time.Second)
	}
	return unix.ClockAdjtime(clockid, tx)
}

// WakeWaiters steps the realtime clock by nothing, which still wakes
// everyone sleeping on an absolute time
func WakeWaiters() error {
	_, err := Step(unix.CLOCK_REALTIME, 0)
	return err
}
