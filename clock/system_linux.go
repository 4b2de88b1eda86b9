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
	"fmt"
	"time"

	"github.com/facebook/bntp/hosttime"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// System is a Clock over the kernel realtime clock
type System struct {
	Zone  Zone
	Codec hosttime.Codec
}

func (s *System) now() (time.Time, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return time.Time{}, fmt.Errorf("clock_gettime: %w", err)
	}
	return time.Unix(ts.Unix()), nil
}

// Read returns the system time in the host encoding
func (s *System) Read() (hosttime.HostTime, error) {
	now, err := s.now()
	if err != nil {
		return hosttime.HostTime{}, err
	}
	return toHostTime(s.Codec, s.Zone, now)
}

// Write steps the system clock to h
func (s *System) Write(h hosttime.HostTime) error {
	want, err := fromHostTime(s.Codec, s.Zone, h)
	if err != nil {
		return err
	}
	now, err := s.now()
	if err != nil {
		return err
	}
	step := want.Sub(now)
	log.Debugf("stepping system clock by %v", step)
	if _, err := Step(unix.CLOCK_REALTIME, step); err != nil {
		return fmt.Errorf("clock_adjtime: %w", err)
	}
	return nil
}
