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
	"context"
	"time"

	"github.com/facebook/bntp/hosttime"
	log "github.com/sirupsen/logrus"
)

const (
	minutesPerDay    = 1440
	secondsPerMinute = 60
)

// carrying marks the ticks register while a carry into the slower
// fields is in progress. It is never a valid tick count.
const carrying = 0

// Tick advances the live clock by one tick, carrying into seconds, minutes
// and the date. An unset clock (no time or no date) is left alone.
// It returns false if the clock was not advanced, either because it is
// unset or because a writer stored a new time meanwhile.
func Tick(regs Registers, hertz uint8) bool {
	if hertz == 0 {
		hertz = hosttime.DefaultHertz
	}
	if regs.Minutes() == 0 || regs.Date() == 0 {
		return false
	}
	t := regs.Ticks()
	if t > 1 && t <= hertz {
		return regs.CompareAndSwapTicks(t, t-1)
	}
	if !regs.CompareAndSwapTicks(t, carrying) {
		return false
	}
	if !carry(regs) {
		return false
	}
	// a writer that parked the ticks after the last store keeps its time
	return regs.CompareAndSwapTicks(carrying, hertz)
}

// carry moves the clock to the next second. Every store is skipped once a
// writer has replaced the carrying mark.
func carry(regs Registers) bool {
	owned := func() bool { return regs.Ticks() == carrying }
	s := regs.Seconds()
	if s > 1 && s <= secondsPerMinute {
		if !owned() {
			return false
		}
		regs.SetSeconds(s - 1)
		return true
	}
	m := regs.Minutes()
	if !owned() {
		return false
	}
	regs.SetSeconds(secondsPerMinute)
	if m > 1 && m <= minutesPerDay {
		if !owned() {
			return false
		}
		regs.SetMinutes(m - 1)
		return true
	}
	next, err := hosttime.NextDay(regs.Date())
	if err != nil {
		log.Warningf("clock ran past its last day: %v", err)
	}
	if !owned() {
		return false
	}
	regs.SetMinutes(minutesPerDay)
	if !owned() {
		return false
	}
	regs.SetDate(next)
	return true
}

// Driver is the periodic updater of a live clock
type Driver struct {
	Regs  Registers
	Hertz uint8
}

// Period returns the interval between two ticks
func (d *Driver) Period() time.Duration {
	hz := d.Hertz
	if hz == 0 {
		hz = hosttime.DefaultHertz
	}
	return time.Second / time.Duration(hz)
}

// Run ticks the clock until ctx is done
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.Period())
	defer ticker.Stop()
	log.Debugf("driving clock at %v per tick", d.Period())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			Tick(d.Regs, d.Hertz)
		}
	}
}
