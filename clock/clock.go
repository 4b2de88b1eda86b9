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
	"runtime"

	"github.com/facebook/bntp/hosttime"
)

// a carry never takes this long unless the updater died in one
const maxCarryRetries = 1 << 16

var errStuckCarry = errors.New("live clock is stuck in a carry")

// Clock reads and sets the host time
type Clock interface {
	Read() (hosttime.HostTime, error)
	Write(h hosttime.HostTime) error
}

// Registers gives raw access to the fields of the live clock.
// Each accessor must be a single load or store of the field.
type Registers interface {
	Date() uint16
	Minutes() uint16
	Seconds() uint8
	Ticks() uint8
	SetDate(uint16)
	SetMinutes(uint16)
	SetSeconds(uint8)
	SetTicks(uint8)
	CompareAndSwapTicks(old, v uint8) bool
}

// Live is a Clock over registers updated concurrently by someone else
type Live struct {
	regs  Registers
	codec hosttime.Codec
}

// NewLive returns a Live clock over regs ticking at hertz
func NewLive(regs Registers, hertz uint8) *Live {
	return &Live{regs: regs, codec: hosttime.Codec{Hertz: hertz}}
}

// Read returns a consistent snapshot of the live clock.
// Ticks and seconds are read before and after the slow fields,
// the snapshot is taken again until both reads agree and no carry
// is in progress.
func (l *Live) Read() (hosttime.HostTime, error) {
	for i := 0; ; i++ {
		h := hosttime.HostTime{
			Ticks:   l.regs.Ticks(),
			Seconds: l.regs.Seconds(),
		}
		h.Minutes = l.regs.Minutes()
		h.Date = l.regs.Date()
		if l.regs.Ticks() != h.Ticks || l.regs.Seconds() != h.Seconds {
			continue
		}
		if h.Ticks != carrying || h.Minutes == 0 || h.Date == 0 {
			return h, nil
		}
		if i >= maxCarryRetries {
			return h, errStuckCarry
		}
		runtime.Gosched()
	}
}

// Write sets the live clock to h.
// The tick counter is parked at a full second while the other fields are
// stored, so the updater can't carry into a half written value.
func (l *Live) Write(h hosttime.HostTime) error {
	if err := l.codec.Validate(h); err != nil {
		return err
	}
	l.regs.SetTicks(uint8(l.hertz()))
	l.regs.SetDate(h.Date)
	l.regs.SetMinutes(h.Minutes)
	l.regs.SetSeconds(h.Seconds)
	l.regs.SetTicks(h.Ticks)
	return nil
}

// Hertz returns the tick rate of the clock
func (l *Live) Hertz() uint8 {
	return uint8(l.hertz())
}

func (l *Live) hertz() int {
	if l.codec.Hertz == 0 {
		return hosttime.DefaultHertz
	}
	return int(l.codec.Hertz)
}
