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
	"sync/atomic"
)

// Memory holds the live clock registers in process memory.
// The zero value is an unset clock. Layout is shared with Segment.
type Memory struct {
	date    atomic.Uint32
	minutes atomic.Uint32
	seconds atomic.Uint32
	ticks   atomic.Uint32
}

// Date returns the date register
func (m *Memory) Date() uint16 { return uint16(m.date.Load()) }

// Minutes returns the minutes register
func (m *Memory) Minutes() uint16 { return uint16(m.minutes.Load()) }

// Seconds returns the seconds register
func (m *Memory) Seconds() uint8 { return uint8(m.seconds.Load()) }

// Ticks returns the ticks register
func (m *Memory) Ticks() uint8 { return uint8(m.ticks.Load()) }

// SetDate stores the date register
func (m *Memory) SetDate(v uint16) { m.date.Store(uint32(v)) }

// SetMinutes stores the minutes register
func (m *Memory) SetMinutes(v uint16) { m.minutes.Store(uint32(v)) }

// SetSeconds stores the seconds register
func (m *Memory) SetSeconds(v uint8) { m.seconds.Store(uint32(v)) }

// SetTicks stores the ticks register
func (m *Memory) SetTicks(v uint8) { m.ticks.Store(uint32(v)) }

// CompareAndSwapTicks stores v in the ticks register if it still holds old
func (m *Memory) CompareAndSwapTicks(old, v uint8) bool {
	return m.ticks.CompareAndSwap(uint32(old), uint32(v))
}
