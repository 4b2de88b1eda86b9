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

/*
Package hosttime implements the host clock's native date/time encoding.

The host keeps the current local time as four countdown fields: the date
(year*1000 + day of year), minutes remaining until local midnight, seconds
remaining until the next minute and ticks remaining until the next second.
This package converts that encoding to and from Unix-style epoch seconds
(already adjusted to local time) and renders it for humans.
*/
package hosttime

import (
	"errors"
	"fmt"
)

const (
	// BaseYear is the year of date field value 1 (day 1 of year 0)
	BaseYear = 1970
	// MaxYear is the largest year (relative to BaseYear) the 16-bit date field can hold
	MaxYear = 65
	// MaxLocalEpoch is the last local epoch second of year MaxYear
	MaxLocalEpoch int32 = 2082758399
	// DefaultHertz is the tick rate used by a zero Codec
	DefaultHertz = 60

	minutesPerDay = 1440
	secondsPerDay = 86400
)

// ErrRange is returned when a value is outside of the representable range
var ErrRange = errors.New("date/time out of range")

// ErrNoDate is returned when the date field holds the "no date" sentinel
var ErrNoDate = errors.New("no date present")

// ErrNoTime is returned when the minutes field holds the "no time" sentinel
var ErrNoTime = errors.New("no time present")

// HostTime is the host clock representation. Field layout matches the live clock.
type HostTime struct {
	Date    uint16 // year * 1000 + day (1 based), 0 means no date
	Minutes uint16 // minutes until next midnight, 0 means no time
	Seconds uint8  // seconds until next minute
	Ticks   uint8  // ticks until next second
}

// String implements fmt.Stringer
func (h HostTime) String() string {
	return FormatDate(h) + " " + FormatTime(h)
}

// Codec converts HostTime values for a given tick rate
type Codec struct {
	Hertz uint8
}

func (c Codec) rate() int {
	if c.Hertz == 0 {
		return DefaultHertz
	}
	return int(c.Hertz)
}

// yearLen returns the number of days in year y counted from BaseYear.
// Every fourth year is a leap year, there is no century rule.
func yearLen(y int) int {
	if y&3 == 2 {
		return 366
	}
	return 365
}

// daysBefore returns the number of days from the epoch to the start of year y
func daysBefore(y int) int {
	return y*365 + (y+1)>>2
}

// FromLocalEpoch converts local epoch seconds into HostTime.
// Ticks are set to a full second.
func (c Codec) FromLocalEpoch(sec int32) (HostTime, error) {
	if sec < 0 || sec > MaxLocalEpoch {
		return HostTime{}, fmt.Errorf("%w: %d seconds", ErrRange, sec)
	}
	d := int(sec / secondsPerDay)
	t := int(sec % secondsPerDay)
	y := 0
	for d >= yearLen(y) {
		d -= yearLen(y)
		y++
	}
	return HostTime{
		Date:    uint16(y*1000 + d + 1),
		Minutes: uint16(minutesPerDay - t/60),
		Seconds: uint8(60 - t%60),
		Ticks:   uint8(c.rate()),
	}, nil
}

// LocalEpoch converts HostTime into local epoch seconds. Ticks are ignored.
func LocalEpoch(h HostTime) (int32, error) {
	if h.Date == 0 {
		return 0, ErrNoDate
	}
	if h.Minutes == 0 {
		return 0, ErrNoTime
	}
	date := int(h.Date) - 1
	y, d := date/1000, date%1000
	if y > MaxYear || d >= yearLen(y) {
		return 0, fmt.Errorf("%w: date %d", ErrRange, h.Date)
	}
	if h.Minutes > minutesPerDay {
		return 0, fmt.Errorf("%w: %d minutes to midnight", ErrRange, h.Minutes)
	}
	if h.Seconds == 0 || h.Seconds > 60 {
		return 0, fmt.Errorf("%w: %d seconds to minute", ErrRange, h.Seconds)
	}
	days := daysBefore(y) + d
	return int32(days*secondsPerDay + (minutesPerDay-int(h.Minutes))*60 + 60 - int(h.Seconds)), nil
}

// Validate checks that every field of h is set and within range
func (c Codec) Validate(h HostTime) error {
	if _, err := LocalEpoch(h); err != nil {
		return err
	}
	if h.Ticks == 0 || int(h.Ticks) > c.rate() {
		return fmt.Errorf("%w: %d ticks to second at %d Hz", ErrRange, h.Ticks, c.rate())
	}
	return nil
}

// TickPosition returns the number of ticks elapsed since the epoch
func (c Codec) TickPosition(h HostTime) (int64, error) {
	if err := c.Validate(h); err != nil {
		return 0, err
	}
	sec, _ := LocalEpoch(h)
	hz := int64(c.rate())
	return int64(sec)*hz + hz - int64(h.Ticks), nil
}

// TicksFromFraction converts the 16 most significant bits of an NTP fraction
// into a ticks-to-next-second value, rounding to the nearest tick.
// carry is set when the fraction rounded up to the next whole second;
// ticks is then a full second and the caller must add one second.
func (c Codec) TicksFromFraction(frac16 uint16) (ticks uint8, carry bool) {
	hz := uint32(c.rate())
	t := hz - (uint32(frac16)*hz+32768)>>16
	if t == 0 {
		return uint8(hz), true
	}
	return uint8(t), false
}

// NextDay returns the date field value of the day following date
func NextDay(date uint16) (uint16, error) {
	if date == 0 {
		return 0, ErrNoDate
	}
	d := int(date) - 1
	y, day := d/1000, d%1000+1
	if day >= yearLen(y) {
		y, day = y+1, 0
	}
	if y > MaxYear {
		return 0, fmt.Errorf("%w: no day after %d", ErrRange, date)
	}
	return uint16(y*1000 + day + 1), nil
}
