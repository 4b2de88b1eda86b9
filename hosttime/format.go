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

package hosttime

import (
	"fmt"
)

var months = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// FormatDate renders the date as "dd-Mmm-yyyy"
func FormatDate(h HostTime) string {
	if h.Date == 0 {
		return "   none"
	}
	yr := int(h.Date)/1000 + BaseYear
	day := int(h.Date) % 1000
	mon := 0
	for ; mon < 11; mon++ {
		n := monthDays[mon]
		if mon == 1 && yr&3 == 0 {
			n++
		}
		if day <= n {
			break
		}
		day -= n
	}
	return fmt.Sprintf("%2d-%3s-%04d", day, months[mon], yr)
}

// clock12 splits minutes to midnight into a 12-hour clock reading
func clock12(minutes uint16) (hour, min int, m byte) {
	t := minutesPerDay - int(minutes)
	hour, min = t/60, t%60
	m = 'a'
	if hour >= 12 {
		hour -= 12
		m = 'p'
	}
	if hour == 0 {
		hour = 12
	}
	return hour, min, m
}

// FormatTime renders the time as "hh:mm am"
func FormatTime(h HostTime) string {
	if h.Minutes == 0 {
		return "  none"
	}
	hour, min, m := clock12(h.Minutes)
	return fmt.Sprintf("%2d:%02d %cm", hour, min, m)
}

// FormatHMS renders the time with seconds and hundredths, "hh:mm:ss.cc am"
func (c Codec) FormatHMS(h HostTime) string {
	if h.Minutes == 0 {
		return "     none"
	}
	hour, min, m := clock12(h.Minutes)
	hz := c.rate()
	ticks := int(h.Ticks)
	if ticks != 0 {
		ticks = hz - ticks
	}
	// hundredths, rounded half up
	centi := (ticks*100 + hz/2) / hz
	// fast clocks round the last tick of a second up to 100
	if centi > 99 {
		centi = 99
	}
	return fmt.Sprintf("%2d:%02d:%02d.%02d %cm", hour, min, 60-int(h.Seconds), centi, m)
}

// FormatZone renders a zone as "NAME (+H:MM)"
func FormatZone(abbr string, offset int32) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	hm := offset / 60
	return fmt.Sprintf("%s (%c%d:%02d)", abbr, sign, hm/60, hm%60)
}

// Format renders date, time and zone
func (c Codec) Format(h HostTime, abbr string, offset int32) string {
	return FormatDate(h) + " " + c.FormatHMS(h) + " " + FormatZone(abbr, offset)
}
