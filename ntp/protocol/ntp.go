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
Package protocol implements the NTP packet and basic functions to work with.
It provides quick and transparent translation between 48 bytes and
simply accessible struct, and the conversions a broadcast client needs.
*/
package protocol

import (
	"time"
)

// UnixBase is the difference between NTP and Unix epoch in seconds
const UnixBase = 2208988800

// NanosecondsToUnix is the difference between NTP and Unix epoch in NS
const NanosecondsToUnix = int64(UnixBase * 1000000000)

// Time is converting Unix time to sec and frac NTP format
func Time(t time.Time) (seconds uint32, fractions uint32) {
	nsec := t.UnixNano() + NanosecondsToUnix
	sec := nsec / time.Second.Nanoseconds()
	return uint32(sec), uint32((nsec - sec*time.Second.Nanoseconds()) << 32 / time.Second.Nanoseconds())
}

// Unix is converting NTP seconds and fractions into Unix time
func Unix(seconds, fractions uint32) time.Time {
	secs := int64(seconds) - UnixBase
	nanos := (int64(fractions) * time.Second.Nanoseconds()) >> 32 // convert fractional to nanos
	return time.Unix(secs, nanos)
}

// UnixSeconds returns the whole Unix seconds of an NTP timestamp.
// Timestamps before the Unix epoch are negative.
func UnixSeconds(seconds uint32) int64 {
	return int64(seconds) - UnixBase
}

// Fraction16 keeps the 16 most significant bits of an NTP fraction
func Fraction16(fractions uint32) uint16 {
	return uint16(fractions >> 16)
}
