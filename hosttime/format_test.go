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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	require.Equal(t, " 5-Mar-2024", FormatDate(sampleHostTime))
	require.Equal(t, " 1-Jan-1970", FormatDate(HostTime{Date: 1}))
	require.Equal(t, "29-Feb-1972", FormatDate(HostTime{Date: 2060}))
	require.Equal(t, " 1-Mar-1971", FormatDate(HostTime{Date: 1060}))
	require.Equal(t, "   none", FormatDate(HostTime{}))
}

func TestFormatTime(t *testing.T) {
	require.Equal(t, " 2:07 pm", FormatTime(sampleHostTime))
	require.Equal(t, "12:00 am", FormatTime(HostTime{Minutes: 1440}))
	require.Equal(t, "12:30 pm", FormatTime(HostTime{Minutes: 690}))
	require.Equal(t, "11:59 pm", FormatTime(HostTime{Minutes: 1}))
	require.Equal(t, "  none", FormatTime(HostTime{}))
}

func TestFormatHMS(t *testing.T) {
	c := Codec{Hertz: 60}
	h := sampleHostTime
	require.Equal(t, " 2:07:09.00 pm", c.FormatHMS(h))

	h.Ticks = 30
	require.Equal(t, " 2:07:09.50 pm", c.FormatHMS(h))

	// 1 tick elapsed is 1.67 hundredths
	h.Ticks = 59
	require.Equal(t, " 2:07:09.02 pm", c.FormatHMS(h))

	require.Equal(t, "     none", c.FormatHMS(HostTime{}))
}

func TestFormatHMSRoundHalfUp(t *testing.T) {
	// at 8 Hz one tick is 12.5 hundredths
	c := Codec{Hertz: 8}
	h := HostTime{Date: 1, Minutes: 1440, Seconds: 60, Ticks: 7}
	require.Equal(t, "12:00:00.13 am", c.FormatHMS(h))
}

func TestFormatHMSFastClock(t *testing.T) {
	// 199 of 200 ticks elapsed rounds to 99.5 hundredths
	c := Codec{Hertz: 200}
	h := HostTime{Date: 1, Minutes: 1440, Seconds: 60, Ticks: 1}
	require.Equal(t, "12:00:00.99 am", c.FormatHMS(h))
	require.Len(t, c.FormatHMS(h), len(" 2:07:09.50 pm"))
}

func TestFormatZone(t *testing.T) {
	require.Equal(t, "EST (-5:00)", FormatZone("EST", -18000))
	require.Equal(t, "EDT (-4:00)", FormatZone("EDT", -14400))
	require.Equal(t, "IST (+5:30)", FormatZone("IST", 19800))
	require.Equal(t, "NST (-3:30)", FormatZone("NST", -12600))
	require.Equal(t, "UTC (+0:00)", FormatZone("UTC", 0))
}

func TestFormat(t *testing.T) {
	c := Codec{Hertz: 60}
	h := sampleHostTime
	h.Ticks = 30
	require.Equal(t, " 5-Mar-2024  2:07:09.50 pm EST (-5:00)", c.Format(h, "EST", -18000))
	require.Equal(t, " 5-Mar-2024  2:07 pm", h.String())
}
