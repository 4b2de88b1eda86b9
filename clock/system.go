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

	"github.com/facebook/bntp/hosttime"
	"github.com/facebook/bntp/tzrule"
)

// Zone maps between UTC and local time
type Zone interface {
	Resolve(utc int32) (tzrule.Rule, error)
	ResolveLocal(local int32) (tzrule.Rule, error)
}

// toHostTime converts a UTC instant into the host encoding in zone z
func toHostTime(c hosttime.Codec, z Zone, t time.Time) (hosttime.HostTime, error) {
	sec := t.Unix()
	if sec < 0 || sec > int64(hosttime.MaxLocalEpoch) {
		return hosttime.HostTime{}, hosttime.ErrRange
	}
	rule, err := z.Resolve(int32(sec))
	if err != nil {
		return hosttime.HostTime{}, err
	}
	h, err := c.FromLocalEpoch(int32(sec + int64(rule.Offset)))
	if err != nil {
		return hosttime.HostTime{}, err
	}
	hz := int64(h.Ticks)
	h.Ticks = uint8(hz - int64(t.Nanosecond())*hz/int64(time.Second))
	return h, nil
}

// fromHostTime converts a host time in zone z into a UTC instant
func fromHostTime(c hosttime.Codec, z Zone, h hosttime.HostTime) (time.Time, error) {
	if err := c.Validate(h); err != nil {
		return time.Time{}, err
	}
	local, _ := hosttime.LocalEpoch(h)
	rule, err := z.ResolveLocal(local)
	if err != nil {
		return time.Time{}, err
	}
	full, _ := c.FromLocalEpoch(local)
	hz := int64(full.Ticks)
	elapsed := hz - int64(h.Ticks)
	return time.Unix(int64(local)-int64(rule.Offset), elapsed*int64(time.Second)/hz), nil
}
