//go:build !linux

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
)

// SegmentSize is the size of the shared clock segment
const SegmentSize = 16

var errNoShm = errors.New("shared clock segments are only supported on linux")

// Segment is the live clock mapped from a System V shared memory segment
type Segment struct {
	*Memory
}

// Attach maps the existing clock segment identified by key
func Attach(int) (*Segment, error) {
	return nil, errNoShm
}

// Create maps the clock segment identified by key, creating it if needed
func Create(int) (*Segment, error) {
	return nil, errNoShm
}

// ID returns the kernel identifier of the segment
func (s *Segment) ID() int {
	return -1
}

// Close unmaps the segment
func (s *Segment) Close() error {
	return errNoShm
}
