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
	"unsafe"

	"golang.org/x/sys/unix"
)

// SegmentSize is the size of the shared clock segment
const SegmentSize = int(unsafe.Sizeof(Memory{}))

// Segment is the live clock mapped from a System V shared memory segment
type Segment struct {
	*Memory
	data []byte
	id   int
}

// Attach maps the existing clock segment identified by key
func Attach(key int) (*Segment, error) {
	return attach(key, 0)
}

// Create maps the clock segment identified by key, creating it if needed
func Create(key int) (*Segment, error) {
	return attach(key, unix.IPC_CREAT|0o644)
}

func attach(key, flag int) (*Segment, error) {
	id, err := unix.SysvShmGet(key, SegmentSize, flag)
	if err != nil {
		return nil, fmt.Errorf("shmget %#x: %w", key, err)
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shmat %d: %w", id, err)
	}
	if len(data) < SegmentSize {
		_ = unix.SysvShmDetach(data)
		return nil, fmt.Errorf("segment %#x is %d bytes, want %d", key, len(data), SegmentSize)
	}
	return &Segment{
		Memory: (*Memory)(unsafe.Pointer(&data[0])),
		data:   data,
		id:     id,
	}, nil
}

// ID returns the kernel identifier of the segment
func (s *Segment) ID() int {
	return s.id
}

// Close unmaps the segment
func (s *Segment) Close() error {
	s.Memory = nil
	return unix.SysvShmDetach(s.data)
}
