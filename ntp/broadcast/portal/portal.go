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
Package portal delivers raw Ethernet frames carrying NTP broadcasts.

A Portal is the receive side of a network interface: it can be waited on
with a timeout and drained one frame at a time without blocking. Some
receive failures are transient (nothing pending, frames lost, frame too
large for the buffer) and only mean "nothing to process right now".
*/
package portal

import (
	"errors"
	"time"
)

// NTPPort is the UDP port NTP broadcasts are sent to
const NTPPort = 123

// FrameSize is large enough for any frame a Portal delivers
const FrameSize = 1518

// Transient receive conditions
var (
	ErrNoData    = errors.New("no frame pending")
	ErrLost      = errors.New("frames were lost")
	ErrOversized = errors.New("frame larger than buffer")
)

// ErrClosed is returned by a Portal after Close
var ErrClosed = errors.New("portal closed")

// IsTransient reports whether err only means no frame can be processed now
func IsTransient(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, ErrLost) || errors.Is(err, ErrOversized)
}

// Portal receives Ethernet frames
type Portal interface {
	// EnableBroadcast starts reception of broadcast frames
	EnableBroadcast() error
	// Wait blocks until a frame is pending or timeout passes.
	// It returns true if a frame is pending.
	Wait(timeout time.Duration) (bool, error)
	// Receive copies the next pending frame into buf without blocking
	Receive(buf []byte) (int, error)
	// Close releases the portal and unblocks a pending Wait
	Close() error
}
