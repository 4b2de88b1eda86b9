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

package portal

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("packet sockets are only supported on linux")

// Socket is a Portal over a raw packet socket bound to one interface
type Socket struct{}

// Open returns a Socket receiving IPv4 frames for UDP port on the named interface
func Open(string, uint16) (*Socket, error) {
	return nil, errUnsupported
}

// EnableBroadcast starts reception of broadcast and multicast frames
func (s *Socket) EnableBroadcast() error { return errUnsupported }

// Wait blocks until a frame is pending or timeout passes
func (s *Socket) Wait(time.Duration) (bool, error) { return false, errUnsupported }

// Receive copies the next pending frame into buf
func (s *Socket) Receive([]byte) (int, error) { return 0, errUnsupported }

// Close closes the socket
func (s *Socket) Close() error { return errUnsupported }
