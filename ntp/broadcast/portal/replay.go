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
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// packetHandle abstracts packet handles provided by pcapgo.Reader and pcapgo.NGReader
type packetHandle interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Replay is a Portal delivering the frames of a capture file.
// Wait returns io.EOF once the capture is exhausted.
type Replay struct {
	f       *os.File
	handle  packetHandle
	pending []byte
	enabled bool
	closed  atomic.Bool
}

// OpenReplay opens a pcap or pcapng capture of Ethernet frames
func OpenReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var handle packetHandle
	// try NGReader, if it fails - fall back to Reader
	handle, err = pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err != nil {
		if _, ierr := f.Seek(0, io.SeekStart); ierr != nil {
			f.Close()
			return nil, fmt.Errorf("seeking in %s: %w", path, ierr)
		}
		handle, err = pcapgo.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	if handle.LinkType() != layers.LinkTypeEthernet {
		f.Close()
		return nil, fmt.Errorf("%s: unsupported link type %s", path, handle.LinkType())
	}
	return &Replay{f: f, handle: handle}, nil
}

// EnableBroadcast starts delivering frames
func (r *Replay) EnableBroadcast() error {
	r.enabled = true
	return nil
}

func (r *Replay) next() error {
	if r.pending != nil {
		return nil
	}
	data, _, err := r.handle.ReadPacketData()
	if err != nil {
		return err
	}
	r.pending = data
	return nil
}

// Wait reports whether another frame is left in the capture.
// The capture is replayed as fast as it is drained, timeout is ignored.
func (r *Replay) Wait(time.Duration) (bool, error) {
	if r.closed.Load() {
		return false, ErrClosed
	}
	if !r.enabled {
		return false, nil
	}
	if err := r.next(); err != nil {
		return false, err
	}
	return true, nil
}

// Receive copies the next frame of the capture into buf
func (r *Replay) Receive(buf []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	if !r.enabled {
		return 0, ErrNoData
	}
	if err := r.next(); err == io.EOF {
		return 0, ErrNoData
	} else if err != nil {
		return 0, err
	}
	frame := r.pending
	r.pending = nil
	if len(frame) > len(buf) {
		return 0, fmt.Errorf("%w: %d bytes", ErrOversized, len(frame))
	}
	return copy(buf, frame), nil
}

// Close closes the capture file
func (r *Replay) Close() error {
	r.closed.Store(true)
	return r.f.Close()
}
