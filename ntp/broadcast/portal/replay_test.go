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
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facebook/bntp/ntp/broadcast/portal/portaltest"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/require"
)

func writeCapture(t *testing.T, frames ...[]byte) string {
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, portaltest.WriteCapture(f, frames...))
	return path
}

func TestReplay(t *testing.T) {
	frames := [][]byte{udpFrame(t, NTPPort), arpFrame(t)}
	r, err := OpenReplay(writeCapture(t, frames...))
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, FrameSize)
	ok, err := r.Wait(0)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = r.Receive(buf)
	require.ErrorIs(t, err, ErrNoData)

	require.NoError(t, r.EnableBroadcast())
	for _, want := range frames {
		ok, err := r.Wait(0)
		require.NoError(t, err)
		require.True(t, ok)
		n, err := r.Receive(buf)
		require.NoError(t, err)
		require.Equal(t, want, buf[:n])
	}
	_, err = r.Wait(0)
	require.ErrorIs(t, err, io.EOF)
	_, err = r.Receive(buf)
	require.ErrorIs(t, err, ErrNoData)
}

func TestReplayOversized(t *testing.T) {
	r, err := OpenReplay(writeCapture(t, udpFrame(t, NTPPort), udpFrame(t, NTPPort)))
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.EnableBroadcast())

	_, err = r.Receive(make([]byte, 20))
	require.ErrorIs(t, err, ErrOversized)
	require.True(t, IsTransient(err))
	// the oversized frame is gone, the next one is delivered
	n, err := r.Receive(make([]byte, FrameSize))
	require.NoError(t, err)
	require.Equal(t, len(udpFrame(t, NTPPort)), n)
}

func TestReplayMissing(t *testing.T) {
	_, err := OpenReplay(filepath.Join(t.TempDir(), "missing.pcap"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReplayLinkType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, pcapgo.NewWriter(f).WriteFileHeader(65536, layers.LinkTypeRaw))
	require.NoError(t, f.Close())

	_, err = OpenReplay(path)
	require.ErrorContains(t, err, "unsupported link type")
}

func TestReplayGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a capture"), 0o644))
	_, err := OpenReplay(path)
	require.Error(t, err)
}

func TestReplayClosed(t *testing.T) {
	r, err := OpenReplay(writeCapture(t, udpFrame(t, NTPPort)))
	require.NoError(t, err)
	require.NoError(t, r.EnableBroadcast())
	require.NoError(t, r.Close())
	_, err = r.Wait(time.Second)
	require.ErrorIs(t, err, ErrClosed)
	_, err = r.Receive(make([]byte, FrameSize))
	require.ErrorIs(t, err, ErrClosed)
}
