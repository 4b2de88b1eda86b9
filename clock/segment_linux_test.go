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
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSegment(t *testing.T) {
	s, err := Create(unix.IPC_PRIVATE)
	if err != nil {
		t.Skipf("no System V shared memory: %v", err)
	}
	defer func() {
		_, _ = unix.SysvShmCtl(s.ID(), unix.IPC_RMID, nil)
	}()
	require.Equal(t, 16, SegmentSize)

	l := NewLive(s, 60)
	h, err := l.Read()
	require.NoError(t, err)
	require.Zero(t, h.Date)

	require.NoError(t, l.Write(sample))
	h, err = l.Read()
	require.NoError(t, err)
	require.Equal(t, sample, h)
	require.NoError(t, s.Close())
}

func TestAttachMissing(t *testing.T) {
	_, err := Attach(0x7fff0bad)
	require.Error(t, err)
}
