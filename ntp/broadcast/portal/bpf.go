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
	"golang.org/x/net/bpf"
)

// offsets into an Ethernet frame carrying IPv4
const (
	offEtherType = 12
	offIP        = 14
	offIPFlags   = offIP + 6
	offIPProto   = offIP + 9
	offUDPDst    = 2
	ipFragment   = 0x3fff
	snapLen      = 0x40000
	// individual/group bit of the destination MAC
	macGroup = 0x01
)

// packet types the kernel assigns to received frames (linux/if_packet.h)
const (
	packetBroadcast = 1
	packetMulticast = 2
)

// Program returns a socket filter accepting unfragmented IPv4 UDP
// datagrams broadcast to port and dropping everything else
func Program(port uint16) []bpf.Instruction {
	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: 0, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpBitsNotSet, Val: macGroup, SkipTrue: 10},
		bpf.LoadAbsolute{Off: offEtherType, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: 0x0800, SkipTrue: 8},
		bpf.LoadAbsolute{Off: offIPProto, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: 17, SkipTrue: 6},
		bpf.LoadAbsolute{Off: offIPFlags, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpBitsSet, Val: ipFragment, SkipTrue: 4},
		bpf.LoadMemShift{Off: offIP},
		bpf.LoadIndirect{Off: offIP + offUDPDst, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(port), SkipTrue: 1},
		bpf.RetConstant{Val: snapLen},
		bpf.RetConstant{Val: 0},
	}
}

// SocketProgram returns Program preceded by a packet type check, so that
// frames this host sends are dropped too. The check uses a kernel extension
// the bpf VM does not implement.
func SocketProgram(port uint16) []bpf.Instruction {
	prog := Program(port)
	return append([]bpf.Instruction{
		bpf.LoadExtension{Num: bpf.ExtType},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: packetBroadcast, SkipTrue: 1},
		// the last instruction of prog drops the frame
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: packetMulticast, SkipTrue: uint8(len(prog) - 1)},
	}, prog...)
}

// receivedBroadcast reports whether a frame of the packet type was
// broadcast or multicast by another host
func receivedBroadcast(pkttype uint8) bool {
	return pkttype == packetBroadcast || pkttype == packetMulticast
}
