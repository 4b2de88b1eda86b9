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
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Filter picks IPv4 UDP datagrams broadcast to a port out of Ethernet frames.
// Frames sent to a unicast MAC address never qualify.
// A Filter reuses its decoding state and is not safe for concurrent use.
type Filter struct {
	Port    uint16
	eth     layers.Ethernet
	ip      layers.IPv4
	udp     layers.UDP
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

// NewFilter returns a Filter for datagrams sent to port
func NewFilter(port uint16) *Filter {
	f := &Filter{Port: port}
	f.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &f.eth, &f.ip, &f.udp)
	f.parser.IgnoreUnsupported = true
	f.decoded = make([]gopacket.LayerType, 0, 3)
	return f
}

// Payload returns the UDP payload of frame if it qualifies.
// The payload aliases frame.
func (f *Filter) Payload(frame []byte) ([]byte, bool) {
	if err := f.parser.DecodeLayers(frame, &f.decoded); err != nil {
		return nil, false
	}
	if len(f.decoded) != 3 || f.decoded[2] != layers.LayerTypeUDP {
		return nil, false
	}
	if !groupAddress(f.eth.DstMAC) {
		return nil, false
	}
	if uint16(f.udp.DstPort) != f.Port {
		return nil, false
	}
	return f.udp.Payload, true
}

// Source returns the sender of the last qualifying datagram
func (f *Filter) Source() string {
	return f.ip.SrcIP.String()
}

// groupAddress reports whether mac is a broadcast or multicast address
func groupAddress(mac []byte) bool {
	return len(mac) > 0 && mac[0]&1 != 0
}
