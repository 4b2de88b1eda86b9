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

// Package portaltest builds frames and captures for tests of portal users
package portaltest

import (
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/facebook/bntp/ntp/protocol"
)

// Server is the sender address of generated broadcasts
var Server = net.IPv4(192, 168, 1, 10)

// Host is the address of the receiving host
var Host = net.IPv4(192, 168, 1, 20)

var (
	serverMAC = net.HardwareAddr{0x02, 0x00, 0x5e, 0x10, 0x00, 0x01}
	hostMAC   = net.HardwareAddr{0x02, 0x00, 0x5e, 0x10, 0x00, 0x02}
)

// Broadcast returns an NTP v4 broadcast packet sent at tx
func Broadcast(tx time.Time) *protocol.Packet {
	sec, frac := protocol.Time(tx)
	return &protocol.Packet{
		Settings:    0x25,
		Stratum:     2,
		ReferenceID: 0x0a000001,
		TxTimeSec:   sec,
		TxTimeFrac:  frac,
	}
}

// Serialize builds a frame out of the given layers, fixing lengths and checksums
func Serialize(l ...gopacket.SerializableLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, l...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Ethernet returns the link layer of a broadcast frame
func Ethernet(t layers.EthernetType) *layers.Ethernet {
	return &layers.Ethernet{
		SrcMAC:       serverMAC,
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: t,
	}
}

// IPv4 returns the network layer of a broadcast datagram
func IPv4(p layers.IPProtocol) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: p,
		SrcIP:    Server,
		DstIP:    net.IPv4bcast,
	}
}

func udpFrame(eth *layers.Ethernet, ip *layers.IPv4, port uint16, payload []byte) ([]byte, error) {
	udp := &layers.UDP{SrcPort: 123, DstPort: layers.UDPPort(port)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}
	return Serialize(eth, ip, udp, gopacket.Payload(payload))
}

// UDPFrame returns an Ethernet broadcast frame carrying payload to port
func UDPFrame(port uint16, payload []byte) ([]byte, error) {
	return udpFrame(Ethernet(layers.EthernetTypeIPv4), IPv4(layers.IPProtocolUDP), port, payload)
}

// UnicastUDPFrame returns a frame carrying payload from Host to port on Server
func UnicastUDPFrame(port uint16, payload []byte) ([]byte, error) {
	eth := Ethernet(layers.EthernetTypeIPv4)
	eth.SrcMAC, eth.DstMAC = hostMAC, serverMAC
	ip := IPv4(layers.IPProtocolUDP)
	ip.SrcIP, ip.DstIP = Host, Server
	return udpFrame(eth, ip, port, payload)
}

// MulticastUDPFrame returns a frame carrying payload to port on the NTP
// multicast group 224.0.1.1
func MulticastUDPFrame(port uint16, payload []byte) ([]byte, error) {
	eth := Ethernet(layers.EthernetTypeIPv4)
	eth.DstMAC = net.HardwareAddr{0x01, 0x00, 0x5e, 0x00, 0x01, 0x01}
	ip := IPv4(layers.IPProtocolUDP)
	ip.DstIP = net.IPv4(224, 0, 1, 1)
	return udpFrame(eth, ip, port, payload)
}

// WriteCapture writes frames as a pcap capture of Ethernet frames
func WriteCapture(w io.Writer, frames ...[]byte) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return err
	}
	ts := time.Unix(1709665629, 0)
	for i, f := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Second),
			CaptureLength: len(f),
			Length:        len(f),
		}
		if err := pw.WritePacket(ci, f); err != nil {
			return err
		}
	}
	return nil
}
