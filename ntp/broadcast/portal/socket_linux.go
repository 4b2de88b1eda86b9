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
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/facebook/bntp/hostendian"
	"github.com/jsimonetti/rtnetlink/rtnl"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// Socket is a Portal over a raw packet socket bound to one interface
type Socket struct {
	fd     int
	stop   int
	iface  *net.Interface
	closed atomic.Bool
}

// lookupInterface finds the interface by name over netlink
func lookupInterface(name string) (*net.Interface, error) {
	conn, err := rtnl.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("can't establish netlink connection: %w", err)
	}
	defer conn.Close()

	links, err := conn.Links()
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	for _, l := range links {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("interface %q not found", name)
}

func attachFilter(fd int, prog []bpf.Instruction) error {
	raw, err := bpf.Assemble(prog)
	if err != nil {
		return fmt.Errorf("assembling filter: %w", err)
	}
	filter := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		filter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	fprog := &unix.SockFprog{Len: uint16(len(filter)), Filter: &filter[0]}
	return unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, fprog)
}

// Open returns a Socket receiving IPv4 frames for UDP port on the named interface
func Open(name string, port uint16) (*Socket, error) {
	iface, err := lookupInterface(name)
	if err != nil {
		return nil, err
	}
	proto := int(hostendian.Htons(unix.ETH_P_IP))
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, fmt.Errorf("creating packet socket: %w", err)
	}
	stop, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("creating eventfd: %w", err)
	}
	s := &Socket{fd: fd, stop: stop, iface: iface}
	if err := attachFilter(fd, SocketProgram(port)); err != nil {
		s.Close()
		return nil, fmt.Errorf("attaching filter: %w", err)
	}
	sa := &unix.SockaddrLinklayer{Protocol: uint16(proto), Ifindex: iface.Index}
	if err := unix.Bind(fd, sa); err != nil {
		s.Close()
		return nil, fmt.Errorf("binding to %s: %w", name, err)
	}
	log.Debugf("packet socket %d bound to %s (index %d)", fd, name, iface.Index)
	return s, nil
}

// EnableBroadcast starts reception of broadcast and multicast frames
func (s *Socket) EnableBroadcast() error {
	mreq := &unix.PacketMreq{
		Ifindex: int32(s.iface.Index),
		Type:    unix.PACKET_MR_ALLMULTI,
	}
	if err := unix.SetsockoptPacketMreq(s.fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, mreq); err != nil {
		return fmt.Errorf("enabling broadcast on %s: %w", s.iface.Name, err)
	}
	// reset drop counters
	_, err := unix.GetsockoptTpacketStats(s.fd, unix.SOL_PACKET, unix.PACKET_STATISTICS)
	return err
}

// Wait blocks until a frame is pending or timeout passes
func (s *Socket) Wait(timeout time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	fds := []unix.PollFd{
		{Fd: int32(s.fd), Events: unix.POLLIN},
		{Fd: int32(s.stop), Events: unix.POLLIN},
	}
	n, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("poll: %w", err)
	}
	if fds[1].Revents != 0 {
		return false, ErrClosed
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}

// Receive copies the next pending broadcast frame into buf.
// Frames sent to this host only or by this host are skipped.
func (s *Socket) Receive(buf []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	stats, err := unix.GetsockoptTpacketStats(s.fd, unix.SOL_PACKET, unix.PACKET_STATISTICS)
	if err != nil {
		if s.closed.Load() {
			return 0, ErrClosed
		}
		return 0, fmt.Errorf("reading socket statistics: %w", err)
	}
	if stats.Drops > 0 {
		return 0, fmt.Errorf("%w: %d dropped", ErrLost, stats.Drops)
	}
	for {
		n, from, err := unix.Recvfrom(s.fd, buf, unix.MSG_TRUNC)
		if errors.Is(err, unix.EAGAIN) {
			return 0, ErrNoData
		}
		if err != nil {
			if s.closed.Load() {
				return 0, ErrClosed
			}
			return 0, fmt.Errorf("recvfrom: %w", err)
		}
		// frames queued before the filter was attached are not filtered
		if ll, ok := from.(*unix.SockaddrLinklayer); ok && !receivedBroadcast(ll.Pkttype) {
			log.Debugf("skipping frame of packet type %d", ll.Pkttype)
			continue
		}
		if n > len(buf) {
			return 0, fmt.Errorf("%w: %d bytes", ErrOversized, n)
		}
		return n, nil
	}
}

// Close closes the socket and unblocks a pending Wait
func (s *Socket) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	one := make([]byte, 8)
	hostendian.Order.PutUint64(one, 1)
	if _, err := unix.Write(s.stop, one); err != nil {
		log.Warningf("failed to wake waiter: %v", err)
	}
	unix.Close(s.stop)
	return unix.Close(s.fd)
}
