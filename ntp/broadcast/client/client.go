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
Package client implements a broadcast-only NTP client.

The client never sends anything. It sleeps until either a frame arrives on
its portal or the next local time zone transition is due, sets the live
clock from the transmit timestamp of every NTP broadcast it receives and
announces changes that are big enough for people to care about.
*/
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/facebook/bntp/clock"
	"github.com/facebook/bntp/hosttime"
	"github.com/facebook/bntp/ntp/broadcast/announce"
	"github.com/facebook/bntp/ntp/broadcast/portal"
	"github.com/facebook/bntp/ntp/protocol"
	"github.com/facebook/bntp/tzrule"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -destination mock_portal_test.go -package client github.com/facebook/bntp/ntp/broadcast/portal Portal
//go:generate mockgen -destination mock_notifier_test.go -package client github.com/facebook/bntp/ntp/broadcast/announce Notifier

// Client is a broadcast NTP client keeping the live clock in sync
type Client struct {
	Config   *Config
	Portal   portal.Portal
	Clock    clock.Clock
	Zone     *tzrule.Resolver
	Notifier announce.Notifier
	Stats    Stats

	codec      hosttime.Codec
	filter     *portal.Filter
	buf        []byte
	lastOffset int32
}

// Setup resolves the zone for the current clock and enables broadcast reception
func (c *Client) Setup() error {
	c.codec = hosttime.Codec{Hertz: c.Config.Hertz}
	c.filter = portal.NewFilter(c.Config.Port)
	c.buf = make([]byte, portal.FrameSize)

	now, err := c.Clock.Read()
	if err != nil {
		return fmt.Errorf("reading clock: %w", err)
	}
	rule, err := c.resolveClock(now)
	if err != nil {
		return fmt.Errorf("resolving zone: %w", err)
	}
	c.lastOffset = rule.Offset
	c.Stats.SetOffset(int64(rule.Offset))

	if err := c.Portal.EnableBroadcast(); err != nil {
		return fmt.Errorf("enabling broadcast: %w", err)
	}
	log.Infof("bntp started %s", c.codec.Format(now, rule.Abbr, rule.Offset))
	return nil
}

// resolveClock returns the zone rule for a clock reading.
// An unset clock gets the rule in effect at the epoch.
func (c *Client) resolveClock(h hosttime.HostTime) (tzrule.Rule, error) {
	local, err := hosttime.LocalEpoch(h)
	if err != nil {
		log.Debugf("clock is not set (%v), using zone rule at the epoch", err)
		return c.Zone.Resolve(0)
	}
	return c.Zone.ResolveLocal(local)
}

// clockUTC returns the UTC second the clock shows, 0 if it is not set
func (c *Client) clockUTC() (int32, error) {
	now, err := c.Clock.Read()
	if err != nil {
		return 0, err
	}
	local, err := hosttime.LocalEpoch(now)
	if err != nil {
		return 0, nil
	}
	return saturate(int64(local) - int64(c.lastOffset)), nil
}

func saturate(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// nextWait returns how long to sleep until the next zone transition
func (c *Client) nextWait() (time.Duration, error) {
	now, err := c.clockUTC()
	if err != nil {
		return 0, fmt.Errorf("reading clock: %w", err)
	}
	if _, err := c.Zone.Resolve(now); err != nil {
		return 0, fmt.Errorf("resolving zone: %w", err)
	}
	wait := time.Duration(int64(c.Zone.Next().Start)-int64(now)) * time.Second
	if wait > c.Config.MaxWait {
		wait = c.Config.MaxWait
	}
	if wait < time.Second {
		wait = time.Second
	}
	return wait, nil
}

// Run receives broadcasts until ctx is done or the portal runs dry
func (c *Client) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		wait, err := c.nextWait()
		if err != nil {
			return err
		}
		log.Debugf("waiting up to %v", wait)
		ready, err := c.Portal.Wait(wait)
		if ctx.Err() != nil {
			break
		}
		if errors.Is(err, io.EOF) {
			log.Info("no more frames to receive")
			return nil
		}
		if err != nil {
			return fmt.Errorf("waiting for frames: %w", err)
		}
		if !ready {
			if err := c.timerWake(); err != nil {
				return err
			}
			continue
		}
		if err := c.poll(); err != nil {
			// the portal is closed under a pending receive on shutdown
			if ctx.Err() != nil || errors.Is(err, portal.ErrClosed) {
				break
			}
			return err
		}
	}
	log.Info("stopping")
	return nil
}

// timerWake refreshes the zone after a sleep without frames
func (c *Client) timerWake() error {
	c.Stats.IncWakeups()
	now, err := c.clockUTC()
	if err != nil {
		return fmt.Errorf("reading clock: %w", err)
	}
	rule, err := c.Zone.Resolve(now)
	if err != nil {
		return fmt.Errorf("resolving zone: %w", err)
	}
	// TODO: shift the local clock at a zone transition when no broadcast arrives
	if rule.Offset != c.lastOffset {
		log.Warningf("zone changed to %s, clock keeps offset %ds until the next broadcast", hosttime.FormatZone(rule.Abbr, rule.Offset), c.lastOffset)
		return nil
	}
	if next := c.Zone.Next(); next.Start != math.MaxInt32 {
		log.Debugf("next zone transition to %s at %v", next.Abbr, time.Unix(int64(next.Start), 0).UTC())
	}
	return nil
}

// poll receives frames until an NTP broadcast is applied or none is left
func (c *Client) poll() error {
	for {
		n, err := c.Portal.Receive(c.buf)
		if portal.IsTransient(err) {
			if !errors.Is(err, portal.ErrNoData) {
				c.Stats.IncTransient()
				log.Debugf("receive: %v", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("receiving frame: %w", err)
		}
		c.Stats.IncFrames()
		payload, ok := c.filter.Payload(c.buf[:n])
		if !ok {
			c.Stats.IncIgnored()
			continue
		}
		packet, err := protocol.BytesToPacket(payload)
		if err != nil {
			c.Stats.IncIgnored()
			log.Debugf("short NTP payload from %s: %v", c.filter.Source(), err)
			continue
		}
		log.Debugf("broadcast from %s: %s", c.filter.Source(), packet)
		_, err = c.Apply(packet)
		return err
	}
}

// correction returns the ticks the clock moved by going from old to h.
// ok is false if old is not a valid reading.
func (c *Client) correction(old hosttime.HostTime, oldOffset int32, h hosttime.HostTime, offset int32) (int64, bool) {
	oldPos, err := c.codec.TickPosition(old)
	if err != nil {
		return 0, false
	}
	pos, err := c.codec.TickPosition(h)
	if err != nil {
		return 0, false
	}
	hz := int64(c.Config.Hertz)
	return (pos - int64(offset)*hz) - (oldPos - int64(oldOffset)*hz), true
}

// Apply sets the clock from the transmit time of a broadcast.
// It returns true if the change was announced.
func (c *Client) Apply(p *protocol.Packet) (bool, error) {
	sec := protocol.UnixSeconds(p.TxTimeSec)
	ticks, carry := c.codec.TicksFromFraction(protocol.Fraction16(p.TxTimeFrac))
	if carry {
		sec++
	}
	if sec < 0 || sec > math.MaxInt32 {
		c.discard(p, sec)
		return false, nil
	}
	rule, err := c.Zone.Resolve(int32(sec))
	if err != nil {
		return false, fmt.Errorf("resolving zone: %w", err)
	}
	notify := rule.Offset != c.lastOffset

	local := sec + int64(rule.Offset)
	if local < 0 || local > int64(hosttime.MaxLocalEpoch) {
		c.discard(p, sec)
		return false, nil
	}
	h, err := c.codec.FromLocalEpoch(int32(local))
	if err != nil {
		return false, err
	}
	h.Ticks = ticks

	old, err := c.Clock.Read()
	if err != nil {
		return false, fmt.Errorf("reading clock: %w", err)
	}
	if err := c.Clock.Write(h); err != nil {
		return false, fmt.Errorf("writing clock: %w", err)
	}
	delta, ok := c.correction(old, c.lastOffset, h, rule.Offset)
	if !ok || delta > int64(c.Config.Hertz) || delta < -int64(c.Config.Hertz) {
		notify = true
	}
	c.lastOffset = rule.Offset
	c.Stats.IncSamples()
	c.Stats.SetCorrection(delta)
	c.Stats.SetOffset(int64(rule.Offset))
	log.Debugf("clock %s -> %s, correction %d ticks", old, h, delta)

	if !notify {
		return false, nil
	}
	if err := c.Notifier.WakeWaiters(); err != nil {
		return true, fmt.Errorf("waking waiters: %w", err)
	}
	msg := fmt.Sprintf("Time updated to %s, stratum %d, source %s",
		c.codec.Format(h, rule.Abbr, rule.Offset), p.Stratum, p.Reference())
	if err := c.Notifier.Send(msg); err != nil {
		return true, fmt.Errorf("sending announcement: %w", err)
	}
	c.Stats.IncAnnounces()
	return true, nil
}

func (c *Client) discard(p *protocol.Packet, sec int64) {
	c.Stats.IncDiscarded()
	log.Warningf("discarding broadcast from %s: %d is out of range", p.Reference(), sec)
}
