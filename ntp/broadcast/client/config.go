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

package client

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/facebook/bntp/hosttime"
	"github.com/facebook/bntp/ntp/broadcast/announce"
	"github.com/facebook/bntp/ntp/broadcast/portal"
	"github.com/facebook/bntp/tzrule"
	yaml "gopkg.in/yaml.v2"
)

// Clock backends
const (
	ClockShm    = "shm"
	ClockSystem = "system"
	ClockMemory = "memory"
)

// DefaultShmKey identifies the shared clock segment ("BNTP")
const DefaultShmKey = 0x424e5450

// DefaultMaxWait is the longest the client sleeps without a frame
const DefaultMaxWait = 32767 * time.Second

// Environment bindings
const (
	EnvIface    = "BNTP_IF"
	EnvRuleFile = "BNTP_TZFILE"
	EnvHertz    = "BNTP_HERTZ"
)

// Config represents configuration we expect to read from file
type Config struct {
	Iface          string        // interface broadcasts arrive on
	RuleFile       string        // TZif file with the local zone rules
	Hertz          uint8         // tick rate of the live clock
	MaxWait        time.Duration // longest sleep without a frame
	Port           uint16        // UDP port broadcasts are sent to
	Clock          string        // clock backend
	ShmKey         int           // System V key of the shared clock
	Notifier       string        // how time changes are announced
	Wake           bool          // wake sleepers on announced changes
	MonitoringPort int           // port for JSON and prometheus stats, 0 disables
	LockMemory     bool          // lock process memory and raise priority
	Replay         string        // pcap file to replay instead of a live interface
}

// DefaultConfig returns the configuration used for anything not set
func DefaultConfig() *Config {
	return &Config{
		RuleFile: tzrule.DefaultRuleFile,
		Hertz:    hosttime.DefaultHertz,
		MaxWait:  DefaultMaxWait,
		Port:     portal.NTPPort,
		Clock:    ClockShm,
		ShmKey:   DefaultShmKey,
		Notifier: announce.KindLog,
	}
}

// ReadConfig reads config and unmarshals it from yaml into Config.
// Options missing from the file keep their default values.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := DefaultConfig()
	err = yaml.UnmarshalStrict(data, c)
	return c, err
}

// ApplyEnv overrides config with environment bindings found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvIface); ok {
		c.Iface = v
	}
	if v, ok := lookup(EnvRuleFile); ok {
		c.RuleFile = v
	}
	if v, ok := lookup(EnvHertz); ok {
		hz, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("bad %s: %w", EnvHertz, err)
		}
		c.Hertz = uint8(hz)
	}
	return nil
}

// Validate checks if config is valid
func (c *Config) Validate() error {
	if c.Iface == "" && c.Replay == "" {
		return fmt.Errorf("bad config: 'iface' or 'replay' must be specified")
	}
	if c.RuleFile == "" {
		return fmt.Errorf("bad config: 'rulefile' must be specified")
	}
	if c.Hertz == 0 {
		return fmt.Errorf("bad config: 'hertz' must be >0")
	}
	if c.MaxWait < time.Second {
		return fmt.Errorf("bad config: 'maxwait' must be at least 1s")
	}
	if c.Port == 0 {
		return fmt.Errorf("bad config: 'port' must be >0")
	}
	switch c.Clock {
	case ClockShm, ClockSystem, ClockMemory:
	default:
		return fmt.Errorf("bad config: unknown 'clock' %q", c.Clock)
	}
	switch c.Notifier {
	case announce.KindNone, announce.KindLog, announce.KindJournal:
	default:
		return fmt.Errorf("bad config: unknown 'notifier' %q", c.Notifier)
	}
	if c.MonitoringPort < 0 || c.MonitoringPort > 65535 {
		return fmt.Errorf("bad config: 'monitoringport' must be between 0 and 65535")
	}
	return nil
}
