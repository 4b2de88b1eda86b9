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

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebook/bntp/clock"
	"github.com/facebook/bntp/ntp/broadcast/announce"
	"github.com/facebook/bntp/ntp/broadcast/client"
	"github.com/facebook/bntp/ntp/broadcast/portal"
)

func noEnv(string) (string, bool) {
	return "", false
}

func TestRunConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bntp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iface: eth0\nhertz: 50\nclock: memory\nnotifier: none\n"), 0644))
	env := func(k string) (string, bool) {
		if k == client.EnvHertz {
			return "100", true
		}
		return "", false
	}

	flags := runCmd.Flags()
	require.NoError(t, flags.Set("config", path))
	cfg, err := runConfig(runCmd, env)
	require.NoError(t, err)
	require.Equal(t, "eth0", cfg.Iface)
	require.Equal(t, uint8(100), cfg.Hertz)
	require.Equal(t, client.ClockMemory, cfg.Clock)
	require.Equal(t, announce.KindNone, cfg.Notifier)
	require.Equal(t, client.DefaultShmKey, cfg.ShmKey)

	// flags win over the file and the environment
	require.NoError(t, flags.Set("hertz", "25"))
	require.NoError(t, flags.Set("clock", "system"))
	cfg, err = runConfig(runCmd, env)
	require.NoError(t, err)
	require.Equal(t, uint8(25), cfg.Hertz)
	require.Equal(t, client.ClockSystem, cfg.Clock)
	require.Equal(t, "eth0", cfg.Iface)

	require.NoError(t, flags.Set("clock", "sundial"))
	_, err = runConfig(runCmd, env)
	require.ErrorContains(t, err, "bad config")

	require.NoError(t, flags.Set("config", filepath.Join(t.TempDir(), "missing.yaml")))
	_, err = runConfig(runCmd, noEnv)
	require.ErrorContains(t, err, "reading config")
}

func TestOpenClock(t *testing.T) {
	cfg := client.DefaultConfig()
	cfg.Clock = client.ClockMemory
	lc, err := openClock(cfg, fixedZone(t))
	require.NoError(t, err)
	require.NotNil(t, lc.driver)
	require.IsType(t, &clock.Live{}, lc.Clock)
	require.NoError(t, lc.release())

	cfg.Clock = client.ClockSystem
	lc, err = openClock(cfg, fixedZone(t))
	require.NoError(t, err)
	require.Nil(t, lc.driver)
	require.IsType(t, &clock.System{}, lc.Clock)

	cfg.Clock = "sundial"
	_, err = openClock(cfg, fixedZone(t))
	require.Error(t, err)
}

func TestRunClientReplay(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "est.tzif")
	require.NoError(t, zoneFixed("EST", "-5", rules, false))

	cfg := client.DefaultConfig()
	cfg.Replay = writeCapture(t, broadcastFrame(t, 5000), broadcastFrame(t, portal.NTPPort))
	cfg.RuleFile = rules
	cfg.Clock = client.ClockMemory
	cfg.Notifier = announce.KindNone
	require.NoError(t, cfg.Validate())

	require.NoError(t, runClient(context.Background(), cfg))
}

func TestRunClientMissingRules(t *testing.T) {
	cfg := client.DefaultConfig()
	cfg.Replay = writeCapture(t)
	cfg.RuleFile = filepath.Join(t.TempDir(), "missing")
	cfg.Clock = client.ClockMemory
	require.ErrorContains(t, runClient(context.Background(), cfg), "opening rule file")
}
