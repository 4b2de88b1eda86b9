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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/facebook/bntp/clock"
	"github.com/facebook/bntp/hosttime"
	"github.com/facebook/bntp/ntp/broadcast/announce"
	"github.com/facebook/bntp/ntp/broadcast/client"
	"github.com/facebook/bntp/ntp/broadcast/portal"
	"github.com/facebook/bntp/ntp/broadcast/stats"
	"github.com/facebook/bntp/tzrule"
)

// flags
var (
	runConfigFlag         string
	runIfaceFlag          string
	runRuleFileFlag       string
	runHertzFlag          uint8
	runMaxWaitFlag        time.Duration
	runPortFlag           uint16
	runClockFlag          string
	runShmKeyFlag         int
	runNotifierFlag       string
	runWakeFlag           bool
	runMonitoringPortFlag int
	runLockMemoryFlag     bool
	runReplayFlag         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the broadcast NTP client",
	Long: fmt.Sprintf(`Run the broadcast NTP client.
Options are taken from the config file, then from the %s, %s and %s
environment variables, then from the command line.`, client.EnvIface, client.EnvRuleFile, client.EnvHertz),
	Args: cobra.NoArgs,
	Run:  runRunCmd,
}

func init() {
	RootCmd.AddCommand(runCmd)
	def := client.DefaultConfig()
	flags := runCmd.Flags()
	flags.StringVarP(&runConfigFlag, "config", "c", "", "path to the yaml config")
	flags.StringVarP(&runIfaceFlag, "iface", "i", def.Iface, "network interface broadcasts arrive on")
	flags.StringVarP(&runRuleFileFlag, "rulefile", "z", def.RuleFile, "TZif file with the local zone rules")
	flags.Uint8VarP(&runHertzFlag, "hertz", "H", def.Hertz, "tick rate of the live clock")
	flags.DurationVar(&runMaxWaitFlag, "maxwait", def.MaxWait, "longest sleep without a frame")
	flags.Uint16VarP(&runPortFlag, "port", "p", def.Port, "UDP port broadcasts are sent to")
	flags.StringVar(&runClockFlag, "clock", def.Clock,
		fmt.Sprintf("clock to keep: %s, %s or %s", client.ClockShm, client.ClockSystem, client.ClockMemory))
	flags.IntVar(&runShmKeyFlag, "shmkey", def.ShmKey, "System V key of the shared clock")
	flags.StringVar(&runNotifierFlag, "notifier", def.Notifier,
		fmt.Sprintf("how time changes are announced: %s, %s or %s", announce.KindLog, announce.KindJournal, announce.KindNone))
	flags.BoolVar(&runWakeFlag, "wake", def.Wake, "wake sleepers when time changes are announced")
	flags.IntVarP(&runMonitoringPortFlag, "monitoringport", "m", def.MonitoringPort, "port to serve stats on, 0 disables")
	flags.BoolVar(&runLockMemoryFlag, "lockmemory", def.LockMemory, "lock memory and raise scheduling priority")
	flags.StringVarP(&runReplayFlag, "replay", "r", def.Replay, "replay frames from a pcap file instead of an interface")
}

// runConfig resolves the client config: defaults, file, environment, flags
func runConfig(cmd *cobra.Command, lookup func(string) (string, bool)) (*client.Config, error) {
	cfg := client.DefaultConfig()
	if runConfigFlag != "" {
		var err error
		if cfg, err = client.ReadConfig(runConfigFlag); err != nil {
			return nil, fmt.Errorf("reading config %q: %w", runConfigFlag, err)
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("iface") {
		cfg.Iface = runIfaceFlag
	}
	if flags.Changed("rulefile") {
		cfg.RuleFile = runRuleFileFlag
	}
	if flags.Changed("hertz") {
		cfg.Hertz = runHertzFlag
	}
	if flags.Changed("maxwait") {
		cfg.MaxWait = runMaxWaitFlag
	}
	if flags.Changed("port") {
		cfg.Port = runPortFlag
	}
	if flags.Changed("clock") {
		cfg.Clock = runClockFlag
	}
	if flags.Changed("shmkey") {
		cfg.ShmKey = runShmKeyFlag
	}
	if flags.Changed("notifier") {
		cfg.Notifier = runNotifierFlag
	}
	if flags.Changed("wake") {
		cfg.Wake = runWakeFlag
	}
	if flags.Changed("monitoringport") {
		cfg.MonitoringPort = runMonitoringPortFlag
	}
	if flags.Changed("lockmemory") {
		cfg.LockMemory = runLockMemoryFlag
	}
	if flags.Changed("replay") {
		cfg.Replay = runReplayFlag
	}
	return cfg, cfg.Validate()
}

func openPortal(cfg *client.Config) (portal.Portal, error) {
	if cfg.Replay != "" {
		return portal.OpenReplay(cfg.Replay)
	}
	return portal.Open(cfg.Iface, cfg.Port)
}

// liveClock is the clock the client keeps together with whatever drives and releases it
type liveClock struct {
	clock.Clock
	driver  *clock.Driver
	release func() error
}

func openClock(cfg *client.Config, zone clock.Zone) (*liveClock, error) {
	switch cfg.Clock {
	case client.ClockShm:
		seg, err := clock.Attach(cfg.ShmKey)
		if err != nil {
			return nil, fmt.Errorf("attaching shared clock 0x%x: %w", cfg.ShmKey, err)
		}
		return &liveClock{Clock: clock.NewLive(seg, cfg.Hertz), release: seg.Close}, nil
	case client.ClockMemory:
		mem := &clock.Memory{}
		return &liveClock{
			Clock:   clock.NewLive(mem, cfg.Hertz),
			driver:  &clock.Driver{Regs: mem, Hertz: cfg.Hertz},
			release: func() error { return nil },
		}, nil
	case client.ClockSystem:
		return &liveClock{
			Clock:   &clock.System{Zone: zone, Codec: hosttime.Codec{Hertz: cfg.Hertz}},
			release: func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown clock %q", cfg.Clock)
}

func runClient(ctx context.Context, cfg *client.Config) error {
	if cfg.LockMemory {
		if err := lockMemory(); err != nil {
			return fmt.Errorf("locking memory: %w", err)
		}
	}
	zone, err := tzrule.Open(cfg.RuleFile)
	if err != nil {
		return fmt.Errorf("opening rule file: %w", err)
	}
	defer zone.Close()

	lc, err := openClock(cfg, zone)
	if err != nil {
		return err
	}
	defer lc.release()

	notifier, err := announce.New(cfg.Notifier, cfg.Wake)
	if err != nil {
		return err
	}

	p, err := openPortal(cfg)
	if err != nil {
		return fmt.Errorf("opening portal: %w", err)
	}

	st := &stats.JSONStats{}
	c := &client.Client{
		Config:   cfg,
		Portal:   p,
		Clock:    lc,
		Zone:     zone,
		Notifier: notifier,
		Stats:    st,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	// closing the portal is what wakes the client up for shutdown
	eg.Go(func() error {
		<-ctx.Done()
		return p.Close()
	})
	if lc.driver != nil {
		eg.Go(func() error {
			if err := lc.driver.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	if cfg.MonitoringPort != 0 {
		go func() {
			if err := st.Start(cfg.MonitoringPort); err != nil {
				log.Errorf("stats server failed: %v", err)
			}
		}()
	}
	eg.Go(func() error {
		// stop the rest of the group whichever way the client ends
		defer cancel()
		if err := c.Setup(); err != nil {
			return err
		}
		if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			log.Warningf("notifying systemd: %v", err)
		} else if ok {
			log.Debug("notified systemd")
		}
		return c.Run(ctx)
	})
	return eg.Wait()
}

func runRunCmd(cmd *cobra.Command, _ []string) {
	ConfigureVerbosity()
	cfg, err := runConfig(cmd, os.LookupEnv)
	if err != nil {
		log.Fatal(err)
	}
	log.Debugf("Config: %+v", *cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := runClient(ctx, cfg); err != nil {
		log.Fatal(err)
	}
	log.Info("bntp stopped")
}
