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
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/facebook/bntp/clock"
	"github.com/facebook/bntp/hosttime"
	"github.com/facebook/bntp/ntp/broadcast/client"
	"github.com/facebook/bntp/tzrule"
)

// flags
var (
	clockShmKeyFlag   int
	clockHertzFlag    uint8
	clockRuleFileFlag string
	clockWatchFlag    time.Duration
)

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Inspect and drive the shared host clock",
}

var clockReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Print the shared clock",
	Args:  cobra.NoArgs,
	Run:   runClockReadCmd,
}

var clockTickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Create the shared clock and advance it until interrupted",
	Args:  cobra.NoArgs,
	Run:   runClockTickCmd,
}

var clockSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the shared clock from the system clock",
	Args:  cobra.NoArgs,
	Run:   runClockSetCmd,
}

func init() {
	RootCmd.AddCommand(clockCmd)
	clockCmd.AddCommand(clockReadCmd, clockTickCmd, clockSetCmd)
	flags := clockCmd.PersistentFlags()
	flags.IntVarP(&clockShmKeyFlag, "shmkey", "k", client.DefaultShmKey, "System V key of the shared clock")
	flags.Uint8VarP(&clockHertzFlag, "hertz", "H", hosttime.DefaultHertz, "tick rate of the shared clock")
	flags.StringVarP(&clockRuleFileFlag, "rulefile", "z", tzrule.DefaultRuleFile, "TZif file with the local zone rules")
	clockReadCmd.Flags().DurationVarP(&clockWatchFlag, "watch", "w", 0, "read the clock again at this interval until interrupted")
}

func printClock(w io.Writer, h hosttime.HostTime, hertz uint8, zone clock.Zone) {
	codec := hosttime.Codec{Hertz: hertz}
	fmt.Fprintf(w, "Raw:   %s\n", h)
	local, err := hosttime.LocalEpoch(h)
	if err != nil {
		fmt.Fprintf(w, "Time:  not set (%v)\n", err)
		return
	}
	pos, err := codec.TickPosition(h)
	if err != nil {
		fmt.Fprintf(w, "Time:  invalid (%v)\n", err)
		return
	}
	if zone == nil {
		fmt.Fprintf(w, "Time:  %s %s\n", hosttime.FormatDate(h), codec.FormatHMS(h))
	} else if rule, err := zone.ResolveLocal(local); err != nil {
		fmt.Fprintf(w, "Time:  %s %s (%v)\n", hosttime.FormatDate(h), codec.FormatHMS(h), err)
	} else {
		fmt.Fprintf(w, "Time:  %s\n", codec.Format(h, rule.Abbr, rule.Offset))
	}
	fmt.Fprintf(w, "Local: %d\n", local)
	fmt.Fprintf(w, "Tick:  %d since the epoch at %d Hz\n", pos, codec.Hertz)
}

func clockRead(w io.Writer, regs clock.Registers, hertz uint8, zone clock.Zone) error {
	h, err := clock.NewLive(regs, hertz).Read()
	if err != nil {
		return err
	}
	printClock(w, h, hertz, zone)
	return nil
}

func clockSet(regs clock.Registers, hertz uint8, zone clock.Zone) (hosttime.HostTime, error) {
	sys := &clock.System{Zone: zone, Codec: hosttime.Codec{Hertz: hertz}}
	h, err := sys.Read()
	if err != nil {
		return h, fmt.Errorf("reading system clock: %w", err)
	}
	return h, clock.NewLive(regs, hertz).Write(h)
}

// clockWatch reads the clock every interval until ctx is done.
// A terminal is cleared between readings.
func clockWatch(ctx context.Context, w io.Writer, clear bool, interval time.Duration, read func(io.Writer) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if clear {
			fmt.Fprint(w, "\033[H\033[2J")
		}
		if err := read(w); err != nil {
			return err
		}
		if !clear {
			fmt.Fprintln(w)
		}
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runClockReadCmd(_ *cobra.Command, _ []string) {
	ConfigureVerbosity()
	seg, err := clock.Attach(clockShmKeyFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer seg.Close()
	var zone clock.Zone
	if r, err := tzrule.Open(clockRuleFileFlag); err != nil {
		log.Warningf("no zone rules: %v", err)
	} else {
		defer r.Close()
		zone = r
	}
	read := func(w io.Writer) error {
		return clockRead(w, seg, clockHertzFlag, zone)
	}
	if clockWatchFlag <= 0 {
		err = read(os.Stdout)
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		err = clockWatch(ctx, os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), clockWatchFlag, read)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runClockTickCmd(_ *cobra.Command, _ []string) {
	ConfigureVerbosity()
	seg, err := clock.Create(clockShmKeyFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer seg.Close()
	log.Infof("ticking shared clock 0x%x (id %d) at %d Hz", clockShmKeyFlag, seg.ID(), clockHertzFlag)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	d := &clock.Driver{Regs: seg, Hertz: clockHertzFlag}
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func runClockSetCmd(_ *cobra.Command, _ []string) {
	ConfigureVerbosity()
	r, err := tzrule.Open(clockRuleFileFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()
	seg, err := clock.Create(clockShmKeyFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer seg.Close()
	h, err := clockSet(seg, clockHertzFlag, r)
	if err != nil {
		log.Fatal(err)
	}
	printClock(os.Stdout, h, clockHertzFlag, r)
}
