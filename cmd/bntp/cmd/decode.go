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
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/eclesh/welford"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/bntp/ntp/broadcast/portal"
	"github.com/facebook/bntp/ntp/protocol"
)

// flags
var (
	decodePortFlag uint16
	decodeDumpFlag bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE",
	Short: "List NTP broadcasts found in a pcap or pcapng capture",
	Args:  cobra.ExactArgs(1),
	Run:   runDecodeCmd,
}

func init() {
	RootCmd.AddCommand(decodeCmd)
	flags := decodeCmd.Flags()
	flags.Uint16VarP(&decodePortFlag, "port", "p", portal.NTPPort, "UDP port broadcasts are sent to")
	flags.BoolVarP(&decodeDumpFlag, "dump", "d", false, "dump every decoded packet")
}

// decodeSummary counts what was found in a capture
type decodeSummary struct {
	frames  int
	samples int
	ignored int
	dropped int
	// spacing of consecutive broadcasts by transmit time, in seconds
	interval *welford.Stats
}

func decode(w io.Writer, p portal.Portal, port uint16, dump bool) (decodeSummary, error) {
	sum := decodeSummary{interval: welford.New()}
	if err := p.EnableBroadcast(); err != nil {
		return sum, err
	}
	filter := portal.NewFilter(port)
	buf := make([]byte, portal.FrameSize)
	table := tablewriter.NewWriter(w)
	var last time.Time
	table.SetHeader([]string{"frame", "source", "mode", "stratum", "reference", "transmit (utc)"})
	for {
		ready, err := p.Wait(time.Second)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, err
		}
		if !ready {
			continue
		}
		n, err := p.Receive(buf)
		if portal.IsTransient(err) {
			if !errors.Is(err, portal.ErrNoData) {
				sum.dropped++
				log.Debugf("frame dropped: %v", err)
			}
			continue
		}
		if err != nil {
			return sum, err
		}
		sum.frames++
		payload, ok := filter.Payload(buf[:n])
		if !ok {
			sum.ignored++
			continue
		}
		packet, err := protocol.BytesToPacket(payload)
		if err != nil {
			sum.ignored++
			continue
		}
		sum.samples++
		tx := protocol.Unix(packet.TxTimeSec, packet.TxTimeFrac)
		if !last.IsZero() {
			sum.interval.Add(tx.Sub(last).Seconds())
		}
		last = tx
		table.Append([]string{
			fmt.Sprintf("%d", sum.frames),
			filter.Source(),
			fmt.Sprintf("%d", packet.Mode()),
			fmt.Sprintf("%d", packet.Stratum),
			packet.Reference(),
			tx.UTC().Format(time.RFC3339Nano),
		})
		if dump {
			spew.Fdump(w, packet)
		}
	}
	table.Render()
	fmt.Fprintf(w, "%d frames, %d broadcasts, %d ignored, %d dropped\n", sum.frames, sum.samples, sum.ignored, sum.dropped)
	if sum.samples > 1 {
		fmt.Fprintf(w, "broadcast interval: mean %.3fs, stddev %.3fs, min %.3fs, max %.3fs\n",
			sum.interval.Mean(), sum.interval.Stddev(), sum.interval.Min(), sum.interval.Max())
	}
	return sum, nil
}

func runDecodeCmd(_ *cobra.Command, args []string) {
	ConfigureVerbosity()
	p, err := portal.OpenReplay(args[0])
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()
	if _, err := decode(os.Stdout, p, decodePortFlag, decodeDumpFlag); err != nil {
		log.Fatal(err)
	}
}
