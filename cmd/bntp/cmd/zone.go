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
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/bntp/hosttime"
	"github.com/facebook/bntp/tzrule"
)

// flags
var (
	zoneRuleFileFlag string
	zoneAtFlag       int64
	zoneAllFlag      bool
	zoneFixedDSTFlag bool
)

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Print zone rules from a TZif file",
	Args:  cobra.NoArgs,
	Run:   runZoneCmd,
}

var zoneFixedCmd = &cobra.Command{
	Use:   "fixed NAME OFFSET OUT",
	Short: "Write a TZif file with a single fixed offset, for example: fixed EST -5:00 est.tzif",
	Args:  cobra.ExactArgs(3),
	Run:   runZoneFixedCmd,
}

func init() {
	RootCmd.AddCommand(zoneCmd)
	zoneCmd.AddCommand(zoneFixedCmd)
	flags := zoneCmd.Flags()
	flags.StringVarP(&zoneRuleFileFlag, "rulefile", "z", tzrule.DefaultRuleFile, "TZif file to read")
	flags.Int64VarP(&zoneAtFlag, "at", "t", 0, "UTC unix time to resolve, 0 means now")
	flags.BoolVarP(&zoneAllFlag, "all", "a", false, "print every transition in the file")
	zoneFixedCmd.Flags().BoolVar(&zoneFixedDSTFlag, "dst", false, "mark the offset as daylight saving time")
}

// parseOffset parses a UTC offset written as [+-]H[:MM[:SS]]
func parseOffset(s string) (int32, error) {
	orig := s
	sign := int64(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("bad offset %q", orig)
	}
	var secs int64
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil || (i > 0 && (v > 59 || len(p) != 2)) {
			return 0, fmt.Errorf("bad offset %q", orig)
		}
		secs = secs*60 + int64(v)
	}
	for i := len(parts); i < 3; i++ {
		secs *= 60
	}
	if secs > 24*3600 {
		return 0, fmt.Errorf("offset %q is more than a day", orig)
	}
	return int32(sign * secs), nil
}

// formatInstant renders a rule boundary in UTC and in the local time of the rule
func formatInstant(utc int32, rule tzrule.Rule) (string, string) {
	if utc == math.MinInt32 || utc == math.MaxInt32 {
		return "-", "-"
	}
	u := time.Unix(int64(utc), 0).UTC().Format(time.RFC3339)
	codec := hosttime.Codec{Hertz: hosttime.DefaultHertz}
	h, err := codec.FromLocalEpoch(utc + rule.Offset)
	if err != nil {
		return u, "out of range"
	}
	return u, hosttime.FormatDate(h) + " " + codec.FormatHMS(h)
}

func kind(rule tzrule.Rule) string {
	if rule.IsDST {
		return color.YellowString("dst")
	}
	return color.GreenString("std")
}

func printRule(w io.Writer, title, since string, rule tzrule.Rule) {
	if rule.Start == math.MaxInt32 {
		fmt.Fprintf(w, "%-8s none\n", title)
		return
	}
	fmt.Fprintf(w, "%-8s %s %s", title, hosttime.FormatZone(rule.Abbr, rule.Offset), kind(rule))
	if _, local := formatInstant(rule.Start, rule); local != "-" {
		fmt.Fprintf(w, " %s %s", since, local)
	}
	fmt.Fprintln(w)
}

func printTransitions(w io.Writer, rules []tzrule.Rule) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"start (utc)", "start (local)", "zone", "kind"})
	for _, rule := range rules {
		u, local := formatInstant(rule.Start, rule)
		table.Append([]string{u, local, hosttime.FormatZone(rule.Abbr, rule.Offset), kind(rule)})
	}
	table.Render()
}

// fileHash returns the xxhash of a rule file, to compare zones across hosts
func fileHash(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func zoneRun(w io.Writer, path string, at int64, all bool) error {
	r, err := tzrule.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if at == 0 {
		at = time.Now().Unix()
	}
	if at < math.MinInt32 || at > math.MaxInt32 {
		return fmt.Errorf("time %d does not fit the rule file", at)
	}
	rule, err := r.Resolve(int32(at))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Rules from %s at %s\n", path, time.Unix(at, 0).UTC().Format(time.RFC3339))
	if sum, err := fileHash(path); err == nil {
		fmt.Fprintf(w, "Checksum: %016x\n", sum)
	}
	printRule(w, "Current:", "since", rule)
	printRule(w, "Next:", "from", r.Next())
	if !all {
		return nil
	}
	rules, err := r.Transitions()
	if err != nil {
		return err
	}
	printTransitions(w, rules)
	return nil
}

func zoneFixed(name, offset, out string, dst bool) error {
	off, err := parseOffset(offset)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	table := tzrule.Table{Types: []tzrule.Type{{Offset: off, IsDST: dst, Abbr: name}}}
	if err := tzrule.Write(f, '2', table); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return f.Close()
}

func runZoneCmd(_ *cobra.Command, _ []string) {
	ConfigureVerbosity()
	if err := zoneRun(os.Stdout, zoneRuleFileFlag, zoneAtFlag, zoneAllFlag); err != nil {
		log.Fatal(err)
	}
}

func runZoneFixedCmd(_ *cobra.Command, args []string) {
	ConfigureVerbosity()
	if err := zoneFixed(args[0], args[1], args[2], zoneFixedDSTFlag); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Wrote %s\n", args[2])
}
