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
Package tzrule resolves UTC offsets from a compiled time zone (TZif) file.

A Resolver keeps the file open and caches the rule in effect together with
its validity window. The file is only read again when a query falls outside
of the cached window.
*/
package tzrule

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
)

// DefaultRuleFile is the zone file used when nothing else is configured
const DefaultRuleFile = "/etc/localtime"

// Rule is a UTC offset valid for UTC instants in [Start, End).
// End is math.MaxInt32 when no later transition is known.
type Rule struct {
	Start  int32
	End    int32
	Offset int32
	IsDST  bool
	Abbr   string
}

// Contains reports whether utc falls into the validity window of the rule
func (r Rule) Contains(utc int32) bool {
	return utc >= r.Start && utc < r.End
}

// Resolver finds the rule in effect for a point in time
type Resolver struct {
	file    io.ReaderAt
	closer  io.Closer
	layout  layout
	cur     Rule
	next    Rule
	loaded  bool
	reloads int
}

// Open opens a TZif file and validates its header
func Open(path string) (*Resolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewResolver(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewResolver creates a Resolver reading rules from r
func NewResolver(r io.ReaderAt) (*Resolver, error) {
	l, err := readLayout(r)
	if err != nil {
		return nil, err
	}
	return &Resolver{file: r, layout: l}, nil
}

// Close closes the underlying file, if Resolver owns it
func (r *Resolver) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Current returns the cached rule
func (r *Resolver) Current() Rule {
	return r.cur
}

// Next returns the rule following the cached one.
// Its Start is math.MaxInt32 when there is none.
func (r *Resolver) Next() Rule {
	return r.next
}

// Reloads returns how many times rules were read from the file
func (r *Resolver) Reloads() int {
	return r.reloads
}

// Resolve returns the rule in effect at the UTC instant utc
func (r *Resolver) Resolve(utc int32) (Rule, error) {
	if r.loaded && r.cur.Contains(utc) {
		return r.cur, nil
	}
	if err := r.scan(utc); err != nil {
		return Rule{}, err
	}
	return r.cur, nil
}

// ResolveLocal returns the rule in effect at the local instant local.
// The cached offset is used as a first estimate; if the resulting window
// does not contain the corrected UTC instant we resolve once more.
func (r *Resolver) ResolveLocal(local int32) (Rule, error) {
	rule, err := r.Resolve(toUTC(local, r.cur.Offset))
	if err != nil {
		return Rule{}, err
	}
	utc := toUTC(local, rule.Offset)
	if rule.Contains(utc) {
		return rule, nil
	}
	return r.Resolve(utc)
}

// toUTC converts local seconds to UTC, saturating at the int32 limits
func toUTC(local, offset int32) int32 {
	t := int64(local) - int64(offset)
	if t > math.MaxInt32 {
		return math.MaxInt32
	}
	if t < math.MinInt32 {
		return math.MinInt32
	}
	return int32(t)
}

// Transitions returns every rule of the table, in order
func (r *Resolver) Transitions() ([]Rule, error) {
	times, err := r.times()
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(times)+1)
	start := int32(math.MinInt32)
	for i := 0; i <= len(times); i++ {
		rule := Rule{Start: start, End: math.MaxInt32}
		if i < len(times) {
			rule.End = times[i]
		}
		idx := 0
		if i > 0 {
			if idx, err = r.typeIndex(i - 1); err != nil {
				return nil, err
			}
		}
		if err := r.fill(&rule, idx); err != nil {
			return nil, err
		}
		// clamped instants collapse into empty windows
		if rule.Start < rule.End {
			rules = append(rules, rule)
		}
		start = rule.End
	}
	return rules, nil
}

// scan reads the rule covering utc and the one after it
func (r *Resolver) scan(utc int32) error {
	times, err := r.times()
	if err != nil {
		return err
	}
	n := len(times)
	i := sort.Search(n, func(k int) bool { return times[k] > utc })

	cur := Rule{Start: math.MinInt32, End: math.MaxInt32}
	curIdx := 0
	if i > 0 {
		cur.Start = times[i-1]
		if curIdx, err = r.typeIndex(i - 1); err != nil {
			return err
		}
	}
	if i < n {
		cur.End = times[i]
	}
	if err := r.fill(&cur, curIdx); err != nil {
		return err
	}

	next := Rule{Start: math.MaxInt32, End: math.MaxInt32}
	if i < n {
		next.Start = times[i]
		if i+1 < n {
			next.End = times[i+1]
		}
		nextIdx, err := r.typeIndex(i)
		if err != nil {
			return err
		}
		if err := r.fill(&next, nextIdx); err != nil {
			return err
		}
	}

	r.cur, r.next, r.loaded = cur, next, true
	r.reloads++
	log.Debugf("[tzrule] loaded %s (%d) for [%d, %d), next %s at %d", cur.Abbr, cur.Offset, cur.Start, cur.End, next.Abbr, next.Start)
	return nil
}

// times reads all transition instants
func (r *Resolver) times() ([]int32, error) {
	l := r.layout
	n := int(l.hdr.TimeCnt)
	buf := make([]byte, int64(n)*l.timeSize)
	if err := readFull(r.file, buf, l.times); err != nil {
		return nil, err
	}
	times := make([]int32, n)
	for i := range times {
		if l.timeSize == 8 {
			times[i] = clamp32(int64(binary.BigEndian.Uint64(buf[i*8:])))
		} else {
			times[i] = int32(binary.BigEndian.Uint32(buf[i*4:]))
		}
	}
	return times, nil
}

// typeIndex reads the local time type selected by transition i
func (r *Resolver) typeIndex(i int) (int, error) {
	b := make([]byte, 1)
	if err := readFull(r.file, b, r.layout.indices()+int64(i)); err != nil {
		return 0, err
	}
	return int(b[0]), nil
}

// fill sets offset, DST flag and name of local time type idx
func (r *Resolver) fill(rule *Rule, idx int) error {
	l := r.layout
	if idx >= int(l.hdr.TypeCnt) {
		return fmt.Errorf("%w: type %d of %d", errBadData, idx, l.hdr.TypeCnt)
	}
	rec := make([]byte, ttinfoSize)
	if err := readFull(r.file, rec, l.types()+int64(idx)*ttinfoSize); err != nil {
		return err
	}
	rule.Offset = int32(binary.BigEndian.Uint32(rec[0:4]))
	rule.IsDST = rec[4] != 0
	abbrind := int(rec[5])
	if abbrind >= int(l.hdr.CharCnt) {
		return fmt.Errorf("%w: abbreviation index %d of %d", errBadData, abbrind, l.hdr.CharCnt)
	}
	chars := make([]byte, int(l.hdr.CharCnt)-abbrind)
	if err := readFull(r.file, chars, l.chars()+int64(abbrind)); err != nil {
		return err
	}
	if end := bytes.IndexByte(chars, 0); end >= 0 {
		chars = chars[:end]
	}
	rule.Abbr = string(chars)
	return nil
}
