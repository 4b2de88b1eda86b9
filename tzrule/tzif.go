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

package tzrule

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

const magicHeader = "TZif"

// headerSize is the size of the fixed TZif header
const headerSize = 44

// ttinfoSize is the size of a local time type record
const ttinfoSize = 6

var errBadData = errors.New("malformed time zone information")
var errUnsupportedVersion = errors.New("unsupported version")

// Header represents file header structure. Fields names are copied from doc
type Header struct {
	// A four-octet unsigned integer specifying the number of UTC/local indicators contained in the body.
	IsUtcCnt uint32
	// A four-octet unsigned integer specifying the number of standard/wall indicators contained in the body.
	IsStdCnt uint32
	// A four-octet unsigned integer specifying the number of leap second records contained in the body.
	LeapCnt uint32
	// A four-octet unsigned integer specifying the number of transition times contained in the body.
	TimeCnt uint32
	// A four-octet unsigned integer specifying the number of local time type Records contained in the body - MUST NOT be zero.
	TypeCnt uint32
	// A four-octet unsigned integer specifying the total number of octets used by the set of time zone designations contained in the body.
	CharCnt uint32
}

// dataSize returns the size of the data block following the header
func (h Header) dataSize(timeSize int64) int64 {
	return int64(h.TimeCnt)*(timeSize+1) +
		int64(h.TypeCnt)*ttinfoSize +
		int64(h.CharCnt) +
		int64(h.LeapCnt)*(timeSize+4) +
		int64(h.IsStdCnt) +
		int64(h.IsUtcCnt)
}

// layout describes where the data block we use lives in the file
type layout struct {
	hdr      Header
	version  byte
	timeSize int64
	times    int64 // offset of transition times
}

func (l layout) indices() int64 {
	return l.times + int64(l.hdr.TimeCnt)*l.timeSize
}

func (l layout) types() int64 {
	return l.indices() + int64(l.hdr.TimeCnt)
}

func (l layout) chars() int64 {
	return l.types() + int64(l.hdr.TypeCnt)*ttinfoSize
}

// readFull reads len(p) bytes at off, treating a short read as malformed data
func readFull(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return errBadData
	}
	return err
}

func readHeader(r io.ReaderAt, off int64) (byte, Header, error) {
	var hdr Header
	buf := make([]byte, headerSize)
	if err := readFull(r, buf, off); err != nil {
		return 0, hdr, err
	}
	// 4-byte magic "TZif"
	if string(buf[:4]) != magicHeader {
		return 0, hdr, errBadData
	}
	// 1-byte version, then 15 bytes of padding
	version := buf[4]
	if version != 0 && version != '2' && version != '3' && version != '4' {
		return 0, hdr, errUnsupportedVersion
	}
	if err := binary.Read(bytes.NewReader(buf[20:]), binary.BigEndian, &hdr); err != nil {
		return 0, hdr, err
	}
	return version, hdr, nil
}

// readLayout parses the headers. For version 2+ files the second,
// 64-bit data block is used, as the first one may be empty.
func readLayout(r io.ReaderAt) (layout, error) {
	version, hdr, err := readHeader(r, 0)
	if err != nil {
		return layout{}, err
	}
	l := layout{hdr: hdr, version: version, timeSize: 4, times: headerSize}
	if version != 0 {
		off := headerSize + hdr.dataSize(4)
		v, hdr2, err := readHeader(r, off)
		if err != nil {
			return layout{}, err
		}
		if v != version {
			return layout{}, errBadData
		}
		l = layout{hdr: hdr2, version: version, timeSize: 8, times: off + headerSize}
	}
	if l.hdr.TypeCnt == 0 || l.hdr.TypeCnt > 256 {
		return layout{}, fmt.Errorf("%w: %d local time types", errBadData, l.hdr.TypeCnt)
	}
	// the counts size later allocations, so the block they describe must exist
	if err := readFull(r, make([]byte, 1), l.times+l.hdr.dataSize(l.timeSize)-1); err != nil {
		return layout{}, fmt.Errorf("%w: data block ends past the file", err)
	}
	return l, nil
}

// clamp32 limits a 64-bit transition instant to the int32 range
func clamp32(t int64) int32 {
	if t > math.MaxInt32 {
		return math.MaxInt32
	}
	if t < math.MinInt32 {
		return math.MinInt32
	}
	return int32(t)
}

// Type is a local time type: an offset from UTC and a zone name
type Type struct {
	Offset int32
	IsDST  bool
	Abbr   string
}

// Table is an in-memory rule table. Indices[i] selects the Type in effect
// from Transitions[i] on. Types[0] applies before the first transition.
type Table struct {
	Transitions []int32
	Indices     []uint8
	Types       []Type
}

func (t Table) validate() error {
	if len(t.Types) == 0 || len(t.Types) > 256 {
		return fmt.Errorf("%w: %d local time types", errBadData, len(t.Types))
	}
	if len(t.Indices) != len(t.Transitions) {
		return fmt.Errorf("%w: %d indices for %d transitions", errBadData, len(t.Indices), len(t.Transitions))
	}
	for i, idx := range t.Indices {
		if int(idx) >= len(t.Types) {
			return fmt.Errorf("%w: transition %d uses type %d", errBadData, i, idx)
		}
		if i > 0 && t.Transitions[i] <= t.Transitions[i-1] {
			return fmt.Errorf("%w: transitions are not increasing at %d", errBadData, i)
		}
	}
	return nil
}

// charPool builds NUL terminated abbreviations and the index of each type
func (t Table) charPool() ([]byte, []uint8, error) {
	var pool []byte
	abbrind := make([]uint8, len(t.Types))
	seen := map[string]int{}
	for i, tt := range t.Types {
		pos, ok := seen[tt.Abbr]
		if !ok {
			pos = len(pool)
			seen[tt.Abbr] = pos
			pool = append(pool, tt.Abbr...)
			pool = append(pool, 0)
		}
		if pos > math.MaxUint8 {
			return nil, nil, fmt.Errorf("%w: abbreviations too long", errBadData)
		}
		abbrind[i] = uint8(pos)
	}
	return pool, abbrind, nil
}

func writeBlock(w io.Writer, ver byte, t Table, pool []byte, abbrind []uint8, wide bool) error {
	h := new(bytes.Buffer)
	h.WriteString(magicHeader)
	h.WriteByte(ver)
	h.Write(make([]byte, 15))
	hdr := Header{
		TimeCnt: uint32(len(t.Transitions)),
		TypeCnt: uint32(len(t.Types)),
		CharCnt: uint32(len(pool)),
	}
	_ = binary.Write(h, binary.BigEndian, hdr)

	for _, tr := range t.Transitions {
		if wide {
			_ = binary.Write(h, binary.BigEndian, int64(tr))
		} else {
			_ = binary.Write(h, binary.BigEndian, tr)
		}
	}
	h.Write(t.Indices)
	for i, tt := range t.Types {
		_ = binary.Write(h, binary.BigEndian, tt.Offset)
		var isdst byte
		if tt.IsDST {
			isdst = 1
		}
		h.WriteByte(isdst)
		h.WriteByte(abbrind[i])
	}
	h.Write(pool)
	_, err := w.Write(h.Bytes())
	return err
}

// posixTZ returns a POSIX TZ string for a zone with a single type
func posixTZ(t Type) string {
	// POSIX offsets are positive west of Greenwich
	off := -t.Offset
	sign := ""
	if off < 0 {
		sign = "-"
		off = -off
	}
	s := fmt.Sprintf("<%s>%s%d", t.Abbr, sign, off/3600)
	if rem := off % 3600; rem != 0 {
		s += fmt.Sprintf(":%02d", rem/60)
	}
	return s
}

// Write dumps the table as a TZif file of version 0 or '2'
func Write(w io.Writer, ver byte, t Table) error {
	if ver != 0 && ver != '2' {
		return errUnsupportedVersion
	}
	if err := t.validate(); err != nil {
		return err
	}
	pool, abbrind, err := t.charPool()
	if err != nil {
		return err
	}
	if err := writeBlock(w, ver, t, pool, abbrind, false); err != nil {
		return err
	}
	if ver != '2' {
		return nil
	}
	if err := writeBlock(w, ver, t, pool, abbrind, true); err != nil {
		return err
	}
	// footer: a TZ string is only known for fixed zones
	var footer strings.Builder
	footer.WriteByte('\n')
	if len(t.Transitions) == 0 {
		footer.WriteString(posixTZ(t.Types[0]))
	}
	footer.WriteByte('\n')
	_, err = io.WriteString(w, footer.String())
	return err
}
