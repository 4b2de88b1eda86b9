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

package stats

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestJSONStatsFrames(t *testing.T) {
	stats := JSONStats{}

	stats.IncFrames()
	require.Equal(t, int64(1), stats.frames)
}

func TestJSONStatsIgnored(t *testing.T) {
	stats := JSONStats{}

	stats.IncIgnored()
	require.Equal(t, int64(1), stats.ignored)
}

func TestJSONStatsTransient(t *testing.T) {
	stats := JSONStats{}

	stats.IncTransient()
	require.Equal(t, int64(1), stats.transient)
}

func TestJSONStatsSamples(t *testing.T) {
	stats := JSONStats{}

	stats.IncSamples()
	stats.IncDiscarded()
	require.Equal(t, int64(1), stats.samples)
	require.Equal(t, int64(1), stats.discarded)
}

func TestJSONStatsAnnounces(t *testing.T) {
	stats := JSONStats{}

	stats.IncAnnounces()
	stats.IncWakeups()
	require.Equal(t, int64(1), stats.announces)
	require.Equal(t, int64(1), stats.wakeups)
}

func TestJSONStatsGauges(t *testing.T) {
	stats := JSONStats{}

	stats.SetCorrection(-61)
	stats.SetOffset(-18000)
	require.Equal(t, int64(-61), stats.correction)
	require.Equal(t, int64(-18000), stats.offset)
}

func TestJSONStatsToMap(t *testing.T) {
	j := JSONStats{
		frames:     1,
		ignored:    2,
		transient:  3,
		samples:    4,
		discarded:  5,
		announces:  6,
		wakeups:    7,
		correction: 8,
		offset:     9,
	}
	result := j.toMap()

	expectedMap := make(map[string]int64)
	expectedMap["frames"] = 1
	expectedMap["ignored"] = 2
	expectedMap["transient"] = 3
	expectedMap["samples"] = 4
	expectedMap["discarded"] = 5
	expectedMap["announces"] = 6
	expectedMap["wakeups"] = 7
	expectedMap["correction"] = 8
	expectedMap["offset"] = 9

	require.Equal(t, expectedMap, result)
}

func TestJSONStatsHandler(t *testing.T) {
	j := &JSONStats{}
	j.IncFrames()
	j.SetOffset(-18000)
	h, err := j.Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	got := map[string]int64{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, int64(1), got["frames"])
	require.Equal(t, int64(-18000), got["offset"])

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "bntp_frames 1")
	require.Contains(t, string(body), "bntp_offset -18000")
}

func TestJSONStatsCollector(t *testing.T) {
	j := &JSONStats{}
	j.IncAnnounces()
	expected := `
# HELP bntp_announces time changes announced
# TYPE bntp_announces counter
bntp_announces 1
`
	require.NoError(t, testutil.CollectAndCompare(j, strings.NewReader(expected), "bntp_announces"))
	require.Equal(t, 9, testutil.CollectAndCount(j))
}
