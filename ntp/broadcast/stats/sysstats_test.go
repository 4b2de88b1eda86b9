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
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
)

func TestProcessStats(t *testing.T) {
	stats, err := ProcessStats()
	require.NoError(t, err)
	keys := maps.Keys(stats)
	sort.Strings(keys)
	require.Contains(t, keys, "process.uptime")
	require.Contains(t, keys, "runtime.cpu.goroutines")
	require.GreaterOrEqual(t, stats["process.uptime"], int64(0))
	require.Positive(t, stats["runtime.cpu.goroutines"])
}

func TestProcessHandler(t *testing.T) {
	j := &JSONStats{}
	h, err := j.Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/process")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := map[string]int64{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Contains(t, maps.Keys(got), "process.uptime")
}
