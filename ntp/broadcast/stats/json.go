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
Package stats implements statistics collection and reporting.
It is used by the broadcast client to report internal statistics, such as
number of frames received and samples applied.
*/
package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// JSONStats implements Stats interface
// This implementation reports JSON metrics on / and prometheus metrics on
// /metrics via http interface. Only "Start" needs to be called
type JSONStats struct {
	// keep these aligned to 64-bit for sync/atomic
	frames     int64
	ignored    int64
	transient  int64
	samples    int64
	discarded  int64
	announces  int64
	wakeups    int64
	correction int64
	offset     int64
}

var metricHelp = map[string]string{
	"frames":     "frames received",
	"ignored":    "frames that are not NTP broadcasts",
	"transient":  "transient receive failures",
	"samples":    "broadcast samples applied to the clock",
	"discarded":  "broadcast samples that could not be applied",
	"announces":  "time changes announced",
	"wakeups":    "timer wakeups without a frame",
	"correction": "last clock correction in ticks",
	"offset":     "current zone offset in seconds",
}

// toMap converts struct to a map
func (j *JSONStats) toMap() (export map[string]int64) {
	export = make(map[string]int64)

	export["frames"] = atomic.LoadInt64(&j.frames)
	export["ignored"] = atomic.LoadInt64(&j.ignored)
	export["transient"] = atomic.LoadInt64(&j.transient)
	export["samples"] = atomic.LoadInt64(&j.samples)
	export["discarded"] = atomic.LoadInt64(&j.discarded)
	export["announces"] = atomic.LoadInt64(&j.announces)
	export["wakeups"] = atomic.LoadInt64(&j.wakeups)
	export["correction"] = atomic.LoadInt64(&j.correction)
	export["offset"] = atomic.LoadInt64(&j.offset)

	return export
}

// handleRequest is a handler used for all http monitoring requests
func (j *JSONStats) handleRequest(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(j.toMap())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// Describe implements prometheus.Collector
func (j *JSONStats) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(j, ch)
}

// Collect implements prometheus.Collector
func (j *JSONStats) Collect(ch chan<- prometheus.Metric) {
	for k, v := range j.toMap() {
		vt := prometheus.CounterValue
		if k == "correction" || k == "offset" {
			vt = prometheus.GaugeValue
		}
		desc := prometheus.NewDesc("bntp_"+k, metricHelp[k], nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, vt, float64(v))
	}
}

// Handler returns the monitoring http handler
func (j *JSONStats) Handler() (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(j); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", j.handleRequest)
	mux.HandleFunc("/process", handleProcessRequest)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux, nil
}

// Start serves monitoring requests on port until the listener fails
func (j *JSONStats) Start(port int) error {
	h, err := j.Handler()
	if err != nil {
		return err
	}
	addr := fmt.Sprintf(":%d", port)
	log.Debugf("Starting http json server on %s", addr)
	return http.ListenAndServe(addr, h)
}

// IncFrames atomically add 1 to the counter
func (j *JSONStats) IncFrames() {
	atomic.AddInt64(&j.frames, 1)
}

// IncIgnored atomically add 1 to the counter
func (j *JSONStats) IncIgnored() {
	atomic.AddInt64(&j.ignored, 1)
}

// IncTransient atomically add 1 to the counter
func (j *JSONStats) IncTransient() {
	atomic.AddInt64(&j.transient, 1)
}

// IncSamples atomically add 1 to the counter
func (j *JSONStats) IncSamples() {
	atomic.AddInt64(&j.samples, 1)
}

// IncDiscarded atomically add 1 to the counter
func (j *JSONStats) IncDiscarded() {
	atomic.AddInt64(&j.discarded, 1)
}

// IncAnnounces atomically add 1 to the counter
func (j *JSONStats) IncAnnounces() {
	atomic.AddInt64(&j.announces, 1)
}

// IncWakeups atomically add 1 to the counter
func (j *JSONStats) IncWakeups() {
	atomic.AddInt64(&j.wakeups, 1)
}

// SetCorrection atomically sets the last correction
func (j *JSONStats) SetCorrection(ticks int64) {
	atomic.StoreInt64(&j.correction, ticks)
}

// SetOffset atomically sets the zone offset
func (j *JSONStats) SetOffset(seconds int64) {
	atomic.StoreInt64(&j.offset, seconds)
}
