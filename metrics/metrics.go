// go-busside
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-busside.
//
// go-busside is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-busside is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-busside; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package metrics exports session link counters to Prometheus
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZaparooProject/go-busside"
)

const namespace = "busside"

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

type counter struct {
	desc  *prometheus.Desc
	value func(s busside.MetricsSnapshot) uint64
}

// Collector reads a session's ConnectionMetrics on every scrape
type Collector struct {
	source   *busside.ConnectionMetrics
	sequence *prometheus.Desc
	port     string
	counters []counter
}

// NewCollector creates a collector for m labelled with port
func NewCollector(m *busside.ConnectionMetrics, port string) *Collector {
	labels := prometheus.Labels{"port": port}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, labels)
	}

	return &Collector{
		source:   m,
		port:     port,
		sequence: desc("sequence", "Current sequence number."),
		counters: []counter{
			{desc("requests_total", "Commands issued."),
				func(s busside.MetricsSnapshot) uint64 { return s.Requests }},
			{desc("replies_total", "Valid replies received."),
				func(s busside.MetricsSnapshot) uint64 { return s.Replies }},
			{desc("attempts_total", "Frames sent, including retransmissions."),
				func(s busside.MetricsSnapshot) uint64 { return s.Attempts }},
			{desc("retransmissions_total", "Attempts after the first for a command."),
				func(s busside.MetricsSnapshot) uint64 { return s.Retransmissions }},
			{desc("exhausted_total", "Commands that used up their attempt budget."),
				func(s busside.MetricsSnapshot) uint64 { return s.Exhausted }},
			{desc("reconnects_total", "Link reconnects."),
				func(s busside.MetricsSnapshot) uint64 { return s.Reconnects }},
			{desc("reconnect_failures_total", "Attempts skipped because the reconnect failed."),
				func(s busside.MetricsSnapshot) uint64 { return s.ReconnectFailures }},
			{desc("open_errors_total", "Failed transport opens."),
				func(s busside.MetricsSnapshot) uint64 { return s.OpenErrors }},
			{desc("sync_timeouts_total", "Attempts that never saw the sync marker."),
				func(s busside.MetricsSnapshot) uint64 { return s.SyncTimeouts }},
			{desc("short_reads_total", "Replies truncated by a read timeout."),
				func(s busside.MetricsSnapshot) uint64 { return s.ShortReads }},
			{desc("oversized_total", "Replies with an invalid payload length."),
				func(s busside.MetricsSnapshot) uint64 { return s.Oversized }},
			{desc("crc_errors_total", "Replies failing the checksum."),
				func(s busside.MetricsSnapshot) uint64 { return s.CRCErrors }},
			{desc("sequence_errors_total", "Replies carrying a stale sequence number."),
				func(s busside.MetricsSnapshot) uint64 { return s.SequenceErrors }},
			{desc("io_errors_total", "Attempts failing on transport I/O."),
				func(s busside.MetricsSnapshot) uint64 { return s.IOErrors }},
		},
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sequence
	for _, ctr := range c.counters {
		ch <- ctr.desc
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.sequence, prometheus.GaugeValue, float64(snap.Sequence))
	for _, ctr := range c.counters {
		ch <- prometheus.MustNewConstMetric(ctr.desc, prometheus.CounterValue, float64(ctr.value(snap)))
	}
}

// Register adds a collector for the session's metrics to reg
func Register(reg prometheus.Registerer, s *busside.Session) (*Collector, error) {
	c := NewCollector(s.Metrics(), s.Device())
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
