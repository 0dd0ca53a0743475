// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

// Package metrics exports the sizes of a tree bitmap table and
// the lookup results as prometheus metrics.
package metrics

import (
	"github.com/optionfactory/treebitmap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source of the table statistics, implemented by *treebitmap.Table.
type Source interface {
	Stats() (s4, s6 treebitmap.Stats)
}

// Collector is a prometheus.Collector for the sizes of a table,
// the values are read from the source at scrape time.
type Collector struct {
	src Source

	prefixes  *prometheus.Desc
	nodes     *prometheus.Desc
	resultCap *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector for src, name is the value of the
// constant label table.
func NewCollector(name string, src Source) *Collector {
	labels := prometheus.Labels{"table": name}

	return &Collector{
		src: src,
		prefixes: prometheus.NewDesc("treebitmap_prefixes",
			"Number of prefixes in the table.", []string{"family"}, labels),
		nodes: prometheus.NewDesc("treebitmap_nodes",
			"Number of nodes in the node arena.", []string{"family"}, labels),
		resultCap: prometheus.NewDesc("treebitmap_results_capacity",
			"Allocated slots of the result arena.", []string{"family"}, labels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.prefixes
	ch <- c.nodes
	ch <- c.resultCap
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s4, s6 := c.src.Stats()

	for _, fs := range []struct {
		family string
		stats  treebitmap.Stats
	}{
		{"ipv4", s4},
		{"ipv6", s6},
	} {
		ch <- prometheus.MustNewConstMetric(c.prefixes, prometheus.GaugeValue, float64(fs.stats.Prefixes), fs.family)
		ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(fs.stats.Nodes), fs.family)
		ch <- prometheus.MustNewConstMetric(c.resultCap, prometheus.GaugeValue, float64(fs.stats.ResultCap), fs.family)
	}
}

// LookupCounter counts the longest-prefix-match lookups by result.
type LookupCounter struct {
	hit  prometheus.Counter
	miss prometheus.Counter
}

// NewLookupCounter registers the counter vec treebitmap_lookups_total
// with reg.
func NewLookupCounter(reg prometheus.Registerer) *LookupCounter {
	vec := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "treebitmap_lookups_total",
		Help: "Number of longest-prefix-match lookups by result.",
	}, []string{"result"})

	return &LookupCounter{
		hit:  vec.WithLabelValues("hit"),
		miss: vec.WithLabelValues("miss"),
	}
}

// Observe counts a lookup.
func (c *LookupCounter) Observe(ok bool) {
	if ok {
		c.hit.Inc()
		return
	}
	c.miss.Inc()
}
