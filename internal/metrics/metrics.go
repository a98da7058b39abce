// Package metrics defines the Prometheus instruments shared by the cache
// store and the grid search engine.
package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// Cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundflow_cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "key_unavailable"
	)

	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundflow_cache_writes_total",
			Help: "Total number of cache file writes by operation and status",
		},
		[]string{"op", "status"},
	)

	CacheRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fundflow_cache_records",
			Help: "Current number of records held by the cache store",
		},
	)

	CacheCorruptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fundflow_cache_corruptions_total",
			Help: "Total number of cache loads that fell back to an empty store",
		},
	)

	// Grid search metrics
	GridCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundflow_grid_candidates_total",
			Help: "Total number of grid search candidates by outcome",
		},
		[]string{"outcome"}, // "fitted", "skipped", "failed", "rejected"
	)

	GridFitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fundflow_grid_fit_duration_seconds",
			Help:    "Duration of single candidate fits in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	GridSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fundflow_grid_search_duration_seconds",
			Help:    "Duration of complete grid searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"}, // "found", "exhausted"
	)
)

// RecordCacheLookup counts one lookup.
func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheWrite counts one write of the cache file.
func RecordCacheWrite(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	CacheWrites.WithLabelValues(op, status).Inc()
}

// RecordCandidate counts one grid search candidate.
func RecordCandidate(outcome string) {
	GridCandidates.WithLabelValues(outcome).Inc()
}

// ObserveFit records the time spent fitting one candidate.
func ObserveFit(d time.Duration) {
	GridFitDuration.Observe(d.Seconds())
}

// ObserveSearch records the time spent on a whole search.
func ObserveSearch(found bool, d time.Duration) {
	result := "exhausted"
	if found {
		result = "found"
	}
	GridSearchDuration.WithLabelValues(result).Observe(d.Seconds())
}

// Sample is one gathered counter or gauge value.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers the fundflow counters and gauges from g. Histograms are
// reported by their sample count.
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, "fundflow_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			out = append(out, Sample{
				Name:   name,
				Labels: labels(m),
				Value:  value(mf.GetType(), m),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}
