// Package metrics provides realm metrics collection.
// It wraps Prometheus collectors for sync traffic, validation failures,
// event delivery and instance counts.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/duet/internal/ir"
)

// Direction labels sync traffic.
const (
	DirectionOut     = "out"
	DirectionIn      = "in"
	DirectionDropped = "dropped"
)

// Collector provides realm metrics collection.
type Collector struct {
	registry *prometheus.Registry

	syncMessages       *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	flushBatches       *prometheus.CounterVec
	eventPayloads      *prometheus.CounterVec
	handlerFailures    *prometheus.CounterVec
	hopWarnings        *prometheus.CounterVec
	syncHops           *prometheus.HistogramVec
	instances          *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "duet"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.syncMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "messages_total",
			Help:      "Sync messages by realm, direction (out, in, dropped) and kind",
		},
		[]string{"realm", "direction", "kind"},
	)

	c.validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "property",
			Name:      "validation_failures_total",
			Help:      "Writes rejected by a validator",
		},
		[]string{"realm"},
	)

	c.flushBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "event",
			Name:      "flush_batches_total",
			Help:      "Event batches delivered by flushes",
		},
		[]string{"realm"},
	)

	c.eventPayloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "event",
			Name:      "payloads_total",
			Help:      "Event payloads delivered by flushes",
		},
		[]string{"realm"},
	)

	c.handlerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "event",
			Name:      "handler_failures_total",
			Help:      "Handler or subscriber invocations that returned an error",
		},
		[]string{"realm"},
	)

	c.hopWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "hop_warnings_total",
			Help:      "Property writes received at or above the hop warning threshold",
		},
		[]string{"realm"},
	)

	c.syncHops = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "hops",
			Help:      "Hop count of received property writes",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		},
		[]string{"realm"},
	)

	c.instances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instances",
			Help:      "Live instances per realm",
		},
		[]string{"realm"},
	)

	c.registry.MustRegister(
		c.syncMessages,
		c.validationFailures,
		c.flushBatches,
		c.eventPayloads,
		c.handlerFailures,
		c.hopWarnings,
		c.syncHops,
		c.instances,
	)
	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordMessage counts one sync message.
func (c *Collector) RecordMessage(realm ir.Realm, direction string, kind ir.MessageKind) {
	if c == nil {
		return
	}
	c.syncMessages.WithLabelValues(string(realm), direction, string(kind)).Inc()
}

// RecordValidationFailure counts a rejected write.
func (c *Collector) RecordValidationFailure(realm ir.Realm) {
	if c == nil {
		return
	}
	c.validationFailures.WithLabelValues(string(realm)).Inc()
}

// RecordFlush counts one delivered batch of n payloads.
func (c *Collector) RecordFlush(realm ir.Realm, n int) {
	if c == nil {
		return
	}
	c.flushBatches.WithLabelValues(string(realm)).Inc()
	c.eventPayloads.WithLabelValues(string(realm)).Add(float64(n))
}

// RecordHandlerFailure counts a failed handler invocation.
func (c *Collector) RecordHandlerFailure(realm ir.Realm) {
	if c == nil {
		return
	}
	c.handlerFailures.WithLabelValues(string(realm)).Inc()
}

// RecordHops observes the hop count of a received property write.
func (c *Collector) RecordHops(realm ir.Realm, hops int64) {
	if c == nil {
		return
	}
	c.syncHops.WithLabelValues(string(realm)).Observe(float64(hops))
}

// RecordHopWarning counts a write at or above the warning threshold.
func (c *Collector) RecordHopWarning(realm ir.Realm) {
	if c == nil {
		return
	}
	c.hopWarnings.WithLabelValues(string(realm)).Inc()
}

// RecordInstances adjusts the live instance gauge by delta.
func (c *Collector) RecordInstances(realm ir.Realm, delta int) {
	if c == nil {
		return
	}
	c.instances.WithLabelValues(string(realm)).Add(float64(delta))
}

// WriteSummary prints every non-histogram sample as `name{labels} value`,
// sorted, and histograms as their sample count and sum.
func (c *Collector) WriteSummary(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case dto.MetricType_GAUGE:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetGauge().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%g", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
