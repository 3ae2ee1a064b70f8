package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterBinding struct {
	id         authcore.MetricID
	instrument metric.Int64ObservableCounter
}

// histogramBinding mirrors one engine histogram as a cumulative bucket gauge
// keyed by an "le" attribute, plus count and sum gauges.
type histogramBinding struct {
	id      authcore.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	sum     metric.Float64ObservableGauge
}

// Exporter publishes engine snapshots as OTel observable instruments.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []counterBinding
	histograms   []histogramBinding
	auditDropped metric.Int64ObservableCounter
	bucketAttrs  []metric.ObserveOption
}

// NewExporter registers instruments on meter that read from engine.
func NewExporter(meter metric.Meter, engine *authcore.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers instruments on meter that read from source.
// One callback takes a single snapshot per collection.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source, bucketAttrs: bucketAttributes()}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterBinding{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h, err := bindHistogram(meter, def)
		if err != nil {
			return nil, err
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, h.buckets, h.count, h.sum)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events dropped because the dispatcher buffer was full."))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func bindHistogram(meter metric.Meter, def internaldefs.HistogramDef) (histogramBinding, error) {
	h := histogramBinding{id: def.ID}
	var err error

	h.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return h, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	h.count, err = meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return h, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	h.sum, err = meter.Float64ObservableGauge(def.Name+"_sum",
		metric.WithDescription(def.Help+" Observed seconds."), metric.WithUnit("s"))
	if err != nil {
		return h, fmt.Errorf("gauge %s_sum: %w", def.Name, err)
	}
	return h, nil
}

// bucketAttributes returns one "le" attribute per bucket, +Inf last.
func bucketAttributes() []metric.ObserveOption {
	opts := make([]metric.ObserveOption, 0, len(internaldefs.HistogramUpperBounds)+1)
	for _, bound := range internaldefs.HistogramUpperBounds {
		le := strconv.FormatFloat(bound, 'g', -1, 64)
		opts = append(opts, metric.WithAttributes(attribute.String("le", le)))
	}
	return append(opts, metric.WithAttributes(attribute.String("le", "+Inf")))
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snap.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, n := range cumulative {
			o.ObserveInt64(h.buckets, int64(n), e.bucketAttrs[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
		o.ObserveFloat64(h.sum, snap.HistogramSums[h.id].Seconds())
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. The instruments stay on the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
