package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ystepanoff/rf24link/internal/telemetry"
)

type options struct {
	logger     *zap.Logger
	metrics    *telemetry.Metrics
	registerer prometheus.Registerer
	clock      Clock
}

// Option customises a Gateway or Hub.
type Option func(*options)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics uses an existing metrics set instead of registering a new one.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRegisterer registers the node's metrics on reg. Ignored when
// WithMetrics is also given.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithClock replaces the wall clock, mainly for tests and simulation.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func resolveOptions(role string, opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	o.logger = o.logger.Named(role)
	if o.clock == nil {
		o.clock = SystemClock
	}
	if o.metrics == nil {
		reg := o.registerer
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		o.metrics = telemetry.NewMetrics(reg, role)
	}
	return o
}
