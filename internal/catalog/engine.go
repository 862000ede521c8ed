package catalog

import (
	"time"

	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/metrics"
	"github.com/campusstay/discovery/internal/models"
)

// Engine wraps the pure Apply function with instrumentation. Filtering
// semantics live entirely in Apply; Engine only observes.
type Engine struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewEngine constructs an instrumented filter engine.
func NewEngine(logger *zap.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger, metrics: m}
}

// Apply runs one filter pass over the catalog snapshot.
func (e *Engine) Apply(catalog []models.Property, spec models.FilterSpec) []models.Property {
	start := time.Now()
	result := Apply(catalog, spec)
	duration := time.Since(start)

	e.metrics.ObserveFilter(len(result), duration)
	e.logger.Debug("filter pass",
		zap.Int("catalog_size", len(catalog)),
		zap.Int("matched", len(result)),
		zap.Duration("duration", duration),
	)
	return result
}
