package audit

import (
	"math"
	"sync"

	"github.com/obscura-io/obscura/document"
)

// Metric names tracked for every run.
const (
	MetricAnonymizationCoverage = "anonymization_coverage"
	MetricReidentificationRisk  = "reidentification_risk"
	MetricAnalysisAccuracy      = "analysis_accuracy"
)

// QualityMetrics holds the per-run quality figures reported in the audit
// trail. Updates to unknown metric names are ignored.
type QualityMetrics struct {
	mu     sync.Mutex
	values map[string]float64
}

// NewQualityMetrics creates metrics with all values zeroed.
func NewQualityMetrics() *QualityMetrics {
	return &QualityMetrics{
		values: map[string]float64{
			MetricAnonymizationCoverage: 0,
			MetricReidentificationRisk:  0,
			MetricAnalysisAccuracy:      0,
		},
	}
}

// Update sets a known metric to value.
func (m *QualityMetrics) Update(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, known := m.values[name]; known {
		m.values[name] = value
	}
}

// Values returns a copy of the current metrics.
func (m *QualityMetrics) Values() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Coverage computes the share of entities that were redacted or tokenized,
// rounded to two decimals. An empty summary counts as full coverage: nothing
// sensitive was found, so nothing leaked.
func Coverage(summary *document.AnonymizationSummary) float64 {
	if summary == nil || summary.Total == 0 {
		return 1.0
	}
	covered := float64(summary.Redacted + summary.Tokenized)
	return math.Round(covered/float64(summary.Total)*100) / 100
}
