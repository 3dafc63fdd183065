// Package pipeline runs the fixed stage sequence over a document and always
// returns a structured run result, whatever happens inside the stages.
package pipeline

import (
	"time"

	"github.com/obscura-io/obscura/agent"
)

// Stage is one step of the pipeline. The stage list is fixed and ordered;
// configuration cannot reorder it.
type Stage struct {
	Name       string
	Capability string
	Timeout    time.Duration

	// Required stages abort the run when they fail; optional stages log
	// and continue.
	Required bool
}

// DefaultStages returns the pipeline's stage sequence. Timeouts reflect the
// work profile: understanding is a single fast classification, assessment
// may reason over a large entity graph.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "document_understanding", Capability: agent.CapUnderstanding, Timeout: 30 * time.Second, Required: true},
		{Name: "analysis", Capability: agent.CapAnalysis, Timeout: 600 * time.Second, Required: true},
		{Name: "security_assessment", Capability: agent.CapAssessment, Timeout: 3600 * time.Second, Required: true},
		{Name: "anonymization", Capability: agent.CapAnonymization, Timeout: 180 * time.Second, Required: true},
		{Name: "reporting", Capability: agent.CapReporting, Timeout: 120 * time.Second, Required: false},
	}
}
