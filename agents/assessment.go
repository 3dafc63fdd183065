package agents

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/inference"
	"github.com/obscura-io/obscura/logger"
)

// Assessment derives security risk findings from the extracted entity graph.
// The model only ever sees entity types and short previews, never full
// values, so the findings are privacy-preserving by construction.
type Assessment struct {
	inf inference.Client
	log *zap.SugaredLogger
}

var _ agent.Agent = (*Assessment)(nil)

// NewAssessment creates the security assessment agent.
func NewAssessment(inf inference.Client, log *zap.SugaredLogger) *Assessment {
	if log == nil {
		log = logger.Nop()
	}
	return &Assessment{inf: inf, log: log.Named("assessment")}
}

func (s *Assessment) Name() string           { return "assessment" }
func (s *Assessment) Capabilities() []string { return []string{agent.CapAssessment} }
func (s *Assessment) Healthy() bool          { return true }

// sanitizedEntity is the redacted view of an entity shown to the model.
type sanitizedEntity struct {
	EntityType  string `json:"entity_type"`
	TextPreview string `json:"text_preview"`
}

const assessmentSystemPrompt = `You are a world-class cybersecurity risk analyst and penetration tester. You have been given a structured list of security entities and their relationships, which were extracted from a client's document.
Your task is to analyze this structured data to identify potential vulnerabilities, misconfigurations, and security risks. You must think like an attacker.
CRITICAL INSTRUCTION: In your detailed_explanation and recommendation, you MUST NOT repeat the sensitive text value of any entity. Instead, you MUST refer to the entities by their generic entity_type (e.g., "an IP Address", "a Person's name", "the Hostname"). Your entire analysis must be privacy-preserving.`

const assessmentPromptTemplate = `Analyze the following structured data. Identify and describe any security risks.

For each risk you identify, provide:
- "finding_summary": A brief, one-sentence summary of the issue.
- "risk_level": A score from 1 (Low) to 5 (Critical).
- "detailed_explanation": A paragraph explaining the risk, referring only to entity types.
- "recommendation": An actionable mitigation step, referring only to entity types.
- "compliance_mappings": Optional list like "GDPR: Art. 32".

Return your findings ONLY as a single JSON object containing a list named "security_assessment_findings". If no risks are found, return an empty list.

Structured Data:
---
`

// Process assesses the entity graph. A document with no entities completes
// immediately with no findings.
func (s *Assessment) Process(ctx context.Context, task agent.Task) (document.StageOutput, error) {
	if task.State == nil || len(task.State.Entities) == 0 {
		s.log.Infow("Skipping security assessment", "reason", "no entities to analyze")
		return document.StageOutput{Findings: []document.Finding{}}, nil
	}

	sanitized := make([]sanitizedEntity, 0, len(task.State.Entities))
	for _, e := range task.State.Entities {
		sanitized = append(sanitized, sanitizedEntity{
			EntityType:  e.Type,
			TextPreview: truncate(e.Text, 10) + "...",
		})
	}

	structured, err := json.MarshalIndent(map[string]any{
		"entities":      sanitized,
		"relationships": task.State.Relationships,
	}, "", "  ")
	if err != nil {
		return document.StageOutput{}, err
	}

	var resp struct {
		Findings []document.Finding `json:"security_assessment_findings"`
	}
	err = s.inf.GenerateJSON(ctx, inference.Request{
		System: assessmentSystemPrompt,
		Prompt: assessmentPromptTemplate + string(structured) + "\n---",
		Tier:   inference.TierSmart,
	}, &resp)
	if err != nil {
		return document.StageOutput{}, err
	}

	if resp.Findings == nil {
		resp.Findings = []document.Finding{}
	}
	s.log.Infow("Security assessment complete", logger.FieldCount, len(resp.Findings))
	return document.StageOutput{Findings: resp.Findings}, nil
}
