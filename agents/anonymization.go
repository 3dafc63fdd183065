package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/anonymize"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/logger"
)

// Anonymization applies each entity's strategy to the full text. A fresh
// token registry is created per run so tokens never leak between documents.
type Anonymization struct {
	log *zap.SugaredLogger
}

var _ agent.Agent = (*Anonymization)(nil)

// NewAnonymization creates the anonymization agent.
func NewAnonymization(log *zap.SugaredLogger) *Anonymization {
	if log == nil {
		log = logger.Nop()
	}
	return &Anonymization{log: log.Named("anonymization")}
}

func (a *Anonymization) Name() string { return "anonymization" }

// Capabilities includes the narrower operation names so callers can dispatch
// tokenization-only or redaction-only work to the same agent.
func (a *Anonymization) Capabilities() []string {
	return []string{agent.CapAnonymization, "tokenization", "redaction", "data_masking"}
}

func (a *Anonymization) Healthy() bool { return true }

// Process anonymizes the full text. Entity sets come reconciled from the
// analysis stage; retrieval guidance may upgrade Preserve entities to
// Tokenize per type.
func (a *Anonymization) Process(ctx context.Context, task agent.Task) (document.StageOutput, error) {
	if err := ctx.Err(); err != nil {
		return document.StageOutput{}, err
	}
	if task.State == nil || len(task.State.Entities) == 0 {
		fullText := ""
		if task.State != nil {
			fullText = task.State.FullText
		}
		return document.StageOutput{
			AnonymizedText:       &fullText,
			AnonymizedEntities:   []document.Entity{},
			AnonymizationSummary: &document.AnonymizationSummary{},
		}, nil
	}

	var suggested map[string]document.Strategy
	if guidance, ok := GuidanceFromState(task.State); ok {
		suggested = guidance.SuggestedStrategies
	}

	registry := anonymize.NewTokenRegistry()
	result := anonymize.Apply(task.State.FullText, task.State.Entities, registry, suggested, a.log)

	a.log.Infow("Anonymization complete",
		logger.FieldEntities, result.Summary.Total,
		"redacted", result.Summary.Redacted,
		"tokenized", result.Summary.Tokenized,
		"preserved", result.Summary.Preserved,
	)

	summary := result.Summary
	return document.StageOutput{
		AnonymizedText:       &result.Text,
		AnonymizedEntities:   result.Entities,
		AnonymizationSummary: &summary,
	}, nil
}
