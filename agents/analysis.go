package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/config"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/inference"
	"github.com/obscura-io/obscura/logger"
	"github.com/obscura-io/obscura/reconcile"
)

// Analysis extracts entities and relationships chunk by chunk, mapping every
// span back to absolute offsets in the full text and reconciling duplicates
// from overlap regions.
type Analysis struct {
	inf       inference.Client
	chunkSize int
	overlap   int
	log       *zap.SugaredLogger
}

var _ agent.Agent = (*Analysis)(nil)

// NewAnalysis creates the analysis agent with the configured chunking window.
func NewAnalysis(inf inference.Client, chunking config.ChunkingConfig, log *zap.SugaredLogger) *Analysis {
	if log == nil {
		log = logger.Nop()
	}
	return &Analysis{
		inf:       inf,
		chunkSize: chunking.ChunkSize,
		overlap:   chunking.Overlap,
		log:       log.Named("analysis"),
	}
}

func (a *Analysis) Name() string           { return "analysis" }
func (a *Analysis) Capabilities() []string { return []string{agent.CapAnalysis} }
func (a *Analysis) Healthy() bool          { return true }

const analysisSystemPrompt = `You are an expert security and data privacy analyst. Your task is to perform a comprehensive analysis of the provided text.
You must identify PII entities, technical security entities, and the relationships between them.
Your response MUST be a single, valid JSON object with two top-level keys: "entities" and "relationships".
Every entity in the "entities" list MUST have the following keys: "text", "entity_type", "confidence", "anonymization_strategy", "start_char", and "end_char".`

const analysisPromptTemplate = `Analyze the following document text. Find all PII and security entities and their relationships.

- For each entity, provide:
  - "text": The exact text of the entity.
  - "entity_type": A specific type like "Person", "Email Address", "Date", "Time", "IP Address", "Hostname".
  - "confidence": A float from 0.0 to 1.0.
  - "anonymization_strategy": Suggest "Redact" for sensitive PII, "Tokenize" for identifiers, or "Preserve" for non-sensitive data.
  - "start_char": The starting character index of the entity IN THE PROVIDED CHUNK.
  - "end_char": The ending character index of the entity IN THE PROVIDED CHUNK.

- For each relationship, provide:
  - "source": The text of the source entity.
  - "target": The text of the target entity.
  - "description": A brief explanation of their connection.

Return a single JSON object with the keys "entities" and "relationships".

Document Text Chunk:
---
%s
---
%s`

// chunkResponse is the model's per-chunk output. Entities stay raw maps so
// reconciliation can normalize aliased field names before validation.
type chunkResponse struct {
	Entities      []map[string]any        `json:"entities"`
	Relationships []document.Relationship `json:"relationships"`
}

// Process analyzes the full text chunk by chunk. Entities from overlap
// regions deduplicate on (text, absolute start); malformed records are
// dropped with a warning, never failing the stage.
func (a *Analysis) Process(ctx context.Context, task agent.Task) (document.StageOutput, error) {
	if task.State == nil || task.State.FullText == "" {
		return document.StageOutput{}, errors.New("no text content provided")
	}
	fullText := task.State.FullText

	guidanceContext := ""
	if guidance, ok := GuidanceFromState(task.State); ok {
		guidanceContext = "\n" + guidance.PromptContext()
	}

	chunks := reconcile.Split(fullText, a.chunkSize, a.overlap)
	a.log.Infow("Analyzing document",
		logger.FieldChunks, len(chunks),
		"text_length", len(fullText),
	)

	pool := reconcile.NewPool(a.log)
	var relationships []document.Relationship

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return document.StageOutput{}, err
		}
		a.log.Debugw("Analyzing chunk",
			logger.FieldChunk, chunk.Index+1,
			logger.FieldChunks, len(chunks),
		)

		var resp chunkResponse
		err := a.inf.GenerateJSON(ctx, inference.Request{
			System: analysisSystemPrompt,
			Prompt: fmt.Sprintf(analysisPromptTemplate, chunk.Text, guidanceContext),
			Tier:   inference.TierSmart,
		}, &resp)
		if err != nil {
			return document.StageOutput{}, errors.Wrapf(err, "analysis of chunk %d/%d failed", chunk.Index+1, len(chunks))
		}

		for _, raw := range resp.Entities {
			pool.AddRaw(raw, chunk.Offset)
		}
		relationships = append(relationships, resp.Relationships...)
	}

	entities := pool.Entities()
	a.log.Infow("Analysis complete",
		logger.FieldEntities, len(entities),
		logger.FieldRelationships, len(relationships),
		logger.FieldDropped, pool.Dropped(),
	)

	if entities == nil {
		entities = []document.Entity{}
	}
	if relationships == nil {
		relationships = []document.Relationship{}
	}
	return document.StageOutput{
		Entities:      entities,
		Relationships: relationships,
	}, nil
}
