package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/config"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/inference"
	"github.com/obscura-io/obscura/rag"
)

func analysisConfig(size, overlap int) config.ChunkingConfig {
	return config.ChunkingConfig{ChunkSize: size, Overlap: overlap}
}

func TestAnalysisNoText(t *testing.T) {
	a := NewAnalysis(&fakeInference{}, analysisConfig(2000, 200), nil)
	_, err := a.Process(context.Background(), stageTask(t, agent.CapAnalysis, document.NewState("run-1", nil)))
	require.Error(t, err)
}

func TestAnalysisSingleChunk(t *testing.T) {
	inf := &fakeInference{responses: []string{`{
		"entities": [
			{"text": "Jane Doe", "entity_type": "Person", "start_char": 8, "end_char": 16,
			 "confidence": 0.95, "anonymization_strategy": "Redact"},
			{"text": "jane@example.com", "entity_type": "Email Address", "start_char": 20,
			 "end_char": 36, "confidence": 0.99, "anonymization_strategy": "Tokenize"},
			{"entity_type": "Person"}
		],
		"relationships": [
			{"source": "Jane Doe", "target": "jane@example.com", "description": "email belongs to person"}
		]
	}`}}
	a := NewAnalysis(inf, analysisConfig(2000, 200), nil)

	state := document.NewState("run-1", nil)
	state.FullText = "Contact Jane Doe at jane@example.com or 555-123-4567."

	out, err := a.Process(context.Background(), stageTask(t, agent.CapAnalysis, state))
	require.NoError(t, err)

	require.Len(t, out.Entities, 2, "malformed record dropped")
	assert.Equal(t, "Jane Doe", out.Entities[0].Text)
	assert.Equal(t, 8, out.Entities[0].StartChar)
	assert.Equal(t, document.StrategyRedact, out.Entities[0].Strategy)
	assert.Equal(t, "jane@example.com", out.Entities[1].Text)

	require.Len(t, out.Relationships, 1)
	assert.Equal(t, "Jane Doe", out.Relationships[0].Source)

	require.Len(t, inf.requests, 1)
	assert.Equal(t, inference.TierSmart, inf.requests[0].Tier)
	assert.Contains(t, inf.requests[0].Prompt, state.FullText)
}

func TestAnalysisChunkedOffsetsAndDedup(t *testing.T) {
	// size 40, overlap 10: chunk 1 starts at offset 30. The same entity
	// reported in both chunks reconciles to one occurrence.
	text := strings.Repeat("a", 33) + "BOB" + strings.Repeat("b", 34)
	require.Greater(t, len(text), 40)

	inf := &fakeInference{responses: []string{
		`{"entities": [{"text": "BOB", "entity_type": "Person", "start_char": 33, "end_char": 36}], "relationships": []}`,
		`{"entities": [{"text": "BOB", "entity_type": "Person", "start_char": 3, "end_char": 6}], "relationships": []}`,
		`{"entities": [], "relationships": []}`,
	}}
	a := NewAnalysis(inf, analysisConfig(40, 10), nil)

	state := document.NewState("run-1", nil)
	state.FullText = text

	out, err := a.Process(context.Background(), stageTask(t, agent.CapAnalysis, state))
	require.NoError(t, err)

	require.Len(t, out.Entities, 1, "overlap duplicate deduplicated")
	assert.Equal(t, "BOB", out.Entities[0].Text)
	assert.Equal(t, 33, out.Entities[0].StartChar, "chunk-relative offset mapped to absolute")
	assert.Equal(t, 36, out.Entities[0].EndChar)
	assert.Equal(t, text[33:36], out.Entities[0].Text)
}

func TestAnalysisInferenceFailureFailsStage(t *testing.T) {
	inf := &fakeInference{err: errors.ErrServiceUnavailable}
	a := NewAnalysis(inf, analysisConfig(2000, 200), nil)

	state := document.NewState("run-1", nil)
	state.FullText = "some text"

	_, err := a.Process(context.Background(), stageTask(t, agent.CapAnalysis, state))
	require.Error(t, err)
	assert.True(t, errors.IsServiceUnavailable(err))
}

func TestAnalysisIncludesGuidanceInPrompt(t *testing.T) {
	inf := &fakeInference{responses: []string{`{"entities": [], "relationships": []}`}}
	a := NewAnalysis(inf, analysisConfig(2000, 200), nil)

	state := document.NewState("run-1", nil)
	state.FullText = "router inventory"
	state.RAGContext = map[string]any{
		RAGContextKey: rag.Guidance{
			EntityPatterns: []rag.Pattern{{Text: "router hostnames follow rtr- prefix", EntityType: "Hostname"}},
		},
	}

	out, err := a.Process(context.Background(), stageTask(t, agent.CapAnalysis, state))
	require.NoError(t, err)
	assert.Empty(t, out.Entities)
	assert.NotNil(t, out.Entities)

	require.Len(t, inf.requests, 1)
	assert.Contains(t, inf.requests[0].Prompt, "router hostnames follow rtr- prefix")
}
