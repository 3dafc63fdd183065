package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/rag"
)

func TestUnderstandingBlankDocument(t *testing.T) {
	inf := &fakeInference{}
	u := NewUnderstanding(inf, nil, nil)
	state := document.NewState("run-1", &document.Document{FileName: "scan.pdf"})

	out, err := u.Process(context.Background(), stageTask(t, agent.CapUnderstanding, state))
	require.NoError(t, err)
	require.NotNil(t, out.DocumentType)
	assert.Equal(t, "blank_or_image_only", *out.DocumentType)
	assert.Equal(t, "", *out.FullText)
	assert.NotNil(t, out.SecurityDomains)
	assert.Empty(t, out.SecurityDomains)
	assert.Empty(t, inf.requests, "no inference for blank documents")
}

func TestUnderstandingMissingDocument(t *testing.T) {
	u := NewUnderstanding(&fakeInference{}, nil, nil)
	_, err := u.Process(context.Background(), stageTask(t, agent.CapUnderstanding, document.NewState("run-1", nil)))
	require.Error(t, err)
}

func TestUnderstandingClassifiesAndDescribes(t *testing.T) {
	inf := &fakeInference{responses: []string{
		`{"document_type": "Network Firewall Configuration", "security_domains": ["network_security"], "rationale": "firewall rules"}`,
		`{"description": "A network firewall configuration describes permitted traffic flows."}`,
	}}
	u := NewUnderstanding(inf, nil, nil)

	text := "firewall rule: allow tcp port 443 from subnet 10.0.0.0/24"
	state := document.NewState("run-1", textDocument(t, text))

	out, err := u.Process(context.Background(), stageTask(t, agent.CapUnderstanding, state))
	require.NoError(t, err)
	assert.Equal(t, text, *out.FullText)
	assert.Equal(t, "Network Firewall Configuration", *out.DocumentType)
	assert.Equal(t, []string{"network_security"}, out.SecurityDomains)
	assert.Equal(t, "A network firewall configuration describes permitted traffic flows.", *out.DocumentDescription)
	assert.Nil(t, out.RAGContext, "no retriever configured")

	require.Len(t, inf.requests, 2)
	assert.Contains(t, inf.requests[0].Prompt, text)
	assert.Contains(t, inf.requests[0].Prompt, "Network Security Document", "hints offered to the model")
}

func TestUnderstandingShortDescriptionFails(t *testing.T) {
	inf := &fakeInference{responses: []string{
		`{"document_type": "contract", "security_domains": ["data_privacy"]}`,
		`{"description": "short"}`,
	}}
	u := NewUnderstanding(inf, nil, nil)
	state := document.NewState("run-1", textDocument(t, "some contract text"))

	_, err := u.Process(context.Background(), stageTask(t, agent.CapUnderstanding, state))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "description")
}

func TestUnderstandingAttachesGuidance(t *testing.T) {
	inf := &fakeInference{responses: []string{
		`{"document_type": "contract", "security_domains": ["data_privacy"]}`,
		`{"description": "A contract records an agreement between parties."}`,
	}}
	retriever := &fakeRetriever{guidance: rag.Guidance{
		SuggestedStrategies: map[string]document.Strategy{"Email Address": document.StrategyTokenize},
	}}
	u := NewUnderstanding(inf, retriever, nil)
	state := document.NewState("run-1", textDocument(t, "employment contract between parties"))

	out, err := u.Process(context.Background(), stageTask(t, agent.CapUnderstanding, state))
	require.NoError(t, err)
	require.NotNil(t, out.RAGContext)
	assert.Equal(t, 1, retriever.calls)

	state.Apply(&out)
	guidance, ok := GuidanceFromState(state)
	require.True(t, ok)
	assert.Equal(t, document.StrategyTokenize, guidance.SuggestedStrategies["Email Address"])
	assert.NotEmpty(t, out.RAGContext["retrieved_at"])
}

func TestUnderstandingRetrievalFailureIsNonFatal(t *testing.T) {
	inf := &fakeInference{responses: []string{
		`{"document_type": "contract", "security_domains": ["data_privacy"]}`,
		`{"description": "A contract records an agreement between parties."}`,
	}}
	retriever := &fakeRetriever{err: errors.New("vector store offline")}
	u := NewUnderstanding(inf, retriever, nil)
	state := document.NewState("run-1", textDocument(t, "employment contract"))

	out, err := u.Process(context.Background(), stageTask(t, agent.CapUnderstanding, state))
	require.NoError(t, err)
	assert.Nil(t, out.RAGContext)
}

func TestClassificationHints(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantTop string
	}{
		{name: "cloud iam", text: "IAM role with assume role policy on AWS", wantTop: "Cloud IAM Configuration"},
		{name: "network", text: "firewall allows tcp on port 22", wantTop: "Network Security Document"},
		{name: "visitor log", text: "visitor badge sign in sheet", wantTop: "Visitor/Access Log"},
		{name: "incident", text: "breach timeline and threat actor notes", wantTop: "Security Incident Document"},
		{name: "nothing", text: "lorem ipsum dolor sit amet", wantTop: "Generic Document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := classificationHints(tt.text)
			require.NotEmpty(t, hints)
			assert.Equal(t, tt.wantTop, hints[0].DocumentType)
			for i := 1; i < len(hints); i++ {
				assert.GreaterOrEqual(t, hints[i-1].Confidence, hints[i].Confidence)
			}
		})
	}
}

func TestApplyHints(t *testing.T) {
	hints := []hint{{DocumentType: "Network Security Document", Confidence: 0.7}}

	// The model's answer wins when it is specific.
	got := applyHints(classificationResponse{DocumentType: "Firewall Ruleset"}, hints)
	assert.Equal(t, "Firewall Ruleset", got)

	// Weak model answers defer to a confident hint.
	got = applyHints(classificationResponse{DocumentType: "Generic Document"}, hints)
	assert.Equal(t, "Network Security Document", got)

	got = applyHints(classificationResponse{DocumentType: "unknown"}, hints)
	assert.Equal(t, "Network Security Document", got)

	// A low-confidence hint never overrides.
	weak := []hint{{DocumentType: "Generic Document", Confidence: 0.3}}
	got = applyHints(classificationResponse{DocumentType: "unclear"}, weak)
	assert.Equal(t, "unclear", got)

	got = applyHints(classificationResponse{DocumentType: ""}, weak)
	assert.Equal(t, "unknown", got)
}

func TestInferDomains(t *testing.T) {
	assert.Equal(t, []string{"cloud_security", "identity_access_management"}, inferDomains("Cloud IAM Configuration"))
	assert.Equal(t, []string{"network_security"}, inferDomains("Firewall Ruleset"))
	assert.Equal(t, []string{"data_privacy"}, inferDomains("Meeting Notes"))

	// Substring matching is coarse: "recipe" contains "ip".
	assert.Equal(t, []string{"network_security"}, inferDomains("Recipe Collection"))
}
