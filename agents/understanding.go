// Package agents implements the stage agents of the document pipeline. Each
// agent serves one pipeline capability, reads its inputs from the run state
// carried by the task, and returns a typed stage output.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/inference"
	"github.com/obscura-io/obscura/logger"
	"github.com/obscura-io/obscura/rag"
)

// RAGContextKey is where the understanding stage stores retrieval guidance
// in the state's RAGContext map. Value type: rag.Guidance.
const RAGContextKey = "guidance"

// Understanding classifies the document, writes the flattened full text, and
// attaches optional knowledge-retrieval context for later stages.
type Understanding struct {
	inf       inference.Client
	retriever rag.Retriever
	log       *zap.SugaredLogger
}

var _ agent.Agent = (*Understanding)(nil)

// NewUnderstanding creates the document understanding agent. retriever may
// be nil; the stage works identically without retrieval.
func NewUnderstanding(inf inference.Client, retriever rag.Retriever, log *zap.SugaredLogger) *Understanding {
	if log == nil {
		log = logger.Nop()
	}
	if retriever == nil {
		retriever = rag.Noop{}
	}
	return &Understanding{inf: inf, retriever: retriever, log: log.Named("understanding")}
}

func (u *Understanding) Name() string           { return "understanding" }
func (u *Understanding) Capabilities() []string { return []string{agent.CapUnderstanding} }
func (u *Understanding) Healthy() bool          { return true }

// Process flattens the document, classifies it with heuristic hints backing
// up the model, and generates a privacy-neutral description of the type.
func (u *Understanding) Process(ctx context.Context, task agent.Task) (document.StageOutput, error) {
	if task.State == nil || task.State.Document == nil {
		return document.StageOutput{}, errors.New("no document provided")
	}

	fullText := document.Flatten(task.State.Document)
	if strings.TrimSpace(fullText) == "" {
		return document.StageOutput{
			FullText:            document.Str(""),
			DocumentType:        document.Str("blank_or_image_only"),
			DocumentDescription: document.Str("The document is blank or contains no extractable text."),
			SecurityDomains:     []string{},
		}, nil
	}

	sample := truncate(fullText, 3000)
	hints := classificationHints(sample)

	docType, domains, err := u.classify(ctx, sample, hints)
	if err != nil {
		return document.StageOutput{}, errors.Wrap(err, "failed during classification")
	}
	u.log.Infow("Document classified",
		"document_type", docType,
		"security_domains", domains,
	)

	description, err := u.describe(ctx, docType, hints)
	if err != nil {
		return document.StageOutput{}, errors.Wrap(err, "failed to generate document description")
	}

	out := document.StageOutput{
		FullText:            &fullText,
		DocumentType:        &docType,
		DocumentDescription: &description,
		SecurityDomains:     domains,
	}

	// Retrieval is best effort. A broken knowledge base must not fail the
	// stage.
	guidance, err := u.retriever.Context(ctx, docType, truncate(fullText, 2000), nil)
	if err != nil {
		u.log.Warnw("Knowledge retrieval failed", logger.FieldError, err)
	} else if !guidance.Empty() {
		out.RAGContext = map[string]any{
			RAGContextKey:  guidance,
			"retrieved_at": time.Now().UTC().Format(time.RFC3339),
		}
	}

	return out, nil
}

type classificationResponse struct {
	DocumentType    string   `json:"document_type"`
	SecurityDomains []string `json:"security_domains"`
	Rationale       string   `json:"rationale"`
}

func (u *Understanding) classify(ctx context.Context, sample string, hints []hint) (string, []string, error) {
	hintPayload, _ := json.Marshal(hints)

	system := "You are an expert document analyst with deep understanding of various document types. " +
		"Analyze the actual content and classify it accurately based on what the document truly contains. " +
		"Be specific and descriptive."
	prompt := fmt.Sprintf(`Analyze and classify this document based on its actual content. Provide a specific, meaningful document type.

GUIDELINES:
- Classify based on the document's primary purpose and content
- Be specific: prefer 'Network Firewall Configuration' over 'Generic Document'
- Use hints only if they align with the actual text content
- Identify 1-3 relevant security domains (e.g., network_security, physical_security, cloud_security, data_privacy)
- Only use 'Generic Document' if the content is truly unclear or mixed-purpose

DOCUMENT TEXT:
<<<
%s
>>>

HINTS (for reference only):
%s

Return JSON with: {"document_type": "Specific descriptive name", "security_domains": ["domain1", "domain2"], "rationale": "Brief explanation"}`,
		sample, hintPayload)

	var resp classificationResponse
	if err := u.inf.GenerateJSON(ctx, inference.Request{System: system, Prompt: prompt, Tier: inference.TierFast}, &resp); err != nil {
		return "", nil, err
	}

	return applyHints(resp, hints), resolveDomains(resp), nil
}

func (u *Understanding) describe(ctx context.Context, docType string, hints []hint) (string, error) {
	summary := hints
	if len(summary) > 3 {
		summary = summary[:3]
	}
	hintSummary, _ := json.Marshal(summary)

	system := "You are drafting a neutral description for a document type. Explain the typical purpose " +
		"of this type without repeating sensitive details or examples from the provided text."
	prompt := fmt.Sprintf("Document type: %s\n"+
		"Use the context summary to stay aligned but DO NOT include literal tokens from the document.\n"+
		"Context summary (for your awareness only): %s\n"+
		`Respond with JSON: {"description": "A [document type]..."}.`,
		docType, hintSummary)

	var resp struct {
		Description string `json:"description"`
	}
	if err := u.inf.GenerateJSON(ctx, inference.Request{System: system, Prompt: prompt, Tier: inference.TierFast}, &resp); err != nil {
		return "", err
	}

	description := strings.TrimSpace(resp.Description)
	if len(description) < 10 {
		return "", errors.Newf("invalid description returned: %q", description)
	}
	return description, nil
}

// hint is a heuristic classification candidate offered to the model.
type hint struct {
	DocumentType string  `json:"document_type"`
	Reason       string  `json:"reason"`
	Confidence   float64 `json:"confidence"`
}

// hintRules pairs content indicators with the document type they suggest.
var hintRules = []struct {
	docType    string
	reason     string
	confidence float64
	terms      []string
}{
	{"Visitor/Access Log", "Contains visitor or access control terminology", 0.7,
		[]string{"visitor", "sign in", "entry", "badge", "access log"}},
	{"Cloud IAM Configuration", "Contains cloud identity and access management terms", 0.75,
		[]string{"iam", "role", "policy", "permission", "aws", "azure", "gcp", "assume role"}},
	{"Network Security Document", "Contains networking and security terminology", 0.7,
		[]string{"firewall", "port", "tcp", "udp", "ip address", "subnet", "source ranges"}},
	{"Compliance/Policy Document", "Contains compliance or policy language", 0.65,
		[]string{"compliance", "audit", "regulation", "policy", "standard"}},
	{"Monitoring/Operations Document", "Contains monitoring or operational terms", 0.65,
		[]string{"monitor", "alert", "dashboard", "metric", "log", "cctv", "camera"}},
	{"Security Incident Document", "Contains incident or threat terminology", 0.7,
		[]string{"incident", "breach", "vulnerability", "threat", "attack"}},
}

// classificationHints scans the sample for content indicators. Hints are
// suggestions for the model, sorted by confidence; they only decide the
// classification when the model itself punts.
func classificationHints(sample string) []hint {
	lower := strings.ToLower(sample)

	var hints []hint
	for _, rule := range hintRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				hints = append(hints, hint{rule.docType, rule.reason, rule.confidence})
				break
			}
		}
	}
	if len(hints) == 0 {
		hints = append(hints, hint{"Generic Document", "No strong structural indicators found", 0.3})
	}

	sort.SliceStable(hints, func(i, j int) bool { return hints[i].Confidence > hints[j].Confidence })
	return hints
}

// applyHints trusts the model's classification and falls back to the top
// hint only when the model clearly failed.
func applyHints(resp classificationResponse, hints []hint) string {
	docType := resp.DocumentType
	switch strings.ToLower(docType) {
	case "", "unknown", "unclear", "generic", "generic document":
		if len(hints) > 0 && hints[0].Confidence >= 0.65 {
			return hints[0].DocumentType
		}
		if docType == "" {
			return "unknown"
		}
	}
	return docType
}

// resolveDomains uses the model's domains, inferring from the document type
// when the model returned nothing useful.
func resolveDomains(resp classificationResponse) []string {
	domains := resp.SecurityDomains
	if len(domains) > 0 && !(len(domains) == 1 && domains[0] == "general") {
		return domains
	}
	return inferDomains(resp.DocumentType)
}

var domainRules = []struct {
	terms   []string
	domains []string
}{
	{[]string{"iam", "role", "policy", "cloud", "aws", "azure"}, []string{"cloud_security", "identity_access_management"}},
	{[]string{"network", "firewall", "port", "ip"}, []string{"network_security"}},
	{[]string{"visitor", "access", "badge", "physical"}, []string{"physical_security", "data_privacy"}},
	{[]string{"compliance", "audit", "regulation"}, []string{"compliance"}},
	{[]string{"incident", "breach", "vulnerability"}, []string{"incident_response"}},
}

func inferDomains(docType string) []string {
	lower := strings.ToLower(docType)
	var domains []string
	for _, rule := range domainRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				domains = append(domains, rule.domains...)
				break
			}
		}
	}
	if len(domains) == 0 {
		return []string{"data_privacy"}
	}
	return domains
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// GuidanceFromState extracts the retrieval guidance the understanding stage
// stored, if any.
func GuidanceFromState(state *document.State) (rag.Guidance, bool) {
	if state == nil || state.RAGContext == nil {
		return rag.Guidance{}, false
	}
	g, ok := state.RAGContext[RAGContextKey].(rag.Guidance)
	return g, ok
}
