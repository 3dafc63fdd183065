// Package rag retrieves domain knowledge that sharpens entity extraction and
// anonymization decisions. The pipeline is functionally identical without it:
// retrieval failures degrade to empty guidance, never to a failed stage.
package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/obscura-io/obscura/document"
)

// Pattern is one retrieved knowledge snippet with its relevance to the query.
type Pattern struct {
	Text       string  `json:"text"`
	Category   string  `json:"category,omitempty"`
	EntityType string  `json:"entity_type,omitempty"`
	Relevance  float64 `json:"relevance"`
}

// ComplianceRule ties a regulatory framework to the entity types it covers.
type ComplianceRule struct {
	Framework   string   `json:"framework"`
	Rule        string   `json:"rule"`
	EntityTypes []string `json:"entity_types,omitempty"`
}

// Guidance is the retrieval result handed to stage agents. All fields may be
// empty.
type Guidance struct {
	EntityPatterns []Pattern        `json:"entity_patterns,omitempty"`
	Scenarios      []Pattern        `json:"similar_scenarios,omitempty"`
	Compliance     []ComplianceRule `json:"compliance_requirements,omitempty"`

	// SuggestedStrategies maps entity types to the anonymization strategy
	// domain knowledge recommends. The engine only honors upgrades from
	// Preserve to Tokenize.
	SuggestedStrategies map[string]document.Strategy `json:"suggested_strategies,omitempty"`
}

// Empty reports whether retrieval produced nothing useful.
func (g Guidance) Empty() bool {
	return len(g.EntityPatterns) == 0 && len(g.Scenarios) == 0 &&
		len(g.Compliance) == 0 && len(g.SuggestedStrategies) == 0
}

// PromptContext renders guidance as a prompt fragment for inference calls.
// Returns "" for empty guidance so callers can append unconditionally.
func (g Guidance) PromptContext() string {
	if g.Empty() {
		return ""
	}
	var b strings.Builder
	if len(g.EntityPatterns) > 0 {
		b.WriteString("Known entity patterns for this document type:\n")
		for _, p := range g.EntityPatterns {
			if p.EntityType != "" {
				fmt.Fprintf(&b, "- [%s] %s\n", p.EntityType, p.Text)
			} else {
				fmt.Fprintf(&b, "- %s\n", p.Text)
			}
		}
	}
	if len(g.Scenarios) > 0 {
		b.WriteString("Similar scenarios:\n")
		for _, s := range g.Scenarios {
			fmt.Fprintf(&b, "- %s\n", s.Text)
		}
	}
	if len(g.Compliance) > 0 {
		b.WriteString("Compliance requirements:\n")
		for _, c := range g.Compliance {
			fmt.Fprintf(&b, "- %s: %s\n", c.Framework, c.Rule)
		}
	}
	return b.String()
}

// Retriever supplies domain knowledge for a document under analysis.
type Retriever interface {
	Context(ctx context.Context, docType, textSample string, entityTypes []string) (Guidance, error)
}

// Noop retrieves nothing. Used when no knowledge base is configured.
type Noop struct{}

var _ Retriever = Noop{}

// Context always returns empty guidance.
func (Noop) Context(context.Context, string, string, []string) (Guidance, error) {
	return Guidance{}, nil
}

// scored pairs a candidate with its query relevance during ranking.
type scored struct {
	pattern Pattern
	score   float64
}

func rank(candidates []scored, minScore float64, topK int) []Pattern {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	out := make([]Pattern, 0, topK)
	for _, c := range candidates {
		if c.score < minScore {
			continue
		}
		c.pattern.Relevance = c.score
		out = append(out, c.pattern)
		if len(out) == topK {
			break
		}
	}
	return out
}

// relevance scores a candidate against query terms by token overlap,
// standing in for the embedding distance of a vector store.
func relevance(queryTerms map[string]struct{}, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	hits := 0
	seen := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := queryTerms[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

func termSet(parts ...string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, p := range parts {
		for _, tok := range tokenize(p) {
			terms[tok] = struct{}{}
		}
	}
	return terms
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
