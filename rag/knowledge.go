package rag

import (
	"context"
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/logger"
)

// minPatternRelevance filters low-signal entity patterns out of guidance.
const minPatternRelevance = 0.2

// dataset is the on-disk knowledge base format.
type dataset struct {
	Metadata struct {
		DatasetVersion string `json:"dataset_version"`
	} `json:"metadata"`
	EntityPatterns []struct {
		Pattern    string `json:"pattern"`
		Category   string `json:"category"`
		EntityType string `json:"entity_type"`
		Strategy   string `json:"strategy"`
	} `json:"entity_patterns"`
	Scenarios []struct {
		DocumentType string `json:"document_type"`
		Description  string `json:"description"`
	} `json:"scenarios"`
	ComplianceRules []ComplianceRule `json:"compliance_rules"`
}

// KnowledgeBase retrieves guidance from a JSON dataset by keyword relevance.
type KnowledgeBase struct {
	data dataset
	log  *zap.SugaredLogger
}

var _ Retriever = (*KnowledgeBase)(nil)

// LoadKnowledgeBase reads a dataset file from disk.
func LoadKnowledgeBase(path string, log *zap.SugaredLogger) (*KnowledgeBase, error) {
	if log == nil {
		log = logger.Nop()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read knowledge base %q", path)
	}
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrapf(err, "failed to parse knowledge base %q", path)
	}
	log.Infow("Knowledge base loaded",
		"path", path,
		"version", data.Metadata.DatasetVersion,
		"patterns", len(data.EntityPatterns),
		"scenarios", len(data.Scenarios),
		"compliance_rules", len(data.ComplianceRules),
	)
	return &KnowledgeBase{data: data, log: log.Named("rag")}, nil
}

// Context retrieves the knowledge relevant to a document: entity patterns
// matched against the document type and a text sample, similar scenarios,
// compliance rules covering the requested entity types, and per-type
// anonymization strategy suggestions.
func (kb *KnowledgeBase) Context(ctx context.Context, docType, textSample string, entityTypes []string) (Guidance, error) {
	if err := ctx.Err(); err != nil {
		return Guidance{}, err
	}

	const sampleLimit = 300
	if len(textSample) > sampleLimit {
		textSample = textSample[:sampleLimit]
	}
	queryTerms := termSet(docType, textSample)

	var guidance Guidance

	candidates := make([]scored, 0, len(kb.data.EntityPatterns))
	for _, p := range kb.data.EntityPatterns {
		candidates = append(candidates, scored{
			pattern: Pattern{Text: p.Pattern, Category: p.Category, EntityType: p.EntityType},
			score:   relevance(queryTerms, p.Pattern+" "+p.Category+" "+p.EntityType),
		})
	}
	guidance.EntityPatterns = rank(candidates, minPatternRelevance, 15)

	scenarios := make([]scored, 0, len(kb.data.Scenarios))
	for _, s := range kb.data.Scenarios {
		scenarios = append(scenarios, scored{
			pattern: Pattern{Text: s.Description, Category: s.DocumentType},
			score:   relevance(queryTerms, s.DocumentType+" "+s.Description),
		})
	}
	guidance.Scenarios = rank(scenarios, minPatternRelevance, 2)

	if len(entityTypes) > 0 {
		wanted := make(map[string]struct{}, len(entityTypes))
		for _, et := range entityTypes {
			wanted[et] = struct{}{}
		}
		for _, rule := range kb.data.ComplianceRules {
			for _, et := range rule.EntityTypes {
				if _, ok := wanted[et]; ok {
					guidance.Compliance = append(guidance.Compliance, rule)
					break
				}
			}
		}
	}

	guidance.SuggestedStrategies = kb.suggestedStrategies()

	kb.log.Debugw("Knowledge retrieved",
		"document_type", docType,
		"patterns", len(guidance.EntityPatterns),
		"scenarios", len(guidance.Scenarios),
		"compliance_rules", len(guidance.Compliance),
	)
	return guidance, nil
}

// suggestedStrategies collects per-entity-type strategy recommendations from
// the pattern set. Only valid strategy names are carried.
func (kb *KnowledgeBase) suggestedStrategies() map[string]document.Strategy {
	suggestions := make(map[string]document.Strategy)
	for _, p := range kb.data.EntityPatterns {
		if p.EntityType == "" || p.Strategy == "" {
			continue
		}
		s := document.Strategy(p.Strategy)
		if !document.ValidStrategy(s) {
			continue
		}
		if _, exists := suggestions[p.EntityType]; !exists {
			suggestions[p.EntityType] = s
		}
	}
	if len(suggestions) == 0 {
		return nil
	}
	return suggestions
}
