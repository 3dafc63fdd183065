// Package anonymize applies per-entity anonymization strategies to document
// text and maintains the run-scoped token registry that keeps every mention
// of the same sensitive value mapped to the same token.
package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/logger"
)

// RedactedSentinel replaces every redacted entity, regardless of type.
const RedactedSentinel = "[REDACTED]"

// TokenRegistry maps original text to its deterministic token for exactly one
// document-processing run. Construct a fresh registry per run and pass it by
// argument; reusing a registry across runs leaks token assignments between
// documents.
type TokenRegistry struct {
	tokens map[string]string
}

// NewTokenRegistry creates an empty run-scoped registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[string]string)}
}

// Token returns the stable token for text. The first call for a given text
// mints "[" + TYPE + "_" + sha256(text)[:8] + "]"; later calls return the
// minted token verbatim, whatever entity type they carry. This guarantees
// every mention of the same value maps to one token across the document.
func (r *TokenRegistry) Token(text, entityType string) string {
	if token, ok := r.tokens[text]; ok {
		return token
	}
	sum := sha256.Sum256([]byte(text))
	token := "[" + normalizeType(entityType) + "_" + hex.EncodeToString(sum[:])[:8] + "]"
	r.tokens[text] = token
	return token
}

// Len returns how many distinct values have been tokenized this run.
func (r *TokenRegistry) Len() int { return len(r.tokens) }

// Mappings returns a copy of the original→token map, for encrypted export by
// downstream audit collaborators.
func (r *TokenRegistry) Mappings() map[string]string {
	out := make(map[string]string, len(r.tokens))
	for k, v := range r.tokens {
		out[k] = v
	}
	return out
}

func normalizeType(entityType string) string {
	if entityType == "" {
		entityType = "ENTITY"
	}
	t := strings.ToUpper(entityType)
	t = strings.ReplaceAll(t, " ", "_")
	t = strings.ReplaceAll(t, "/", "_")
	return t
}

// Result is the outcome of applying strategies to a document.
type Result struct {
	Text     string
	Entities []document.Entity
	Summary  document.AnonymizationSummary
}

// Apply transforms fullText according to each entity's strategy and returns
// the transformed text, the entities with AnonymizedText filled, and summary
// counters.
//
// Entities whose strategy is Preserve may be upgraded to Tokenize by the
// optional suggested map (entity type → strategy), typically sourced from
// knowledge retrieval guidance. Preserve is never auto-upgraded to Redact.
//
// Substitution replaces every occurrence of an entity's literal text, longest
// text first so a short entity whose text is a substring of a longer one
// cannot corrupt it, and never rewrites characters inside an already-inserted
// token or sentinel.
func Apply(fullText string, entities []document.Entity, registry *TokenRegistry,
	suggested map[string]document.Strategy, log *zap.SugaredLogger) Result {

	if log == nil {
		log = logger.Nop()
	}
	if registry == nil {
		registry = NewTokenRegistry()
	}

	result := Result{Text: fullText}
	if len(entities) == 0 {
		return result
	}

	// Resolve each distinct literal to one replacement, longest literal
	// first. The first entity seen for a literal decides its strategy;
	// reconciliation upstream already deduplicated spans.
	ordered := make([]document.Entity, len(entities))
	copy(ordered, entities)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Text) > len(ordered[j].Text)
	})

	replacements := make(map[string]string, len(ordered))
	strategies := make(map[string]document.Strategy, len(ordered))
	var protected []span

	for _, e := range ordered {
		if _, done := strategies[e.Text]; done {
			continue
		}
		strategy := effectiveStrategy(e, suggested)
		strategies[e.Text] = strategy

		switch strategy {
		case document.StrategyRedact:
			replacements[e.Text] = RedactedSentinel
		case document.StrategyTokenize:
			replacements[e.Text] = registry.Token(e.Text, e.Type)
		default:
			replacements[e.Text] = e.Text
			continue // nothing to substitute
		}
		result.Text, protected = replaceAllOutside(result.Text, e.Text, replacements[e.Text], protected)
	}

	for _, e := range entities {
		e.Strategy = strategies[e.Text]
		e.AnonymizedText = replacements[e.Text]
		result.Entities = append(result.Entities, e)

		switch e.Strategy {
		case document.StrategyRedact:
			result.Summary.Redacted++
		case document.StrategyTokenize:
			result.Summary.Tokenized++
		default:
			result.Summary.Preserved++
		}
		result.Summary.Total++
	}

	log.Debugw("Anonymization applied",
		logger.FieldEntities, result.Summary.Total,
		"redacted", result.Summary.Redacted,
		"tokenized", result.Summary.Tokenized,
		"preserved", result.Summary.Preserved,
		"registry_size", registry.Len(),
	)
	return result
}

// effectiveStrategy resolves an entity's strategy: an unset strategy means
// Preserve, and a Preserve entity may be upgraded to Tokenize by a per-type
// suggestion. Nothing is ever upgraded to Redact automatically.
func effectiveStrategy(e document.Entity, suggested map[string]document.Strategy) document.Strategy {
	strategy := e.Strategy
	if strategy == "" {
		strategy = document.StrategyPreserve
	}
	if strategy == document.StrategyPreserve && suggested != nil {
		if s, ok := suggested[e.Type]; ok && s == document.StrategyTokenize {
			strategy = document.StrategyTokenize
		}
	}
	return strategy
}

// span marks a half-open region [start, end) of the working text that holds
// an inserted token or sentinel and must not be rewritten.
type span struct {
	start, end int
}

// replaceAllOutside replaces every occurrence of old in text with new,
// skipping occurrences that overlap a protected span. It returns the new
// text and the protected spans valid for it: prior spans shifted by the
// length deltas of replacements to their left, plus the spans of the
// replacements just inserted.
func replaceAllOutside(text, old, new string, protected []span) (string, []span) {
	if old == "" || old == new {
		return text, protected
	}

	overlaps := func(start, end int) bool {
		for _, s := range protected {
			if start < s.end && s.start < end {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	var inserted []span          // spans of new insertions, in new-text coordinates
	var replacedStarts []int     // original-text starts of performed replacements
	shift, cursor := 0, 0
	delta := len(new) - len(old)

	for {
		idx := strings.Index(text[cursor:], old)
		if idx < 0 {
			break
		}
		start := cursor + idx
		end := start + len(old)
		if overlaps(start, end) {
			b.WriteString(text[cursor:end])
			cursor = end
			continue
		}
		b.WriteString(text[cursor:start])
		b.WriteString(new)
		inserted = append(inserted, span{start: start + shift, end: start + shift + len(new)})
		replacedStarts = append(replacedStarts, start)
		shift += delta
		cursor = end
	}
	b.WriteString(text[cursor:])

	// Shift surviving spans by the deltas of replacements made before them.
	updated := make([]span, 0, len(protected)+len(inserted))
	for _, s := range protected {
		n := sort.SearchInts(replacedStarts, s.start)
		updated = append(updated, span{start: s.start + n*delta, end: s.end + n*delta})
	}
	updated = append(updated, inserted...)
	sort.Slice(updated, func(i, j int) bool { return updated[i].start < updated[j].start })
	return b.String(), updated
}
