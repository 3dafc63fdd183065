package reconcile

import (
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/logger"
)

// Field aliases observed across inference schema versions. Earlier entries
// win when a record carries more than one alias for the same canonical field.
var (
	textAliases       = []string{"text", "entity_text", "value", "entity_value"}
	typeAliases       = []string{"entity_type", "type", "category", "label"}
	strategyAliases   = []string{"anonymization_strategy", "strategy", "suggested_strategy"}
	startAliases      = []string{"start_char", "start", "start_index", "offset_start"}
	endAliases        = []string{"end_char", "end", "end_index", "offset_end"}
	confidenceAliases = []string{"confidence", "score", "confidence_score"}
)

// NormalizeRecord maps a raw entity record from the inference collaborator
// into a typed Entity with offsets shifted by chunkOffset into absolute
// document coordinates.
//
// Required after normalization: text, entity_type, start_char. end_char is
// computed as start_char plus the character count of text when absent. A missing strategy means
// Preserve (the anonymization stage may upgrade it). Confidence defaults to
// 1.0 when absent and is clamped to [0, 1]. A missing required field or a
// value that does not coerce returns ErrValidation; callers drop the record
// and continue.
func NormalizeRecord(raw map[string]any, chunkOffset int) (document.Entity, error) {
	var e document.Entity

	text, ok := lookupString(raw, textAliases)
	if !ok || text == "" {
		return e, errors.NewValidationError("entity record missing text field")
	}

	entityType, ok := lookupString(raw, typeAliases)
	if !ok || entityType == "" {
		return e, errors.NewValidationError("entity record %q missing entity_type", text)
	}

	start, found, err := lookupInt(raw, startAliases)
	if err != nil {
		return e, err
	}
	if !found {
		return e, errors.NewValidationError("entity record %q missing start_char", text)
	}

	end, found, err := lookupInt(raw, endAliases)
	if err != nil {
		return e, err
	}
	if !found {
		end = start + utf8.RuneCountInString(text)
	}

	confidence, found, err := lookupFloat(raw, confidenceAliases)
	if err != nil {
		return e, err
	}
	if !found {
		confidence = 1.0
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	strategy := document.StrategyPreserve
	if s, ok := lookupString(raw, strategyAliases); ok && s != "" {
		if !document.ValidStrategy(document.Strategy(s)) {
			return e, errors.NewValidationError("entity record %q has unknown strategy %q", text, s)
		}
		strategy = document.Strategy(s)
	}

	e = document.Entity{
		Text:       text,
		Type:       entityType,
		StartChar:  start + chunkOffset,
		EndChar:    end + chunkOffset,
		Confidence: confidence,
		Strategy:   strategy,
	}
	if e.StartChar > e.EndChar {
		return document.Entity{}, errors.NewValidationError(
			"entity record %q has start_char %d > end_char %d", text, e.StartChar, e.EndChar)
	}
	return e, nil
}

// Pool accumulates entities found across overlapping chunks. Entities seen
// redundantly in overlap regions are deduplicated by (text, absolute start);
// the first occurrence wins.
type Pool struct {
	seen     map[document.EntityKey]struct{}
	entities []document.Entity
	dropped  int
	log      *zap.SugaredLogger
}

// NewPool creates an empty reconciliation pool.
func NewPool(log *zap.SugaredLogger) *Pool {
	if log == nil {
		log = logger.Nop()
	}
	return &Pool{seen: make(map[document.EntityKey]struct{}), log: log}
}

// Add inserts an entity unless its (text, start) key was already seen.
// Returns true when the entity was kept.
func (p *Pool) Add(e document.Entity) bool {
	key := e.Key()
	if _, dup := p.seen[key]; dup {
		return false
	}
	p.seen[key] = struct{}{}
	p.entities = append(p.entities, e)
	return true
}

// AddRaw normalizes a raw record and adds it to the pool. Validation
// failures are logged at warn level and counted, never propagated: a
// malformed record from the inference collaborator must not fail a stage.
func (p *Pool) AddRaw(raw map[string]any, chunkOffset int) {
	e, err := NormalizeRecord(raw, chunkOffset)
	if err != nil {
		p.dropped++
		p.log.Warnw("Dropping malformed entity record",
			logger.FieldError, err.Error(),
			logger.FieldDropped, p.dropped,
		)
		return
	}
	p.Add(e)
}

// Entities returns the reconciled set in insertion order.
func (p *Pool) Entities() []document.Entity { return p.entities }

// Dropped returns how many records were discarded by validation.
func (p *Pool) Dropped() int { return p.dropped }

func lookupString(raw map[string]any, aliases []string) (string, bool) {
	for _, key := range aliases {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func lookupInt(raw map[string]any, aliases []string) (int, bool, error) {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64: // JSON numbers decode as float64
			return int(n), true, nil
		case int:
			return n, true, nil
		case string:
			parsed, err := strconv.Atoi(n)
			if err != nil {
				return 0, false, errors.NewValidationError("field %q is not numeric: %q", key, n)
			}
			return parsed, true, nil
		default:
			return 0, false, errors.NewValidationError("field %q has unsupported type %T", key, v)
		}
	}
	return 0, false, nil
}

func lookupFloat(raw map[string]any, aliases []string) (float64, bool, error) {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true, nil
		case int:
			return float64(n), true, nil
		case string:
			parsed, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return 0, false, errors.NewValidationError("field %q is not numeric: %q", key, n)
			}
			return parsed, true, nil
		default:
			return 0, false, errors.NewValidationError("field %q has unsupported type %T", key, v)
		}
	}
	return 0, false, nil
}
