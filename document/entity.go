package document

// Strategy is the anonymization treatment assigned to an entity.
type Strategy string

const (
	// StrategyRedact replaces the entity text with a fixed sentinel.
	StrategyRedact Strategy = "Redact"
	// StrategyTokenize replaces the entity text with a deterministic,
	// type-prefixed token that is stable for the whole run.
	StrategyTokenize Strategy = "Tokenize"
	// StrategyPreserve leaves the entity text unchanged.
	StrategyPreserve Strategy = "Preserve"
)

// ValidStrategy reports whether s is one of the known strategies.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyRedact, StrategyTokenize, StrategyPreserve:
		return true
	default:
		return false
	}
}

// Entity is a detected span of sensitive text. Offsets are absolute indexes
// into the run's full text. Invariant: StartChar <= EndChar; within a
// reconciled set, (Text, StartChar) is unique.
type Entity struct {
	Text           string   `json:"text"`
	Type           string   `json:"entity_type"` // "Person", "Email Address", "IP Address", ...
	StartChar      int      `json:"start_char"`
	EndChar        int      `json:"end_char"`
	Confidence     float64  `json:"confidence"`
	Strategy       Strategy `json:"anonymization_strategy"`
	AnonymizedText string   `json:"anonymized_text,omitempty"` // filled post-anonymization
}

// Key returns the dedup identity of an entity within a reconciled set.
func (e Entity) Key() EntityKey {
	return EntityKey{Text: e.Text, StartChar: e.StartChar}
}

// EntityKey identifies an entity by literal text and absolute start offset.
type EntityKey struct {
	Text      string
	StartChar int
}

// Relationship connects two entities by their literal text.
type Relationship struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Description string `json:"description"`
}

// Finding is one security risk identified by the assessment stage. Detail
// fields refer to entities by type only, never by sensitive text.
type Finding struct {
	Summary            string   `json:"finding_summary"`
	RiskLevel          int      `json:"risk_level"` // 1 (low) .. 5 (critical)
	Explanation        string   `json:"detailed_explanation"`
	Recommendation     string   `json:"recommendation"`
	ComplianceMappings []string `json:"compliance_mappings,omitempty"`
	Guidance           string   `json:"implementation_guidance,omitempty"`
}

// AnonymizationSummary counts how each strategy was applied during a run.
type AnonymizationSummary struct {
	Redacted  int `json:"redacted"`
	Tokenized int `json:"tokenized"`
	Preserved int `json:"preserved"`
	Total     int `json:"total"`
}
