package document

// State is the additive accumulator for one document-processing run. It is
// seeded with the document reference and file name, grows as stages complete,
// and never shrinks during a run. Exactly one State exists per run; it is
// owned by the orchestrator and must never be shared across concurrent runs.
//
// Fields are declared up front rather than accumulated in an untyped map so
// that stage wiring is checked at compile time: each stage reads the fields
// it declares and writes through a StageOutput.
type State struct {
	RunID    string
	FileName string
	Document *Document

	// Written by the understanding stage.
	FullText            string
	DocumentType        string
	DocumentDescription string
	SecurityDomains     []string
	RAGContext          map[string]any

	// Written by the analysis stage.
	Entities      []Entity
	Relationships []Relationship

	// Written by the assessment stage.
	Findings []Finding

	// Written by the anonymization stage.
	AnonymizedText       string
	AnonymizedEntities   []Entity
	AnonymizationSummary *AnonymizationSummary

	// Written by the reporting stage.
	MarkdownReport string
}

// NewState seeds a run-scoped State from a document reference.
func NewState(runID string, doc *Document) *State {
	s := &State{RunID: runID, Document: doc}
	if doc != nil {
		s.FileName = doc.FileName
	}
	return s
}

// StageOutput is the typed result data a stage hands back for merging.
// A nil pointer or nil slice means "not written by this stage"; a later
// stage's non-nil field overwrites the same field written earlier. There is
// no deep merge.
type StageOutput struct {
	FullText            *string
	DocumentType        *string
	DocumentDescription *string
	SecurityDomains     []string
	RAGContext          map[string]any

	Entities      []Entity
	Relationships []Relationship

	Findings []Finding

	AnonymizedText       *string
	AnonymizedEntities   []Entity
	AnonymizationSummary *AnonymizationSummary

	MarkdownReport *string
}

// Apply merges a stage's output into the state. Merges happen in stage order,
// so later writes win over identically named earlier ones.
func (s *State) Apply(out *StageOutput) {
	if out == nil {
		return
	}
	if out.FullText != nil {
		s.FullText = *out.FullText
	}
	if out.DocumentType != nil {
		s.DocumentType = *out.DocumentType
	}
	if out.DocumentDescription != nil {
		s.DocumentDescription = *out.DocumentDescription
	}
	if out.SecurityDomains != nil {
		s.SecurityDomains = out.SecurityDomains
	}
	if out.RAGContext != nil {
		s.RAGContext = out.RAGContext
	}
	if out.Entities != nil {
		s.Entities = out.Entities
	}
	if out.Relationships != nil {
		s.Relationships = out.Relationships
	}
	if out.Findings != nil {
		s.Findings = out.Findings
	}
	if out.AnonymizedText != nil {
		s.AnonymizedText = *out.AnonymizedText
	}
	if out.AnonymizedEntities != nil {
		s.AnonymizedEntities = out.AnonymizedEntities
	}
	if out.AnonymizationSummary != nil {
		s.AnonymizationSummary = out.AnonymizationSummary
	}
	if out.MarkdownReport != nil {
		s.MarkdownReport = *out.MarkdownReport
	}
}

// FinalEntities returns the anonymized entity set when present, falling back
// to the reconciled analysis set. Used for run summaries.
func (s *State) FinalEntities() []Entity {
	if s.AnonymizedEntities != nil {
		return s.AnonymizedEntities
	}
	return s.Entities
}

// Str returns a pointer to a string literal, for building StageOutputs.
func Str(v string) *string { return &v }
