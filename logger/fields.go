package logger

// Standard field names for consistent structured logging across Obscura.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID    = "run_id"
	FieldTaskID   = "task_id"
	FieldAgentID  = "agent_id"
	FieldDocument = "document"

	// Components
	FieldComponent  = "component"
	FieldStage      = "stage"
	FieldCapability = "capability"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldTimeout    = "timeout"

	// Errors
	FieldError  = "error"
	FieldStatus = "status"

	// Counts
	FieldCount         = "count"
	FieldChunk         = "chunk"
	FieldChunks        = "chunks"
	FieldEntities      = "entities"
	FieldRelationships = "relationships"
	FieldDropped       = "dropped"
)
