// Package config loads and validates Obscura configuration via Viper.
package config

// Config represents the core Obscura configuration.
type Config struct {
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Inference InferenceConfig `mapstructure:"inference"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PipelineConfig configures the stage orchestrator.
type PipelineConfig struct {
	// MaxWorkers bounds the dispatch pool shared by all stages of a run.
	MaxWorkers int `mapstructure:"max_workers"`

	// GraceSeconds is added to every stage timeout before the orchestrator
	// gives up waiting on a dispatched task.
	GraceSeconds int `mapstructure:"grace_seconds"`
}

// InferenceConfig configures the LLM inference collaborator.
// Any OpenAI-compatible endpoint works (Ollama, LocalAI, vLLM).
type InferenceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	FastModel      string `mapstructure:"fast_model"`  // classification, descriptions
	SmartModel     string `mapstructure:"smart_model"` // extraction, risk assessment
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`

	// RequestsPerMinute rate-limits calls to the backend. 0 disables limiting.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// ChunkingConfig configures how long documents are windowed for analysis.
type ChunkingConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
	Overlap   int `mapstructure:"overlap"`
}

// RAGConfig configures optional knowledge retrieval.
type RAGConfig struct {
	// DatasetPath points at a JSON knowledge base. Empty disables retrieval.
	DatasetPath string `mapstructure:"dataset_path"`
}

// AuditConfig configures the audit trail written at run end.
type AuditConfig struct {
	// Dir receives per-document JSONL audit logs and markdown reports.
	Dir string `mapstructure:"dir"`

	// DBPath is the SQLite database holding run records. Empty disables
	// run persistence.
	DBPath string `mapstructure:"db_path"`

	// EncryptionKeyHex is the hex-encoded AES key used to export token
	// mappings into the audit trail. Empty logs mapping counts only.
	EncryptionKeyHex string `mapstructure:"encryption_key"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	JSON    bool `mapstructure:"json"`
	Verbose bool `mapstructure:"verbose"`
}
