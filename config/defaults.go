package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Pipeline defaults
	v.SetDefault("pipeline.max_workers", 5)
	v.SetDefault("pipeline.grace_seconds", 5)

	// Inference defaults (Ollama-compatible local endpoint)
	v.SetDefault("inference.base_url", "http://localhost:11434")
	v.SetDefault("inference.fast_model", "gemma:2b")
	v.SetDefault("inference.smart_model", "mistral")
	v.SetDefault("inference.timeout_seconds", 120)
	v.SetDefault("inference.max_retries", 2)
	v.SetDefault("inference.requests_per_minute", 0) // unlimited by default

	// Chunking defaults mirror what the analysis models tolerate
	v.SetDefault("chunking.chunk_size", 2000)
	v.SetDefault("chunking.overlap", 200)

	// Knowledge retrieval is opt-in
	v.SetDefault("rag.dataset_path", "")

	// Audit defaults
	v.SetDefault("audit.dir", "data/output")
	v.SetDefault("audit.db_path", "")        // run persistence off unless configured
	v.SetDefault("audit.encryption_key", "") // mapping export stays count-only without a key

	// Logging defaults
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.verbose", false)
}
