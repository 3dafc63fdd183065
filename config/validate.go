package config

import (
	"encoding/hex"

	"github.com/obscura-io/obscura/errors"
)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Pipeline.MaxWorkers <= 0 {
		return errors.Newf("pipeline.max_workers must be > 0, got %d", c.Pipeline.MaxWorkers)
	}
	if c.Pipeline.GraceSeconds < 0 {
		return errors.Newf("pipeline.grace_seconds must be >= 0, got %d", c.Pipeline.GraceSeconds)
	}

	if c.Inference.BaseURL == "" {
		return errors.New("inference.base_url cannot be empty")
	}
	if c.Inference.FastModel == "" || c.Inference.SmartModel == "" {
		return errors.New("inference.fast_model and inference.smart_model cannot be empty")
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return errors.Newf("inference.timeout_seconds must be > 0, got %d", c.Inference.TimeoutSeconds)
	}
	if c.Inference.MaxRetries < 1 {
		return errors.Newf("inference.max_retries must be >= 1, got %d", c.Inference.MaxRetries)
	}
	if c.Inference.RequestsPerMinute < 0 {
		return errors.Newf("inference.requests_per_minute must be >= 0, got %d", c.Inference.RequestsPerMinute)
	}

	// Overlap must leave forward progress between windows.
	if c.Chunking.ChunkSize <= 0 {
		return errors.Newf("chunking.chunk_size must be > 0, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return errors.Newf("chunking.overlap must be in [0, chunk_size), got %d with chunk_size %d",
			c.Chunking.Overlap, c.Chunking.ChunkSize)
	}

	if c.Audit.EncryptionKeyHex != "" {
		key, err := hex.DecodeString(c.Audit.EncryptionKeyHex)
		if err != nil {
			return errors.Wrap(err, "audit.encryption_key must be hex-encoded")
		}
		switch len(key) {
		case 16, 24, 32:
		default:
			return errors.Newf("audit.encryption_key must decode to 16, 24 or 32 bytes, got %d", len(key))
		}
	}

	return nil
}

// EncryptionKey decodes the configured audit encryption key, nil when unset.
// Call Validate first; this ignores malformed keys.
func (c *Config) EncryptionKey() []byte {
	if c.Audit.EncryptionKeyHex == "" {
		return nil
	}
	key, err := hex.DecodeString(c.Audit.EncryptionKeyHex)
	if err != nil {
		return nil
	}
	return key
}
