// Package inference talks to an OpenAI-compatible inference server (Ollama,
// LocalAI or similar) and normalizes its failure modes: exhausted transport
// retries surface as ErrServiceUnavailable, unparseable model output as
// ErrInvalidResponse.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obscura-io/obscura/config"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/internal/httpclient"
	"github.com/obscura-io/obscura/logger"
)

// ModelTier selects which configured model handles a request.
type ModelTier string

const (
	// TierFast is the small model for classification and extraction.
	TierFast ModelTier = "fast"
	// TierSmart is the large model for assessment and reporting.
	TierSmart ModelTier = "smart"
)

// Request is one generation request.
type Request struct {
	System      string
	Prompt      string
	Tier        ModelTier
	Temperature float64 // 0 means server default
	MaxTokens   int     // 0 means provider default
}

// Client generates text from prompts. Implementations must be safe for
// concurrent use; the pipeline calls them from multiple agents at once.
type Client interface {
	// Generate returns the raw completion text.
	Generate(ctx context.Context, req Request) (string, error)
	// GenerateJSON generates a completion and unmarshals it into out,
	// stripping markdown code fences the model may wrap around JSON.
	GenerateJSON(ctx context.Context, req Request, out any) error
	// Healthy reports whether the inference server is reachable.
	Healthy(ctx context.Context) bool
}

// HTTPClient implements Client against a /v1/chat/completions endpoint.
type HTTPClient struct {
	baseURL    string
	fastModel  string
	smartModel string
	maxRetries int
	httpClient *httpclient.SaferClient
	limiter    *rate.Limiter
	log        *zap.SugaredLogger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client from configuration. The rate limiter is
// shared across all callers of this client, so one instance per process keeps
// the server-wide request budget honest.
func NewHTTPClient(cfg config.InferenceConfig, log *zap.SugaredLogger) *HTTPClient {
	if log == nil {
		log = logger.Nop()
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		fastModel:  cfg.FastModel,
		smartModel: cfg.SmartModel,
		maxRetries: cfg.MaxRetries,
		httpClient: httpclient.NewLocal(time.Duration(cfg.TimeoutSeconds) * time.Second),
		limiter:    rate.NewLimiter(limit, 1),
		log:        log.Named("inference"),
	}
}

// chatRequest matches the OpenAI chat API format (Ollama is compatible).
type chatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *completionOpts `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionOpts carries Ollama-specific generation options.
type completionOpts struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Index   int         `json:"index"`
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) model(tier ModelTier) string {
	if tier == TierSmart {
		return c.smartModel
	}
	return c.fastModel
}

// Generate sends the prompt, retrying transient transport failures up to the
// configured maximum. It never retries a context cancellation.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limit wait")
	}

	model := c.model(req.Tier)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warnw("Retrying inference request",
				"attempt", attempt,
				"model", model,
				logger.FieldError, lastErr,
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		text, err := c.generateOnce(ctx, model, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	return "", errors.WrapServiceUnavailable(lastErr,
		fmt.Sprintf("inference server unavailable after %d attempts", c.maxRetries+1))
}

func (c *HTTPClient) generateOnce(ctx context.Context, model string, req Request) (string, error) {
	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Stream: false,
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		body.Options = &completionOpts{
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	endpoint := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Newf("inference server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", errors.Wrap(err, "failed to decode response")
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

// GenerateJSON generates a completion and unmarshals it into out. Models
// routinely wrap JSON in markdown fences or preamble text; this extracts the
// outermost JSON value before parsing. A completion that still fails to parse
// after retries is reported as ErrInvalidResponse.
func (c *HTTPClient) GenerateJSON(ctx context.Context, req Request, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		text, err := c.Generate(ctx, req)
		if err != nil {
			return err
		}

		parseErr := json.Unmarshal([]byte(ExtractJSON(text)), out)
		if parseErr == nil {
			return nil
		}
		lastErr = parseErr
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warnw("Model returned invalid JSON",
			"attempt", attempt,
			"model", c.model(req.Tier),
			logger.FieldError, lastErr,
		)
	}
	return errors.WrapInvalidResponse(lastErr,
		fmt.Sprintf("model returned invalid JSON after %d attempts", c.maxRetries+1))
}

// Healthy probes the server's model listing endpoint.
func (c *HTTPClient) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ExtractJSON strips markdown code fences and surrounding prose from model
// output, returning the outermost JSON object or array. Input without any
// JSON structure is returned trimmed, letting json.Unmarshal report the
// parse failure.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')
	start := objStart
	opener, closer := byte('{'), byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		opener, closer = '[', ']'
	}
	if start < 0 {
		return text
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}
