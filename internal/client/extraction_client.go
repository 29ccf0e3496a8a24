package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
)

const extractionPrompt = `You are a smart insurance claim document extraction assistant.
1. Analyze the image content to identify the document type.
2. The user labeled this as: '%s'.
3. Extract relevant fields based on the document type.

Typical fields for Claims:
- Death Certificate: name of deceased, date of death, cause of death, registration number.
- Hospital Bill: hospital name, patient name, total amount, date of admission/discharge.
- Driving License: license number, expiry date, vehicle class.
- RC Copy: vehicle registration number, owner name, chassis number.

Return JSON only:
{
  "document_type": "Detected Type",
  "extracted_data": { ...fields... },
  "confidence": 0.0-1.0
}`

// retrySleep is replaced in tests.
var retrySleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Materializer prepares a document URL for the vision model.
type Materializer interface {
	Materialize(ctx context.Context, documentURL string) (string, error)
}

// ExtractionConfig configures the vision extraction client. Azure is used
// when AzureEndpoint is set, otherwise an OpenAI-compatible BaseURL.
type ExtractionConfig struct {
	AzureEndpoint     string
	APIKey            string
	APIVersion        string
	Deployment        string
	BaseURL           string
	MaxTokens         int
	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerSecond float64
	Burst             int
	CacheTTL          time.Duration
}

// ExtractionClient extracts structured fields from claim documents with a
// vision chat model.
type ExtractionClient struct {
	client  *openai.Client
	docs    Materializer
	cfg     ExtractionConfig
	limiter *rate.Limiter
	cache   *gocache.Cache
	log     *logger.Logger
}

// NewExtractionClient creates a new ExtractionClient.
func NewExtractionClient(cfg ExtractionConfig, docs Materializer, log *logger.Logger) (*ExtractionClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.InvalidInput("extraction.api_key", "api key is required")
	}
	if cfg.Deployment == "" {
		cfg.Deployment = openai.GPT4o
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var clientConfig openai.ClientConfig
	if cfg.AzureEndpoint != "" {
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.AzureEndpoint)
		if cfg.APIVersion != "" {
			clientConfig.APIVersion = cfg.APIVersion
		}
		deployment := cfg.Deployment
		clientConfig.AzureModelMapperFunc = func(string) string { return deployment }
	} else {
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &ExtractionClient{
		client:  openai.NewClientWithConfig(clientConfig),
		docs:    docs,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
	if cfg.CacheTTL > 0 {
		c.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return c, nil
}

// Extract reads one document. Transient model failures are retried; the
// returned error is the last failure once attempts are exhausted.
func (c *ExtractionClient) Extract(ctx context.Context, documentURL, categoryHint string) (*claim.Extraction, error) {
	if categoryHint == "" {
		categoryHint = "unknown"
	}
	key := categoryHint + "|" + documentURL
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			ext := v.(claim.Extraction)
			return &ext, nil
		}
	}

	imageURL := documentURL
	if c.docs != nil {
		var err error
		imageURL, err = c.docs.Materialize(ctx, documentURL)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := retrySleep(ctx, backoff(attempt)); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "extraction cancelled")
			}
		}

		content, err := c.complete(ctx, imageURL, categoryHint)
		if err == nil {
			ext := ParseExtraction(content)
			if c.cache != nil && !ext.Failed() {
				c.cache.SetDefault(key, *ext)
			}
			return ext, nil
		}

		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		c.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("category", categoryHint).
			Msg("Vision extraction failed, retrying")
	}
	return nil, lastErr
}

func (c *ExtractionClient) complete(ctx context.Context, imageURL, hint string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUnavailable, "rate limiter wait failed")
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Deployment,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: fmt.Sprintf(extractionPrompt, hint)},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailAuto}},
			},
		}},
		MaxTokens:      c.cfg.MaxTokens,
		Temperature:    0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", fmt.Errorf("vision API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ErrCodeUnavailable, "no response from vision model")
	}
	return resp.Choices[0].Message.Content, nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-2)) * 500 * time.Millisecond
}

// retryable reports whether err is a transient collaborator failure.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	return errors.CodeOf(err) == errors.ErrCodeUnavailable || stderrors.Is(err, context.DeadlineExceeded)
}

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z]*")
	trailingFence = regexp.MustCompile("```$")
	jsonObject    = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ParseExtraction decodes model output leniently. Output that is not JSON is
// kept verbatim under the "raw" field rather than treated as a failure.
func ParseExtraction(text string) *claim.Extraction {
	cleaned := strings.TrimSpace(text)
	cleaned = leadingFence.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(trailingFence.ReplaceAllString(cleaned, ""))
	if m := jsonObject.FindString(cleaned); m != "" {
		cleaned = m
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return &claim.Extraction{Fields: map[string]any{"raw": cleaned}}
	}

	ext := &claim.Extraction{}
	if msg, ok := doc["error"].(string); ok && msg != "" {
		ext.Error = msg
		return ext
	}
	if t, ok := doc["document_type"].(string); ok {
		ext.DocumentType = t
	}
	if fields, ok := doc["extracted_data"].(map[string]any); ok {
		ext.Fields = fields
	}
	if v, ok := doc["confidence"]; ok && v != nil {
		c := claim.ParseCurrency(v)
		ext.Confidence = &c
	}
	return ext
}
