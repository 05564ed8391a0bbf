package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"netbons/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	geminiAPIURL     = "https://generativelanguage.googleapis.com/v1beta"
	geminiModel      = "gemini-3-flash-preview"
	defaultTimeout   = 30 * time.Second
	maxRetries       = 3
	retryDelay       = 2 * time.Second
	userAgent        = "Netbons/1.0"
	maxResponseSize  = 5 * 1024 * 1024 // 5MB
	whyCachePrefix   = "ai:why:"
	whyCacheTTL      = 24 * time.Hour
	apiKeyHeader     = "x-goog-api-key"
	jsonMimeType     = "application/json"
	generateEndpoint = "/models/%s:generateContent"
)

// GeminiClient talks to the Generative Language REST API.
type GeminiClient struct {
	http       *resty.Client
	apiKey     string
	model      string
	logger     *logrus.Logger
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	redis      *redis.Client
}

type GeminiConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	RateLimit  time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *logrus.Logger
	// Redis caches why-watch texts when set.
	Redis *redis.Client
}

func NewGeminiClientWithConfig(config *GeminiConfig) *GeminiClient {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.BaseURL == "" {
		config.BaseURL = geminiAPIURL
	}
	if config.Model == "" {
		config.Model = geminiModel
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = maxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = retryDelay
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Every(config.RateLimit)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetHeader("Content-Type", jsonMimeType).
		SetHeader("Accept", jsonMimeType).
		SetHeader("User-Agent", userAgent).
		SetTimeout(config.Timeout)

	return &GeminiClient{
		http:       httpClient,
		apiKey:     config.APIKey,
		model:      config.Model,
		logger:     config.Logger,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		redis:      config.Redis,
	}
}

type schema struct {
	Type       string            `json:"type"`
	Properties map[string]schema `json:"properties,omitempty"`
	Items      *schema           `json:"items,omitempty"`
	Enum       []string          `json:"enum,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// wireDraft tolerates numbers sent as floats ("year": 2024.0).
type wireDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Genre       []string `json:"genre"`
	Year        float64  `json:"year"`
	Rating      float64  `json:"rating"`
	AgeRating   string   `json:"ageRating"`
}

// retryableError marks failures worth another attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

func draftSchema(withRating bool) *schema {
	ageRatings := make([]string, len(models.AgeRatings))
	for i, r := range models.AgeRatings {
		ageRatings[i] = string(r)
	}

	s := &schema{
		Type: "OBJECT",
		Properties: map[string]schema{
			"title":       {Type: "STRING"},
			"description": {Type: "STRING"},
			"genre":       {Type: "ARRAY", Items: &schema{Type: "STRING"}},
			"year":        {Type: "NUMBER"},
			"ageRating":   {Type: "STRING", Enum: ageRatings},
		},
		Required: []string{"title", "description", "genre", "year", "ageRating"},
	}
	if withRating {
		s.Properties["rating"] = schema{Type: "NUMBER"}
		s.Required = append(s.Required, "rating")
	}
	return s
}

func (c *GeminiClient) DraftFromFilename(ctx context.Context, filename string) (*models.Draft, error) {
	prompt := fmt.Sprintf(
		"Analise o nome do arquivo de vídeo %q. Deduza título, uma descrição curta no estilo de catálogo de streaming, gêneros, ano e classificação indicativa. Responda somente em JSON.",
		filename)
	return c.generateDraft(ctx, prompt, draftSchema(false))
}

func (c *GeminiClient) DraftFromFreeText(ctx context.Context, prompt string) (*models.Draft, error) {
	text := fmt.Sprintf(
		"Crie a ideia de um filme fictício para um catálogo de streaming a partir deste interesse: %q. Responda somente em JSON.",
		prompt)
	return c.generateDraft(ctx, text, draftSchema(true))
}

func (c *GeminiClient) WhyWatch(ctx context.Context, title string) (string, error) {
	cacheKey := whyCachePrefix + strings.ToLower(strings.TrimSpace(title))
	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			c.logger.WithField("title", title).Debug("Retrieved pitch from cache")
			return cached, nil
		} else if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warn("Failed to read from Redis")
		}
	}

	prompt := fmt.Sprintf("Por que %q é imperdível? Responda em no máximo %d palavras.", title, whyWatchMaxWords)
	text, err := c.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	if c.redis != nil && text != "" {
		if err := c.redis.Set(ctx, cacheKey, text, whyCacheTTL).Err(); err != nil {
			c.logger.WithError(err).Warn("Failed to write pitch to cache")
		}
	}
	return text, nil
}

func (c *GeminiClient) generateDraft(ctx context.Context, prompt string, s *schema) (*models.Draft, error) {
	text, err := c.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: jsonMimeType,
			ResponseSchema:   s,
		},
	})
	if err != nil {
		return nil, err
	}

	var wire wireDraft
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &models.Draft{
		Title:       wire.Title,
		Description: wire.Description,
		Genres:      wire.Genre,
		Year:        int(wire.Year),
		Rating:      wire.Rating,
		AgeRating:   models.AgeRating(wire.AgeRating),
	}, nil
}

// generate runs one completion with bounded retries and returns the text of
// the first candidate.
func (c *GeminiClient) generate(ctx context.Context, body generateRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrOracleUnavailable
	}

	var rErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		raw, err := c.post(ctx, body)
		if err == nil {
			c.logger.WithFields(logrus.Fields{
				"model":         c.model,
				"attempt":       attempt,
				"response_size": len(raw),
			}).Debug("API request successful")
			return firstCandidateText(raw)
		}

		rErr = err
		var retry retryableError
		if !errors.As(err, &retry) {
			break
		}
		c.retryLogger(attempt, err)
		if err := c.waitForRetry(ctx, attempt); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("failed %d attempts: %w", c.maxRetries, rErr)
}

func (c *GeminiClient) post(ctx context.Context, body generateRequest) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, c.apiKey).
		SetBody(&body).
		SetDoNotParseResponse(true).
		Post(fmt.Sprintf(generateEndpoint, c.model))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retryableError{fmt.Errorf("failed to make HTTP request: %w", err)}
	}

	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(raw, maxResponseSize))
		statusErr := fmt.Errorf("API returned status code %d", resp.StatusCode())
		if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError {
			return nil, retryableError{statusErr}
		}
		return nil, statusErr
	}

	return readCapped(raw)
}

// readCapped reads at most maxResponseSize bytes.
func readCapped(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxResponseSize+1))
	if err != nil {
		return nil, retryableError{fmt.Errorf("failed to read response body: %w", err)}
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("response too large: exceeded %d bytes", maxResponseSize)
	}
	return body, nil
}

func firstCandidateText(raw []byte) (string, error) {
	var res generateResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	for _, cand := range res.Candidates {
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}
	return "", fmt.Errorf("response has no text candidates")
}

func (c *GeminiClient) retryLogger(attempt int, err error) {
	c.logger.WithFields(logrus.Fields{
		"attempt": attempt + 1,
		"model":   c.model,
		"error":   err.Error(),
	}).Warn("API request failed, retrying...")
}

func (c *GeminiClient) waitForRetry(ctx context.Context, attempt int) error {
	if attempt >= c.maxRetries-1 {
		return nil
	}
	delay := time.Duration(attempt+1) * c.retryDelay
	c.logger.WithField("delay", delay).Debug("waiting before retry")

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
