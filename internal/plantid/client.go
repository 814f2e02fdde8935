package plantid

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/errors"
	"github.com/verdanthq/plantid-go/internal/httpclient"
	"github.com/verdanthq/plantid-go/internal/logging"
	"github.com/verdanthq/plantid-go/internal/observability/metrics"
)

const (
	defaultTimeout   = 5 * time.Minute
	maxResponseBytes = 1 << 20
)

var supportedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Client submits plant photos to a multimodal chat-completion endpoint.
// It is safe for concurrent use.
type Client struct {
	endpoint    string
	model       string
	apiKey      string
	customerID  string
	maxTokens   int
	temperature float64
	timeout     time.Duration

	http    *httpclient.Client
	cache   *gocache.Cache
	metrics *metrics.IdentificationMetrics
	logger  *slog.Logger
}

// New creates an identification client from the AI settings. The metrics
// argument may be nil.
func New(settings *conf.Settings, hc *httpclient.Client, m *metrics.IdentificationMetrics) *Client {
	ai := settings.AI

	timeout := ai.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var cache *gocache.Cache
	if ai.CacheTTL > 0 {
		cache = gocache.New(ai.CacheTTL, 2*ai.CacheTTL)
	}

	if hc == nil {
		cfg := httpclient.DefaultConfig()
		cfg.DefaultTimeout = timeout
		hc = httpclient.New(&cfg)
	}

	return &Client{
		endpoint:    ai.Endpoint,
		model:       ai.Model,
		apiKey:      ai.APIKey,
		customerID:  ai.CustomerID,
		maxTokens:   ai.MaxTokens,
		temperature: ai.Temperature,
		timeout:     timeout,
		http:        hc,
		cache:       cache,
		metrics:     m,
		logger:      logging.ForService("plantid"),
	}
}

// Identify submits an image for identification and returns the result
// envelope. The envelope always carries a displayable record: Data on
// success, the static default record as Fallback otherwise.
func (c *Client) Identify(ctx context.Context, image []byte, mimeType string) *Result {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveRequestDuration(time.Since(start).Seconds())
		}
	}()

	if len(image) == 0 {
		return c.failure("no image data provided", "")
	}
	if !supportedMimeTypes[mimeType] {
		return c.failure(fmt.Sprintf("unsupported image type: %s", mimeType), "")
	}

	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	if cached := c.cachedResult(image); cached != nil {
		return cached
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	content, err := c.requestCompletion(ctx, dataURI)
	if err != nil {
		c.logger.Error("identification request failed", "error", err)
		return c.failure(err.Error(), dataURI)
	}

	raw, path := ParseContent(content)
	if c.metrics != nil {
		c.metrics.IncrementParsePath(path)
	}
	if path != ParsePathStrict {
		c.logger.Debug("model reply needed relaxed parsing", "path", path)
	}

	result := &Result{
		Success:   true,
		Data:      Normalize(raw),
		Timestamp: time.Now(),
		ImageData: dataURI,
	}

	if c.metrics != nil {
		c.metrics.IncrementRequests("success")
	}
	c.cacheResult(image, result)

	return result
}

// requestCompletion performs the chat-completion call and returns the raw
// message content.
func (c *Client) requestCompletion(ctx context.Context, dataURI string) (string, error) {
	body, err := json.Marshal(buildRequest(c.model, dataURI, c.maxTokens, c.temperature))
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryValidation).
			Context("operation", "marshal_request").
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryNetwork).
			NetworkContext(c.endpoint, c.timeout).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.customerID != "" {
		req.Header.Set("X-Customer-Id", c.customerID)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		category := errors.CategoryNetwork
		if ctx.Err() == context.DeadlineExceeded {
			category = errors.CategoryTimeout
		}
		return "", errors.Newf("API request failed: %v", err).
			Category(category).
			NetworkContext(c.endpoint, c.timeout).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", errors.Newf("API request failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)).
			Category(errors.CategoryHTTP).
			Context("status_code", resp.StatusCode).
			NetworkContext(c.endpoint, c.timeout).
			Build()
	}

	var completion chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&completion); err != nil {
		return "", errors.New(err).
			Category(errors.CategoryAPIResponse).
			Context("operation", "decode_response").
			Build()
	}
	if completion.Error != nil {
		return "", errors.Newf("API request failed: %s", completion.Error.Message).
			Category(errors.CategoryAPIResponse).
			Build()
	}
	if len(completion.Choices) == 0 {
		return "", errors.NewStd("API request failed: empty response from model")
	}

	return completion.Choices[0].Message.Content, nil
}

func (c *Client) failure(message, dataURI string) *Result {
	if c.metrics != nil {
		c.metrics.IncrementRequests("error")
	}
	return &Result{
		Success:   false,
		Error:     message,
		Fallback:  DefaultRecord(),
		Timestamp: time.Now(),
		ImageData: dataURI,
	}
}

func (c *Client) cachedResult(image []byte) *Result {
	if c.cache == nil {
		return nil
	}
	key := imageCacheKey(image)
	if v, found := c.cache.Get(key); found {
		if c.metrics != nil {
			c.metrics.IncrementCacheHits()
		}
		cached := *(v.(*Result))
		return &cached
	}
	if c.metrics != nil {
		c.metrics.IncrementCacheMisses()
	}
	return nil
}

func (c *Client) cacheResult(image []byte, result *Result) {
	if c.cache == nil || !result.Success {
		return
	}
	c.cache.Set(imageCacheKey(image), result, gocache.DefaultExpiration)
}

func imageCacheKey(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
