package plantid

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/httpclient"
)

const testEndpoint = "https://ai.example.com/v1/chat/completions"

// jpegBytes is a stand-in image payload; the client never decodes it.
var jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func newTestClient(t *testing.T, opts ...func(*conf.Settings)) *Client {
	t.Helper()

	settings := &conf.Settings{
		AI: conf.AISettings{
			Endpoint:    testEndpoint,
			Model:       "gpt-4o",
			APIKey:      "test-api-key",
			CustomerID:  "cus_test",
			Timeout:     10 * time.Second,
			MaxTokens:   2000,
			Temperature: 0.3,
		},
	}
	for _, opt := range opts {
		opt(settings)
	}

	cfg := httpclient.DefaultConfig()
	hc := httpclient.New(&cfg)

	httpmock.ActivateNonDefault(hc.StdClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	return New(settings, hc, nil)
}

func registerCompletionResponder(t *testing.T, statusCode int, content string) {
	t.Helper()

	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	responder, err := httpmock.NewJsonResponder(statusCode, body)
	require.NoError(t, err)
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, responder)
}

func aloeReply(t *testing.T) string {
	t.Helper()

	reply, err := json.Marshal(map[string]any{
		"plantName":      "Aloe Vera",
		"scientificName": "Aloe barbadensis miller",
		"family":         "Asphodelaceae",
		"confidence":     92,
		"description":    "A succulent with thick fleshy leaves.",
		"careInstructions": map[string]any{
			"light": "Bright indirect light",
			"water": "Every 3 weeks",
		},
		"tips": []any{"Harvest outer leaves first"},
	})
	require.NoError(t, err)
	return string(reply)
}

func TestIdentify_Success(t *testing.T) {
	client := newTestClient(t)
	registerCompletionResponder(t, http.StatusOK, aloeReply(t))

	result := client.Identify(context.Background(), jpegBytes, "image/jpeg")

	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Empty(t, result.Error)
	assert.Nil(t, result.Fallback)
	assert.False(t, result.Timestamp.IsZero())
	assert.Contains(t, result.ImageData, "data:image/jpeg;base64,")

	assert.Equal(t, "Aloe Vera", result.Data.PlantName)
	assert.Equal(t, 92, result.Data.Confidence)
	assert.Equal(t, "Every 3 weeks", result.Data.CareInstructions.Water)
	// Missing fields come from the default record
	assert.Equal(t, DefaultRecord().SeasonalCare, result.Data.SeasonalCare)
}

func TestIdentify_SendsAuthAndImagePayload(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-api-key", req.Header.Get("Authorization"))
			assert.Equal(t, "cus_test", req.Header.Get("X-Customer-Id"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

			var payload chatRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			assert.Equal(t, "gpt-4o", payload.Model)
			assert.Equal(t, 2000, payload.MaxTokens)
			assert.InDelta(t, 0.3, payload.Temperature, 0.001)
			require.Len(t, payload.Messages, 2)
			assert.Equal(t, "system", payload.Messages[0].Role)
			assert.Equal(t, "user", payload.Messages[1].Role)

			parts, ok := payload.Messages[1].Content.([]any)
			require.True(t, ok)
			require.Len(t, parts, 2)
			img, ok := parts[1].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "image_url", img["type"])

			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": aloeReply(t)}},
				},
			})
		})

	result := client.Identify(context.Background(), jpegBytes, "image/jpeg")
	require.True(t, result.Success)
}

func TestIdentify_HTTPErrorReturnsFallback(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantError  string
	}{
		{"unauthorized", http.StatusUnauthorized, "API request failed: 401 Unauthorized"},
		{"too_many_requests", http.StatusTooManyRequests, "API request failed: 429 Too Many Requests"},
		{"internal_server_error", http.StatusInternalServerError, "API request failed: 500 Internal Server Error"},
		{"bad_gateway", http.StatusBadGateway, "API request failed: 502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t)
			httpmock.RegisterResponder(http.MethodPost, testEndpoint,
				httpmock.NewStringResponder(tt.statusCode, `{"error": {"message": "nope"}}`))

			result := client.Identify(context.Background(), jpegBytes, "image/jpeg")

			require.False(t, result.Success)
			assert.Contains(t, result.Error, tt.wantError)
			assert.Nil(t, result.Data)
			require.NotNil(t, result.Fallback)
			assert.Equal(t, DefaultRecord(), result.Fallback)
		})
	}
}

func TestIdentify_ProseReplyStillPopulatesEveryField(t *testing.T) {
	client := newTestClient(t)
	registerCompletionResponder(t, http.StatusOK,
		`Sure! {"plantName": "Aloe Vera", "confidence": 92}`)

	result := client.Identify(context.Background(), jpegBytes, "image/jpeg")

	require.True(t, result.Success)
	assert.Equal(t, "Aloe Vera", result.Data.PlantName)
	assert.Equal(t, 92, result.Data.Confidence)
	assert.NotEmpty(t, result.Data.CareInstructions.Light)
	assert.NotEmpty(t, result.Data.Characteristics.Difficulty)
	assert.NotEmpty(t, result.Data.Tips)
}

func TestIdentify_GarbageReplyYieldsDefaultRecord(t *testing.T) {
	client := newTestClient(t)
	registerCompletionResponder(t, http.StatusOK, "I really cannot tell.")

	result := client.Identify(context.Background(), jpegBytes, "image/jpeg")

	require.True(t, result.Success)
	assert.Equal(t, DefaultRecord(), result.Data)
}

func TestIdentify_EmptyChoices(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"choices": []}`))

	result := client.Identify(context.Background(), jpegBytes, "image/jpeg")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "empty response from model")
	assert.Equal(t, DefaultRecord(), result.Fallback)
}

func TestIdentify_InvalidInput(t *testing.T) {
	client := newTestClient(t)

	t.Run("empty_image", func(t *testing.T) {
		result := client.Identify(context.Background(), nil, "image/jpeg")
		require.False(t, result.Success)
		assert.Contains(t, result.Error, "no image data")
	})

	t.Run("unsupported_type", func(t *testing.T) {
		result := client.Identify(context.Background(), jpegBytes, "image/tiff")
		require.False(t, result.Success)
		assert.Contains(t, result.Error, "unsupported image type")
	})

	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestIdentify_CachesSuccessfulResults(t *testing.T) {
	client := newTestClient(t, func(s *conf.Settings) {
		s.AI.CacheTTL = time.Minute
	})
	registerCompletionResponder(t, http.StatusOK, aloeReply(t))

	first := client.Identify(context.Background(), jpegBytes, "image/jpeg")
	second := client.Identify(context.Background(), jpegBytes, "image/jpeg")

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestIdentify_ContextCancellation(t *testing.T) {
	client := newTestClient(t)
	registerCompletionResponder(t, http.StatusOK, aloeReply(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := client.Identify(ctx, jpegBytes, "image/jpeg")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "API request failed")
	assert.Equal(t, DefaultRecord(), result.Fallback)
}
