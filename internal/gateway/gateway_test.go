package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-ingredient-analyzer/internal/errors"
)

const okResponse = `{
  "id": "gen-1",
  "object": "chat.completion",
  "model": "google/gemini-flash-1.5",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ingredients\":[\"salt\"]}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
}`

func newTestGateway(t *testing.T, url string, timeout time.Duration) Gateway {
	t.Helper()
	g, err := New(Config{
		APIKey:      "sk-test",
		BaseURL:     url,
		Model:       "google/gemini-flash-1.5",
		MaxTokens:   1000,
		Temperature: 0.7,
		Timeout:     timeout,
		Referer:     "http://localhost:3000",
		Title:       "Ingredients Analysis Application",
	})
	require.NoError(t, err)
	return g
}

func TestComplete_SendsPromptAndReturnsContent(t *testing.T) {
	var captured map[string]any
	var headers http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL, time.Second)
	out, err := g.Complete(context.Background(), []Part{
		Text("List the ingredients"),
		Image("data:image/jpeg;base64,AAAA"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ingredients":["salt"]}`, out)

	assert.Equal(t, "Bearer sk-test", headers.Get("Authorization"))
	assert.Equal(t, "http://localhost:3000", headers.Get("HTTP-Referer"))
	assert.Equal(t, "Ingredients Analysis Application", headers.Get("X-Title"))

	assert.Equal(t, "google/gemini-flash-1.5", captured["model"])
	assert.EqualValues(t, 1000, captured["max_tokens"])
	assert.InDelta(t, 0.7, captured["temperature"], 1e-6)
	assert.Nil(t, captured["stream"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])

	content := msg["content"].([]any)
	require.Len(t, content, 2)
	text := content[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "List the ingredients", text["text"])
	img := content[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, "data:image/jpeg;base64,AAAA", img["image_url"].(map[string]any)["url"])
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantType   apperrors.ErrorType
		wantDetail string
	}{
		{
			name:       "api error",
			status:     http.StatusServiceUnavailable,
			body:       `{"error":{"message":"provider overloaded","type":"server_error"}}`,
			wantType:   apperrors.ErrorTypeUpstream,
			wantDetail: "provider overloaded",
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"No auth credentials found","code":401}}`,
			wantType:   apperrors.ErrorTypeUpstream,
			wantDetail: "401",
		},
		{
			name:       "non-JSON error page",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantType:   apperrors.ErrorTypeUpstream,
			wantDetail: "502",
		},
		{
			name:     "no choices",
			status:   http.StatusOK,
			body:     `{"id":"gen-2","choices":[]}`,
			wantType: apperrors.ErrorTypeMalformedUpstream,
		},
		{
			name:     "choice without message",
			status:   http.StatusOK,
			body:     `{"id":"gen-3","choices":[{"index":0}]}`,
			wantType: apperrors.ErrorTypeMalformedUpstream,
		},
		{
			name:     "message without content",
			status:   http.StatusOK,
			body:     `{"id":"gen-4","choices":[{"index":0,"message":{"role":"assistant"}}]}`,
			wantType: apperrors.ErrorTypeMalformedUpstream,
		},
		{
			name:     "success body is not JSON",
			status:   http.StatusOK,
			body:     `definitely not json`,
			wantType: apperrors.ErrorTypeMalformedUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := newTestGateway(t, srv.URL, time.Second)
			out, err := g.Complete(context.Background(), []Part{Text("hi")})
			require.Error(t, err)
			assert.Empty(t, out)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
			if tt.wantDetail != "" {
				assert.Contains(t, apperrors.TechnicalDetail(err), tt.wantDetail)
				assert.NotContains(t, apperrors.UserMessage(err), tt.wantDetail)
			}
		})
	}
}

func TestComplete_MultiPartAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-5","choices":[{"index":0,"message":{"role":"assistant",` +
			`"content":[{"type":"text","text":"{\"ingredients\":"},{"type":"text","text":"[\"salt\"]}"}]}}]}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL, time.Second)
	out, err := g.Complete(context.Background(), []Part{Text("hi")})
	require.NoError(t, err)
	assert.Equal(t, `{"ingredients":["salt"]}`, out)
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	g := newTestGateway(t, srv.URL, 50*time.Millisecond)
	_, err := g.Complete(context.Background(), []Part{Text("hi")})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout), "got %v", err)
	assert.Equal(t, http.StatusGatewayTimeout, apperrors.GetStatusCode(err))
}

func TestComplete_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := newTestGateway(t, url, time.Second)
	_, err := g.Complete(context.Background(), []Part{Text("hi")})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream), "got %v", err)
}

func TestComplete_EmptyPrompt(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1", time.Second)
	_, err := g.Complete(context.Background(), nil)
	require.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Model: "m"})
	assert.Error(t, err)

	_, err = New(Config{APIKey: "k"})
	assert.Error(t, err)
}
