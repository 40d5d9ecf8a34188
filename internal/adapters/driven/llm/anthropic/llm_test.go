package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := New(Config{APIKey: "key", BaseURL: server.URL + "/"})
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestComplete_LiftsSystemMessages(t *testing.T) {
	var got messagesRequest
	svc := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"status\":"},{"type":"text","text":"\"Met\"}"}]}`))
	})

	text, err := svc.Complete(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be strict"},
		{Role: "user", Content: "validate"},
	}, driven.CompletionOptions{JSONMode: true, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, `{"status":"Met"}`, text)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "be strict\n\n"+jsonInstruction, got.System)
}

func TestComplete_RateLimited(t *testing.T) {
	svc := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow"}}`))
	})

	_, err := svc.Complete(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.CompletionOptions{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestComplete_Overloaded(t *testing.T) {
	svc := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	})

	_, err := svc.Complete(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.CompletionOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestComplete_ErrorBody(t *testing.T) {
	svc := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	})

	_, err := svc.Complete(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.CompletionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error (status 400): bad")
	assert.NotErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestComplete_EmptyContent(t *testing.T) {
	svc := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})

	_, err := svc.Complete(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.CompletionOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)
}

func TestComplete_MergesConsecutiveTurns(t *testing.T) {
	var got messagesRequest
	svc := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn"}`))
	})

	_, err := svc.Complete(context.Background(), []driven.ChatMessage{
		{Role: "user", Content: "requirement"},
		{Role: "user", Content: "document"},
		{Role: "assistant", Content: "noted"},
	}, driven.CompletionOptions{MaxTokens: 512})
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "requirement\n\ndocument", got.Messages[0].Content)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, 512, got.MaxTokens)
	assert.Empty(t, got.System)
}

func TestComplete_TruncatedJSON(t *testing.T) {
	svc := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"status\":\"Me"}],"stop_reason":"max_tokens"}`))
	})

	_, err := svc.Complete(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.CompletionOptions{JSONMode: true})
	assert.ErrorIs(t, err, domain.ErrParseFailed)
}

func TestComplete_Unreachable(t *testing.T) {
	svc, err := New(Config{APIKey: "key", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.CompletionOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPing_Unauthorized(t *testing.T) {
	svc := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	})

	err := svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key")
	assert.Contains(t, err.Error(), "authentication_error")
}

func TestPing(t *testing.T) {
	svc := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
