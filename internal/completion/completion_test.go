package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestResponseContent(t *testing.T) {
	var nilResp *Response
	assert.Equal(t, "", nilResp.Content())
	assert.Equal(t, "", (&Response{}).Content())

	resp := &Response{Choices: []Choice{
		{Message: Message{Role: RoleAssistant, Content: "first"}},
		{Message: Message{Role: RoleAssistant, Content: "second"}},
	}}
	assert.Equal(t, "first", resp.Content())
}

func TestClientFunc(t *testing.T) {
	var got Request
	c := ClientFunc(func(_ context.Context, req Request) (*Response, error) {
		got = req
		return &Response{Choices: []Choice{{Message: Message{Content: "ok"}}}}, nil
	})

	resp, err := c.Complete(context.Background(), Request{Model: "m", Messages: []Message{User("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content())
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"summary\":\"x\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini", zaptest.NewLogger(t))
	resp, err := c.Complete(context.Background(), Request{
		Messages:    []Message{System("be brief"), User("hello")},
		Temperature: Float32(0.3),
		MaxTokens:   500,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"summary":"x"}`, resp.Content())
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 500, body["max_tokens"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("bad", srv.URL, "gpt-4o-mini", nil)
	_, err := c.Complete(context.Background(), Request{Messages: []Message{User("hello")}})
	assert.Error(t, err)
}
