// Package completion describes the chat completion call the summarizer relies on.
// Providers (OpenAI compatible endpoints, Gemini) implement Client.
package completion

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is a provider neutral chat completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float32 // nil leaves the provider default
	MaxTokens   int      // 0 leaves the provider default
}

type Choice struct {
	Message Message
}

type Response struct {
	Choices []Choice
}

// Content returns the first choice's message content, or "" when the response
// carries no choices.
func (r *Response) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Client performs a single completion round trip.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Float32 returns a pointer to v, for Request.Temperature.
func Float32(v float32) *float32 {
	return &v
}

// System and User build messages.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }
