package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/deusflow/newsbrief/internal/completion"
)

const DefaultModel = "gemini-1.5-flash"

// Client serves completion requests with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

var _ completion.Client = (*Client)(nil)

func NewClient(ctx context.Context, apiKey, model string, log *zap.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{client: client, model: model, log: log.Named("gemini")}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	name := req.Model
	if name == "" {
		name = c.model
	}
	model := c.client.GenerativeModel(name)
	if req.Temperature != nil {
		model.SetTemperature(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	system, history, last := splitMessages(req.Messages)
	if system != nil {
		model.SystemInstruction = system
	}
	if len(last) == 0 {
		return nil, fmt.Errorf("gemini: request has no user message")
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	out := toResponse(resp)
	c.log.Debug("gemini completion done", zap.String("model", name), zap.Int("candidates", len(out.Choices)))
	return out, nil
}

// splitMessages maps chat messages to Gemini's shape: system messages become the
// system instruction, earlier turns the chat history, the final turn is sent.
func splitMessages(msgs []completion.Message) (*genai.Content, []*genai.Content, []genai.Part) {
	var (
		systemParts []string
		turns       []*genai.Content
	)
	for _, m := range msgs {
		switch m.Role {
		case completion.RoleSystem:
			systemParts = append(systemParts, m.Content)
		case completion.RoleAssistant:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(systemParts, "\n\n"))}}
	}
	if len(turns) == 0 {
		return system, nil, nil
	}
	last := turns[len(turns)-1]
	return system, turns[:len(turns)-1], last.Parts
}

// toResponse keeps the text parts of every candidate. Candidates without text
// still produce a choice with empty content.
func toResponse(resp *genai.GenerateContentResponse) *completion.Response {
	out := &completion.Response{}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		var b strings.Builder
		if cand != nil && cand.Content != nil {
			for _, p := range cand.Content.Parts {
				if t, ok := p.(genai.Text); ok {
					b.WriteString(string(t))
				}
			}
		}
		out.Choices = append(out.Choices, completion.Choice{
			Message: completion.Message{Role: completion.RoleAssistant, Content: b.String()},
		})
	}
	return out
}
