package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidReply is returned when a model reply holds no JSON object.
var ErrInvalidReply = errors.New("translate: reply is not a JSON object")

var (
	fenceOpen  = regexp.MustCompile("^```[A-Za-z]*\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
	objectSpan = regexp.MustCompile(`(?s)\{.*\}`)
)

type reply struct {
	Summary   string
	Sentiment Sentiment
}

// parseReply decodes a summary reply. The decoded value is untyped, so each
// field is checked on its own: a non-string summary reads as "" and an
// unknown sentiment as Neutral.
func parseReply(raw string) (reply, error) {
	text := stripCodeFence(raw)

	fields, err := decodeObject(text)
	if err != nil {
		block := objectSpan.FindString(text)
		if block == "" {
			return reply{}, err
		}
		if fields, err = decodeObject(block); err != nil {
			return reply{}, err
		}
	}

	summary, _ := fields["summary"].(string)
	return reply{
		Summary:   strings.TrimSpace(summary),
		Sentiment: ParseSentiment(fields["sentiment"]),
	}, nil
}

func decodeObject(text string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if fields == nil {
		return nil, ErrInvalidReply
	}
	return fields, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
