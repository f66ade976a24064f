package intent

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"jhimki-stock-backend/internal/prompts"
	"jhimki-stock-backend/internal/session"
)

type Classifier struct {
	spec   prompts.Spec
	client *openai.Client
	model  string
}

func LoadClassifier(path string, client *openai.Client, model string) (*Classifier, error) {
	spec, err := prompts.Load(path)
	if err != nil {
		return nil, err
	}
	return &Classifier{spec: spec, client: client, model: model}, nil
}

// Extract classifies the user's message in the context of recent turns.
// A transport or provider error is returned to the caller (the orchestrator
// degrades); unparseable model output is not an error and comes back as a
// malformed-tagged unknown intent.
func (c *Classifier) Extract(ctx context.Context, history []session.Turn, message string) (*Intent, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: c.spec.System},
	}
	for _, t := range history {
		role := t.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.spec.Temperature(0.3),
		MaxTokens:   c.spec.MaxTokens(300),
		Messages:    messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("intent extraction: no choices")
	}
	return Decode(resp.Choices[0].Message.Content, message), nil
}
