package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"jhimki-stock-backend/internal/intent"
	"jhimki-stock-backend/internal/session"
	"jhimki-stock-backend/internal/types"
)

// composeSearchReply asks the model to present the retrieved products. When
// the model is down the reply falls back to a deterministic template that
// never claims more than the candidate list supports.
func (s *Service) composeSearchReply(ctx context.Context, in *intent.Intent, products []types.Product) string {
	desc := queryDescription(in)

	var userPrompt string
	if len(products) == 0 {
		userPrompt = fmt.Sprintf(`User searched for: %s
No matching products were found in our database.

Generate a polite response explaining we don't have that exact item, and suggest they:
1. Try different color/fabric options
2. Browse similar categories
Keep it brief and helpful.`, desc)
	} else {
		userPrompt = fmt.Sprintf(`User searched for: %s
Found %d products from our catalogue.

RETRIEVED PRODUCTS FROM DATABASE:
%s
Generate a warm response following the format rules. List 2-4 best matches (prioritize in-stock items).
Use ONLY the exact data provided above. Do not invent details.`, desc, len(products), productSummaries(products))
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.resultsSpec.Temperature(0.3),
		MaxTokens:   s.resultsSpec.MaxTokens(500),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.resultsSpec.System},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("[chat] search reply generation failed: %v", err)
		if len(products) == 0 {
			return fmt.Sprintf("I couldn't find any products matching %s. Would you like to try a different color or style?", desc)
		}
		return fmt.Sprintf("I found %d items matching your search. Here are the results!", len(products))
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return fmt.Sprintf("I found %d items matching your search. Here are the results!", len(products))
	}
	return reply
}

// composeChatReply handles greetings and catalogue questions. Off-topic
// messages get the fixed catalogue-only reply without a model call.
func (s *Service) composeChatReply(ctx context.Context, window []session.Turn, message string, offTopic bool) string {
	if offTopic {
		return offTopicReply
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: s.chatSpec.System},
	}
	for _, t := range window {
		role := t.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.chatSpec.Temperature(0.7),
		MaxTokens:   s.chatSpec.MaxTokens(150),
		Messages:    messages,
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("[chat] chat reply generation failed: %v", err)
		return welcomeReply
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return welcomeReply
	}
	return reply
}

// productSummaries renders the top candidates for the results prompt,
// mirroring the fields the composition rules reference.
func productSummaries(products []types.Product) string {
	max := 5
	if len(products) < max {
		max = len(products)
	}
	var b strings.Builder
	for i := 0; i < max; i++ {
		p := products[i]
		stock := "In Stock"
		if !p.InStock {
			stock = "Out of Stock"
		}
		fmt.Fprintf(&b, `Product %d:
- Name: %s
- Category: %s / %s
- Fabric: %s
- Technique: %s
- Color: %s
- Pattern: %s
- Price: %s
- Stock: %s
- Description: %s
`, i+1, p.Name, p.Category, p.Subcategory, p.Fabric, p.Technique, p.Color, p.Pattern, p.Price, stock, p.Description)
	}
	return b.String()
}

// queryDescription summarizes what the user asked for, for prompts and
// fallback templates.
func queryDescription(in *intent.Intent) string {
	var terms []string
	if in.Filters.Color != "" {
		terms = append(terms, "color: "+in.Filters.Color)
	}
	if in.Filters.Fabric != "" {
		terms = append(terms, "fabric: "+in.Filters.Fabric)
	}
	if in.Filters.Technique != "" {
		terms = append(terms, "technique: "+in.Filters.Technique)
	}
	if in.Filters.PriceMax > 0 {
		terms = append(terms, fmt.Sprintf("under ₹%.0f", in.Filters.PriceMax))
	}
	if len(terms) > 0 {
		return strings.Join(terms, ", ")
	}
	if in.Query != "" {
		return in.Query
	}
	return "your request"
}
