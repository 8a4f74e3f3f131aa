package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"stockwatch/internal/models"
)

const analysisSystemPrompt = `You are a financial analyst. Given a stock's price move today,
write a brief (2-3 sentence) plain-English explanation of the move and list the most likely
contributing factors. Respond with JSON only, in the form:
{"analysis": "...", "key_factors": ["...", "..."]}`

// OpenAIAnalyzer asks an LLM for a rationale behind a price move.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer creates an analyzer backed by the OpenAI chat API.
func NewOpenAIAnalyzer(apiKey, model string) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Analyze requests a rationale for the quote's move. The model is asked for
// JSON; a response that fails to parse is used verbatim as the analysis text.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, quote models.Quote) (models.Analysis, error) {
	prompt := fmt.Sprintf(
		"Stock: %s\nCurrent price: $%.2f\nPrevious close: $%.2f\nChange today: %+.2f%%",
		quote.Symbol, quote.Price, quote.PreviousClose, quote.ChangePercent(),
	)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return models.Analysis{}, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Analysis{}, fmt.Errorf("no response from openai")
	}

	return parseAnalysisResponse(resp.Choices[0].Message.Content), nil
}

func parseAnalysisResponse(content string) models.Analysis {
	content = strings.TrimSpace(content)

	// Models sometimes fence the JSON in a markdown block.
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var parsed struct {
		Analysis   string   `json:"analysis"`
		KeyFactors []string `json:"key_factors"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil || parsed.Analysis == "" {
		return models.Analysis{Text: content}
	}
	return models.Analysis{Text: parsed.Analysis, KeyFactors: parsed.KeyFactors}
}
