package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// maxEmbeddingChars bounds the text sent for embedding; longer inputs are
// truncated rather than rejected.
const maxEmbeddingChars = 8000

// OpenAIProvider implements TextGenerator, TextClassifier and Embedder on
// top of the OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider for the given API key and chat model
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Generate runs a single chat completion with a low temperature
func (p *OpenAIProvider) Generate(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			Temperature: 0.1,
		},
	)
	if err != nil {
		return "", NewCapabilityError(ErrCapabilityUnreachable, "text generation failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", NewCapabilityError(ErrCapabilityBadOutput, "text generation returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// Classify asks the model whether the article reads as authentic or fake
// news and returns the label with a confidence score.
func (p *OpenAIProvider) Classify(ctx context.Context, text string) (string, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	systemPrompt := `You are a news authenticity classifier. Analyze the article and decide whether it reads as REAL or FAKE news.
Format your response as JSON with these fields:
{
  "label": "REAL or FAKE",
  "confidence": 0.5
}
The confidence is a number between 0.0 and 1.0 expressing how certain you are of the label.`

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Classify this article:\n\n%s", text)},
			},
			Temperature: 0.2,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return "", 0, NewCapabilityError(ErrCapabilityUnreachable, "classification failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, NewCapabilityError(ErrCapabilityBadOutput, "classification returned no choices", nil)
	}

	var result struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	raw := stripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return "", 0, NewCapabilityError(ErrCapabilityBadOutput, "failed to parse classification response", err)
	}
	return result.Label, result.Confidence, nil
}

// Embed generates an embedding for the text. Unlike the scraper's fixed
// retry delay, embedding calls back off exponentially; the two operations
// fail differently and are tuned separately on purpose.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewCapabilityError(ErrCapabilityBadOutput, "empty text provided for embedding", nil)
	}
	if len(text) > maxEmbeddingChars {
		Logger().Warning("Text too long for embedding (%d chars), truncating to %d", len(text), maxEmbeddingChars)
		text = text[:maxEmbeddingChars]
	}

	var lastErr error
	backoff := time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		resp, err := p.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.AdaEmbeddingV2,
		})
		cancel()
		if err == nil && len(resp.Data) > 0 {
			return resp.Data[0].Embedding, nil
		}
		if err == nil {
			err = fmt.Errorf("embedding response contained no data")
		}
		lastErr = err
		if attempt < 3 {
			Logger().Warning("Embedding attempt %d/3 failed: %v, retrying in %s", attempt, err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, NewCapabilityError(ErrCapabilityUnreachable, "embedding cancelled", ctx.Err())
			}
			backoff *= 2
		}
	}
	return nil, NewCapabilityError(ErrCapabilityUnreachable, "embedding generation failed after 3 attempts", lastErr)
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// JSON output in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
