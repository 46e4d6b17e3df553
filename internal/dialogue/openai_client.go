package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontline-ai/voice-pipeline/internal/config"
	"github.com/frontline-ai/voice-pipeline/internal/observability"
	"github.com/frontline-ai/voice-pipeline/internal/resilience"
)

// OpenAIClient implements Responder against any OpenAI-compatible
// chat-completion endpoint.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	breaker     *resilience.CircuitBreaker
	logger      zerolog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewOpenAIClient creates a chat-completion client from config.
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	return &OpenAIClient{
		baseURL:     strings.TrimSuffix(cfg.DialogueBaseURL, "/"),
		apiKey:      cfg.DialogueAPIKey,
		model:       cfg.DialogueModel,
		maxTokens:   cfg.DialogueMaxTokens,
		temperature: cfg.DialogueTemperature,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.DialogueTimeout) * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(
			"dialogue",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: observability.GetLogger().With().Str("component", "dialogue").Logger(),
	}
}

// Respond sends the conversation to the completion endpoint and returns the
// assistant's reply. History arrives oldest-first with the caller's latest
// utterance as the final turn.
func (c *OpenAIClient) Respond(ctx context.Context, systemPrompt string, turns []Turn) (string, error) {
	messages := make([]chatMessage, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Text})
	}

	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var reply string
	err := c.breaker.Call(func() error {
		start := time.Now()

		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal chat request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("chat request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, snippet)
		}

		var result chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode chat response: %w", err)
		}
		if len(result.Choices) == 0 {
			return fmt.Errorf("chat endpoint returned no choices")
		}

		reply = result.Choices[0].Message.Content
		c.logger.Debug().
			Int("turns", len(turns)).
			Dur("latency", time.Since(start)).
			Msg("dialogue response received")
		return nil
	})

	observability.UpdateCircuitBreakerState("dialogue", int(c.breaker.State()))
	if err != nil {
		return "", err
	}
	return reply, nil
}
