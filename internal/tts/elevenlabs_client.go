package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontline-ai/voice-pipeline/internal/config"
	"github.com/frontline-ai/voice-pipeline/internal/observability"
	"github.com/frontline-ai/voice-pipeline/internal/resilience"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabsClient implements Synthesizer using the ElevenLabs TTS API.
type ElevenLabsClient struct {
	baseURL      string
	apiKey       string
	voiceID      string
	modelID      string
	httpClient   *http.Client
	streamClient *http.Client
	breaker      *resilience.CircuitBreaker
	logger       zerolog.Logger
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// NewElevenLabsClient creates an ElevenLabs synthesis client from config.
// The streaming client carries no overall timeout: playback reads the body
// at real-time pace, so a long reply legitimately outlives any fixed
// deadline. Only the wait for response headers is bounded; the per-playback
// context governs the body.
func NewElevenLabsClient(cfg *config.Config) *ElevenLabsClient {
	timeout := time.Duration(cfg.SynthesisTimeout) * time.Second
	return &ElevenLabsClient{
		baseURL:    elevenLabsBaseURL,
		apiKey:     cfg.SynthesisAPIKey,
		voiceID:    cfg.SynthesisVoiceID,
		modelID:    cfg.SynthesisModelID,
		httpClient: &http.Client{Timeout: timeout},
		streamClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: timeout},
		},
		breaker: resilience.NewCircuitBreaker(
			"synthesis",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: observability.GetLogger().With().Str("component", "tts").Logger(),
	}
}

// OpenStream starts a streaming synthesis request and returns the raw audio
// body. The caller owns the ReadCloser and must close it; cancelling ctx
// aborts the underlying request mid-stream.
func (c *ElevenLabsClient) OpenStream(ctx context.Context, text, voice, format string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s", c.baseURL, c.voice(voice), format)

	var body io.ReadCloser
	err := c.breaker.Call(func() error {
		resp, err := c.request(ctx, c.streamClient, url, text)
		if err != nil {
			return err
		}
		body = resp.Body
		return nil
	})

	observability.UpdateCircuitBreakerState("synthesis", int(c.breaker.State()))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Synthesize performs a one-shot synthesis request and returns the complete
// audio. Used as the fallback when streaming output is unavailable.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voice, format string) ([]byte, error) {
	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", c.baseURL, c.voice(voice), format)

	var audioData []byte
	err := c.breaker.Call(func() error {
		start := time.Now()
		resp, err := c.request(ctx, c.httpClient, url, text)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		audioData, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read synthesis response: %w", err)
		}
		if len(audioData) == 0 {
			return fmt.Errorf("synthesis returned empty audio")
		}

		c.logger.Debug().
			Int("bytes", len(audioData)).
			Str("format", format).
			Dur("latency", time.Since(start)).
			Msg("synthesis complete")
		return nil
	})

	observability.UpdateCircuitBreakerState("synthesis", int(c.breaker.State()))
	if err != nil {
		return nil, err
	}
	return audioData, nil
}

func (c *ElevenLabsClient) voice(override string) string {
	if override != "" {
		return override
	}
	return c.voiceID
}

func (c *ElevenLabsClient) request(ctx context.Context, client *http.Client, url, text string) (*http.Response, error) {
	jsonData, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.modelID})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("synthesis endpoint returned %d: %s", resp.StatusCode, snippet)
	}
	return resp, nil
}
