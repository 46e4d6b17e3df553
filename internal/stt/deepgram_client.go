package stt

import (
	"bytes"
	"context"
	"fmt"
	"time"

	listenv1rest "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/frontline-ai/voice-pipeline/internal/config"
	"github.com/frontline-ai/voice-pipeline/internal/observability"
	"github.com/frontline-ai/voice-pipeline/internal/resilience"
)

// DeepgramClient implements Transcriber using Deepgram's pre-recorded API.
// Each utterance is sent as one complete WAV file once the endpointer has
// closed it, so there is no streaming session to keep alive between turns.
type DeepgramClient struct {
	client  *listenv1rest.Client
	options *interfaces.PreRecordedTranscriptionOptions
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// NewDeepgramClient creates a new Deepgram pre-recorded client.
func NewDeepgramClient(cfg *config.Config) *DeepgramClient {
	restClient := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})

	return &DeepgramClient{
		client: listenv1rest.New(restClient),
		options: &interfaces.PreRecordedTranscriptionOptions{
			Model:       cfg.DeepgramModel,
			Language:    cfg.DeepgramLanguage,
			Punctuate:   true,
			SmartFormat: true,
		},
		breaker: resilience.NewCircuitBreaker(
			"deepgram",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: observability.GetLogger().With().Str("component", "stt").Logger(),
	}
}

// Transcribe sends a complete WAV utterance to Deepgram and returns the
// transcript of the best alternative. An empty transcript is not an error:
// the caller decides whether to re-prompt or stay quiet.
func (d *DeepgramClient) Transcribe(ctx context.Context, wavAudio []byte) (string, error) {
	var transcript string

	err := d.breaker.Call(func() error {
		start := time.Now()
		res, err := d.client.FromStream(ctx, bytes.NewReader(wavAudio), d.options)
		if err != nil {
			return fmt.Errorf("deepgram transcription failed: %w", err)
		}

		if res == nil || res.Results == nil || len(res.Results.Channels) == 0 {
			return fmt.Errorf("deepgram returned no channels")
		}
		alternatives := res.Results.Channels[0].Alternatives
		if len(alternatives) == 0 {
			transcript = ""
			return nil
		}

		transcript = alternatives[0].Transcript
		d.logger.Debug().
			Str("transcript", transcript).
			Dur("latency", time.Since(start)).
			Msg("transcription complete")
		return nil
	})

	observability.UpdateCircuitBreakerState("deepgram", int(d.breaker.State()))
	if err != nil {
		return "", err
	}
	return transcript, nil
}

// Close releases client resources. The REST client holds no persistent
// connection, so this only exists to satisfy Transcriber.
func (d *DeepgramClient) Close() error {
	return nil
}
