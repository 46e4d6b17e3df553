package stt

import (
	"testing"

	"github.com/frontline-ai/voice-pipeline/internal/config"
)

func TestNewDeepgramClientOptions(t *testing.T) {
	cfg := &config.Config{
		DeepgramAPIKey:             "test-key",
		DeepgramModel:              "nova-2",
		DeepgramLanguage:           "en",
		CircuitBreakerMaxFailures:  5,
		CircuitBreakerResetTimeout: 30,
	}

	client := NewDeepgramClient(cfg)
	if client.options.Model != "nova-2" {
		t.Errorf("model = %q, want nova-2", client.options.Model)
	}
	if client.options.Language != "en" {
		t.Errorf("language = %q, want en", client.options.Language)
	}
	if !client.options.Punctuate {
		t.Error("punctuation should be enabled")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}
