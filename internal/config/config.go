package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice pipeline service.
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL for this service (e.g. an ngrok hostname during
	// development). Only used for logging the media-stream endpoint.
	PublicURL string `envconfig:"PUBLIC_URL" default:""`

	// Deepgram transcription configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Dialogue provider (OpenAI-compatible chat completions endpoint)
	DialogueAPIKey      string  `envconfig:"DIALOGUE_API_KEY" required:"true"`
	DialogueBaseURL     string  `envconfig:"DIALOGUE_BASE_URL" default:"https://api.openai.com/v1"`
	DialogueModel       string  `envconfig:"DIALOGUE_MODEL" default:"gpt-4o-mini"`
	DialogueMaxTokens   int     `envconfig:"DIALOGUE_MAX_TOKENS" default:"150"`
	DialogueTemperature float64 `envconfig:"DIALOGUE_TEMPERATURE" default:"0.7"`
	DialogueTimeout     int     `envconfig:"DIALOGUE_TIMEOUT" default:"15"` // seconds

	// Synthesis provider (ElevenLabs)
	SynthesisAPIKey  string `envconfig:"SYNTHESIS_API_KEY" required:"true"`
	SynthesisVoiceID string `envconfig:"SYNTHESIS_VOICE_ID" default:"21m00Tcm4TlvDq8ikWAM"`
	SynthesisModelID string `envconfig:"SYNTHESIS_MODEL_ID" default:"eleven_turbo_v2"`
	SynthesisTimeout int    `envconfig:"SYNTHESIS_TIMEOUT" default:"20"` // seconds

	// Tenant fallbacks, used when call setup supplies no custom parameters
	BusinessName string `envconfig:"BUSINESS_NAME" default:"our office"`
	Greeting     string `envconfig:"GREETING" default:"Hello! Thanks for calling. How can I help you today?"`
	SystemPrompt string `envconfig:"SYSTEM_PROMPT" default:"You are a friendly phone receptionist. Keep answers short and conversational."`

	// Endpointing configuration
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS silence threshold
	VADMinBufferedMs   int     `envconfig:"VAD_MIN_BUFFERED_MS" default:"200"`    // audio before endpointing runs
	VADMinUtteranceMs  int     `envconfig:"VAD_MIN_UTTERANCE_MS" default:"300"`   // shortest accepted utterance
	VADTailWindowMs    int     `envconfig:"VAD_TAIL_WINDOW_MS" default:"600"`     // trailing silence window
	VADEndSilenceMs    int     `envconfig:"VAD_END_SILENCE_MS" default:"500"`     // silence that ends an utterance
	UtteranceBufferMs  int     `envconfig:"UTTERANCE_BUFFER_MS" default:"5000"`   // cap before oldest frames drop

	// Barge-in configuration
	BargeInEnergyThreshold float64 `envconfig:"BARGE_IN_ENERGY_THRESHOLD" default:"1200.0"`
	BargeInWindowMs        int     `envconfig:"BARGE_IN_WINDOW_MS" default:"240"`
	BargeInSustainedMs     int     `envconfig:"BARGE_IN_SUSTAINED_MS" default:"240"`

	// Conversation configuration
	HistoryMaxTurns int `envconfig:"HISTORY_MAX_TURNS" default:"20"`
	WarmupFrames    int `envconfig:"WARMUP_FRAMES" default:"10"` // silence frames to prime the jitter buffer

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from the environment, after loading a .env file
// when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without touching a .env file (for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if cfg.DialogueAPIKey == "" {
		return nil, fmt.Errorf("DIALOGUE_API_KEY is required")
	}
	if cfg.SynthesisAPIKey == "" {
		return nil, fmt.Errorf("SYNTHESIS_API_KEY is required")
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
