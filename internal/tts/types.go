package tts

import (
	"context"
	"io"
)

// Output formats accepted by synthesis providers.
const (
	FormatULaw8000 = "ulaw_8000"
	FormatPCM8000  = "pcm_8000"
	FormatPCM16000 = "pcm_16000"
)

// Synthesizer turns reply text into audio. OpenStream is the primary path:
// it returns audio bytes as the provider produces them so playback can begin
// before synthesis finishes. Synthesize is the one-shot fallback used when
// streaming is unavailable. An empty voice selects the configured default.
type Synthesizer interface {
	OpenStream(ctx context.Context, text, voice, format string) (io.ReadCloser, error)
	Synthesize(ctx context.Context, text, voice, format string) ([]byte, error)
}
