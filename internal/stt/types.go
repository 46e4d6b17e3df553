package stt

import "context"

// Transcriber converts a complete utterance into text. Implementations
// receive a WAV container and return the best transcript, empty when the
// provider heard nothing usable.
type Transcriber interface {
	Transcribe(ctx context.Context, wavAudio []byte) (string, error)
	Close() error
}
