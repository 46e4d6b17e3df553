package telephony

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontline-ai/voice-pipeline/internal/audio"
	"github.com/frontline-ai/voice-pipeline/internal/observability"
	"github.com/frontline-ai/voice-pipeline/internal/tts"
)

// Player converts reply text into paced outbound audio. It consumes the
// provider's streaming output as it arrives and emits exactly frame-sized
// payloads at the frame cadence, so the gateway never sees a burst larger
// than its jitter buffer.
type Player struct {
	stream  *MediaStream
	synth   tts.Synthesizer
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewPlayer creates a player writing to stream.
func NewPlayer(stream *MediaStream, synth tts.Synthesizer, metrics *observability.Metrics, logger zerolog.Logger) *Player {
	return &Player{stream: stream, synth: synth, metrics: metrics, logger: logger}
}

// streamFormat picks the provider output format matching the wire codec.
func (p *Player) streamFormat() string {
	if p.stream.Codec() == audio.CodecPCM16 {
		return tts.FormatPCM8000
	}
	return tts.FormatULaw8000
}

// Play synthesizes text and plays it to the caller, returning when playback
// completes or ctx is cancelled. Cancellation (barge-in, teardown) returns
// ctx.Err() and never triggers the fallback path; only a provider fault
// does.
func (p *Player) Play(ctx context.Context, text, voice string) error {
	body, err := p.synth.OpenStream(ctx, text, voice, p.streamFormat())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn().Err(err).Msg("streaming synthesis unavailable, using fallback")
		return p.playFallback(ctx, text, voice)
	}
	defer body.Close()

	if err := p.pump(ctx, body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The stream died partway; the fallback replays the utterance
		// from the start rather than resuming mid-word.
		p.logger.Warn().Err(err).Msg("synthesis stream failed, using fallback")
		return p.playFallback(ctx, text, voice)
	}
	return nil
}

// playFallback performs one-shot synthesis at 16kHz PCM and decimates it to
// the wire rate.
func (p *Player) playFallback(ctx context.Context, text, voice string) error {
	data, err := p.synth.Synthesize(ctx, text, voice, tts.FormatPCM16000)
	if err != nil {
		return fmt.Errorf("fallback synthesis: %w", err)
	}
	if off := audio.WAVDataOffset(data); off > 0 {
		data = data[off:]
	}

	mulaw := audio.DecimatePCM16kToMulaw8k(data)
	payload := mulaw
	if p.stream.Codec() == audio.CodecPCM16 {
		payload = audio.MulawToPCM16Bytes(mulaw)
	}
	return p.pump(ctx, bytes.NewReader(payload))
}

// pump reads synthesized audio from r and emits frame-sized payloads paced
// one frame duration apart. The first frame goes out immediately. A WAV
// header is stripped from the first chunk only; mid-stream RIFF bytes are
// audio. The final partial frame is padded with codec silence. ctx is
// polled at every frame boundary and between reads.
func (p *Player) pump(ctx context.Context, r io.Reader) error {
	codec := p.stream.Codec()
	frameSize := codec.FrameBytes()
	silence := codec.SilenceByte()

	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()
	sent := 0

	emit := func(frame []byte) error {
		if sent > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		if err := p.stream.SendFrame(frame); err != nil {
			return err
		}
		sent++
		if p.metrics != nil {
			p.metrics.RecordFrameSent()
			p.metrics.RecordAudioBytes("out", int64(len(frame)))
		}
		return nil
	}

	buf := make([]byte, 4096)
	var pending []byte
	headerChecked := false

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if !headerChecked {
				headerChecked = true
				if off := audio.WAVDataOffset(chunk); off > 0 {
					chunk = chunk[off:]
				}
			}
			pending = append(pending, chunk...)
			for len(pending) >= frameSize {
				if err := emit(pending[:frameSize]); err != nil {
					return err
				}
				pending = pending[frameSize:]
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read synthesis stream: %w", readErr)
		}
	}

	if len(pending) > 0 {
		frame := make([]byte, frameSize)
		n := copy(frame, pending)
		for i := n; i < frameSize; i++ {
			frame[i] = silence
		}
		return emit(frame)
	}
	return nil
}
