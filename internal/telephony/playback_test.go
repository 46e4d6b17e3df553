package telephony

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontline-ai/voice-pipeline/internal/audio"
)

// fakeSynth is an in-memory Synthesizer.
type fakeSynth struct {
	mu           sync.Mutex
	streamData   []byte
	streamErr    error
	oneShotData  []byte
	oneShotErr   error
	streamCalls  int
	oneShotCalls int
	texts        []string
}

func (f *fakeSynth) OpenStream(ctx context.Context, text, voice, format string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.streamCalls++
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return io.NopCloser(bytes.NewReader(f.streamData)), nil
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice, format string) ([]byte, error) {
	f.mu.Lock()
	f.oneShotCalls++
	f.mu.Unlock()
	return f.oneShotData, f.oneShotErr
}

func (f *fakeSynth) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamCalls, f.oneShotCalls
}

func newTestPlayer(synth *fakeSynth) (*Player, *fakeConn) {
	conn := newFakeConn()
	stream := NewMediaStream(conn)
	stream.Negotiate("MS123", audio.CodecMulaw)
	return NewPlayer(stream, synth, nil, zerolog.Nop()), conn
}

func sentFrames(t *testing.T, conn *fakeConn) [][]byte {
	t.Helper()
	var frames [][]byte
	for _, raw := range conn.sentMessages() {
		var msg struct {
			Media struct {
				Payload string `json:"payload"`
			} `json:"media"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal outbound message: %v", err)
		}
		frame, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
		if err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func TestPlaybackPacing(t *testing.T) {
	const frameCount = 5
	synth := &fakeSynth{streamData: make([]byte, frameCount*160)}
	player, conn := newTestPlayer(synth)

	start := time.Now()
	if err := player.Play(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	elapsed := time.Since(start)

	frames := sentFrames(t, conn)
	if len(frames) != frameCount {
		t.Fatalf("sent %d frames, want %d", len(frames), frameCount)
	}
	for i, f := range frames {
		if len(f) != 160 {
			t.Errorf("frame %d is %d bytes, want 160", i, len(f))
		}
	}
	if min := (frameCount - 1) * 20 * time.Millisecond; elapsed < min {
		t.Errorf("playback of %d frames took %v, want at least %v", frameCount, elapsed, min)
	}
}

func TestPlaybackPadsFinalFrame(t *testing.T) {
	data := make([]byte, 200) // one full frame plus 40 bytes
	for i := range data {
		data[i] = 0x42
	}
	synth := &fakeSynth{streamData: data}
	player, conn := newTestPlayer(synth)

	if err := player.Play(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	frames := sentFrames(t, conn)
	if len(frames) != 2 {
		t.Fatalf("sent %d frames, want 2", len(frames))
	}
	last := frames[1]
	for i := 0; i < 40; i++ {
		if last[i] != 0x42 {
			t.Fatalf("byte %d of final frame = %#x, want audio", i, last[i])
		}
	}
	for i := 40; i < 160; i++ {
		if last[i] != 0xFF {
			t.Fatalf("byte %d of final frame = %#x, want mu-law silence", i, last[i])
		}
	}
}

func TestPlaybackStripsWAVHeader(t *testing.T) {
	payload := make([]byte, 160)
	for i := range payload {
		payload[i] = byte(i)
	}
	synth := &fakeSynth{streamData: audio.BuildWAV(payload, 8000)}
	player, conn := newTestPlayer(synth)

	if err := player.Play(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	frames := sentFrames(t, conn)
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1", len(frames))
	}
	if string(frames[0]) != string(payload) {
		t.Error("frame does not match the WAV data section")
	}
}

func TestPlaybackCancellation(t *testing.T) {
	synth := &fakeSynth{streamData: make([]byte, 100*160)} // 2s of audio
	player, conn := newTestPlayer(synth)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	err := player.Play(ctx, "a long reply", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Play returned %v, want context.Canceled", err)
	}

	if n := len(sentFrames(t, conn)); n >= 100 {
		t.Errorf("playback was not interrupted, %d frames sent", n)
	}
	// Cancellation is a normal transition, never a reason to re-synthesize.
	if _, oneShot := synth.counts(); oneShot != 0 {
		t.Errorf("fallback synthesis ran %d times after cancellation", oneShot)
	}
}

func TestPlaybackFallbackOnStreamError(t *testing.T) {
	pcm16k := make([]byte, 640) // 16kHz PCM16, decimates to one 160-byte frame
	synth := &fakeSynth{
		streamErr:   errors.New("stream endpoint down"),
		oneShotData: pcm16k,
	}
	player, conn := newTestPlayer(synth)

	if err := player.Play(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	if _, oneShot := synth.counts(); oneShot != 1 {
		t.Errorf("fallback synthesis ran %d times, want 1", oneShot)
	}
	frames := sentFrames(t, conn)
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1", len(frames))
	}
	if len(frames[0]) != 160 {
		t.Errorf("fallback frame is %d bytes, want 160", len(frames[0]))
	}
}

func TestPlaybackFallbackFailureIsError(t *testing.T) {
	synth := &fakeSynth{
		streamErr:  errors.New("stream endpoint down"),
		oneShotErr: errors.New("provider down"),
	}
	player, _ := newTestPlayer(synth)

	if err := player.Play(context.Background(), "hello", ""); err == nil {
		t.Error("expected error when both synthesis paths fail")
	}
}
