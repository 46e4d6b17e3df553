package audio

import (
	"testing"
	"time"
)

func TestUtteranceBufferAppendAndDrain(t *testing.T) {
	buf := NewUtteranceBuffer(10)

	frame := []byte{1, 2, 3}
	buf.Append(frame)
	buf.Append([]byte{4, 5, 6})

	if buf.Len() != 2 {
		t.Fatalf("expected 2 frames, got %d", buf.Len())
	}
	if buf.Duration() != 2*FrameDuration {
		t.Errorf("expected 40ms span, got %v", buf.Duration())
	}

	// Appended frames are copies, not aliases.
	frame[0] = 99
	frames := buf.Drain()
	if frames[0][0] != 1 {
		t.Error("expected buffer to own a copy of appended frames")
	}
	if buf.Len() != 0 {
		t.Error("expected drain to clear the buffer")
	}
}

func TestUtteranceBufferDropsOldest(t *testing.T) {
	buf := NewUtteranceBuffer(3)
	for i := byte(0); i < 5; i++ {
		buf.Append([]byte{i})
	}

	if buf.Len() != 3 {
		t.Fatalf("expected cap of 3 frames, got %d", buf.Len())
	}
	if buf.Dropped() != 2 {
		t.Errorf("expected 2 dropped frames, got %d", buf.Dropped())
	}

	frames := buf.Drain()
	if frames[0][0] != 2 || frames[2][0] != 4 {
		t.Errorf("expected oldest frames evicted, got first=%d last=%d", frames[0][0], frames[2][0])
	}
}

func TestUtteranceBufferSeed(t *testing.T) {
	buf := NewUtteranceBuffer(10)
	buf.Append([]byte{1})
	buf.Append([]byte{2})

	seed := [][]byte{{7}, {8}, {9}}
	buf.Seed(seed)

	if buf.Len() != 3 {
		t.Fatalf("expected seed to replace contents, got %d frames", buf.Len())
	}
	seed[0][0] = 99
	frames := buf.Drain()
	if frames[0][0] != 7 {
		t.Error("expected seeded frames to be copied")
	}
}

func TestUtteranceBufferDefaultCap(t *testing.T) {
	buf := NewUtteranceBuffer(0)
	want := int(5 * time.Second / FrameDuration)
	for i := 0; i < want+20; i++ {
		buf.Append([]byte{0})
	}
	if buf.Len() != want {
		t.Errorf("expected default cap of %d frames (5s), got %d", want, buf.Len())
	}
}
