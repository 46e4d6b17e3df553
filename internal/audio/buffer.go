package audio

import (
	"sync"
	"time"
)

// UtteranceBuffer accumulates inbound frames while a caller is speaking.
// It is bounded: once the cap is reached the oldest frames are dropped so
// frame intake never blocks. Frames are copied on append and never shared
// with the transport.
type UtteranceBuffer struct {
	mu        sync.Mutex
	frames    [][]byte
	maxFrames int
	dropped   int
}

// NewUtteranceBuffer creates a buffer holding at most maxFrames frames.
func NewUtteranceBuffer(maxFrames int) *UtteranceBuffer {
	if maxFrames <= 0 {
		maxFrames = int(5 * time.Second / FrameDuration)
	}
	return &UtteranceBuffer{maxFrames: maxFrames}
}

// Append copies one frame into the buffer, evicting the oldest frame when
// the cap is exceeded.
func (u *UtteranceBuffer) Append(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)

	u.mu.Lock()
	defer u.mu.Unlock()
	u.frames = append(u.frames, cp)
	if len(u.frames) > u.maxFrames {
		over := len(u.frames) - u.maxFrames
		u.frames = u.frames[over:]
		u.dropped += over
	}
}

// Seed replaces the buffer contents with the given frames. Used after a
// barge-in to carry over audio captured during playback.
func (u *UtteranceBuffer) Seed(frames [][]byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.frames = u.frames[:0]
	u.dropped = 0
	for _, f := range frames {
		cp := make([]byte, len(f))
		copy(cp, f)
		u.frames = append(u.frames, cp)
	}
}

// Len returns the number of buffered frames.
func (u *UtteranceBuffer) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.frames)
}

// Duration returns the buffered audio span.
func (u *UtteranceBuffer) Duration() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return time.Duration(len(u.frames)) * FrameDuration
}

// Dropped returns how many frames were evicted since the last reset.
func (u *UtteranceBuffer) Dropped() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.dropped
}

// Drain returns the buffered frames and clears the buffer.
func (u *UtteranceBuffer) Drain() [][]byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	frames := u.frames
	u.frames = nil
	u.dropped = 0
	return frames
}

// Reset discards all buffered frames.
func (u *UtteranceBuffer) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.frames = nil
	u.dropped = 0
}
