package telephony

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/frontline-ai/voice-pipeline/internal/audio"
)

// wsConn is the subset of *websocket.Conn the session layer needs. Tests
// substitute an in-memory implementation.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// MediaStream wraps the websocket with the negotiated codec and stream
// identity, and owns all outbound media writes. Writes are serialized by a
// mutex; gorilla/websocket allows only one concurrent writer.
type MediaStream struct {
	conn wsConn

	mu        sync.Mutex
	codec     audio.Codec
	streamSid string
	closed    bool
}

// NewMediaStream wraps conn with the μ-law default codec. The codec and
// stream SID are set once the start event arrives.
func NewMediaStream(conn wsConn) *MediaStream {
	return &MediaStream{conn: conn, codec: audio.CodecMulaw}
}

// Negotiate records the stream identity and codec from the start event.
func (s *MediaStream) Negotiate(streamSid string, codec audio.Codec) {
	s.mu.Lock()
	s.streamSid = streamSid
	s.codec = codec
	s.mu.Unlock()
}

// Codec returns the negotiated codec.
func (s *MediaStream) Codec() audio.Codec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codec
}

// StreamSid returns the stream identity, empty before the start event.
func (s *MediaStream) StreamSid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSid
}

// SendFrame sends one frame-sized audio payload. Frames sent after Close,
// or before the start event has provided a stream SID, are dropped without
// error: the caller's pacing loop should not distinguish teardown from a
// slow start. A frame of the wrong size is a programming error and is
// reported.
func (s *MediaStream) SendFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.streamSid == "" {
		return nil
	}
	if len(frame) != s.codec.FrameBytes() {
		return fmt.Errorf("frame is %d bytes, codec %s requires %d", len(frame), s.codec, s.codec.FrameBytes())
	}

	msg := outboundMedia{
		Event:     "media",
		StreamSid: s.streamSid,
		Media:     outboundAudio{Payload: base64.StdEncoding.EncodeToString(frame)},
	}
	return s.conn.WriteJSON(msg)
}

// SendSilence emits n frames of codec silence back to back. Used as a
// warm-up burst after the start event so the gateway's jitter buffer is
// primed before real speech arrives.
func (s *MediaStream) SendSilence(n int) error {
	frame := s.Codec().SilenceFrame()
	for i := 0; i < n; i++ {
		if err := s.SendFrame(frame); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the stream closed. Subsequent SendFrame calls are no-ops.
// The underlying connection is owned by the session and closed there.
func (s *MediaStream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether Close has been called.
func (s *MediaStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
