package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/frontline-ai/voice-pipeline/internal/audio"
	"github.com/frontline-ai/voice-pipeline/internal/config"
	"github.com/frontline-ai/voice-pipeline/internal/dialogue"
	"github.com/frontline-ai/voice-pipeline/internal/observability"
	"github.com/frontline-ai/voice-pipeline/internal/stt"
	"github.com/frontline-ai/voice-pipeline/internal/turn"
	"github.com/frontline-ai/voice-pipeline/internal/tts"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin against the gateway's IP ranges.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// TenantContext identifies the business answering this call. Values come
// from the start event's custom parameters, falling back to config.
type TenantContext struct {
	TenantID     string
	BusinessName string
	VoiceID      string
	Greeting     string
	SystemPrompt string
}

// CallSession drives one phone call: it owns the websocket read loop, the
// turn state machine, the detectors and the single playback slot, and calls
// the three providers in sequence for each conversational turn.
type CallSession struct {
	cfg    *config.Config
	conn   wsConn
	stream *MediaStream

	transcriber stt.Transcriber
	responder   dialogue.Responder
	player      *Player

	machine   *turn.Machine
	vad       *audio.SpeechDetector
	bargeIn   *audio.BargeInDetector
	utterance *audio.UtteranceBuffer
	history   *History

	mu         sync.Mutex
	callSid    string
	tenant     TenantContext
	playCancel context.CancelFunc
	playDone   chan struct{}
	closed     bool

	id      string
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewCallSession builds a session around an accepted websocket connection.
// Providers are injected so tests can substitute fakes.
func NewCallSession(conn wsConn, cfg *config.Config, transcriber stt.Transcriber, responder dialogue.Responder, synth tts.Synthesizer) *CallSession {
	id := "call-" + uuid.New().String()
	logger := observability.CallLogger(id, observability.NewCorrelationID())
	metrics := observability.NewCallMetrics(id)
	stream := NewMediaStream(conn)

	maxFrames := int(time.Duration(cfg.UtteranceBufferMs) * time.Millisecond / audio.FrameDuration)

	return &CallSession{
		cfg:         cfg,
		conn:        conn,
		stream:      stream,
		transcriber: transcriber,
		responder:   responder,
		player:      NewPlayer(stream, synth, metrics, logger),
		machine:     turn.NewMachine(),
		vad: audio.NewSpeechDetector(audio.SpeechConfig{
			SilenceThreshold: cfg.VADEnergyThreshold,
			MinBuffered:      time.Duration(cfg.VADMinBufferedMs) * time.Millisecond,
			MinUtterance:     time.Duration(cfg.VADMinUtteranceMs) * time.Millisecond,
			TailWindow:       time.Duration(cfg.VADTailWindowMs) * time.Millisecond,
			EndSilence:       time.Duration(cfg.VADEndSilenceMs) * time.Millisecond,
		}),
		bargeIn: audio.NewBargeInDetector(audio.BargeInConfig{
			EnergyThreshold: cfg.BargeInEnergyThreshold,
			CaptureWindow:   time.Duration(cfg.BargeInWindowMs) * time.Millisecond,
			Sustained:       time.Duration(cfg.BargeInSustainedMs) * time.Millisecond,
		}),
		utterance: audio.NewUtteranceBuffer(maxFrames),
		history:   NewHistory(cfg.HistoryMaxTurns),
		id:        id,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleMediaStream is the websocket entry point for the media-stream route.
func HandleMediaStream(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger := observability.GetLogger()
			logger.Error().Err(err).Msg("websocket upgrade failed")
			return
		}

		session := NewCallSession(conn, cfg,
			stt.NewDeepgramClient(cfg),
			dialogue.NewOpenAIClient(cfg),
			tts.NewElevenLabsClient(cfg),
		)
		session.Run(r.Context())
	}
}

// Run processes inbound messages until the gateway stops the call or the
// connection drops. It blocks; the caller owns the goroutine.
func (s *CallSession) Run(ctx context.Context) {
	defer s.teardown()
	s.metrics.RecordCallStart()
	s.logger.Info().Msg("media stream connected")

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		var msg StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Error().Err(err).Msg("unparseable stream message")
			continue
		}

		switch msg.Event {
		case "connected":
			s.logger.Info().Msg("gateway handshake complete")
		case "start":
			s.handleStart(ctx, &msg)
		case "media":
			if msg.Media != nil {
				s.handleMedia(ctx, msg.Media)
			}
		case "stop":
			s.logger.Info().Str("call_sid", s.CallSid()).Msg("call stopped by gateway")
			return
		default:
			s.logger.Debug().Str("event", msg.Event).Msg("ignoring unknown stream event")
		}
	}
}

// handleStart negotiates the codec and tenant context, primes the gateway
// jitter buffer with silence, then plays the greeting as the opening
// assistant turn.
func (s *CallSession) handleStart(ctx context.Context, msg *StreamMessage) {
	streamSid := msg.StreamSid
	codec := audio.CodecMulaw
	tenant := TenantContext{
		BusinessName: s.cfg.BusinessName,
		Greeting:     s.cfg.Greeting,
		SystemPrompt: s.cfg.SystemPrompt,
	}

	if start := msg.Start; start != nil {
		if start.StreamSid != "" {
			streamSid = start.StreamSid
		}
		if start.MediaFormat != nil {
			codec = audio.ParseCodec(start.MediaFormat.Encoding)
		}
		if v := start.CustomParameters["tenant_id"]; v != "" {
			tenant.TenantID = v
		}
		if v := start.CustomParameters["business_name"]; v != "" {
			tenant.BusinessName = v
		}
		if v := start.CustomParameters["voice_id"]; v != "" {
			tenant.VoiceID = v
		}
		if v := start.CustomParameters["greeting"]; v != "" {
			tenant.Greeting = v
		}
		if v := start.CustomParameters["system_prompt"]; v != "" {
			tenant.SystemPrompt = v
		}
		s.mu.Lock()
		s.callSid = start.CallSid
		s.mu.Unlock()
	}

	s.stream.Negotiate(streamSid, codec)
	s.mu.Lock()
	s.tenant = tenant
	s.mu.Unlock()

	s.logger.Info().
		Str("call_sid", s.CallSid()).
		Str("stream_sid", streamSid).
		Str("codec", codec.String()).
		Str("tenant_id", tenant.TenantID).
		Msg("call started")

	if err := s.stream.SendSilence(s.cfg.WarmupFrames); err != nil {
		s.logger.Warn().Err(err).Msg("warm-up burst failed")
	}

	if tenant.Greeting == "" {
		return
	}
	s.history.Append(dialogue.RoleAssistant, tenant.Greeting)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.machine.To(turn.Thinking); err != nil {
		return
	}
	if err := s.machine.To(turn.Speaking); err != nil {
		return
	}
	s.startPlaybackLocked(ctx, tenant.Greeting)
}

// handleMedia routes one inbound frame by turn state. This runs on the read
// loop and must never block on pacing or provider calls.
func (s *CallSession) handleMedia(ctx context.Context, media *MediaPayload) {
	payload := media.Base64()
	if payload == "" {
		return
	}
	frame, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		s.logger.Debug().Err(err).Msg("dropping undecodable media payload")
		return
	}
	if len(frame) == 0 {
		return
	}
	s.metrics.RecordAudioBytes("in", int64(len(frame)))

	samples := s.stream.Codec().DecodeFrame(frame)

	s.mu.Lock()
	switch s.machine.State() {
	case turn.Listening:
		s.utterance.Append(frame)
		if s.vad.ProcessFrame(samples) {
			s.endOfUtteranceLocked(ctx)
		}
		s.mu.Unlock()
	case turn.Thinking:
		// Capture continues so a caller who starts talking early is not
		// clipped, but playback has not begun so there is nothing to
		// interrupt yet.
		s.bargeIn.ProcessFrame(frame, samples)
		s.mu.Unlock()
	case turn.Speaking:
		triggered := s.bargeIn.ProcessFrame(frame, samples)
		s.mu.Unlock()
		if triggered {
			s.handleBargeIn()
		}
	default:
		s.mu.Unlock()
	}
}

// endOfUtteranceLocked hands the buffered utterance to the provider chain.
// The chain runs on its own goroutine so the read loop keeps consuming
// frames. Caller holds s.mu.
func (s *CallSession) endOfUtteranceLocked(ctx context.Context) {
	if err := s.machine.To(turn.Thinking); err != nil {
		return
	}
	frames := s.utterance.Drain()
	s.logger.Debug().Int("frames", len(frames)).Msg("end of utterance")
	go s.runTurn(ctx, frames)
}

// runTurn executes transcribe -> respond -> speak for one caller utterance.
// Any provider failure abandons the turn and returns to Listening.
func (s *CallSession) runTurn(ctx context.Context, frames [][]byte) {
	transcript, err := s.transcribe(ctx, frames)
	if err != nil {
		s.logger.Error().Err(err).Msg("transcription failed")
		s.metrics.RecordError("transcription", "stt")
		s.metrics.RecordTurn(observability.TurnProviderError)
		s.backToListening()
		return
	}
	if strings.TrimSpace(transcript) == "" {
		// The endpointer fired on noise; stay quiet rather than respond
		// to nothing.
		s.metrics.RecordTurn(observability.TurnEmptyTranscript)
		s.backToListening()
		return
	}

	s.logger.Info().Str("transcript", transcript).Msg("caller utterance")
	s.history.Append(dialogue.RoleUser, transcript)

	s.mu.Lock()
	prompt := s.tenant.SystemPrompt
	s.mu.Unlock()

	s.metrics.RecordProviderStart("dialogue")
	reply, err := s.responder.Respond(ctx, prompt, s.history.Turns())
	s.metrics.RecordProviderEnd("dialogue", err == nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("dialogue failed")
		s.metrics.RecordError("dialogue", "dialogue")
		s.metrics.RecordTurn(observability.TurnProviderError)
		s.backToListening()
		return
	}

	s.history.Append(dialogue.RoleAssistant, reply)
	s.metrics.RecordTurn(observability.TurnCompleted)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// Call ended while the providers were running.
		return
	}
	if err := s.machine.To(turn.Speaking); err != nil {
		return
	}
	s.startPlaybackLocked(ctx, reply)
}

// backToListening abandons the current turn.
func (s *CallSession) backToListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vad.Reset()
	if s.machine.Is(turn.Thinking) {
		_ = s.machine.To(turn.Listening)
	}
}

// transcribe decodes the buffered frames to PCM, wraps them in a WAV
// container and sends them to the transcription provider.
func (s *CallSession) transcribe(ctx context.Context, frames [][]byte) (string, error) {
	codec := s.stream.Codec()
	var pcm []byte
	for _, f := range frames {
		pcm = append(pcm, audio.SamplesToBytes(codec.DecodeFrame(f))...)
	}
	wav := audio.BuildWAV(pcm, audio.SampleRate)

	s.metrics.RecordProviderStart("stt")
	transcript, err := s.transcriber.Transcribe(ctx, wav)
	s.metrics.RecordProviderEnd("stt", err == nil)
	return transcript, err
}

// startPlaybackLocked launches the single playback job. Caller holds s.mu
// and has already moved the machine to Speaking.
func (s *CallSession) startPlaybackLocked(ctx context.Context, text string) {
	playCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.playCancel = cancel
	s.playDone = done
	// Keep frames captured while Thinking: if the caller talked over the
	// pause and interrupts right away, the seeded utterance starts with
	// them. Only the voiced run restarts, so an interrupt must be sustained
	// against actual playback.
	s.bargeIn.ResetRun()
	voice := s.tenant.VoiceID

	go func() {
		defer close(done)
		defer cancel()
		if err := s.player.Play(playCtx, text, voice); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("playback failed")
			s.metrics.RecordError("playback", "telephony")
		}
		s.onPlaybackDone()
	}()
}

// onPlaybackDone returns the session to Listening after playback ends for
// any reason. The endpointer is reset in the same critical section as the
// state transition so the read loop never sees Listening with stale state.
func (s *CallSession) onPlaybackDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playCancel = nil
	s.playDone = nil
	s.vad.Reset()
	if s.machine.Is(turn.Speaking) {
		_ = s.machine.To(turn.Listening)
	}
}

// handleBargeIn cancels playback and seeds the next listening period with
// the frames captured around the interruption, so the start of the caller's
// sentence is not lost. Runs on the read loop, outside s.mu, because it
// must wait for the playback goroutine which takes the lock on exit.
func (s *CallSession) handleBargeIn() {
	s.logger.Info().Msg("caller barge-in, stopping playback")
	s.metrics.RecordBargeIn()
	s.stopPlayback()

	s.mu.Lock()
	defer s.mu.Unlock()
	captured := s.bargeIn.CapturedFrames()
	s.utterance.Reset()
	s.utterance.Seed(captured)
	s.bargeIn.Reset()
}

// stopPlayback cancels the active playback job, if any, and waits for it to
// finish. Safe to call with no job running.
func (s *CallSession) stopPlayback() {
	s.mu.Lock()
	cancel := s.playCancel
	done := s.playDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// teardown releases everything once. Safe to call from any exit path.
func (s *CallSession) teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.stopPlayback()
	s.stream.Close()
	s.conn.Close()
	if err := s.transcriber.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("closing transcriber")
	}
	s.utterance.Reset()
	s.metrics.RecordCallEnd()
	s.logger.Info().Msg("call session closed")
}

// CallSid returns the gateway's call identifier, empty before start.
func (s *CallSession) CallSid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callSid
}

// ID returns the internal call identifier.
func (s *CallSession) ID() string {
	return s.id
}
