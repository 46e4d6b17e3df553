package audio

import (
	"math"
	"time"
)

// SpeechConfig holds tunables for end-of-utterance detection.
type SpeechConfig struct {
	SilenceThreshold float64       // RMS below this counts as silence
	MinBuffered      time.Duration // audio required before endpointing runs
	MinUtterance     time.Duration // shortest span treated as an utterance
	TailWindow       time.Duration // trailing window checked for silence
	EndSilence       time.Duration // silence after last voiced frame to end
}

// DefaultSpeechConfig returns endpointing parameters tuned for 8kHz
// telephony audio.
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		SilenceThreshold: 500.0,
		MinBuffered:      200 * time.Millisecond,
		MinUtterance:     300 * time.Millisecond,
		TailWindow:       600 * time.Millisecond,
		EndSilence:       500 * time.Millisecond,
	}
}

// SpeechDetector classifies inbound frames as speech or silence and decides
// when a caller has finished an utterance. Time is counted in frames, not
// wall clock, so the detector behaves identically under real 20ms cadence
// and in tests that feed frames back to back.
type SpeechDetector struct {
	cfg        SpeechConfig
	frameCount int       // frames seen this listening period
	lastVoiced int       // index of the most recent voiced frame, 0 if none
	tail       []float64 // per-frame mean square energy, trailing window
}

// NewSpeechDetector creates a detector with the given config; zero-valued
// fields fall back to defaults.
func NewSpeechDetector(cfg SpeechConfig) *SpeechDetector {
	def := DefaultSpeechConfig()
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = def.SilenceThreshold
	}
	if cfg.MinBuffered <= 0 {
		cfg.MinBuffered = def.MinBuffered
	}
	if cfg.MinUtterance <= 0 {
		cfg.MinUtterance = def.MinUtterance
	}
	if cfg.TailWindow <= 0 {
		cfg.TailWindow = def.TailWindow
	}
	if cfg.EndSilence <= 0 {
		cfg.EndSilence = def.EndSilence
	}
	return &SpeechDetector{cfg: cfg}
}

func frames(d time.Duration) int {
	return int(d / FrameDuration)
}

// ProcessFrame consumes one decoded frame and reports whether the caller
// has finished speaking. An utterance ends once enough audio is buffered,
// the trailing window is silent, the last voiced frame is far enough in
// the past, and the total span clears the minimum utterance length.
func (d *SpeechDetector) ProcessFrame(samples []int16) bool {
	d.frameCount++

	ms := meanSquare(samples)
	d.tail = append(d.tail, ms)
	if max := frames(d.cfg.TailWindow); len(d.tail) > max {
		d.tail = d.tail[len(d.tail)-max:]
	}

	if math.Sqrt(ms) > d.cfg.SilenceThreshold {
		d.lastVoiced = d.frameCount
	}

	if d.lastVoiced == 0 {
		return false // never voiced, nothing to end
	}
	if d.frameCount < frames(d.cfg.MinBuffered) {
		return false
	}
	if d.windowRMS() >= d.cfg.SilenceThreshold {
		return false
	}
	if d.frameCount-d.lastVoiced <= frames(d.cfg.EndSilence) {
		return false
	}
	return d.frameCount > frames(d.cfg.MinUtterance)
}

// Voiced reports whether any speech was observed this listening period.
func (d *SpeechDetector) Voiced() bool {
	return d.lastVoiced > 0
}

// Reset clears detector state for the next listening period.
func (d *SpeechDetector) Reset() {
	d.frameCount = 0
	d.lastVoiced = 0
	d.tail = d.tail[:0]
}

func (d *SpeechDetector) windowRMS() float64 {
	if len(d.tail) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, ms := range d.tail {
		sum += ms
	}
	return math.Sqrt(sum / float64(len(d.tail)))
}
