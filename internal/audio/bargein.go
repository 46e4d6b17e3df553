package audio

import "time"

// BargeInConfig holds tunables for interrupt detection during playback.
// The energy threshold is stricter than ordinary endpointing so line noise
// and echo from our own playback do not trigger it.
type BargeInConfig struct {
	EnergyThreshold float64       // RMS above this counts toward an interrupt
	CaptureWindow   time.Duration // rolling capture of recent inbound frames
	Sustained       time.Duration // voiced run required to trigger
}

// DefaultBargeInConfig returns interrupt parameters for 8kHz telephony.
func DefaultBargeInConfig() BargeInConfig {
	return BargeInConfig{
		EnergyThreshold: 1200.0,
		CaptureWindow:   240 * time.Millisecond,
		Sustained:       240 * time.Millisecond,
	}
}

// BargeInDetector watches inbound audio while synthesized speech is being
// played and fires when the caller talks over it. It keeps a short rolling
// buffer of raw frames, distinct from the utterance buffer, so no audio is
// lost at the interruption boundary.
type BargeInDetector struct {
	cfg    BargeInConfig
	recent [][]byte
	run    int
}

// NewBargeInDetector creates a detector with the given config; zero-valued
// fields fall back to defaults.
func NewBargeInDetector(cfg BargeInConfig) *BargeInDetector {
	def := DefaultBargeInConfig()
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = def.EnergyThreshold
	}
	if cfg.CaptureWindow <= 0 {
		cfg.CaptureWindow = def.CaptureWindow
	}
	if cfg.Sustained <= 0 {
		cfg.Sustained = def.Sustained
	}
	return &BargeInDetector{cfg: cfg}
}

// ProcessFrame consumes one inbound wire frame along with its decoded
// samples and reports whether the caller is interrupting. The raw frame is
// retained in the rolling capture buffer either way.
func (b *BargeInDetector) ProcessFrame(frame []byte, samples []int16) bool {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	b.recent = append(b.recent, cp)
	if max := frames(b.cfg.CaptureWindow); len(b.recent) > max {
		b.recent = b.recent[len(b.recent)-max:]
	}

	if CalculateRMS(samples) > b.cfg.EnergyThreshold {
		b.run++
	} else {
		b.run = 0
	}
	return b.run >= frames(b.cfg.Sustained)
}

// CapturedFrames returns the frames currently held in the rolling buffer,
// oldest first. The returned slices are the detector's copies; callers
// take ownership and should Reset the detector afterwards.
func (b *BargeInDetector) CapturedFrames() [][]byte {
	out := make([][]byte, len(b.recent))
	copy(out, b.recent)
	return out
}

// Reset clears the rolling buffer and the voiced run.
func (b *BargeInDetector) Reset() {
	b.recent = nil
	b.run = 0
}

// ResetRun clears the voiced run but keeps the rolling capture, so speech
// arriving just before playback begins still precedes an early interrupt.
func (b *BargeInDetector) ResetRun() {
	b.run = 0
}
