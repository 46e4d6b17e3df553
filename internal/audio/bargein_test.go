package audio

import "testing"

func TestBargeInTriggersOnSustainedSpeech(t *testing.T) {
	det := NewBargeInDetector(BargeInConfig{})

	// 15 consecutive loud frames must trigger once the sustained run length is reached.
	triggered := false
	var triggerFrame int
	for i := 0; i < 15; i++ {
		samples := voicedFrame(8000)
		frame := EncodeMuLaw(samples)
		if det.ProcessFrame(frame, samples) {
			triggered = true
			triggerFrame = i
			break
		}
	}
	if !triggered {
		t.Fatal("expected barge-in to trigger on 15 loud frames")
	}
	if triggerFrame > 12 {
		t.Errorf("expected trigger by the sustained run length, got frame %d", triggerFrame)
	}
	if len(det.CapturedFrames()) == 0 {
		t.Error("expected captured frames to be preserved for the utterance buffer")
	}
}

func TestBargeInIgnoresBriefNoise(t *testing.T) {
	det := NewBargeInDetector(BargeInConfig{})

	// Alternating loud and quiet frames never hold a sustained run.
	for i := 0; i < 50; i++ {
		var samples []int16
		if i%2 == 0 {
			samples = voicedFrame(8000)
		} else {
			samples = silentFrame()
		}
		if det.ProcessFrame(EncodeMuLaw(samples), samples) {
			t.Fatalf("barge-in triggered on intermittent noise at frame %d", i)
		}
	}
}

func TestBargeInIgnoresQuietAudio(t *testing.T) {
	// Amplitude 1200 sits above the ordinary VAD threshold but below the
	// stricter barge-in threshold that rides out line noise and echo.
	det := NewBargeInDetector(BargeInConfig{})
	for i := 0; i < 30; i++ {
		samples := voicedFrame(1200)
		if det.ProcessFrame(EncodeMuLaw(samples), samples) {
			t.Fatalf("barge-in triggered below threshold at frame %d", i)
		}
	}
}

func TestBargeInCaptureWindowBounded(t *testing.T) {
	det := NewBargeInDetector(BargeInConfig{})
	samples := silentFrame()
	frame := EncodeMuLaw(samples)
	for i := 0; i < 100; i++ {
		det.ProcessFrame(frame, samples)
	}
	max := frames(DefaultBargeInConfig().CaptureWindow)
	if got := len(det.CapturedFrames()); got > max {
		t.Errorf("expected capture window bounded at %d frames, got %d", max, got)
	}
}

func TestBargeInResetRunKeepsCapture(t *testing.T) {
	det := NewBargeInDetector(BargeInConfig{})
	samples := voicedFrame(8000)
	for i := 0; i < 10; i++ {
		det.ProcessFrame(EncodeMuLaw(samples), samples)
	}
	det.ResetRun()
	if got := len(det.CapturedFrames()); got != 10 {
		t.Errorf("expected capture to survive a run reset, got %d frames", got)
	}
	// The voiced run starts over: the next trigger needs a full sustained
	// run of its own.
	for i := 0; i < 11; i++ {
		if det.ProcessFrame(EncodeMuLaw(samples), samples) {
			t.Fatalf("barge-in triggered %d frames after run reset", i+1)
		}
	}
	if !det.ProcessFrame(EncodeMuLaw(samples), samples) {
		t.Error("expected barge-in on a fresh sustained run after run reset")
	}
}

func TestBargeInReset(t *testing.T) {
	det := NewBargeInDetector(BargeInConfig{})
	samples := voicedFrame(8000)
	for i := 0; i < 10; i++ {
		det.ProcessFrame(EncodeMuLaw(samples), samples)
	}
	det.Reset()
	if len(det.CapturedFrames()) != 0 {
		t.Error("expected reset to clear captured frames")
	}
	if det.ProcessFrame(EncodeMuLaw(samples), samples) {
		t.Error("expected voiced run to restart after reset")
	}
}
