package audio

import (
	"math"
	"testing"
)

func TestMuLawRoundTrip(t *testing.T) {
	// Within the clip range the round-trip error must stay within the
	// codec's quantization step for the sample's exponent.
	for pcm := -32635; pcm <= 32635; pcm += 13 {
		sample := int16(pcm)
		encoded := EncodeMuLawSample(sample)
		decoded := DecodeMuLawSample(encoded)

		exponent := (^encoded >> 4) & 0x07
		allowed := int32(1) << (exponent + 2)

		err := int32(decoded) - int32(sample)
		if err < 0 {
			err = -err
		}
		if err > allowed {
			t.Fatalf("sample %d: encoded 0x%02x decoded %d, error %d exceeds %d",
				sample, encoded, decoded, err, allowed)
		}
	}
}

func TestMuLawClipping(t *testing.T) {
	// Samples beyond the clip point all map to the codec maximum.
	if got := DecodeMuLawSample(EncodeMuLawSample(32767)); got != 32124 {
		t.Errorf("expected clipped max 32124, got %d", got)
	}
	if got := DecodeMuLawSample(EncodeMuLawSample(-32768)); got != -32124 {
		t.Errorf("expected clipped min -32124, got %d", got)
	}
}

func TestMuLawSilence(t *testing.T) {
	if got := EncodeMuLawSample(0); got != 0xFF {
		t.Errorf("expected μ-law silence 0xFF for zero sample, got 0x%02x", got)
	}
	if got := DecodeMuLawSample(0xFF); got != 0 {
		t.Errorf("expected zero sample for μ-law 0xFF, got %d", got)
	}
}

func TestSampleByteRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 1000, -1000, 32767, -32768}
	got := BytesToSamples(SamplesToBytes(samples))
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, samples[i], got[i])
		}
	}
}

func TestBytesToSamplesOddLength(t *testing.T) {
	if got := BytesToSamples([]byte{0x01, 0x02, 0x03}); len(got) != 1 {
		t.Errorf("expected trailing odd byte to be ignored, got %d samples", len(got))
	}
}

func TestParseCodec(t *testing.T) {
	cases := []struct {
		encoding string
		want     Codec
	}{
		{"audio/x-mulaw", CodecMulaw},
		{"AUDIO/X-MULAW", CodecMulaw},
		{"audio/l16", CodecPCM16},
		{"audio/x-l16", CodecPCM16},
		{"", CodecMulaw},
		{"audio/opus", CodecMulaw}, // unsupported falls back to μ-law
	}
	for _, c := range cases {
		if got := ParseCodec(c.encoding); got != c.want {
			t.Errorf("ParseCodec(%q): expected %v, got %v", c.encoding, c.want, got)
		}
	}
}

func TestCodecFrameBytes(t *testing.T) {
	if got := CodecMulaw.FrameBytes(); got != 160 {
		t.Errorf("expected 160-byte μ-law frames, got %d", got)
	}
	if got := CodecPCM16.FrameBytes(); got != 320 {
		t.Errorf("expected 320-byte PCM16 frames, got %d", got)
	}
}

func TestSilenceFrame(t *testing.T) {
	frame := CodecMulaw.SilenceFrame()
	if len(frame) != 160 {
		t.Fatalf("expected 160-byte silence frame, got %d", len(frame))
	}
	for i, b := range frame {
		if b != 0xFF {
			t.Fatalf("byte %d: expected 0xFF, got 0x%02x", i, b)
		}
	}
	for i, s := range CodecMulaw.DecodeFrame(frame) {
		if s != 0 {
			t.Fatalf("decoded silence sample %d is %d, expected 0", i, s)
		}
	}
}

func TestDecimatePCM16kToMulaw8k(t *testing.T) {
	// Four input bytes (two 16kHz samples) become one μ-law byte.
	samples := make([]int16, 320) // 20ms at 16kHz
	for i := range samples {
		samples[i] = int16(2000 * math.Sin(2*math.Pi*float64(i)/32))
	}
	out := DecimatePCM16kToMulaw8k(SamplesToBytes(samples))
	if len(out) != 160 {
		t.Fatalf("expected 160 μ-law bytes from 640 PCM bytes, got %d", len(out))
	}

	// The kept samples are the even-indexed ones.
	want := DecodeMuLawSample(EncodeMuLawSample(samples[2]))
	if got := DecodeMuLawSample(out[1]); got != want {
		t.Errorf("expected decimation to keep every other sample: got %d, want %d", got, want)
	}
}

func TestCalculateRMS(t *testing.T) {
	samples := []int16{1000, -1000, 2000, -2000}
	rms := CalculateRMS(samples)
	expected := math.Sqrt((1000.0*1000 + 1000*1000 + 2000*2000 + 2000*2000) / 4)
	if math.Abs(rms-expected) > 1.0 {
		t.Errorf("expected RMS around %.2f, got %.2f", expected, rms)
	}
	if CalculateRMS(nil) != 0.0 {
		t.Error("expected zero RMS for empty input")
	}
}
