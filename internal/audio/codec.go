package audio

import (
	"math"
	"strings"
	"time"
)

// Telephony audio is always mono 8kHz with 20ms frames.
const (
	SampleRate    = 8000
	FrameDuration = 20 * time.Millisecond
	FrameSamples  = 160 // samples per 20ms frame at 8kHz
)

// Codec identifies the negotiated wire codec for a media stream.
type Codec int

const (
	CodecMulaw Codec = iota // G.711 μ-law, 1 byte per sample
	CodecPCM16              // linear PCM, 16-bit little-endian
)

// ParseCodec maps a media-format announcement to a codec.
// Unrecognized or empty encodings fall back to μ-law, which every
// telephony receiver supports.
func ParseCodec(encoding string) Codec {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "audio/x-mulaw", "audio/mulaw", "mulaw":
		return CodecMulaw
	case "audio/l16", "audio/x-l16", "l16", "pcm":
		return CodecPCM16
	default:
		return CodecMulaw
	}
}

func (c Codec) String() string {
	switch c {
	case CodecPCM16:
		return "pcm16"
	default:
		return "mulaw"
	}
}

// FrameBytes returns the wire size of one 20ms frame.
func (c Codec) FrameBytes() int {
	if c == CodecPCM16 {
		return FrameSamples * 2
	}
	return FrameSamples
}

// SilenceByte returns the byte value representing digital silence.
func (c Codec) SilenceByte() byte {
	if c == CodecMulaw {
		return 0xFF
	}
	return 0x00
}

// SilenceFrame returns a full frame of silence in this codec.
func (c Codec) SilenceFrame() []byte {
	frame := make([]byte, c.FrameBytes())
	if s := c.SilenceByte(); s != 0 {
		for i := range frame {
			frame[i] = s
		}
	}
	return frame
}

// DecodeFrame converts a wire frame in this codec to linear PCM samples.
func (c Codec) DecodeFrame(frame []byte) []int16 {
	if c == CodecMulaw {
		return DecodeMuLaw(frame)
	}
	return BytesToSamples(frame)
}

// G.711 μ-law constants (ITU-T G.711).
const (
	muLawBias = 0x84  // 132
	muLawClip = 32635 // clip before bias keeps the biased value in 15 bits
)

// EncodeMuLawSample converts a 16-bit linear PCM sample to 8-bit μ-law.
// Sign and magnitude are split, the magnitude is biased, the exponent is
// found by bit-scanning, and the packed byte is inverted per the standard.
func EncodeMuLawSample(sample int16) byte {
	var sign byte
	magnitude := int32(sample)
	if magnitude < 0 {
		sign = 0x80
		magnitude = -magnitude
	}
	if magnitude > muLawClip {
		magnitude = muLawClip
	}
	magnitude += muLawBias

	exponent := byte(7)
	for mask := int32(0x4000); magnitude&mask == 0 && exponent > 0; exponent-- {
		mask >>= 1
	}

	mantissa := byte((magnitude >> (exponent + 3)) & 0x0F)
	return ^(sign | exponent<<4 | mantissa)
}

// DecodeMuLawSample converts an 8-bit μ-law sample to 16-bit linear PCM.
func DecodeMuLawSample(b byte) int16 {
	b = ^b
	exponent := (b >> 4) & 0x07
	mantissa := b & 0x0F

	magnitude := ((int32(mantissa) << 3) + muLawBias) << exponent
	magnitude -= muLawBias

	if b&0x80 != 0 {
		return int16(-magnitude)
	}
	return int16(magnitude)
}

// EncodeMuLaw converts linear PCM samples to a μ-law byte buffer.
func EncodeMuLaw(samples []int16) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = EncodeMuLawSample(s)
	}
	return out
}

// DecodeMuLaw converts a μ-law byte buffer to linear PCM samples.
func DecodeMuLaw(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = DecodeMuLawSample(b)
	}
	return out
}

// BytesToSamples interprets little-endian 16-bit PCM bytes as samples.
// A trailing odd byte is ignored.
func BytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes serializes samples as little-endian 16-bit PCM.
func SamplesToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

// PCM16BytesToMulaw transcodes 8kHz PCM16 bytes to μ-law bytes.
func PCM16BytesToMulaw(pcm []byte) []byte {
	return EncodeMuLaw(BytesToSamples(pcm))
}

// MulawToPCM16Bytes transcodes μ-law bytes to 8kHz PCM16 bytes.
func MulawToPCM16Bytes(data []byte) []byte {
	return SamplesToBytes(DecodeMuLaw(data))
}

// DecimatePCM16kToMulaw8k downsamples 16kHz PCM16 to 8kHz μ-law by keeping
// every other sample and μ-law encoding it: four input bytes become one
// output byte. This is deliberately naive; it trades quality for zero
// buffering and is only used on the fallback synthesis path.
func DecimatePCM16kToMulaw8k(pcm []byte) []byte {
	out := make([]byte, 0, len(pcm)/4)
	for i := 0; i+1 < len(pcm); i += 4 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		out = append(out, EncodeMuLawSample(sample))
	}
	return out
}

// CalculateRMS returns the root mean square energy of the samples.
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func meanSquare(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}
