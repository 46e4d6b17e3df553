package audio

import "encoding/binary"

// WAVInfo holds the sample region and format metadata of a parsed container.
type WAVInfo struct {
	PCM           []byte
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// ParseWAV walks a RIFF/WAVE container and returns the raw sample region
// plus format metadata. It returns false when the magic bytes are absent;
// callers treat that payload as already-decoded raw audio rather than an
// error. Unknown chunks are skipped honoring their declared sizes and
// word-alignment padding, so "fmt " need not immediately precede "data".
func ParseWAV(b []byte) (WAVInfo, bool) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return WAVInfo{}, false
	}

	var info WAVInfo
	haveFmt := false
	haveData := false

	offset := 12
	for offset+8 <= len(b) {
		chunkID := string(b[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(b[offset+4 : offset+8]))
		body := offset + 8
		if chunkSize < 0 || body > len(b) {
			break
		}
		end := body + chunkSize
		if end > len(b) {
			end = len(b)
		}

		switch chunkID {
		case "fmt ":
			if end-body >= 16 {
				info.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
				info.BitsPerSample = int(binary.LittleEndian.Uint16(b[body+14 : body+16]))
				haveFmt = true
			}
		case "data":
			info.PCM = b[body:end]
			haveData = true
		}

		// Chunks are word-aligned: odd sizes carry one pad byte.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt && !haveData {
		return WAVInfo{}, false
	}
	return info, true
}

// BuildWAV wraps mono 16-bit PCM in a minimal 44-byte canonical WAV header.
// All multi-byte fields are little-endian.
func BuildWAV(pcm []byte, sampleRate int) []byte {
	const (
		headerSize = 44
		channels   = 1
		bits       = 16
	)
	byteRate := sampleRate * channels * bits / 8
	blockAlign := channels * bits / 8

	out := make([]byte, headerSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(out[22:24], channels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bits)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}

// WAVDataOffset returns the byte offset of the sample data when b begins
// with a RIFF/WAVE header, or 0 when it does not. Used to strip a header
// from the first chunk of a synthesis stream.
func WAVDataOffset(b []byte) int {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return 0
	}
	offset := 12
	for offset+8 <= len(b) {
		chunkID := string(b[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(b[offset+4 : offset+8]))
		if chunkID == "data" {
			return offset + 8
		}
		offset += 8 + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}
	return 0
}
