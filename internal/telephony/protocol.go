package telephony

// StreamMessage is one inbound JSON message on the media-stream websocket.
type StreamMessage struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Stop      *StopPayload  `json:"stop,omitempty"`
}

// MediaPayload carries one base64-encoded audio frame. Some gateways put
// the audio under "chunk" instead of "payload"; both are accepted.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload,omitempty"`
}

// MediaFormat announces the codec for the stream in the start event.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// StartPayload is the body of the start event.
type StartPayload struct {
	AccountSid       string            `json:"accountSid,omitempty"`
	CallSid          string            `json:"callSid,omitempty"`
	StreamSid        string            `json:"streamSid,omitempty"`
	Tracks           []string          `json:"tracks,omitempty"`
	MediaFormat      *MediaFormat      `json:"mediaFormat,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// StopPayload is the body of the stop event.
type StopPayload struct {
	AccountSid string `json:"accountSid,omitempty"`
	CallSid    string `json:"callSid,omitempty"`
	StreamSid  string `json:"streamSid,omitempty"`
}

// outboundMedia is the only message shape this service sends. The gateway
// rejects outbound media carrying any extra fields, so this intentionally
// holds event, streamSid and the payload alone.
type outboundMedia struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid"`
	Media     outboundAudio `json:"media"`
}

type outboundAudio struct {
	Payload string `json:"payload"`
}

// Base64 returns the frame audio, preferring payload over chunk.
func (m *MediaPayload) Base64() string {
	if m.Payload != "" {
		return m.Payload
	}
	return m.Chunk
}
