// Package protocol defines the wire format for the Gemini Live API
// (BidiGenerateContent over WebSocket).
// Note: the API uses camelCase for JSON field names.
package protocol

import "encoding/json"

// WebSocketURL is the bidirectional streaming endpoint. The API key is passed
// via the x-goog-api-key header, not as a query parameter.
const WebSocketURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// ClientMessage is the envelope for all client-to-server frames. Exactly one
// field is set per message.
type ClientMessage struct {
	Setup         *Setup         `json:"setup,omitempty"`
	RealtimeInput *RealtimeInput `json:"realtimeInput,omitempty"`
	ClientContent *ClientContent `json:"clientContent,omitempty"`
}

// Setup is the required first message of a session (BidiGenerateContentSetup).
type Setup struct {
	// Model must be in the form "models/{model}".
	Model             string            `json:"model"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
}

// GenerationConfig selects response modalities and voice.
type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the synthesis voice.
type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

// VoiceConfig names a prebuilt voice.
type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

// PrebuiltVoiceConfig carries the voice name, e.g. "Puck".
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName,omitempty"`
}

// RealtimeInput streams media chunks outside of turn structure.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks,omitempty"`
}

// Blob is inline binary data, base64 encoded.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ClientContent submits structured turns (used for text side-channel input).
type ClientContent struct {
	Turns        []Content `json:"turns,omitempty"`
	TurnComplete bool      `json:"turnComplete,omitempty"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is a single content part: text or inline media.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// ServerMessage is a frame from the server (BidiGenerateContentServerMessage).
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *GoAway        `json:"goAway,omitempty"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// SetupComplete acknowledges the setup message (empty object per docs).
type SetupComplete struct{}

// GoAway warns that the server will close the connection soon.
type GoAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

// UsageMetadata reports token usage.
type UsageMetadata struct {
	PromptTokenCount   int `json:"promptTokenCount,omitempty"`
	ResponseTokenCount int `json:"responseTokenCount,omitempty"`
	TotalTokenCount    int `json:"totalTokenCount,omitempty"`
}

// ServerContent carries model output and turn lifecycle signals.
type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	GenerationComplete  bool           `json:"generationComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
}

// Transcription is a speech-to-text fragment for either direction.
type Transcription struct {
	Text string `json:"text,omitempty"`
}

// ParseServerMessage decodes a server frame.
func ParseServerMessage(data []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AudioMessage builds a realtimeInput frame carrying one audio chunk.
func AudioMessage(mimeType, b64 string) ClientMessage {
	return ClientMessage{
		RealtimeInput: &RealtimeInput{
			MediaChunks: []Blob{{MIMEType: mimeType, Data: b64}},
		},
	}
}

// ImageMessage builds a realtimeInput frame carrying one still image.
func ImageMessage(mimeType, b64 string) ClientMessage {
	return ClientMessage{
		RealtimeInput: &RealtimeInput{
			MediaChunks: []Blob{{MIMEType: mimeType, Data: b64}},
		},
	}
}

// TextMessage builds a complete user text turn.
func TextMessage(text string) ClientMessage {
	return ClientMessage{
		ClientContent: &ClientContent{
			Turns: []Content{{
				Role:  "user",
				Parts: []Part{{Text: text}},
			}},
			TurnComplete: true,
		},
	}
}
