package live

// Event is the interface for all live session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StateChangedEvent is emitted when the session state changes.
type StateChangedEvent struct {
	From SessionState `json:"from"`
	To   SessionState `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// SessionClosedEvent is emitted when the session ends.
type SessionClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *SessionClosedEvent) EventType() string { return "session.closed" }

// TranscriptDeltaEvent is emitted as real-time transcription updates arrive.
// Role is "user" for input transcription and "model" for output transcription.
type TranscriptDeltaEvent struct {
	Role  string `json:"role"`
	Delta string `json:"delta"`
}

func (e *TranscriptDeltaEvent) EventType() string { return "transcript.delta" }

// TextDeltaEvent is emitted for incremental model text output.
type TextDeltaEvent struct {
	Delta string `json:"delta"`
}

func (e *TextDeltaEvent) EventType() string { return "text.delta" }

// TurnCompleteEvent is emitted when the model finishes a response turn.
type TurnCompleteEvent struct{}

func (e *TurnCompleteEvent) EventType() string { return "turn.complete" }

// InterruptedEvent is emitted when the model abandons its current turn
// because the user started speaking. Pending playback has been discarded.
type InterruptedEvent struct{}

func (e *InterruptedEvent) EventType() string { return "interrupted" }

// MutedChangedEvent is emitted when the microphone mute state flips.
type MutedChangedEvent struct {
	Muted bool `json:"muted"`
}

func (e *MutedChangedEvent) EventType() string { return "muted.changed" }

// ScreenSharingChangedEvent is emitted when display capture starts or stops.
type ScreenSharingChangedEvent struct {
	Sharing bool `json:"sharing"`
}

func (e *ScreenSharingChangedEvent) EventType() string { return "screen.changed" }

// ErrorEvent is emitted when a classified error ends the session.
type ErrorEvent struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// EnergyLevelEvent is emitted periodically with capture energy information,
// for driving a level meter in the UI.
type EnergyLevelEvent struct {
	RMS        float64 `json:"rms"`
	Peak       float64 `json:"peak"`
	DurationMs int     `json:"duration_ms"`
}

func (e *EnergyLevelEvent) EventType() string { return "energy.level" }
