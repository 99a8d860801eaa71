// Package live implements the real-time voice and screen session at the
// heart of CodeDrill: a bidirectional audio stream to a generative model,
// with microphone capture, gapless playback of synthesized speech, and
// periodic display sharing.
//
// # Architecture
//
//   - Session: the orchestrator; owns the state machine and all resources
//   - Client: the WebSocket transport (setup handshake, message relay)
//   - Capture: accumulates microphone samples into fixed-size wire frames
//   - Scheduler: schedules model audio for gapless playback
//   - ScreenShare: grabs, downscales, and JPEG-encodes display frames
//   - Microphone, Speaker, Display: the hardware-backed implementations
//     of BlockSource, Sink, and FrameGrabber
//
// # Data Flow
//
//	Mic → Capture (4096-sample blocks, 16 kHz) → base64 PCM → Transport
//	Display → ScreenShare (≤1280 px, JPEG) ───────────────────→ Transport
//	Transport → 24 kHz PCM → Scheduler → Speaker
//
// # State Machine
//
//	IDLE → CONNECTING → CONNECTED → IDLE
//	           │             │
//	           └──→ ERROR ←──┘
//
// Connecting checks preconditions (credential, network) before any device
// is acquired. A server "interrupted" signal discards all pending playback
// and rewinds the playback timeline. Teardown runs exactly once per
// connection no matter how the session ends.
package live
