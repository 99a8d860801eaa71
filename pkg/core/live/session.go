package live

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/vango-go/codedrill/pkg/core/live/protocol"
	"github.com/vango-go/codedrill/pkg/core/pcm"
)

// Dialer establishes a Transport for a session. The default dials the real
// service; tests substitute in-process fakes.
type Dialer func(ctx context.Context, setup *protocol.Setup, cfg SessionConfig) (Transport, error)

// Preflight checks network reachability before any device is acquired.
type Preflight func(ctx context.Context) error

// SessionOptions overrides the production collaborators of a Session.
// Zero-value fields use the real microphone, speaker, display and network.
type SessionOptions struct {
	Logger *slog.Logger
	Dial   Dialer
	Mic    BlockSource

	// NewSink opens the playback sink. The returned func releases it;
	// teardown interrupts in-flight playback before calling it.
	NewSink func(AudioConfig) (Sink, func(), error)

	Grabber   FrameGrabber
	Preflight Preflight
	Clock     Clock
}

// Session drives one live conversation: it owns the transport, the capture
// and playback pipelines, and the screen share, and moves through
// idle, connecting, connected, and error states.
//
// All methods are safe for concurrent use.
type Session struct {
	cfg    SessionConfig
	opts   SessionOptions
	logger *slog.Logger
	events chan Event

	mu        sync.Mutex
	state     SessionState
	lastErr   *Error
	active    bool
	gen       int
	transport Transport
	capture   *Capture
	scheduler *Scheduler
	screen    *ScreenShare
	closeSink func()
}

// NewSession returns an idle Session for the given configuration.
func NewSession(cfg SessionConfig, opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Dial == nil {
		opts.Dial = func(ctx context.Context, setup *protocol.Setup, cfg SessionConfig) (Transport, error) {
			return Connect(ctx, setup, DialOptions{APIKey: cfg.APIKey, Logger: opts.Logger})
		}
	}
	if opts.NewSink == nil {
		opts.NewSink = func(audio AudioConfig) (Sink, func(), error) {
			sp, err := NewSpeaker(audio)
			if err != nil {
				return nil, nil, err
			}
			return sp, sp.Close, nil
		}
	}
	if opts.Grabber == nil {
		opts.Grabber = Display{}
	}
	if opts.Preflight == nil {
		opts.Preflight = defaultPreflight
	}
	return &Session{
		cfg:    cfg,
		opts:   opts,
		logger: opts.Logger,
		events: make(chan Event, 128),
		state:  StateIdle,
	}
}

// Events returns the channel of session events. Emission never blocks; when
// the receiver lags, events are dropped.
func (s *Session) Events() <-chan Event { return s.events }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the classified error that put the session in StateError, or
// nil in any other state.
func (s *Session) Err() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Connect checks preconditions, acquires devices, performs the transport
// handshake, and transitions to StateConnected. From StateIdle or StateError
// only; any other state returns nil without effect.
//
// Preconditions fail before any device is touched: a missing API key or an
// unreachable network puts the session straight into StateError.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.active = true
	s.lastErr = nil
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return s.fail(gen, newError(KindPrecondition, "No API key configured. Set GEMINI_API_KEY and try again.", nil))
	}
	if err := s.opts.Preflight(ctx); err != nil {
		return s.fail(gen, newError(KindPrecondition, "You appear to be offline. Check your network and try again.", err))
	}

	sink, closeSink, err := s.opts.NewSink(s.cfg.Playback)
	if err != nil {
		return s.fail(gen, Classify(err, "opening audio output"))
	}

	clock := s.opts.Clock
	if clock == nil {
		clock = NewMonotonicClock()
	}
	scheduler := NewScheduler(clock, sink, s.cfg.Playback)

	transport, err := s.opts.Dial(ctx, s.setup(), s.cfg)
	if err != nil {
		if closeSink != nil {
			closeSink()
		}
		return s.fail(gen, Classify(err, "connecting"))
	}

	mic := s.opts.Mic
	if mic == nil {
		mic = NewMicrophone(s.cfg.Capture.Audio)
	}
	capture := NewCapture(s.cfg.Capture, mic, func(f pcm.Frame) {
		s.sendFrame(gen, f)
	}, func(l Level) {
		s.emit(&EnergyLevelEvent{
			RMS:        l.RMS,
			Peak:       l.Peak,
			DurationMs: s.cfg.Capture.Audio.DurationMs(s.cfg.Capture.BlockSize * 2),
		})
	})
	if err := capture.Start(); err != nil {
		transport.Close()
		if closeSink != nil {
			closeSink()
		}
		return s.fail(gen, Classify(err, "starting microphone"))
	}

	screen := NewScreenShare(s.cfg.Screen, s.opts.Grabber, func(jpegData []byte) {
		s.sendImage(gen, jpegData)
	}, func() {
		s.screenLost(gen)
	})

	s.mu.Lock()
	if !s.active || s.gen != gen {
		// Disconnect landed during connect; the flag is the cancellation
		// token, so release everything and stay down.
		s.mu.Unlock()
		capture.Stop()
		transport.Close()
		if closeSink != nil {
			closeSink()
		}
		return nil
	}
	s.transport = transport
	s.capture = capture
	s.scheduler = scheduler
	s.screen = screen
	s.closeSink = closeSink
	s.setStateLocked(StateConnected)
	s.mu.Unlock()

	go s.recvLoop(gen, transport, scheduler)
	return nil
}

// Disconnect tears the session down and returns to StateIdle. Idempotent;
// calling it during Connect cancels the attempt.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()
	s.teardown(gen, StateIdle, nil, "user")
}

// SetMuted flips the microphone mute flag.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	capture := s.capture
	s.mu.Unlock()
	if capture == nil {
		return
	}
	if prev := capture.SetMuted(muted); prev != muted {
		s.emit(&MutedChangedEvent{Muted: muted})
	}
}

// Muted reports the microphone mute state.
func (s *Session) Muted() bool {
	s.mu.Lock()
	capture := s.capture
	s.mu.Unlock()
	return capture != nil && capture.Muted()
}

// StartScreenShare begins periodic display capture.
func (s *Session) StartScreenShare() {
	s.mu.Lock()
	screen := s.screen
	s.mu.Unlock()
	if screen == nil || screen.Running() {
		return
	}
	screen.Start()
	s.emit(&ScreenSharingChangedEvent{Sharing: true})
}

// StopScreenShare ends display capture. Idempotent.
func (s *Session) StopScreenShare() {
	s.mu.Lock()
	screen := s.screen
	s.mu.Unlock()
	if screen == nil || !screen.Running() {
		return
	}
	screen.Stop()
	s.emit(&ScreenSharingChangedEvent{Sharing: false})
}

// screenLost reacts to the share stopping itself because the display went
// away, mirroring an explicit StopScreenShare.
func (s *Session) screenLost(gen int) {
	s.mu.Lock()
	ok := s.active && s.gen == gen
	s.mu.Unlock()
	if !ok {
		return
	}
	s.logger.Warn("screen share stopped, display unavailable")
	s.emit(&ScreenSharingChangedEvent{Sharing: false})
}

// SendText submits a typed user turn over the side channel.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	transport := s.transport
	connected := s.state == StateConnected
	s.mu.Unlock()
	if !connected || transport == nil {
		return newError(KindPrecondition, "Not connected.", nil)
	}
	msg := protocol.TextMessage(text)
	return transport.Send(&msg)
}

// Playback exposes the scheduler for inspection (in-flight count, cursor).
func (s *Session) Playback() *Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler
}

func (s *Session) setup() *protocol.Setup {
	setup := &protocol.Setup{
		Model: "models/" + s.cfg.Model,
		GenerationConfig: &protocol.GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	if s.cfg.Voice != "" {
		setup.GenerationConfig.SpeechConfig = &protocol.SpeechConfig{
			VoiceConfig: &protocol.VoiceConfig{
				PrebuiltVoiceConfig: &protocol.PrebuiltVoiceConfig{VoiceName: s.cfg.Voice},
			},
		}
	}
	if s.cfg.System != "" {
		setup.SystemInstruction = &protocol.Content{
			Parts: []protocol.Part{{Text: s.cfg.System}},
		}
	}
	return setup
}

func (s *Session) sendFrame(gen int, f pcm.Frame) {
	s.mu.Lock()
	transport := s.transport
	ok := s.active && s.gen == gen && s.state == StateConnected
	s.mu.Unlock()
	if !ok || transport == nil {
		return
	}
	msg := protocol.AudioMessage(f.MIMEType, f.Data)
	if err := transport.Send(&msg); err != nil {
		s.logger.Debug("dropping audio frame", "error", err)
	}
}

func (s *Session) sendImage(gen int, jpegData []byte) {
	s.mu.Lock()
	transport := s.transport
	ok := s.active && s.gen == gen && s.state == StateConnected
	s.mu.Unlock()
	if !ok || transport == nil {
		return
	}
	msg := protocol.ImageMessage("image/jpeg", base64.StdEncoding.EncodeToString(jpegData))
	if err := transport.Send(&msg); err != nil {
		s.logger.Debug("dropping screen frame", "error", err)
	}
}

func (s *Session) recvLoop(gen int, transport Transport, scheduler *Scheduler) {
	for msg := range transport.Recv() {
		s.handleServerMessage(msg, scheduler)
	}
	if err := transport.Err(); err != nil {
		s.teardown(gen, StateError, Classify(err, "connection lost"), "")
		return
	}
	s.teardown(gen, StateIdle, nil, "remote")
}

func (s *Session) handleServerMessage(msg *protocol.ServerMessage, scheduler *Scheduler) {
	if msg.GoAway != nil {
		s.logger.Info("server going away", "time_left", msg.GoAway.TimeLeft)
		return
	}
	sc := msg.ServerContent
	if sc == nil {
		return
	}
	if sc.Interrupted {
		scheduler.Interrupt()
		s.emit(&InterruptedEvent{})
		return
	}
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		s.emit(&TranscriptDeltaEvent{Role: "user", Delta: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		s.emit(&TranscriptDeltaEvent{Role: "model", Delta: sc.OutputTranscription.Text})
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
				raw, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					s.logger.Warn("dropping undecodable audio part", "error", err)
					continue
				}
				if err := scheduler.Enqueue(raw); err != nil {
					s.logger.Warn("playback failed", "error", err)
				}
			}
			if part.Text != "" {
				s.emit(&TextDeltaEvent{Delta: part.Text})
			}
		}
	}
	if sc.TurnComplete {
		s.emit(&TurnCompleteEvent{})
	}
}

// fail records a classified error during Connect and moves to StateError.
func (s *Session) fail(gen int, err *Error) error {
	s.teardown(gen, StateError, err, "")
	return err
}

// teardown is the single resource-release path. Only the generation that
// owns the current connection tears it down, and only once; later calls for
// the same or older generations are no-ops.
func (s *Session) teardown(gen int, to SessionState, cause *Error, reason string) {
	s.mu.Lock()
	if s.gen != gen || !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	transport := s.transport
	capture := s.capture
	scheduler := s.scheduler
	screen := s.screen
	closeSink := s.closeSink
	s.transport = nil
	s.capture = nil
	s.scheduler = nil
	s.screen = nil
	s.closeSink = nil
	s.lastErr = cause
	s.setStateLocked(to)
	s.mu.Unlock()

	if screen != nil {
		screen.Stop()
	}
	if capture != nil {
		capture.Stop()
	}
	if transport != nil {
		transport.Close()
	}
	if scheduler != nil {
		scheduler.Interrupt()
	}
	if closeSink != nil {
		closeSink()
	}

	if cause != nil {
		s.logger.Error("session failed", "kind", cause.Kind, "error", cause)
		s.emit(&ErrorEvent{Kind: cause.Kind, Message: cause.UserMessage()})
	} else {
		s.emit(&SessionClosedEvent{Reason: reason})
	}
}

func (s *Session) setStateLocked(to SessionState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.emit(&StateChangedEvent{From: from, To: to})
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
		s.logger.Debug("event dropped, receiver too slow", "type", e.EventType())
	}
}

// defaultPreflight verifies basic network reachability with a short TCP dial.
func defaultPreflight(ctx context.Context) error {
	d := net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", "generativelanguage.googleapis.com:443")
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}
