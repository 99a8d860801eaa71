// Package main is the CodeDrill CLI: a voice-first coding practice session
// with screen sharing, generated challenges, reviews, grading, and scratch
// code storage.
//
// Usage:
//
//	go run ./cmd/codedrill
//
// Environment variables:
//
//	GEMINI_API_KEY (or CODEDRILL_API_KEY) - Required
//	CODEDRILL_DATABASE_URL                - Optional Postgres DSN for scratches
//
// Controls:
//
//	connect / disconnect      Start or end the voice session
//	mute / unmute             Toggle the microphone
//	share / unshare           Toggle screen sharing
//	/t <text>                 Send a typed message to the coach
//	challenge <topic>         Generate a coding challenge
//	review <path>             Review a code file against the challenge
//	grade <path>              Grade a code file against the challenge
//	save <key> <path>         Save a file as a scratch
//	load <key>                Print a saved scratch
//	scratches                 List saved scratches
//	q                         Quit
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vango-go/codedrill/pkg/config"
	"github.com/vango-go/codedrill/pkg/core/live"
	"github.com/vango-go/codedrill/pkg/core/providers/gemini"
	"github.com/vango-go/codedrill/pkg/practice"
	"github.com/vango-go/codedrill/pkg/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	scratches, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer scratches.Close()

	coach := practice.NewService(gemini.New(cfg.APIKey), practice.Options{
		Model:      cfg.TextModel,
		ImageModel: cfg.ImageModel,
		Logger:     logger,
	})

	app := &app{
		cfg:       cfg,
		logger:    logger,
		coach:     coach,
		scratches: scratches,
	}
	app.run(ctx)
}

func openStore(ctx context.Context, cfg config.Config) (store.ScratchStore, error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemory(), nil
	}
	return store.NewPostgres(ctx, cfg.DatabaseURL)
}

type app struct {
	cfg       config.Config
	logger    *slog.Logger
	coach     *practice.Service
	scratches store.ScratchStore

	session   *live.Session
	challenge *practice.Challenge
}

func (a *app) run(ctx context.Context) {
	fmt.Println("CodeDrill - voice coding practice")
	fmt.Println("Type 'connect' to start, 'help' for commands, 'q' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "q") {
			break
		}
		a.dispatch(ctx, input)
	}

	if a.session != nil {
		a.session.Disconnect()
	}
}

func (a *app) dispatch(ctx context.Context, input string) {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "help":
		fmt.Println("Commands: connect, disconnect, mute, unmute, share, unshare,")
		fmt.Println("  /t <text>, challenge <topic>, review <path>, grade <path>,")
		fmt.Println("  save <key> <path>, load <key>, scratches, q")
	case "connect":
		a.connect(ctx)
	case "disconnect":
		if a.session != nil {
			a.session.Disconnect()
		}
	case "mute":
		a.setMuted(true)
	case "unmute":
		a.setMuted(false)
	case "share":
		if a.session != nil {
			a.session.StartScreenShare()
		}
	case "unshare":
		if a.session != nil {
			a.session.StopScreenShare()
		}
	case "/t":
		a.sendText(rest)
	case "challenge":
		a.generateChallenge(ctx, rest)
	case "review":
		a.review(ctx, rest)
	case "grade":
		a.grade(ctx, rest)
	case "save":
		a.save(ctx, rest)
	case "load":
		a.load(ctx, rest)
	case "scratches":
		a.list(ctx)
	default:
		fmt.Println("Unknown command. Type 'help'.")
	}
}

func (a *app) connect(ctx context.Context) {
	if a.session != nil && a.session.State() == live.StateConnected {
		fmt.Println("Already connected.")
		return
	}

	// One session and one event printer for the life of the process;
	// Connect is reusable after disconnects and errors.
	if a.session == nil {
		sessionCfg := live.DefaultSessionConfig()
		sessionCfg.Model = a.cfg.LiveModel
		sessionCfg.Voice = a.cfg.Voice
		sessionCfg.System = a.cfg.System
		sessionCfg.APIKey = a.cfg.APIKey
		sessionCfg.Capture.BlockSize = a.cfg.CaptureBlockSize
		sessionCfg.Screen.Interval = a.cfg.ScreenInterval
		sessionCfg.Screen.MaxWidth = a.cfg.ScreenMaxWidth
		sessionCfg.Screen.JPEGQuality = a.cfg.ScreenJPEGQuality

		a.session = live.NewSession(sessionCfg, live.SessionOptions{Logger: a.logger})
		go a.printEvents(a.session)
	}

	fmt.Println("Connecting...")
	if err := a.session.Connect(ctx); err != nil {
		var sessionErr *live.Error
		if errors.As(err, &sessionErr) {
			fmt.Println(sessionErr.UserMessage())
		} else {
			fmt.Printf("Connect failed: %v\n", err)
		}
		return
	}
	fmt.Println("Connected. Speak naturally; type commands any time.")
}

func (a *app) printEvents(s *live.Session) {
	for event := range s.Events() {
		switch e := event.(type) {
		case *live.TranscriptDeltaEvent:
			fmt.Printf("[%s] %s\n", e.Role, e.Delta)
		case *live.InterruptedEvent:
			fmt.Println("[coach paused]")
		case *live.ErrorEvent:
			fmt.Printf("[error] %s\n", e.Message)
		case *live.StateChangedEvent:
			if e.To == live.StateIdle {
				fmt.Println("[session ended]")
			}
		}
	}
}

func (a *app) setMuted(muted bool) {
	if a.session == nil {
		return
	}
	a.session.SetMuted(muted)
	if muted {
		fmt.Println("Microphone muted.")
	} else {
		fmt.Println("Microphone live.")
	}
}

func (a *app) sendText(text string) {
	if text == "" || a.session == nil {
		return
	}
	if err := a.session.SendText(text); err != nil {
		fmt.Printf("Send failed: %v\n", err)
	}
}

func (a *app) generateChallenge(ctx context.Context, topic string) {
	if topic == "" {
		topic = "arrays and strings"
	}
	fmt.Printf("Generating a challenge about %s...\n", topic)
	challenge, err := a.coach.GenerateChallenge(ctx, topic, "medium")
	if err != nil {
		fmt.Printf("Challenge generation failed: %v\n", err)
		return
	}
	a.challenge = challenge
	fmt.Printf("\n── %s (%s) ──\n%s\n", challenge.Title, challenge.Difficulty, challenge.Description)
	for i, ex := range challenge.Examples {
		fmt.Printf("Example %d: %s\n", i+1, ex)
	}
	if challenge.StarterCode != "" {
		fmt.Printf("\nStarter:\n%s\n", challenge.StarterCode)
	}
}

func (a *app) review(ctx context.Context, path string) {
	code, ok := a.readSubmission(path)
	if !ok {
		return
	}
	review, err := a.coach.ReviewCode(ctx, a.challenge, code)
	if err != nil {
		fmt.Printf("Review failed: %v\n", err)
		return
	}
	fmt.Printf("\n%s\n", review.Summary)
	for _, issue := range review.Issues {
		if issue.Line > 0 {
			fmt.Printf("  L%d [%s] %s\n", issue.Line, issue.Severity, issue.Message)
		} else {
			fmt.Printf("  [%s] %s\n", issue.Severity, issue.Message)
		}
	}
	for _, s := range review.Suggestions {
		fmt.Printf("  → %s\n", s)
	}
}

func (a *app) grade(ctx context.Context, path string) {
	code, ok := a.readSubmission(path)
	if !ok {
		return
	}
	grade, err := a.coach.GradeSubmission(ctx, a.challenge, code)
	if err != nil {
		fmt.Printf("Grading failed: %v\n", err)
		return
	}
	verdict := "not yet"
	if grade.Passed {
		verdict = "passed"
	}
	fmt.Printf("\nScore: %d/100 (%s)\n%s\n", grade.Score, verdict, grade.Feedback)
}

func (a *app) readSubmission(path string) (string, bool) {
	if a.challenge == nil {
		fmt.Println("Generate a challenge first.")
		return "", false
	}
	if path == "" {
		fmt.Println("Usage: review <path> or grade <path>")
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Read failed: %v\n", err)
		return "", false
	}
	return string(data), true
}

func (a *app) save(ctx context.Context, rest string) {
	key, path, _ := strings.Cut(rest, " ")
	path = strings.TrimSpace(path)
	if key == "" || path == "" {
		fmt.Println("Usage: save <key> <path>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Read failed: %v\n", err)
		return
	}
	if err := a.scratches.Save(ctx, key, string(data)); err != nil {
		fmt.Printf("Save failed: %v\n", err)
		return
	}
	fmt.Printf("Saved %q.\n", key)
}

func (a *app) load(ctx context.Context, key string) {
	if key == "" {
		fmt.Println("Usage: load <key>")
		return
	}
	code, err := a.scratches.Load(ctx, key)
	if err != nil {
		fmt.Printf("Load failed: %v\n", err)
		return
	}
	fmt.Println(code)
}

func (a *app) list(ctx context.Context) {
	entries, err := a.scratches.List(ctx)
	if err != nil {
		fmt.Printf("List failed: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No scratches saved.")
		return
	}
	for _, e := range entries {
		fmt.Printf("  %-20s %s\n", e.Key, e.UpdatedAt.Format("2006-01-02 15:04"))
	}
}
