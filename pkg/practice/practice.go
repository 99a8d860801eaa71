// Package practice implements the coaching side of CodeDrill: generating
// coding challenges, reviewing and grading submissions, transcribing
// recorded audio, and editing whiteboard images. Every call is stateless;
// all context travels in the request.
package practice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vango-go/codedrill/pkg/core/providers/gemini"
)

// DefaultModel is the model used for text calls when none is configured.
const DefaultModel = "gemini-2.0-flash"

// DefaultImageModel is the model used for image editing.
const DefaultImageModel = "gemini-2.0-flash-exp"

// Service runs the stateless practice calls.
type Service struct {
	client     *gemini.Client
	model      string
	imageModel string
	logger     *slog.Logger
}

// Options configures a Service.
type Options struct {
	Model      string
	ImageModel string
	Logger     *slog.Logger
}

// NewService returns a Service backed by client.
func NewService(client *gemini.Client, opts Options) *Service {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.ImageModel == "" {
		opts.ImageModel = DefaultImageModel
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		client:     client,
		model:      opts.Model,
		imageModel: opts.ImageModel,
		logger:     opts.Logger,
	}
}

// Challenge is a generated coding exercise.
type Challenge struct {
	Title       string   `json:"title"`
	Difficulty  string   `json:"difficulty"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
	Hints       []string `json:"hints"`
	StarterCode string   `json:"starter_code"`
}

var challengeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"difficulty": {"type": "string", "enum": ["easy", "medium", "hard"]},
		"description": {"type": "string"},
		"examples": {"type": "array", "items": {"type": "string"}},
		"hints": {"type": "array", "items": {"type": "string"}},
		"starter_code": {"type": "string"}
	},
	"required": ["title", "difficulty", "description"]
}`)

const coachSystem = "You are a concise coding interview coach. " +
	"Respond only with the requested JSON."

// GenerateChallenge produces a fresh exercise on the given topic.
func (s *Service) GenerateChallenge(ctx context.Context, topic, difficulty string) (*Challenge, error) {
	prompt := fmt.Sprintf(
		"Generate one %s coding challenge about %s. Include two worked examples, "+
			"three hints ordered from gentle to explicit, and starter code in Go.",
		difficulty, topic)

	req := gemini.TextRequest(coachSystem, prompt).
		WithJSONSchema(challengeSchema).
		WithTemperature(0.9)

	resp, err := s.client.GenerateContent(ctx, s.model, req)
	if err != nil {
		return nil, fmt.Errorf("generating challenge: %w", err)
	}
	var challenge Challenge
	if err := json.Unmarshal([]byte(resp.Text()), &challenge); err != nil {
		return nil, fmt.Errorf("parsing challenge: %w", err)
	}
	s.logger.Debug("challenge generated", "title", challenge.Title, "difficulty", challenge.Difficulty)
	return &challenge, nil
}

// Issue is a single problem a review found in the submission.
type Issue struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Review is structured feedback on a submission, without a score.
type Review struct {
	Summary     string   `json:"summary"`
	Issues      []Issue  `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

var reviewSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {"type": "string"},
		"issues": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"line": {"type": "integer"},
					"severity": {"type": "string", "enum": ["info", "warning", "error"]},
					"message": {"type": "string"}
				},
				"required": ["severity", "message"]
			}
		},
		"suggestions": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["summary"]
}`)

// ReviewCode critiques a submission against its challenge.
func (s *Service) ReviewCode(ctx context.Context, challenge *Challenge, code string) (*Review, error) {
	prompt := fmt.Sprintf(
		"Challenge: %s\n\n%s\n\nSubmission:\n```\n%s\n```\n\n"+
			"Review the submission. Point at concrete lines where possible.",
		challenge.Title, challenge.Description, code)

	req := gemini.TextRequest(coachSystem, prompt).WithJSONSchema(reviewSchema)
	resp, err := s.client.GenerateContent(ctx, s.model, req)
	if err != nil {
		return nil, fmt.Errorf("reviewing code: %w", err)
	}
	var review Review
	if err := json.Unmarshal([]byte(resp.Text()), &review); err != nil {
		return nil, fmt.Errorf("parsing review: %w", err)
	}
	return &review, nil
}

// Grade is a scored verdict on a submission.
type Grade struct {
	Score    int    `json:"score"`
	Passed   bool   `json:"passed"`
	Feedback string `json:"feedback"`
}

var gradeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"score": {"type": "integer", "minimum": 0, "maximum": 100},
		"passed": {"type": "boolean"},
		"feedback": {"type": "string"}
	},
	"required": ["score", "passed", "feedback"]
}`)

// GradeSubmission scores a submission from 0 to 100.
func (s *Service) GradeSubmission(ctx context.Context, challenge *Challenge, code string) (*Grade, error) {
	prompt := fmt.Sprintf(
		"Challenge: %s\n\n%s\n\nSubmission:\n```\n%s\n```\n\n"+
			"Grade the submission on correctness, efficiency, and clarity. "+
			"A score of 70 or above passes.",
		challenge.Title, challenge.Description, code)

	req := gemini.TextRequest(coachSystem, prompt).WithJSONSchema(gradeSchema)
	resp, err := s.client.GenerateContent(ctx, s.model, req)
	if err != nil {
		return nil, fmt.Errorf("grading submission: %w", err)
	}
	var grade Grade
	if err := json.Unmarshal([]byte(resp.Text()), &grade); err != nil {
		return nil, fmt.Errorf("parsing grade: %w", err)
	}
	if grade.Score < 0 || grade.Score > 100 {
		return nil, fmt.Errorf("grade score %d out of range", grade.Score)
	}
	return &grade, nil
}

// Transcribe converts recorded audio into text.
func (s *Service) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio")
	}
	req := gemini.MediaRequest(
		"Transcribe this audio verbatim. Output only the transcription.",
		mimeType, base64.StdEncoding.EncodeToString(audio))

	resp, err := s.client.GenerateContent(ctx, s.model, req)
	if err != nil {
		return "", fmt.Errorf("transcribing: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// EditImage applies a natural-language edit to an image and returns the
// edited image bytes and their MIME type.
func (s *Service) EditImage(ctx context.Context, img []byte, mimeType, instruction string) ([]byte, string, error) {
	if len(img) == 0 {
		return nil, "", fmt.Errorf("edit image: empty image")
	}
	req := gemini.MediaRequest(instruction, mimeType, base64.StdEncoding.EncodeToString(img)).
		WithImageOutput()

	resp, err := s.client.GenerateContent(ctx, s.imageModel, req)
	if err != nil {
		return nil, "", fmt.Errorf("editing image: %w", err)
	}
	outMIME, b64, ok := resp.InlineImage()
	if !ok {
		return nil, "", fmt.Errorf("editing image: response contained no image")
	}
	out, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, "", fmt.Errorf("editing image: decoding payload: %w", err)
	}
	return out, outMIME, nil
}
