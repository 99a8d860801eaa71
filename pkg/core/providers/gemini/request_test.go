package gemini

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTextRequestShape(t *testing.T) {
	req := TextRequest("You are a drill coach.", "Generate a challenge.").
		WithJSONSchema(json.RawMessage(`{"type":"object","properties":{"title":{"type":"string"}}}`)).
		WithMaxTokens(512)

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	for _, want := range []string{
		`"systemInstruction"`,
		`"responseMimeType":"application/json"`,
		`"responseJsonSchema"`,
		`"maxOutputTokens":512`,
		`"role":"user"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("request JSON missing %s:\n%s", want, body)
		}
	}
}

func TestMediaRequestShape(t *testing.T) {
	req := MediaRequest("Transcribe this audio.", "audio/wav", "UklGRg==")
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	if !strings.Contains(body, `"mimeType":"audio/wav"`) {
		t.Errorf("inline data MIME missing:\n%s", body)
	}
	if !strings.Contains(body, `"data":"UklGRg=="`) {
		t.Errorf("inline data payload missing:\n%s", body)
	}
}

func TestSanitizeSchemaRemovesUnsupportedFields(t *testing.T) {
	schema := json.RawMessage(`{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"hints": {
				"type": "array",
				"items": {"type": "string", "$id": "hint"}
			},
			"nested": {
				"type": "object",
				"additionalProperties": false,
				"properties": {"x": {"type": "number"}}
			}
		}
	}`)

	sanitized := string(sanitizeSchemaBytes(schema))
	for _, banned := range []string{"additionalProperties", "$schema", "$id"} {
		if strings.Contains(sanitized, banned) {
			t.Errorf("sanitized schema still contains %q:\n%s", banned, sanitized)
		}
	}
	if !strings.Contains(sanitized, `"hints"`) {
		t.Errorf("sanitize dropped a real property:\n%s", sanitized)
	}
}

func TestResponseText(t *testing.T) {
	resp := &Response{Candidates: []Candidate{{
		Content: Content{Parts: []Part{{Text: "Hello "}, {Text: "world"}}},
	}}}
	if got := resp.Text(); got != "Hello world" {
		t.Errorf("Text() = %q", got)
	}
	empty := &Response{}
	if got := empty.Text(); got != "" {
		t.Errorf("Text() on empty = %q", got)
	}
}

func TestResponseInlineImage(t *testing.T) {
	resp := &Response{Candidates: []Candidate{{
		Content: Content{Parts: []Part{
			{Text: "Here is the diagram."},
			{InlineData: &Blob{MIMEType: "image/png", Data: "aW1n"}},
		}},
	}}}
	mime, data, ok := resp.InlineImage()
	if !ok || mime != "image/png" || data != "aW1n" {
		t.Errorf("InlineImage() = %q, %q, %v", mime, data, ok)
	}
}
