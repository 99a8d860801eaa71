package gemini

import "encoding/json"

// Request is the Gemini API request format.
// Note: the Gemini API uses camelCase for JSON field names.
type Request struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content represents a content object in Gemini format.
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part represents a single part within content.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob represents inline binary data.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

// GenerationConfig contains generation configuration.
type GenerationConfig struct {
	Temperature        *float64        `json:"temperature,omitempty"`
	TopP               *float64        `json:"topP,omitempty"`
	MaxOutputTokens    *int            `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType   string          `json:"responseMimeType,omitempty"`
	ResponseJSONSchema json.RawMessage `json:"responseJsonSchema,omitempty"` // Preferred over responseSchema
	ResponseModalities []string        `json:"responseModalities,omitempty"`
}

// TextRequest builds a single-turn text request.
func TextRequest(system, prompt string) *Request {
	req := &Request{
		Contents: []Content{{
			Role:  "user",
			Parts: []Part{{Text: prompt}},
		}},
	}
	if system != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}
	return req
}

// MediaRequest builds a single-turn request pairing a prompt with inline
// media (audio for transcription, an image for editing).
func MediaRequest(prompt, mimeType, b64Data string) *Request {
	return &Request{
		Contents: []Content{{
			Role: "user",
			Parts: []Part{
				{InlineData: &Blob{MIMEType: mimeType, Data: b64Data}},
				{Text: prompt},
			},
		}},
	}
}

// WithJSONSchema constrains the response to JSON matching schema. The schema
// is sanitized for fields Gemini rejects.
func (r *Request) WithJSONSchema(schema json.RawMessage) *Request {
	if r.GenerationConfig == nil {
		r.GenerationConfig = &GenerationConfig{}
	}
	r.GenerationConfig.ResponseMIMEType = "application/json"
	r.GenerationConfig.ResponseJSONSchema = sanitizeSchemaBytes(schema)
	return r
}

// WithMaxTokens caps the response length.
func (r *Request) WithMaxTokens(n int) *Request {
	if r.GenerationConfig == nil {
		r.GenerationConfig = &GenerationConfig{}
	}
	r.GenerationConfig.MaxOutputTokens = &n
	return r
}

// WithTemperature sets the sampling temperature.
func (r *Request) WithTemperature(t float64) *Request {
	if r.GenerationConfig == nil {
		r.GenerationConfig = &GenerationConfig{}
	}
	r.GenerationConfig.Temperature = &t
	return r
}

// WithImageOutput asks for image response parts alongside text.
func (r *Request) WithImageOutput() *Request {
	if r.GenerationConfig == nil {
		r.GenerationConfig = &GenerationConfig{}
	}
	r.GenerationConfig.ResponseModalities = []string{"TEXT", "IMAGE"}
	return r
}

// sanitizeSchemaBytes sanitizes a JSON schema in byte form for Gemini.
// Removes fields not supported by Gemini: additionalProperties, $schema, $id, $ref, definitions
// See: https://github.com/BerriAI/litellm/issues/14330
func sanitizeSchemaBytes(schemaBytes []byte) json.RawMessage {
	if len(schemaBytes) == 0 {
		return nil
	}

	// Parse to map for flexible field removal
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaBytes, &schemaMap); err != nil {
		return schemaBytes // Return original if can't parse
	}

	// Recursively remove unsupported fields
	sanitizeSchemaMap(schemaMap)

	// Re-marshal
	sanitized, err := json.Marshal(schemaMap)
	if err != nil {
		return schemaBytes
	}
	return sanitized
}

// sanitizeSchemaMap recursively removes unsupported JSON Schema fields from a map.
func sanitizeSchemaMap(schema map[string]any) {
	// Remove unsupported top-level fields
	delete(schema, "additionalProperties")
	delete(schema, "$schema")
	delete(schema, "$id")
	delete(schema, "$ref")
	delete(schema, "definitions")
	delete(schema, "$defs")

	// Recursively process nested schemas
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, v := range props {
			if propSchema, ok := v.(map[string]any); ok {
				sanitizeSchemaMap(propSchema)
			}
		}
	}

	// Process items for arrays
	if items, ok := schema["items"].(map[string]any); ok {
		sanitizeSchemaMap(items)
	}

	// Process anyOf, oneOf, allOf
	for _, key := range []string{"anyOf", "oneOf", "allOf"} {
		if arr, ok := schema[key].([]any); ok {
			for _, item := range arr {
				if itemSchema, ok := item.(map[string]any); ok {
					sanitizeSchemaMap(itemSchema)
				}
			}
		}
	}
}
