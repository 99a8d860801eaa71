package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.URL.Path; got != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %q", got)
		}
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := New("test-key", WithBaseURL(srv.URL))
	resp, err := c.GenerateContent(context.Background(), "gemini-2.0-flash", TextRequest("", "hi"))
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Text(); got != "ok" {
		t.Errorf("Text() = %q, want ok", got)
	}
}

func TestGenerateContentErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorType
	}{
		{"auth", 401, `{"error":{"code":401,"message":"bad key","status":"UNAUTHENTICATED"}}`, ErrAuthentication},
		{"rate limit", 429, `{"error":{"code":429,"message":"slow down","status":"RESOURCE_EXHAUSTED"}}`, ErrRateLimit},
		{"overloaded", 503, `{"error":{"code":503,"message":"busy","status":"UNAVAILABLE"}}`, ErrOverloaded},
		{"unparseable", 500, `gateway timeout`, ErrProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New("k", WithBaseURL(srv.URL))
			_, err := c.GenerateContent(context.Background(), "gemini-2.0-flash", TextRequest("", "hi"))
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if apiErr.Type != tt.want {
				t.Errorf("error type = %s, want %s", apiErr.Type, tt.want)
			}
		})
	}
}
