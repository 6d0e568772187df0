package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestCompleteWithoutKey verifies the configuration error surfaces.
func TestCompleteWithoutKey(t *testing.T) {
	c := NewXAIClient("")
	if c.Configured() {
		t.Fatal("empty key must report not configured")
	}

	_, err := c.Complete(context.Background(), "hello", nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

// TestCompleteSuccess checks the request shape and response parsing.
func TestCompleteSuccess(t *testing.T) {
	var captured completionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Olá, doutor."}},
			},
		})
	}))
	defer srv.Close()

	c := NewXAIClient("test-key").WithBaseURL(srv.URL)
	reply, err := c.Complete(context.Background(), "hello", &Context{Transcription: "paciente com dor"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "Olá, doutor." {
		t.Fatalf("reply = %q", reply)
	}

	if captured.Model != "grok-beta" {
		t.Fatalf("model = %s", captured.Model)
	}
	if captured.Stream {
		t.Fatal("stream must be false")
	}
	if len(captured.Messages) != 3 {
		t.Fatalf("messages = %d, want system + context + user", len(captured.Messages))
	}
	if !strings.HasPrefix(captured.Messages[1].Content, "Contexto da consulta:") {
		t.Fatalf("context message = %q", captured.Messages[1].Content)
	}
	if captured.Messages[2].Role != "user" || captured.Messages[2].Content != "hello" {
		t.Fatalf("user message = %+v", captured.Messages[2])
	}
}

// TestCompleteUpstreamError verifies non-200 responses become errors.
func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewXAIClient("test-key").WithBaseURL(srv.URL)
	_, err := c.Complete(context.Background(), "hello", nil)
	if err == nil || !strings.Contains(err.Error(), "xAI API error: 429") {
		t.Fatalf("err = %v, want status error", err)
	}
}

// TestCompleteWithoutContext checks no context message is injected.
func TestCompleteWithoutContext(t *testing.T) {
	var captured completionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := NewXAIClient("test-key").WithBaseURL(srv.URL)
	if _, err := c.Complete(context.Background(), "hello", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("messages = %d, want system + user only", len(captured.Messages))
	}
}
