package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no API key was supplied. The
// handler surfaces this verbatim as a configuration error.
var ErrNotConfigured = errors.New("xAI API key not configured")

const (
	defaultBaseURL = "https://api.x.ai/v1"
	defaultModel   = "grok-beta"

	systemPrompt = "Você é o ZEO, um assistente clínico AI especializado em medicina. " +
		"Responda de forma profissional, precisa e útil para profissionais de saúde."
)

// Context carries consultation state injected into the conversation.
type Context struct {
	Transcription string `json:"transcription,omitempty"`
}

// XAIClient calls the xAI chat completions API.
type XAIClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewXAIClient creates a client. An empty key yields a client whose
// calls fail with ErrNotConfigured rather than a construction error, so
// the server can start without chat configured.
func NewXAIClient(apiKey string) *XAIClient {
	return &XAIClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *XAIClient) WithBaseURL(baseURL string) *XAIClient {
	c.baseURL = baseURL
	return c
}

// Configured reports whether an API key is present.
func (c *XAIClient) Configured() bool {
	return c.apiKey != ""
}

// Model returns the configured model name.
func (c *XAIClient) Model() string {
	return c.model
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Messages    []message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete sends the user message, with optional consultation context,
// and returns the assistant's reply.
func (c *XAIClient) Complete(ctx context.Context, userMessage string, convCtx *Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	messages := []message{{Role: "system", Content: systemPrompt}}
	if convCtx != nil && convCtx.Transcription != "" {
		ctxJSON, err := json.Marshal(convCtx)
		if err != nil {
			return "", fmt.Errorf("encode chat context: %w", err)
		}
		messages = append(messages, message{
			Role:    "system",
			Content: "Contexto da consulta: " + string(ctxJSON),
		})
	}
	messages = append(messages, message{Role: "user", Content: userMessage})

	body, err := json.Marshal(completionRequest{
		Messages:    messages,
		Model:       c.model,
		Temperature: 0.25,
		MaxTokens:   2000,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call xAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("xAI API error: %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode xAI response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("xAI API returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
