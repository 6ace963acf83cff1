package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// --- Gemini API Configuration ---
const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel       = "gemini-2.5-flash"
	requestTimeout     = 90 * time.Second
	structuredMimeType = "application/json"
	temperature        = 0.7
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("server is not configured for AI plan generation")

	// ErrEmptyResponse is returned when Gemini answers without any text.
	ErrEmptyResponse = errors.New("AI failed to generate plan content.")
)

// GenerationError is what callers show the user; Cause keeps the detail for logs.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	if errors.Is(e.Cause, ErrEmptyResponse) {
		return ErrEmptyResponse.Error()
	}
	return "Failed to generate plan from AI. Check Gemini key/quota."
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// APIError is a non-200 answer from the Gemini API.
type APIError struct {
	Status string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned non-200 status: %s, Body: %s", e.Status, e.Body)
}

// --- Structs for Gemini API Request/Response ---

type GeminiPayload struct {
	Contents          []GeminiContent   `json:"contents"`
	SystemInstruction *GeminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

type GenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType"`
	ResponseSchema   *GeminiSchema `json:"responseSchema,omitempty"`
	Temperature      float64       `json:"temperature"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client talks to the Gemini generateContent endpoint.
type Client struct {
	BaseURL    string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, model, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
}

// callStructuredGemini sends one structured-output request and returns the raw
// text of the first candidate. It makes exactly one attempt.
func (c *Client) callStructuredGemini(ctx context.Context, systemPrompt, userPrompt string, schema *GeminiSchema) (string, error) {
	if c.APIKey == "" {
		log.Error().Msg("GEMINI_API_KEY environment variable is not set")
		return "", ErrNotConfigured
	}

	// 1. Build the payload
	payload := GeminiPayload{
		SystemInstruction: &GeminiContent{
			Parts: []GeminiPart{{Text: systemPrompt}},
		},
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: structuredMimeType,
			ResponseSchema:   schema,
			Temperature:      temperature,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	// 2. Send it
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Info().Str("model", c.Model).Msg("Calling Gemini API...")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &APIError{Status: resp.Status, Body: string(body)}
	}

	// 3. Decode the envelope
	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	text := geminiResp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
