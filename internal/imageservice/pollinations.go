package imageservice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://image.pollinations.ai"

	imageSize        = "1024"
	fallbackMimeType = "image/jpeg"
	maxImageBytes    = 20 << 20

	// DefaultRequestTimeout bounds one shared upstream call.
	DefaultRequestTimeout = 60 * time.Second
)

// ErrEmptyPrompt is returned for a blank description.
var ErrEmptyPrompt = errors.New("Image description is required.")

// StatusError is a non-2xx answer from the image service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// HTTPStatus exposes the upstream status code so callers can map 429.
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// Client renders prompts with Pollinations, a free text-to-image endpoint that
// needs no key. Concurrent requests for the same prompt share one upstream call.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Timeout bounds the shared upstream call, which outlives any single
	// caller's context.
	Timeout time.Duration

	group singleflight.Group
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Timeout:    DefaultRequestTimeout,
	}
}

// Render fetches the image for prompt and returns it as a data URI.
// The caller's context bounds how long it waits; there is no retry.
// A cancelled caller abandons the shared call without failing the others
// waiting on it.
func (c *Client) Render(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	ch := c.group.DoChan(prompt, func() (interface{}, error) {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultRequestTimeout
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return c.render(callCtx, prompt)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			log.Debug().Str("prompt", prompt).Msg("shared in-flight image request")
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Forget makes the next Render of prompt start a new upstream call instead of
// joining one already in flight.
func (c *Client) Forget(prompt string) {
	c.group.Forget(strings.TrimSpace(prompt))
}

func (c *Client) render(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/prompt/%s?width=%s&height=%s&nologo=true",
		c.BaseURL, url.PathEscape(prompt), imageSize, imageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		log.Warn().Int("status", resp.StatusCode).Msg("image service returned non-success status")
		return "", &StatusError{Code: resp.StatusCode, Message: "Failed to fetch image from Pollinations."}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image body: %w", err)
	}
	if len(body) == 0 {
		return "", errors.New("Failed to generate image.")
	}

	log.Info().
		Dur("latency", time.Since(start)).
		Int("bytes", len(body)).
		Msg("image generated")

	return "data:" + mimeType(resp.Header.Get("Content-Type")) + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}

func mimeType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return fallbackMimeType
	}
	return mt
}
