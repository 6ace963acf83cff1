package imagecache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Renderer turns a text prompt into a displayable image handle (URL or data URI).
type Renderer interface {
	Render(ctx context.Context, prompt string) (string, error)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(ctx context.Context, prompt string) (string, error)

func (f RendererFunc) Render(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Forgetter is implemented by renderers that share in-flight calls between
// callers. Forget makes the next render of prompt issue a new request.
type Forgetter interface {
	Forget(prompt string)
}

// ErrRateLimited is returned when the image service answers 429.
var ErrRateLimited = errors.New("Rate limit exceeded. Please wait a moment.")

// TimeoutError reports a fetch that exceeded its wall-clock bound.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	secs := strconv.FormatFloat(e.After.Seconds(), 'f', -1, 64)
	return fmt.Sprintf("Image generation timed out after %s seconds. Please retry.", secs)
}

// statusCoder is implemented by renderer errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

type renderResult struct {
	handle string
	err    error
}

// Fetch issues exactly one render request bounded by timeout. When the bound
// elapses the request context is cancelled and a *TimeoutError is returned,
// even if the renderer has not yet returned. There is no retry.
func Fetch(ctx context.Context, r Renderer, prompt string, timeout time.Duration) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan renderResult, 1)
	go func() {
		h, err := r.Render(reqCtx, prompt)
		done <- renderResult{handle: h, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return "", &TimeoutError{After: timeout}
			}
			var sc statusCoder
			if errors.As(res.err, &sc) && sc.HTTPStatus() == http.StatusTooManyRequests {
				return "", ErrRateLimited
			}
			return "", res.err
		}
		if res.handle == "" {
			return "", errors.New("Failed to generate image.")
		}
		return res.handle, nil

	case <-reqCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TimeoutError{After: timeout}
	}
}
