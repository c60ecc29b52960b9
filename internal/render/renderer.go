// Package render is the boundary to the external text-to-image rendering
// collaborator. The core has no dependency on any specific rendering
// technology; a failed render always degrades to a plain-text reply.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrUnavailable means no renderer is configured.
var ErrUnavailable = errors.New("renderer not configured")

// Renderer renders text to a temporary image file. The caller is
// responsible for deleting the returned file after reading it.
type Renderer interface {
	RenderToImage(ctx context.Context, text string) (string, error)
}

// HTTPRenderer posts text to an external render service and spools the
// returned image to a temp file.
type HTTPRenderer struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPRenderer creates a renderer targeting the given service URL.
func NewHTTPRenderer(url string, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (r *HTTPRenderer) RenderToImage(ctx context.Context, text string) (string, error) {
	if r.url == "" {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewBufferString(text))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render service returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "summary-*.png")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to spool rendered image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// StubRenderer is a canned Renderer for tests.
type StubRenderer struct {
	Path  string
	Err   error
	Calls int
}

func (s *StubRenderer) RenderToImage(_ context.Context, _ string) (string, error) {
	s.Calls++
	if s.Err != nil {
		return "", s.Err
	}
	return s.Path, nil
}
