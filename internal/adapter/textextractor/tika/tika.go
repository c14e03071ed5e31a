// Package tika provides an Apache Tika server client used as a remote
// fallback when local CV text extraction yields nothing.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ats-cv-scorer/pkg/textx"
)

const defaultBaseURL = "http://localhost:9998"

// maxDocumentBytes bounds the upload sent to Tika.
const maxDocumentBytes = 20 << 20

// Client performs PUT /tika with Accept: text/plain.
// See: https://tika.apache.org/server/ for API details.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Tika client with an instrumented transport.
func New(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ExtractPath uploads the file at path and returns its text with blank
// lines removed and runs of whitespace collapsed.
func (c *Client) ExtractPath(ctx context.Context, fileName, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	if info.Size() > maxDocumentBytes {
		return "", fmt.Errorf("op=tika.extract: document too large (%d bytes)", info.Size())
	}
	// #nosec G304 -- path comes from the file storage adapter, not from user input
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/tika", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if ct := contentTypeFromExt(filepath.Ext(fileName)); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("op=tika.extract: tika status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("op=tika.extract: %w", err)
	}
	return normalize(string(b)), nil
}

// Ping checks that the server answers GET /version.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tika status %d", resp.StatusCode)
	}
	return nil
}

func normalize(s string) string {
	lines := strings.Split(textx.SanitizeText(s), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if f := strings.Fields(line); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return strings.Join(out, "\n")
}

func contentTypeFromExt(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case "":
		return ""
	default:
		return mime.TypeByExtension(ext)
	}
}
