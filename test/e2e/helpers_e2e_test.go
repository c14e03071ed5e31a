//go:build e2e

package e2e_test

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func baseURL() string { return strings.TrimRight(getenv("E2E_BASE_URL", "http://localhost:8080"), "/") }

func newClient() *http.Client { return &http.Client{Timeout: 90 * time.Second} }

// candidateID returns E2E_CANDIDATE_ID or skips when no seeded candidate is provided.
func candidateID(t *testing.T) string {
	t.Helper()
	id := os.Getenv("E2E_CANDIDATE_ID")
	if id == "" {
		t.Skip("E2E_CANDIDATE_ID not set")
	}
	return id
}

// requireServer skips when nothing answers on the base URL.
func requireServer(t *testing.T, client *http.Client) {
	t.Helper()
	resp, err := client.Get(baseURL() + "/healthz")
	if err != nil {
		t.Skipf("server not reachable at %s: %v", baseURL(), err)
	}
	_ = resp.Body.Close()
}

// doJSON sends body to path, retrying briefly on 429 and 409, and decodes the reply into out.
func doJSON(t *testing.T, client *http.Client, method, path, body string, out any) int {
	t.Helper()
	var status int
	for i := 0; i < 6; i++ {
		req, err := http.NewRequest(method, baseURL()+path, strings.NewReader(body))
		require.NoError(t, err)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		status = resp.StatusCode
		if status == http.StatusTooManyRequests || status == http.StatusConflict {
			_ = resp.Body.Close()
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if out != nil {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
		}
		_ = resp.Body.Close()
		return status
	}
	return status
}
