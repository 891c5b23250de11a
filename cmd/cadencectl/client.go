package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var errNoUser = errors.New("a user id is required (--user or CADENCE_USER)")

// client issues JSON requests against the cadenced API.
type client struct {
	base string
	http *http.Client
}

func newClient(opts *options) *client {
	return &client{
		base: strings.TrimRight(opts.server, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// userPath builds /api/v1/users/<user>/<parts...> with each segment escaped.
func userPath(opts *options, parts ...string) (string, error) {
	if opts.user == "" {
		return "", errNoUser
	}
	segs := []string{"api", "v1", "users", url.PathEscape(opts.user)}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return "/" + strings.Join(segs, "/"), nil
}

// do sends body (when non-nil) as JSON and returns the response body and
// the degraded header. Non-2xx responses become errors carrying the
// server's message.
func (c *client) do(method, path string, query url.Values, body any) ([]byte, string, error) {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send request to %s: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return nil, "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, e.Message)
		}
		return nil, "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, resp.Header.Get("X-Cadence-Degraded"), nil
}

// printJSON re-indents a JSON response onto the command's stdout.
func printJSON(cmd *cobra.Command, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	out.WriteByte('\n')
	_, err := cmd.OutOrStdout().Write(out.Bytes())
	return err
}
