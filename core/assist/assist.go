// Package assist implements the client side of the command-completion
// assistant: one request/response round trip per query against a
// configured HTTP endpoint. The shell treats the service as opaque; it
// only forwards the query text and prints whatever command comes back.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/ratelimit"
)

const defaultTimeout = 10 * time.Second

type suggestRequest struct {
	Query string `json:"query"`
}

type suggestResponse struct {
	Command string `json:"command"`
}

// Client issues completion queries. Queries are rate limited so an
// interactive session cannot hammer the endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	bucket   *ratelimit.Bucket
}

// New creates a client for the given endpoint. ratePerSec bounds the
// sustained query rate; zero or negative means one query per second.
func New(endpoint string, ratePerSec float64) *Client {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
		bucket:   ratelimit.NewBucketWithRate(ratePerSec, 1),
	}
}

// Suggest sends a single completion query and returns the suggested
// command line.
func (c *Client) Suggest(ctx context.Context, query string) (string, error) {
	c.bucket.Wait(1)

	body, err := json.Marshal(suggestRequest{Query: query})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("assist endpoint returned %s", resp.Status)
	}

	var out suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("bad assist response: %v", err)
	}
	if out.Command == "" {
		return "", fmt.Errorf("assist endpoint returned no command")
	}
	return out.Command, nil
}
