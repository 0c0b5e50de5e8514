// Package indexing submits URL change notifications to the Google Indexing
// API using a service-account bearer token.
package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2/google"
)

const (
	publishEndpoint = "https://indexing.googleapis.com/v3/urlNotifications:publish"
	indexingScope   = "https://www.googleapis.com/auth/indexing"
)

type NotificationType string

const (
	URLUpdated NotificationType = "URL_UPDATED"
	URLDeleted NotificationType = "URL_DELETED"
)

// Result is the per-URL outcome of a batch submission. Batches are
// all-settled: one bad URL never aborts the rest.
type Result struct {
	URL   string `json:"url"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient reads service-account JSON credentials and builds an
// authenticated client for the indexing scope.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read indexing credentials: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, indexingScope)
	if err != nil {
		return nil, fmt.Errorf("parse indexing credentials: %w", err)
	}

	return &Client{
		httpClient: cfg.Client(ctx),
		endpoint:   publishEndpoint,
	}, nil
}

// NewClientWithHTTP wires an arbitrary HTTP client and endpoint, used by
// tests to point at a local server.
func NewClientWithHTTP(httpClient *http.Client, endpoint string) *Client {
	return &Client{httpClient: httpClient, endpoint: endpoint}
}

func (c *Client) publish(ctx context.Context, url string, typ NotificationType) error {
	body, err := json.Marshal(map[string]string{
		"url":  url,
		"type": string(typ),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("indexing api returned %d: %s", resp.StatusCode, snippet)
	}

	return nil
}

// PublishBatch submits every URL independently and collects per-URL results
// in input order. Partial success is the expected outcome; nothing retries.
func (c *Client) PublishBatch(ctx context.Context, urls []string, typ NotificationType) []Result {
	results := make([]Result, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			if err := c.publish(ctx, url, typ); err != nil {
				results[i] = Result{URL: url, Error: err.Error()}
				return
			}
			results[i] = Result{URL: url, OK: true}
		}(i, url)
	}
	wg.Wait()

	return results
}
