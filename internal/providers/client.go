package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/govorun/pkg/retry"
)

// Client is the shared JSON-over-HTTP plumbing for the model-serving
// services. Transport failures and 5xx responses are retried with
// backoff; 4xx responses are not.
type Client struct {
	http    *http.Client
	baseURL string
	retrier *retry.Retrier
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		retrier: retry.NewDefaultRetrier(),
	}
}

func (c *Client) PostJSON(ctx context.Context, path string, payload, result any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	return c.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}

		if err := json.Unmarshal(body, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal: %w", err))
		}
		return nil
	})
}
