package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/govorun/internal/core"
	"github.com/sandevgo/govorun/internal/providers"
)

// Client scores a query against candidate facts. The relevancy and
// synonymy models expose the same endpoint shape, so one client type
// serves both; they differ only in base URL.
type Client struct {
	rpc *providers.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		rpc: providers.NewClient(baseURL, timeout),
	}
}

type candidate struct {
	Text  string `json:"text"`
	Tag   string `json:"tag,omitempty"`
	Label string `json:"label,omitempty"`
}

type matchRequest struct {
	Query      string      `json:"query"`
	Candidates []candidate `json:"candidates"`
	K          int         `json:"k"`
}

type matchResponse struct {
	Texts  []string  `json:"texts"`
	Scores []float64 `json:"scores"`
}

// MostRelevant returns up to k best-matching candidate texts with
// scores in descending order. An empty candidate list yields no matches
// without a service round-trip.
func (c *Client) MostRelevant(ctx context.Context, query string, candidates []core.Fact, k int) ([]string, []float64, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	req := matchRequest{Query: query, K: k}
	req.Candidates = make([]candidate, 0, len(candidates))
	for _, f := range candidates {
		req.Candidates = append(req.Candidates, candidate{Text: f.Text, Tag: f.Tag, Label: f.Label})
	}

	var resp matchResponse
	if err := c.rpc.PostJSON(ctx, "/most_relevant", req, &resp); err != nil {
		return nil, nil, fmt.Errorf("most relevant: %w", err)
	}
	if len(resp.Texts) != len(resp.Scores) {
		return nil, nil, fmt.Errorf("most relevant: %d texts vs %d scores", len(resp.Texts), len(resp.Scores))
	}
	return resp.Texts, resp.Scores, nil
}
