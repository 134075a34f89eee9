package gen

import (
	"context"
	"fmt"

	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/internal/providers"
)

const (
	modeChitchat       = "chitchat"
	modeInterpretation = "interpretation"
	modeConfabulation  = "confabulation"
)

// Client talks to the generative model service.
type Client struct {
	rpc *providers.Client
}

func NewClient(cfg *config.GeneratorConfig) *Client {
	return &Client{
		rpc: providers.NewClient(cfg.BaseURL, cfg.Timeout),
	}
}

type generateRequest struct {
	Mode    string   `json:"mode"`
	Context []string `json:"context"`
	Count   int      `json:"count"`
}

type generateResponse struct {
	Outputs []string `json:"outputs"`
}

func (c *Client) Chitchat(ctx context.Context, replies []string, count int) ([]string, error) {
	return c.generate(ctx, modeChitchat, replies, count)
}

func (c *Client) Interpretations(ctx context.Context, replies []string, count int) ([]string, error) {
	return c.generate(ctx, modeInterpretation, replies, count)
}

func (c *Client) Confabulations(ctx context.Context, replies []string, count int) ([]string, error) {
	return c.generate(ctx, modeConfabulation, replies, count)
}

func (c *Client) generate(ctx context.Context, mode string, replies []string, count int) ([]string, error) {
	var resp generateResponse
	req := generateRequest{Mode: mode, Context: replies, Count: count}
	if err := c.rpc.PostJSON(ctx, "/generate", req, &resp); err != nil {
		return nil, fmt.Errorf("generate %s: %w", mode, err)
	}
	return resp.Outputs, nil
}

type scoreRequest struct {
	Dialogues [][]string `json:"dialogues"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// ScoreDialogues rates all dialogues in one batched call.
func (c *Client) ScoreDialogues(ctx context.Context, dialogues [][]string) ([]float64, error) {
	var resp scoreResponse
	if err := c.rpc.PostJSON(ctx, "/score_dialogues", scoreRequest{Dialogues: dialogues}, &resp); err != nil {
		return nil, fmt.Errorf("score dialogues: %w", err)
	}
	if len(resp.Scores) != len(dialogues) {
		return nil, fmt.Errorf("score dialogues: got %d scores for %d dialogues", len(resp.Scores), len(dialogues))
	}
	return resp.Scores, nil
}
