package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/internal/service/engine"
	"github.com/sandevgo/govorun/pkg/log"
)

const defaultInterlocutor = "cli-local"

type ReadLine struct {
	cfg      *config.AppConfig
	sessions *dialog.Registry
	engine   *engine.Engine
	rl       *readline.Instance
}

func NewReadLine(cfg *config.AppConfig, sessions *dialog.Registry, eng *engine.Engine) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "H: ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:      cfg,
		sessions: sessions,
		engine:   eng,
		rl:       rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("console chat started, type 'exit' to quit")

	session := r.sessions.Get(defaultInterlocutor)

	if greeting, err := r.engine.StartGreetingScenario(ctx, session); err == nil {
		fmt.Fprintf(r.rl.Stdout(), "B: %s\n", greeting)
	} else {
		logger.Error().Err(err).Msg("greeting failed")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		session.Lock()
		session.History.AddHuman(line)
		session.Unlock()

		replies, err := r.engine.ProcessHumanMessage(ctx, session)
		if err != nil {
			logger.Error().Err(err).Msg("turn failed")
			fmt.Fprintf(r.rl.Stdout(), "Error: %v\n", err)
			continue
		}
		if len(replies) == 0 {
			fmt.Fprintln(r.rl.Stdout(), "B: ...")
			continue
		}
		for _, reply := range replies {
			fmt.Fprintf(r.rl.Stdout(), "B: %s\n", reply)
		}
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
