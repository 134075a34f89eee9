package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/pkg/log"
)

// StartGreetingScenario opens a conversation: a synthetic greeting
// command, optionally colored by the time of day, is appended to the
// history and chit-chat is generated over the command-inclusive window.
func (e *Engine) StartGreetingScenario(ctx context.Context, session *dialog.Session) (string, error) {
	session.Lock()
	defer session.Unlock()

	dlg := session.History

	command := "[приветствие.]"
	if e.randFloat() >= 0.5 {
		switch hour := time.Now().Hour(); {
		case hour >= 23 || hour < 6:
			command = "[приветствие. сейчас ночь.]"
		case hour < 10:
			command = "[приветствие. сейчас утро.]"
		case hour < 19:
			command = "[приветствие. сейчас день.]"
		default:
			command = "[приветствие. сейчас вечер.]"
		}
	}

	dlg.AddCommand(command)

	window := dlg.ChitchatContext("", nil, dialog.DefaultChitchatDepth, true)
	outputs, err := e.gen.Chitchat(ctx, window, 1)
	if err != nil {
		return "", fmt.Errorf("greeting generation: %w", err)
	}
	if len(outputs) == 0 {
		return "", fmt.Errorf("greeting generation: empty output")
	}

	log.FromCtx(ctx).Debug().
		Str("interlocutor", session.Interlocutor).
		Strs("context", window).
		Str("greeting", outputs[0]).
		Msg("greeting scenario")

	dlg.AddBot(outputs[0], "")
	return outputs[0], nil
}
