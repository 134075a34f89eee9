package engine

import (
	"context"
	"strings"

	"github.com/sandevgo/govorun/internal/core"
	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/pkg/log"
)

const (
	labelDodge  = "уклониться от ответа"
	labelNoInfo = "нет информации"
)

func (e *Engine) generateDodgeReply(ctx context.Context, dlg *dialog.History, interpretation string, pInterp, minNonsense float64) []*core.Candidate {
	return e.chitchatCandidates(ctx, chitchatParams{
		dlg:            dlg,
		interpretation: interpretation,
		labels:         []string{labelDodge},
		maxDepth:       dialog.DefaultChitchatDepth,
		count:          5,
		algo:           core.AlgoDodge,
		pScale:         pInterp,
		minNonsense:    minNonsense,
	})
}

func (e *Engine) generateNoInfoReply(ctx context.Context, dlg *dialog.History, interpretation string, pInterp, minNonsense float64) []*core.Candidate {
	return e.chitchatCandidates(ctx, chitchatParams{
		dlg:            dlg,
		interpretation: interpretation,
		labels:         []string{labelNoInfo},
		maxDepth:       dialog.DefaultChitchatDepth,
		count:          2,
		algo:           core.AlgoNoInfo,
		pScale:         pInterp,
		minNonsense:    minNonsense,
	})
}

func (e *Engine) generateChitchatReply(ctx context.Context, dlg *dialog.History, interpretation string, pInterp, minNonsense float64) []*core.Candidate {
	return e.chitchatCandidates(ctx, chitchatParams{
		dlg:            dlg,
		interpretation: interpretation,
		maxDepth:       dialog.DefaultChitchatDepth,
		count:          5,
		algo:           core.AlgoChitchat,
		pScale:         pInterp,
		minNonsense:    minNonsense,
	})
}

// generatePQAReply conditions chit-chat on a depth-1 window carrying the
// premise facts. processedContexts dedupes identical generation requests
// within one clause.
func (e *Engine) generatePQAReply(
	ctx context.Context,
	dlg *dialog.History,
	interpretation string,
	pInterp, minNonsense float64,
	processedContexts map[string]struct{},
	premiseFacts []string,
	premisesProba float64,
	unmappedConfabFacts []string,
) []*core.Candidate {
	window := dlg.ChitchatContext(interpretation, premiseFacts, 1, false)
	key := strings.Join(window, "|")
	if _, ok := processedContexts[key]; ok {
		return nil
	}
	processedContexts[key] = struct{}{}

	return e.chitchatCandidates(ctx, chitchatParams{
		dlg:            dlg,
		interpretation: interpretation,
		labels:         premiseFacts,
		maxDepth:       1,
		count:          5,
		algo:           core.AlgoPQA,
		pScale:         pInterp * premisesProba,
		minNonsense:    minNonsense,
		confabulated:   unmappedConfabFacts,
	})
}

type chitchatParams struct {
	dlg            *dialog.History
	interpretation string
	labels         []string
	maxDepth       int
	count          int
	algo           string
	pScale         float64
	minNonsense    float64
	confabulated   []string
}

func (e *Engine) chitchatCandidates(ctx context.Context, p chitchatParams) []*core.Candidate {
	logger := log.FromCtx(ctx)

	window := p.dlg.ChitchatContext(p.interpretation, p.labels, p.maxDepth, false)
	outputs, err := e.gen.Chitchat(ctx, window, p.count)
	if err != nil {
		logger.Warn().Err(err).Str("algo", p.algo).Strs("context", window).Msg("chitchat request failed")
		return nil
	}
	logger.Debug().Str("algo", p.algo).Strs("context", window).Strs("outputs", outputs).Msg("chitchat")

	contextStr := strings.Join(window, " | ")
	var candidates []*core.Candidate
	for _, output := range outputs {
		pValid := e.validity(ctx, output)
		if pValid < p.minNonsense {
			logger.Debug().Str("text", output).Float64("p", pValid).Msg("nonsense output dropped")
			continue
		}

		candidates = append(candidates, &core.Candidate{
			Algo:               p.algo,
			PrevInterpretation: p.interpretation,
			Text:               output,
			PBase:              p.pScale * pValid,
			PEntail:            1.0,
			ConfabulatedFacts:  p.confabulated,
			Context:            contextStr,
		})
	}
	return candidates
}

// generateSmalltalkReply proposes a follow-up question alongside the
// main reply. Kept behind Profile.EnableSmalltalk, off by default: in
// evaluation the extra question degraded dialogue quality more often
// than it helped.
func (e *Engine) generateSmalltalkReply(ctx context.Context, dlg *dialog.History, interpretation string) string {
	logger := log.FromCtx(ctx)
	if interpretation == "" {
		return ""
	}

	// Narrow context carries a small penalty.
	const pContext = 0.98

	outputs, err := e.gen.Chitchat(ctx, []string{interpretation}, 10)
	if err != nil {
		logger.Warn().Err(err).Msg("smalltalk request failed")
		return ""
	}

	var questions []string
	for _, out := range outputs {
		if strings.HasSuffix(out, "?") {
			questions = append(questions, out)
		}
	}
	if len(questions) == 0 {
		return ""
	}

	dialogues := make([][]string, 0, len(questions))
	for _, q := range questions {
		dialogues = append(dialogues, []string{interpretation, q})
	}
	scores, err := e.gen.ScoreDialogues(ctx, dialogues)
	if err != nil {
		logger.Warn().Err(err).Msg("smalltalk scoring failed")
		return ""
	}

	best := -1
	bestScore := 0.0
	for i, s := range scores {
		if s*pContext > bestScore {
			bestScore = s * pContext
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return questions[best]
}
