package engine

import (
	"context"

	"github.com/sandevgo/govorun/internal/core"
	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/pkg/log"
	"github.com/sandevgo/govorun/pkg/textru"
)

// selectResponse walks the ranked candidates and returns the first one
// that survives the self-consistency checks, together with its
// self-interpretation. When every candidate fails, the last (lowest
// ranked) one is used: the bot never stays silent while any candidate
// exists.
func (e *Engine) selectResponse(
	ctx context.Context,
	dlg *dialog.History,
	relThreshold float64,
	responses []*core.Candidate,
	memory []core.Fact,
) (*core.Candidate, string) {
	logger := log.FromCtx(ctx)

	var best *core.Candidate
	var selfInterpretation string

	for _, candidate := range responses {
		best = candidate

		// The inbound utterance may itself disclose facts. They are not
		// committed yet (the interpretation is still tentative), so build
		// a temporary projection that includes them, person-flipped.
		projection := make([]core.Fact, len(memory), len(memory)+2)
		copy(projection, memory)
		inputAssertions, _ := splitMessage(candidate.PrevInterpretation)
		for _, assertion := range inputAssertions {
			projection = append(projection, core.Fact{
				Text:  textru.FlipPerson(assertion),
				Tag:   core.FactTagDialog,
				Label: "pending this turn",
			})
		}

		selfInterpretation = e.selfInterpret(ctx, dlg, candidate)

		if e.asksKnownQuestion(ctx, selfInterpretation, projection, relThreshold) {
			logger.Debug().Str("text", candidate.Text).Msg("candidate rejected: asks a question with a known answer")
			continue
		}

		// Knowledge-grounded replies are trusted by construction.
		if candidate.Algo != core.AlgoPQA &&
			e.contradictsKnowledge(ctx, selfInterpretation, projection, relThreshold) {
			logger.Debug().Str("text", candidate.Text).Msg("candidate rejected: contradicts the knowledge base")
			continue
		}

		return candidate, selfInterpretation
	}

	return best, selfInterpretation
}

// selfInterpret produces the normalized, deixis-resolved form of what
// the bot is about to say, given the previous utterance. A failed
// request falls back to the candidate text itself.
func (e *Engine) selfInterpret(ctx context.Context, dlg *dialog.History, candidate *core.Candidate) string {
	prev := candidate.PrevInterpretation
	if prev == "" {
		prev = dlg.LastMessage().Text
	}

	outputs, err := e.gen.Interpretations(ctx, []string{prev, candidate.Text}, 1)
	if err != nil || len(outputs) == 0 {
		log.FromCtx(ctx).Warn().Err(err).Str("text", candidate.Text).Msg("self-interpretation failed, using raw text")
		return candidate.Text
	}

	log.FromCtx(ctx).Debug().
		Str("prev", prev).
		Str("text", candidate.Text).
		Str("output", outputs[0]).
		Msg("self interpretation")
	return outputs[0]
}

// asksKnownQuestion reports whether any question clause of the
// self-interpretation is already answered by a known fact. The bot
// must not ask what it already knows.
func (e *Engine) asksKnownQuestion(ctx context.Context, selfInterpretation string, projection []core.Fact, relThreshold float64) bool {
	_, selfQuestions := splitMessage(selfInterpretation)
	for _, question := range selfQuestions {
		premises, rels := e.lookupRelevant(ctx, question, projection, 1, relThreshold)
		if len(premises) > 0 && rels[0] >= relThreshold {
			return true
		}
	}
	return false
}

// contradictsKnowledge probes each assertion clause against the fact
// base: when a relevant fact exists, chit-chat is conditioned on
// "[fact] assertion?" and the probes are scanned for negation markers.
func (e *Engine) contradictsKnowledge(ctx context.Context, selfInterpretation string, projection []core.Fact, relThreshold float64) bool {
	logger := log.FromCtx(ctx)

	selfAssertions, _ := splitMessage(selfInterpretation)
	for _, assertion := range selfAssertions {
		premises, rels := e.lookupRelevant(ctx, assertion, projection, 1, relThreshold)
		if len(premises) == 0 || rels[0] < relThreshold {
			continue
		}

		probeContext := "[" + textru.EnsureTerminal(premises[0]) + "] " + assertion + "?"
		probes, err := e.gen.Chitchat(ctx, []string{probeContext}, 5)
		if err != nil {
			logger.Warn().Err(err).Str("context", probeContext).Msg("contradiction probe failed")
			continue
		}
		logger.Debug().Str("context", probeContext).Strs("outputs", probes).Msg("contradiction probes")

		for _, probe := range probes {
			if textru.ContainsNegation(probe) {
				return true
			}
		}
	}
	return false
}
