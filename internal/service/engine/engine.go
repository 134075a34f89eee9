package engine

import (
	"context"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/internal/core"
	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/pkg/log"
	"github.com/sandevgo/govorun/pkg/textru"
)

const (
	interpretationsPerContext = 2
	confabulationsPerClause   = 10
	similarityMapThreshold    = 0.5
	unmappedConfabWeight      = 0.80
	minCombinedPremiseProba   = 0.3
)

// Engine runs the generate-score-verify-select pipeline for one turn.
// Service handles are shared read-only across concurrent turns; all
// per-interlocutor state lives in the session.
type Engine struct {
	gen       core.Generator
	relevancy core.Matcher
	synonymy  core.Matcher
	validator core.Validator

	// test hook, defaults to rand.Float64
	randFloat func() float64
}

// New builds an engine. validator may be nil, which scores every phrase
// as fully valid.
func New(gen core.Generator, relevancy, synonymy core.Matcher, validator core.Validator) *Engine {
	return &Engine{
		gen:       gen,
		relevancy: relevancy,
		synonymy:  synonymy,
		validator: validator,
		randFloat: rand.Float64,
	}
}

type scoredInterpretation struct {
	text string
	p    float64
}

// mappedPremise caches one confabulation-to-knowledge resolution for
// the duration of a single turn.
type mappedPremise struct {
	fact string
	rel  float64
}

// ProcessHumanMessage runs one full turn for the session's freshly
// appended human utterance and returns the replies to deliver. An empty
// slice with nil error means the turn produced no output.
func (e *Engine) ProcessHumanMessage(ctx context.Context, session *dialog.Session) ([]string, error) {
	session.Lock()
	defer session.Unlock()

	dlg := session.History
	profile := session.Profile

	logger := log.FromCtx(ctx).With().
		Str("interlocutor", session.Interlocutor).
		Str("bot", profile.ID).
		Str("turn", uuid.NewString()).
		Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Str("message", dlg.LastMessage().Text).Msg("processing human message")

	// Knowledge known at the start of this turn.
	memory, err := session.Facts.Enumerate(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("fact store unavailable, proceeding with empty memory")
		memory = nil
	}

	interpretations := e.interpretInput(ctx, dlg, profile.MinNonsenseThreshold)

	responses := e.generateCandidates(ctx, dlg, profile, memory, interpretations)

	// Score every candidate against the plain chit-chat context in one
	// batched call, then rank by combined score.
	e.scoreEntailment(ctx, dlg, responses)
	sort.SliceStable(responses, func(i, j int) bool {
		return responses[i].Score() > responses[j].Score()
	})

	for i, r := range responses {
		logger.Debug().
			Int("rank", i+1).
			Str("text", r.Text).
			Str("algo", r.Algo).
			Float64("score", r.Score()).
			Msg("candidate")
	}

	if len(responses) == 0 {
		logger.Error().
			Str("message", dlg.LastMessage().Text).
			Strs("dialog", dlg.Printable()).
			Msg("no response generated")
		return nil, nil
	}

	best, selfInterpretation := e.selectResponse(ctx, dlg, profile.PQARelThreshold, responses, memory)

	e.commit(ctx, session, best, selfInterpretation)

	replies := []string{best.Text}
	if profile.EnableSmalltalk {
		if extra := e.generateSmalltalkReply(ctx, dlg, best.PrevInterpretation); extra != "" {
			dlg.AddBot(extra, "")
			replies = append(replies, extra)
		}
	}

	logger.Info().
		Str("reply", best.Text).
		Str("algo", best.Algo).
		Float64("score", best.Score()).
		Msg("reply selected")

	return replies, nil
}

// interpretInput expands the inbound utterance into a normalized,
// deixis-resolved restatement. Several window sizes are tried because
// the generation service is context-length sensitive; only the single
// best-scoring interpretation is kept.
func (e *Engine) interpretInput(ctx context.Context, dlg *dialog.History, minNonsense float64) []scoredInterpretation {
	logger := log.FromCtx(ctx)

	var all []scoredInterpretation
	for _, window := range dlg.InterpreterContexts() {
		outputs, err := e.gen.Interpretations(ctx, window, interpretationsPerContext)
		if err != nil {
			logger.Warn().Err(err).Strs("context", window).Msg("interpretation request failed")
			continue
		}
		logger.Debug().Strs("context", window).Strs("outputs", outputs).Msg("interpretations")

		for _, interpretation := range outputs {
			if containsInterpretation(all, interpretation) {
				continue
			}
			pValid := e.validity(ctx, interpretation)
			if pValid <= minNonsense {
				logger.Debug().Str("text", interpretation).Float64("p", pValid).Msg("nonsense interpretation dropped")
				continue
			}
			all = append(all, scoredInterpretation{text: interpretation, p: pValid})
		}
	}

	// Multi-hypothesis tracking is a future extension; keep the top one.
	sort.SliceStable(all, func(i, j int) bool { return all[i].p > all[j].p })
	if len(all) > 1 {
		all = all[:1]
	}
	return all
}

func containsInterpretation(all []scoredInterpretation, text string) bool {
	for _, s := range all {
		if s.text == text {
			return true
		}
	}
	return false
}

// generateCandidates runs the per-clause branch dispatch for every kept
// interpretation and accumulates reply candidates.
func (e *Engine) generateCandidates(
	ctx context.Context,
	dlg *dialog.History,
	profile *config.Profile,
	memory []core.Fact,
	interpretations []scoredInterpretation,
) []*core.Candidate {
	logger := log.FromCtx(ctx)

	var responses []*core.Candidate
	mapped := make(map[string]mappedPremise)

	for _, interp := range interpretations {
		assertions, questions := splitMessage(interp.text)

		type inputClause struct {
			text        string
			weight      float64
			confabulate bool
		}
		var clauses []inputClause
		for _, q := range questions {
			clauses = append(clauses, inputClause{text: q, weight: 1.0, confabulate: true})
		}
		for _, a := range assertions {
			clauses = append(clauses, inputClause{text: a, weight: 0.8, confabulate: false})
		}

		for _, clause := range clauses {
			logger.Debug().Str("clause", clause.text).Msg("processing clause")

			// Knowledge lookup against the person-normalized clause.
			normalized := textru.NormalizePerson(clause.text)
			premises, rels := e.lookupRelevant(ctx, normalized, memory, 2, profile.PQARelThreshold)

			// Dodge branch: with probability p_dodge1 skip answering from
			// knowledge. A successful dodge discards this clause's matches.
			dodged := false
			if len(premises) > 0 && e.randFloat() < profile.PDodge1 {
				for _, di := range interpretations {
					dodgeReplies := e.generateDodgeReply(ctx, dlg, di.text, di.p, profile.MinNonsenseThreshold)
					if len(dodgeReplies) > 0 {
						responses = append(responses, dodgeReplies...)
						dodged = true
						premises = nil
						rels = nil
					}
				}
			}

			type premiseGroup struct {
				facts  []string
				weight float64
				known  bool
			}
			var groups []premiseGroup
			for i := range premises {
				groups = append(groups, premiseGroup{
					facts:  []string{premises[i]},
					weight: rels[i] * clause.weight,
					known:  true,
				})
			}

			kind, person, _ := textru.Modality(clause.text)

			// Confabulation: invent premises for an unanswered question,
			// but never about the interlocutor themselves.
			if len(groups) == 0 && clause.confabulate && !dodged && person != 2 && e.randFloat() < profile.PConfab {
				confabs, err := e.gen.Confabulations(ctx, []string{interp.text}, confabulationsPerClause)
				if err != nil {
					logger.Warn().Err(err).Msg("confabulation request failed")
				}
				logger.Debug().Str("context", interp.text).Strs("outputs", confabs).Msg("confabulations")

				for _, confabText := range confabs {
					score := 1.0
					confabClauses := textru.SplitClauses(confabText)
					for _, premise := range confabClauses {
						if textru.ContainsSecondPerson(premise) {
							// Penalize speculation that overreaches onto
							// the interlocutor.
							score *= 0.5
						}
					}
					groups = append(groups, premiseGroup{facts: confabClauses, weight: score})
				}
			}

			processedContexts := make(map[string]struct{})

			for _, group := range groups {
				premiseFacts := make([]string, 0, len(group.facts))
				var unmapped []string
				combined := group.weight

				if group.known {
					premiseFacts = group.facts
				} else {
					for _, confabPremise := range group.facts {
						if m, ok := mapped[confabPremise]; ok {
							premiseFacts = append(premiseFacts, m.fact)
							combined *= m.rel
							continue
						}

						texts, scores := e.lookupSimilar(ctx, confabPremise, memory)
						if len(texts) > 0 && scores[0] >= similarityMapThreshold {
							matched := textru.EnsureTerminal(texts[0])
							if matched != confabPremise {
								logger.Debug().
									Str("confab", confabPremise).
									Str("fact", matched).
									Float64("score", scores[0]).
									Msg("confabulation mapped to knowledge")
							}
							combined *= scores[0]
							premiseFacts = append(premiseFacts, matched)
							mapped[confabPremise] = mappedPremise{fact: matched, rel: scores[0]}
						} else {
							// No supporting fact: use the invention as-is and
							// persist it later if its candidate wins.
							combined *= unmappedConfabWeight
							unmapped = append(unmapped, confabPremise)
							premiseFacts = append(premiseFacts, confabPremise)
							mapped[confabPremise] = mappedPremise{fact: confabPremise, rel: unmappedConfabWeight}
						}
					}
				}

				if len(premiseFacts) == len(group.facts) && combined >= minCombinedPremiseProba {
					pqa := e.generatePQAReply(ctx, dlg, interp.text, interp.p, profile.MinNonsenseThreshold,
						processedContexts, premiseFacts, combined, unmapped)
					responses = append(responses, pqa...)
				}
			}

			// The question could not be answered from knowledge or
			// confabulation: dodge it, or admit there is no information.
			if len(responses) == 0 && kind == textru.Question {
				dodged := false
				if profile.PDodge2 > 0 {
					dodgeReplies := e.generateDodgeReply(ctx, dlg, interp.text, interp.p, profile.MinNonsenseThreshold)
					if len(dodgeReplies) > 0 {
						responses = append(responses, dodgeReplies...)
						dodged = true
					}
				}
				if !dodged {
					responses = append(responses, e.generateNoInfoReply(ctx, dlg, interp.text, interp.p, profile.MinNonsenseThreshold)...)
				}
			}
		}

		if len(questions) == 0 {
			responses = append(responses, e.generateChitchatReply(ctx, dlg, interp.text, interp.p, profile.MinNonsenseThreshold)...)
		}
	}

	return responses
}

// scoreEntailment fills PEntail for every candidate in one batched
// call. A failed call leaves the neutral default in place.
func (e *Engine) scoreEntailment(ctx context.Context, dlg *dialog.History, responses []*core.Candidate) {
	if len(responses) == 0 {
		return
	}

	base := dlg.ChitchatContext("", nil, dialog.DefaultChitchatDepth, false)
	dialogues := make([][]string, 0, len(responses))
	for _, r := range responses {
		d := make([]string, 0, len(base)+1)
		d = append(d, base...)
		d = append(d, r.Text)
		dialogues = append(dialogues, d)
	}

	scores, err := e.gen.ScoreDialogues(ctx, dialogues)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("entailment scoring failed, keeping neutral scores")
		return
	}
	for i, r := range responses {
		r.PEntail = scores[i]
	}
}

// commit applies the selected candidate: records the interpretation of
// the inbound utterance, persists its disclosed assertions
// (person-flipped) and the winner's unmapped confabulations, and
// appends the bot turn. Runs strictly after selection so rejected
// candidates never touch the fact store.
func (e *Engine) commit(ctx context.Context, session *dialog.Session, best *core.Candidate, selfInterpretation string) {
	logger := log.FromCtx(ctx)
	dlg := session.History

	dlg.SetLastInterpretation(best.PrevInterpretation)

	inputAssertions, _ := splitMessage(best.PrevInterpretation)
	for _, assertion := range inputAssertions {
		flipped := textru.FlipPerson(assertion)
		e.storeFact(ctx, session, core.Fact{
			Text:  flipped,
			Tag:   core.FactTagDialog,
			Label: "disclosed in dialog with " + session.Interlocutor,
		})
	}

	for _, confab := range best.ConfabulatedFacts {
		e.storeFact(ctx, session, core.Fact{
			Text:  confab,
			Tag:   core.FactTagConfabulated,
			Label: "confabulated in dialog with " + session.Interlocutor,
		})
	}

	dlg.AddBot(best.Text, selfInterpretation)

	logger.Debug().
		Str("text", best.Text).
		Str("self_interpretation", selfInterpretation).
		Msg("reply committed")
}

func (e *Engine) storeFact(ctx context.Context, session *dialog.Session, fact core.Fact) {
	logger := log.FromCtx(ctx)
	logger.Debug().Str("fact", fact.Text).Str("tag", fact.Tag).Msg("storing new fact")
	if err := session.Facts.Append(ctx, fact); err != nil {
		logger.Error().Err(err).Str("fact", fact.Text).Msg("failed to store fact")
	}
}

// lookupRelevant queries the relevancy service and keeps matches at or
// above threshold. Failures degrade to no matches.
func (e *Engine) lookupRelevant(ctx context.Context, query string, memory []core.Fact, k int, threshold float64) ([]string, []float64) {
	logger := log.FromCtx(ctx)

	texts, scores, err := e.relevancy.MostRelevant(ctx, query, memory, k)
	if err != nil {
		logger.Warn().Err(err).Str("query", query).Msg("relevancy request failed")
		return nil, nil
	}

	var premises []string
	var rels []float64
	for i := range texts {
		if scores[i] >= threshold {
			logger.Debug().Str("query", query).Str("premise", texts[i]).Float64("rel", scores[i]).Msg("kb lookup")
			premises = append(premises, texts[i])
			rels = append(rels, scores[i])
		}
	}
	return premises, rels
}

func (e *Engine) lookupSimilar(ctx context.Context, query string, memory []core.Fact) ([]string, []float64) {
	texts, scores, err := e.synonymy.MostRelevant(ctx, query, memory, 1)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("query", query).Msg("synonymy request failed")
		return nil, nil
	}
	return texts, scores
}

func (e *Engine) validity(ctx context.Context, text string) float64 {
	if e.validator == nil {
		return 1.0
	}
	p, err := e.validator.Score(ctx, text)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("text", text).Msg("validity scoring failed")
		return 1.0
	}
	return p
}

func splitMessage(message string) (assertions, questions []string) {
	for _, clause := range textru.SplitClauses(message) {
		if strings.HasSuffix(clause, "?") {
			questions = append(questions, clause)
		} else {
			assertions = append(assertions, clause)
		}
	}
	return assertions, questions
}
