package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/internal/core"
	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/internal/facts"
)

type fakeGen struct {
	chitchatFunc        func(window []string, count int) ([]string, error)
	interpretationsFunc func(window []string, count int) ([]string, error)
	confabulationsFunc  func(window []string, count int) ([]string, error)
	scoreDialoguesFunc  func(dialogues [][]string) ([]float64, error)

	chitchatWindows [][]string
	confabCalls     int
}

func (g *fakeGen) Chitchat(_ context.Context, window []string, count int) ([]string, error) {
	g.chitchatWindows = append(g.chitchatWindows, window)
	if g.chitchatFunc == nil {
		return nil, nil
	}
	return g.chitchatFunc(window, count)
}

// The default echoes the last window element, which serves both input
// interpretation and self-interpretation in tests.
func (g *fakeGen) Interpretations(_ context.Context, window []string, count int) ([]string, error) {
	if g.interpretationsFunc == nil {
		return []string{window[len(window)-1]}, nil
	}
	return g.interpretationsFunc(window, count)
}

func (g *fakeGen) Confabulations(_ context.Context, window []string, count int) ([]string, error) {
	g.confabCalls++
	if g.confabulationsFunc == nil {
		return nil, nil
	}
	return g.confabulationsFunc(window, count)
}

func (g *fakeGen) ScoreDialogues(_ context.Context, dialogues [][]string) ([]float64, error) {
	if g.scoreDialoguesFunc == nil {
		scores := make([]float64, len(dialogues))
		for i := range scores {
			scores[i] = 0.9
		}
		return scores, nil
	}
	return g.scoreDialoguesFunc(dialogues)
}

type fakeMatcher struct {
	mostRelevantFunc func(query string, candidates []core.Fact, k int) ([]string, []float64, error)
}

func (m *fakeMatcher) MostRelevant(_ context.Context, query string, candidates []core.Fact, k int) ([]string, []float64, error) {
	if m.mostRelevantFunc == nil {
		return nil, nil, nil
	}
	return m.mostRelevantFunc(query, candidates, k)
}

type fakeValidator struct {
	scoreFunc func(text string) (float64, error)
}

func (v *fakeValidator) Score(_ context.Context, text string) (float64, error) {
	return v.scoreFunc(text)
}

type memRepo struct {
	facts []core.Fact
}

func (m *memRepo) Enumerate(_ context.Context, _ string) ([]core.Fact, error) {
	return m.facts, nil
}

func (m *memRepo) Append(_ context.Context, _ string, fact core.Fact) error {
	m.facts = append(m.facts, fact)
	return nil
}

func newTestEngine(gen *fakeGen, relevancy, synonymy *fakeMatcher, randValue float64) *Engine {
	e := New(gen, relevancy, synonymy, nil)
	e.randFloat = func() float64 { return randValue }
	return e
}

func newTestSession(profile *config.Profile, seed []core.Fact) (*dialog.Session, *memRepo) {
	repo := &memRepo{}
	registry := dialog.NewRegistry(profile, facts.NewCatalog(repo, seed))
	return registry.Get("tester"), repo
}

func TestProcessAssertionGoesToChitchat(t *testing.T) {
	gen := &fakeGen{
		chitchatFunc: func(window []string, count int) ([]string, error) {
			return []string{"я тоже люблю кофе."}, nil
		},
	}
	e := newTestEngine(gen, &fakeMatcher{}, &fakeMatcher{}, 0.99)

	session, repo := newTestSession(config.DefaultProfile(), nil)
	session.History.AddHuman("я люблю кофе.")

	replies, err := e.ProcessHumanMessage(context.Background(), session)
	if err != nil {
		t.Fatalf("ProcessHumanMessage() error = %v", err)
	}
	if len(replies) != 1 || replies[0] != "я тоже люблю кофе." {
		t.Fatalf("replies = %v", replies)
	}

	// The disclosed assertion is persisted person-flipped.
	if len(repo.facts) != 1 {
		t.Fatalf("stored facts = %v", repo.facts)
	}
	if repo.facts[0].Text != "ты любишь кофе." || repo.facts[0].Tag != core.FactTagDialog {
		t.Errorf("stored fact = %+v", repo.facts[0])
	}

	messages := session.History.Messages()
	if messages[0].Interpretation != "я люблю кофе." {
		t.Errorf("input interpretation = %q", messages[0].Interpretation)
	}
	if messages[1].Who != core.SpeakerBot || messages[1].Text != "я тоже люблю кофе." {
		t.Errorf("bot turn = %+v", messages[1])
	}
}

func TestProcessQuestionAnsweredFromKnowledge(t *testing.T) {
	seed := []core.Fact{{Text: "я люблю кино", Tag: core.FactTagProfile}}

	var relevancyQueries []string
	relevancy := &fakeMatcher{
		mostRelevantFunc: func(query string, candidates []core.Fact, k int) ([]string, []float64, error) {
			relevancyQueries = append(relevancyQueries, query)
			return []string{"я люблю кино"}, []float64{0.9}, nil
		},
	}
	gen := &fakeGen{
		chitchatFunc: func(window []string, count int) ([]string, error) {
			return []string{"да, я люблю кино."}, nil
		},
	}
	e := newTestEngine(gen, relevancy, &fakeMatcher{}, 0.99)

	session, repo := newTestSession(config.DefaultProfile(), seed)
	session.History.AddHuman("ты любишь кино?")

	replies, err := e.ProcessHumanMessage(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	if len(replies) != 1 || replies[0] != "да, я люблю кино." {
		t.Fatalf("replies = %v", replies)
	}

	// Knowledge lookup runs on the person-normalized clause.
	if relevancyQueries[0] != "я люблю кино?" {
		t.Errorf("first relevancy query = %q", relevancyQueries[0])
	}

	// The premise fact rides the generation window as a bracketed label.
	found := false
	for _, window := range gen.chitchatWindows {
		if len(window) > 0 && window[len(window)-1] == "[я люблю кино.]" {
			found = true
		}
	}
	if !found {
		t.Errorf("no window carried the premise label: %v", gen.chitchatWindows)
	}

	// A question discloses nothing; nothing was confabulated.
	if len(repo.facts) != 0 {
		t.Errorf("unexpected stored facts: %v", repo.facts)
	}
}

func TestGenerateCandidatesRelevancyBoundary(t *testing.T) {
	seed := []core.Fact{{Text: "я люблю кино", Tag: core.FactTagProfile}}
	profile := config.DefaultProfile()
	interps := []scoredInterpretation{{text: "ты любишь кино?", p: 1.0}}

	cases := []struct {
		name     string
		rel      float64
		wantAlgo string
	}{
		{"at threshold answers", 0.80, core.AlgoPQA},
		{"below threshold dodges", 0.7999, core.AlgoDodge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			relevancy := &fakeMatcher{
				mostRelevantFunc: func(query string, candidates []core.Fact, k int) ([]string, []float64, error) {
					return []string{"я люблю кино"}, []float64{tc.rel}, nil
				},
			}
			gen := &fakeGen{
				chitchatFunc: func(window []string, count int) ([]string, error) {
					return []string{"ответ."}, nil
				},
			}
			e := newTestEngine(gen, relevancy, &fakeMatcher{}, 0.99)

			dlg := dialog.NewHistory("tester")
			dlg.AddHuman("ты любишь кино?")

			responses := e.generateCandidates(context.Background(), dlg, profile, seed, interps)
			if len(responses) == 0 {
				t.Fatal("expected candidates")
			}
			for _, r := range responses {
				if r.Algo != tc.wantAlgo {
					t.Errorf("algo = %q, want %q", r.Algo, tc.wantAlgo)
				}
			}
			// A second-person question never triggers confabulation.
			if gen.confabCalls != 0 {
				t.Errorf("confabulation must not run, calls = %d", gen.confabCalls)
			}
		})
	}
}

func TestGenerateCandidatesDodgeDiscardsPremises(t *testing.T) {
	seed := []core.Fact{{Text: "я люблю кино", Tag: core.FactTagProfile}}
	profile := config.DefaultProfile() // PDodge1 = 0.1

	relevancy := &fakeMatcher{
		mostRelevantFunc: func(query string, candidates []core.Fact, k int) ([]string, []float64, error) {
			return []string{"я люблю кино"}, []float64{0.9}, nil
		},
	}
	gen := &fakeGen{
		chitchatFunc: func(window []string, count int) ([]string, error) {
			return []string{"не скажу."}, nil
		},
	}
	// Below PDodge1: the dodge fires and the clause's matches are dropped.
	e := newTestEngine(gen, relevancy, &fakeMatcher{}, 0.05)

	dlg := dialog.NewHistory("tester")
	dlg.AddHuman("ты любишь кино?")

	responses := e.generateCandidates(context.Background(), dlg, profile, seed,
		[]scoredInterpretation{{text: "ты любишь кино?", p: 1.0}})

	if len(responses) == 0 {
		t.Fatal("expected dodge candidates")
	}
	for _, r := range responses {
		if r.Algo == core.AlgoPQA {
			t.Errorf("dodged clause must not produce a knowledge answer: %+v", r)
		}
	}
}

func TestGenerateCandidatesConfabulation(t *testing.T) {
	profile := config.DefaultProfile() // PConfab = 0.7

	gen := &fakeGen{
		chitchatFunc: func(window []string, count int) ([]string, error) {
			return []string{"говорят, Путин."}, nil
		},
		confabulationsFunc: func(window []string, count int) ([]string, error) {
			return []string{"Путин сейчас президент."}, nil
		},
	}
	// Empty knowledge, no synonymy match: the invention stays unmapped.
	e := newTestEngine(gen, &fakeMatcher{}, &fakeMatcher{}, 0.3)

	dlg := dialog.NewHistory("tester")
	dlg.AddHuman("кто сейчас президент?")

	responses := e.generateCandidates(context.Background(), dlg, profile, nil,
		[]scoredInterpretation{{text: "кто сейчас президент?", p: 1.0}})

	var pqa *core.Candidate
	for _, r := range responses {
		if r.Algo == core.AlgoPQA {
			pqa = r
		}
	}
	if pqa == nil {
		t.Fatalf("expected a confabulated answer, got %+v", responses)
	}
	if len(pqa.ConfabulatedFacts) != 1 || pqa.ConfabulatedFacts[0] != "Путин сейчас президент." {
		t.Errorf("ConfabulatedFacts = %v", pqa.ConfabulatedFacts)
	}
	// Unmapped inventions carry the flat penalty.
	if pqa.PBase != unmappedConfabWeight {
		t.Errorf("PBase = %v, want %v", pqa.PBase, unmappedConfabWeight)
	}
}

func TestGenerateCandidatesConfabulationMapsToKnowledge(t *testing.T) {
	seed := []core.Fact{{Text: "президент сейчас Путин", Tag: core.FactTagProfile}}
	profile := config.DefaultProfile()

	relevancy := &fakeMatcher{
		mostRelevantFunc: func(query string, candidates []core.Fact, k int) ([]string, []float64, error) {
			// The question itself finds nothing relevant enough.
			return []string{"президент сейчас Путин"}, []float64{0.4}, nil
		},
	}
	synonymy := &fakeMatcher{
		mostRelevantFunc: func(query string, candidates []core.Fact, k int) ([]string, []float64, error) {
			return []string{"президент сейчас Путин"}, []float64{0.85}, nil
		},
	}
	gen := &fakeGen{
		chitchatFunc: func(window []string, count int) ([]string, error) {
			return []string{"Путин."}, nil
		},
		confabulationsFunc: func(window []string, count int) ([]string, error) {
			return []string{"Путин сейчас президент."}, nil
		},
	}
	e := newTestEngine(gen, relevancy, synonymy, 0.3)

	dlg := dialog.NewHistory("tester")
	dlg.AddHuman("кто сейчас президент?")

	responses := e.generateCandidates(context.Background(), dlg, profile, seed,
		[]scoredInterpretation{{text: "кто сейчас президент?", p: 1.0}})

	var pqa *core.Candidate
	for _, r := range responses {
		if r.Algo == core.AlgoPQA {
			pqa = r
		}
	}
	if pqa == nil {
		t.Fatalf("expected a knowledge-mapped answer, got %+v", responses)
	}
	// Mapped inventions must not be persisted as confabulations.
	if len(pqa.ConfabulatedFacts) != 0 {
		t.Errorf("mapped confab must not be stored: %v", pqa.ConfabulatedFacts)
	}
	if pqa.PBase != 0.85 {
		t.Errorf("PBase = %v, want synonymy score 0.85", pqa.PBase)
	}
}

func TestProcessWinnerConfabsPersisted(t *testing.T) {
	profile := config.DefaultProfile()

	gen := &fakeGen{
		chitchatFunc: func(window []string, count int) ([]string, error) {
			return []string{"говорят, Путин."}, nil
		},
		confabulationsFunc: func(window []string, count int) ([]string, error) {
			return []string{"Путин сейчас президент."}, nil
		},
	}
	e := newTestEngine(gen, &fakeMatcher{}, &fakeMatcher{}, 0.3)

	session, repo := newTestSession(profile, nil)
	session.History.AddHuman("кто сейчас президент?")

	if _, err := e.ProcessHumanMessage(context.Background(), session); err != nil {
		t.Fatal(err)
	}

	var confabs []core.Fact
	for _, f := range repo.facts {
		if f.Tag == core.FactTagConfabulated {
			confabs = append(confabs, f)
		}
	}
	if len(confabs) != 1 || confabs[0].Text != "Путин сейчас президент." {
		t.Errorf("persisted confabs = %v", confabs)
	}
}

func TestProcessNoCandidates(t *testing.T) {
	gen := &fakeGen{
		interpretationsFunc: func(window []string, count int) ([]string, error) {
			return nil, errors.New("service down")
		},
	}
	e := newTestEngine(gen, &fakeMatcher{}, &fakeMatcher{}, 0.99)

	session, _ := newTestSession(config.DefaultProfile(), nil)
	session.History.AddHuman("привет")

	replies, err := e.ProcessHumanMessage(context.Background(), session)
	if err != nil {
		t.Fatalf("degraded turn must not error: %v", err)
	}
	if len(replies) != 0 {
		t.Errorf("replies = %v, want none", replies)
	}
}

func TestInterpretInputDropsNonsense(t *testing.T) {
	gen := &fakeGen{
		interpretationsFunc: func(window []string, count int) ([]string, error) {
			return []string{"осмысленный текст.", "бред сивой кобылы."}, nil
		},
	}
	e := New(gen, &fakeMatcher{}, &fakeMatcher{}, &fakeValidator{
		scoreFunc: func(text string) (float64, error) {
			if text == "бред сивой кобылы." {
				return 0.2, nil
			}
			return 0.95, nil
		},
	})

	dlg := dialog.NewHistory("tester")
	dlg.AddHuman("привет")

	got := e.interpretInput(context.Background(), dlg, 0.50)
	if len(got) != 1 {
		t.Fatalf("interpretations = %+v, want exactly one", got)
	}
	if got[0].text != "осмысленный текст." {
		t.Errorf("kept interpretation = %q", got[0].text)
	}
	if got[0].p != 0.95 {
		t.Errorf("p = %v, want 0.95", got[0].p)
	}
}

func TestChitchatCandidatesDropInvalid(t *testing.T) {
	gen := &fakeGen{
		chitchatFunc: func(window []string, count int) ([]string, error) {
			return []string{"нормальный ответ.", "абракадабра"}, nil
		},
	}
	e := New(gen, &fakeMatcher{}, &fakeMatcher{}, &fakeValidator{
		scoreFunc: func(text string) (float64, error) {
			if text == "абракадабра" {
				return 0.1, nil
			}
			return 1.0, nil
		},
	})

	dlg := dialog.NewHistory("tester")
	dlg.AddHuman("привет")

	got := e.generateChitchatReply(context.Background(), dlg, "привет.", 1.0, 0.50)
	if len(got) != 1 || got[0].Text != "нормальный ответ." {
		t.Errorf("candidates = %+v", got)
	}
}

func TestSplitMessage(t *testing.T) {
	assertions, questions := splitMessage("я люблю кофе. ты любишь кофе?")
	if len(assertions) != 1 || assertions[0] != "я люблю кофе." {
		t.Errorf("assertions = %v", assertions)
	}
	if len(questions) != 1 || questions[0] != "ты любишь кофе?" {
		t.Errorf("questions = %v", questions)
	}
}

func TestCommitWritesOnlyWinnerFacts(t *testing.T) {
	memory := []core.Fact{{Text: "я люблю кино", Tag: core.FactTagProfile}}

	// The top candidate re-asks a known question and carries an invented
	// fact; it is rejected and its invention must never be persisted.
	relevancy := &fakeMatcher{
		mostRelevantFunc: func(query string, candidates []core.Fact, k int) ([]string, []float64, error) {
			if query == "ты любишь кино?" {
				return []string{"я люблю кино"}, []float64{0.9}, nil
			}
			return nil, nil, nil
		},
	}
	e := newTestEngine(&fakeGen{}, relevancy, &fakeMatcher{}, 0.99)

	session, repo := newTestSession(config.DefaultProfile(), nil)
	session.History.AddHuman("кто сейчас президент?")

	responses := []*core.Candidate{
		{
			Algo:               core.AlgoPQA,
			PrevInterpretation: "кто сейчас президент?",
			Text:               "ты любишь кино?",
			PBase:              0.9,
			PEntail:            1.0,
			ConfabulatedFacts:  []string{"выдуманный факт."},
		},
		{
			Algo:               core.AlgoPQA,
			PrevInterpretation: "кто сейчас президент?",
			Text:               "говорят, Путин.",
			PBase:              0.5,
			PEntail:            1.0,
			ConfabulatedFacts:  []string{"Путин сейчас президент."},
		},
	}

	ctx := context.Background()
	best, selfInterp := e.selectResponse(ctx, session.History, 0.80, responses, memory)
	if best.Text != "говорят, Путин." {
		t.Fatalf("selected %q", best.Text)
	}
	e.commit(ctx, session, best, selfInterp)

	if len(repo.facts) != 1 {
		t.Fatalf("stored facts = %v", repo.facts)
	}
	if repo.facts[0].Text != "Путин сейчас президент." || repo.facts[0].Tag != core.FactTagConfabulated {
		t.Errorf("stored fact = %+v, want only the winner's invention", repo.facts[0])
	}
}

func TestCandidateRanking(t *testing.T) {
	gen := &fakeGen{
		chitchatFunc: func(window []string, count int) ([]string, error) {
			return []string{"слабый ответ.", "сильный ответ."}, nil
		},
		scoreDialoguesFunc: func(dialogues [][]string) ([]float64, error) {
			scores := make([]float64, len(dialogues))
			for i, d := range dialogues {
				if d[len(d)-1] == "сильный ответ." {
					scores[i] = 0.95
				} else {
					scores[i] = 0.2
				}
			}
			return scores, nil
		},
	}
	e := newTestEngine(gen, &fakeMatcher{}, &fakeMatcher{}, 0.99)

	session, _ := newTestSession(config.DefaultProfile(), nil)
	session.History.AddHuman("я люблю кофе.")

	replies, err := e.ProcessHumanMessage(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	if len(replies) != 1 || replies[0] != "сильный ответ." {
		t.Errorf("replies = %v, want the better-scored candidate", replies)
	}
}
