package core

import "context"

// Generator is the neural text-generation service. All methods may
// return fewer outputs than requested.
type Generator interface {
	Chitchat(ctx context.Context, replies []string, count int) ([]string, error)
	Interpretations(ctx context.Context, replies []string, count int) ([]string, error)
	Confabulations(ctx context.Context, replies []string, count int) ([]string, error)
	// ScoreDialogues rates how well the last reply of each dialogue fits
	// its preceding context, in [0,1].
	ScoreDialogues(ctx context.Context, dialogues [][]string) ([]float64, error)
}

// Matcher ranks candidate facts against a query. Relevancy and synonymy
// are conceptually distinct models behind the same interface shape.
type Matcher interface {
	MostRelevant(ctx context.Context, query string, candidates []Fact, k int) ([]string, []float64, error)
}

// Validator scores syntactic validity of a generated phrase in [0,1].
// A nil Validator is treated as a constant 1.0.
type Validator interface {
	Score(ctx context.Context, text string) (float64, error)
}
