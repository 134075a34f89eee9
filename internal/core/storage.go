package core

import "context"

// FactsRepository persists per-interlocutor facts. The store is
// append-only: repeated texts are stored again, never merged.
type FactsRepository interface {
	Enumerate(ctx context.Context, interlocutor string) ([]Fact, error)
	Append(ctx context.Context, interlocutor string, fact Fact) error
}
