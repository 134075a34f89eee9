package sqlite

import (
	"context"
	"testing"

	"github.com/sandevgo/govorun/internal/core"
)

func newTestRepo(t *testing.T) *FactsRepo {
	t.Helper()
	ctx := context.Background()

	db, err := NewDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewFactsRepo(db)
}

func TestFactsRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	facts := []core.Fact{
		{Text: "ты любишь кофе", Tag: core.FactTagDialog, Label: "disclosed"},
		{Text: "я живу в Москве", Tag: core.FactTagConfabulated, Label: "я живу в Москве?"},
	}
	for _, f := range facts {
		if err := repo.Append(ctx, "user-1", f); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := repo.Enumerate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(got) != len(facts) {
		t.Fatalf("Enumerate() returned %d facts, want %d", len(got), len(facts))
	}
	for i, f := range facts {
		if got[i] != f {
			t.Errorf("fact %d = %+v, want %+v", i, got[i], f)
		}
	}
}

func TestFactsRepoInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	texts := []string{"первый", "второй", "третий"}
	for _, text := range texts {
		if err := repo.Append(ctx, "user-1", core.Fact{Text: text, Tag: core.FactTagDialog}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.Enumerate(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	for i, text := range texts {
		if got[i].Text != text {
			t.Errorf("fact %d = %q, want %q", i, got[i].Text, text)
		}
	}
}

func TestFactsRepoPerInterlocutor(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.Append(ctx, "user-1", core.Fact{Text: "ты любишь чай", Tag: core.FactTagDialog}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Enumerate(ctx, "user-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no facts for other interlocutor, got %v", got)
	}
}
