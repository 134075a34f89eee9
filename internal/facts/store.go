package facts

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sandevgo/govorun/internal/core"
)

// Catalog holds the shared seed premises of the bot profile and the
// persistent per-interlocutor repository behind them. It is shared
// read-only across sessions.
type Catalog struct {
	seed []core.Fact
	repo core.FactsRepository
}

func NewCatalog(repo core.FactsRepository, seed []core.Fact) *Catalog {
	return &Catalog{seed: seed, repo: repo}
}

// LoadPremises reads the profile premises file: one fact per line,
// blank lines and #-comments skipped.
func LoadPremises(path string) ([]core.Fact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open premises: %w", err)
	}
	defer f.Close()

	var out []core.Fact
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, core.Fact{Text: line, Tag: core.FactTagProfile, Label: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read premises: %w", err)
	}
	return out, nil
}

// ForInterlocutor returns the per-interlocutor fact store view.
func (c *Catalog) ForInterlocutor(interlocutor string) *Store {
	return &Store{interlocutor: interlocutor, catalog: c}
}

// Store is the fact view of one session: shared seed premises plus
// everything disclosed or confabulated for this interlocutor.
type Store struct {
	interlocutor string
	catalog      *Catalog
}

// Enumerate lists all facts known for the interlocutor, seed first.
func (s *Store) Enumerate(ctx context.Context) ([]core.Fact, error) {
	stored, err := s.catalog.repo.Enumerate(ctx, s.interlocutor)
	if err != nil {
		return nil, fmt.Errorf("enumerate facts: %w", err)
	}
	out := make([]core.Fact, 0, len(s.catalog.seed)+len(stored))
	out = append(out, s.catalog.seed...)
	out = append(out, stored...)
	return out, nil
}

// Append commits one fact for the interlocutor.
func (s *Store) Append(ctx context.Context, fact core.Fact) error {
	if err := s.catalog.repo.Append(ctx, s.interlocutor, fact); err != nil {
		return fmt.Errorf("append fact: %w", err)
	}
	return nil
}
