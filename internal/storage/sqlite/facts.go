package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/govorun/internal/core"
)

type FactsRepo struct {
	db *sql.DB
}

func NewFactsRepo(db *sql.DB) *FactsRepo {
	return &FactsRepo{db: db}
}

func (r *FactsRepo) Enumerate(ctx context.Context, interlocutor string) ([]core.Fact, error) {
	query := `SELECT text, tag, label FROM facts WHERE interlocutor = ? ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, interlocutor)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var out []core.Fact
	for rows.Next() {
		var f core.Fact
		if err := rows.Scan(&f.Text, &f.Tag, &f.Label); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FactsRepo) Append(ctx context.Context, interlocutor string, fact core.Fact) error {
	query := `INSERT INTO facts (interlocutor, text, tag, label) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, interlocutor, fact.Text, fact.Tag, fact.Label); err != nil {
		return fmt.Errorf("failed to insert fact: %w", err)
	}
	return nil
}
