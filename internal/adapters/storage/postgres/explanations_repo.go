package postgres

import (
	"context"
	"database/sql"
	"errors"

	"medication-adherence/internal/domain/explanations"
)

type ExplanationsRepo struct {
	db *sql.DB
}

func NewExplanationsRepo(db *sql.DB) *ExplanationsRepo {
	return &ExplanationsRepo{db: db}
}

func (r *ExplanationsRepo) Get(ctx context.Context, name string) (explanations.Record, error) {
	var rec explanations.Record
	err := r.db.QueryRowContext(ctx, `
		SELECT name, what_it_does, how_it_helps, important_notes, reference_fetched_at, updated_at
		FROM medication_explanations
		WHERE name = $1
	`, name).Scan(
		&rec.Name,
		&rec.Sections.WhatItDoes,
		&rec.Sections.HowItHelps,
		&rec.Sections.ImportantNotes,
		&rec.ReferenceFetchedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return explanations.Record{}, explanations.ErrNotFound
	}
	return rec, err
}

// Put reemplaza el registro completo (último en escribir gana).
func (r *ExplanationsRepo) Put(ctx context.Context, rec explanations.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medication_explanations (
			name, what_it_does, how_it_helps, important_notes, reference_fetched_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (name) DO UPDATE SET
			what_it_does = EXCLUDED.what_it_does,
			how_it_helps = EXCLUDED.how_it_helps,
			important_notes = EXCLUDED.important_notes,
			reference_fetched_at = EXCLUDED.reference_fetched_at,
			updated_at = EXCLUDED.updated_at
	`,
		rec.Name,
		rec.Sections.WhatItDoes,
		rec.Sections.HowItHelps,
		rec.Sections.ImportantNotes,
		rec.ReferenceFetchedAt,
		rec.UpdatedAt,
	)
	return err
}

func (r *ExplanationsRepo) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medication_explanations WHERE name = $1`, name)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return explanations.ErrNotFound
	}
	return nil
}
