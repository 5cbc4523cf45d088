package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/facturador-sri/internal/domain/repository"
)

var _ repository.SequenceCounter = (*SequenceCounter)(nil)

// SequenceCounter secuencial por serie en la tabla sri_sequences. El upsert
// toma el bloqueo de fila, así que varias instancias no obtienen el mismo número.
type SequenceCounter struct {
	q     Querier
	start int64
}

// NewSequenceCounter start es el último número ya usado cuando la serie aún no existe.
func NewSequenceCounter(q Querier, start int64) *SequenceCounter {
	return &SequenceCounter{q: q, start: start}
}

// Next incrementa atómicamente y devuelve el nuevo valor.
func (c *SequenceCounter) Next(ctx context.Context, series string) (int64, error) {
	query := `
		INSERT INTO sri_sequences (series, last_value, updated_at)
		VALUES ($1, $2 + 1, now())
		ON CONFLICT (series) DO UPDATE
		SET last_value = sri_sequences.last_value + 1,
		    updated_at = now()
		RETURNING last_value`
	var next int64
	if err := c.q.QueryRow(ctx, query, series, c.start).Scan(&next); err != nil {
		return 0, fmt.Errorf("siguiente secuencial %s: %w", series, err)
	}
	return next, nil
}

// Current último número entregado (start si la serie no existe).
func (c *SequenceCounter) Current(ctx context.Context, series string) (int64, error) {
	var last int64
	err := c.q.QueryRow(ctx, `SELECT last_value FROM sri_sequences WHERE series = $1`, series).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return c.start, nil
	}
	if err != nil {
		return 0, fmt.Errorf("secuencial actual %s: %w", series, err)
	}
	return last, nil
}
