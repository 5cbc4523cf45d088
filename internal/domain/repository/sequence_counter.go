package repository

import "context"

// SequenceCounter entrega el siguiente secuencial de una serie (estab+ptoEmi)
// de forma atómica. Nunca retrocede: un número consumido no se reutiliza.
type SequenceCounter interface {
	Next(ctx context.Context, series string) (int64, error)
	Current(ctx context.Context, series string) (int64, error)
}
