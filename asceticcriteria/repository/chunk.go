package repository

import (
	"context"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/builder"
)

// Chunk walks q in windows of size rows, invoking fn once per window.
// The walk stops at the first empty or short window, or at the first
// error from fn. It drives q's limit and offset, so hand it a builder
// dedicated to the walk, and give it a stable order: chunking an
// unordered query can skip or repeat rows between windows.
func (r *Repository) Chunk(ctx context.Context, q *builder.Builder, size int, fn func([]builder.Row) error) error {
	if q == nil {
		q = r.Query()
	}
	if size < 1 {
		return errors.New("repository: chunk size must be positive")
	}
	for offset := 0; ; offset += size {
		rows, err := q.Limit(size).Offset(offset).Get(ctx)
		if err != nil {
			return errors.Wrapf(err, "repository: chunk at offset %d", offset)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := fn(rows); err != nil {
			return err
		}
		if len(rows) < size {
			return nil
		}
	}
}
