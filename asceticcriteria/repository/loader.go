package repository

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/builder"
)

// KeyLoader collects per-key lookups and satisfies them with a single
// IN query on the next flush, trading N point reads for one statement.
// A loader is scoped to one unit of work and is not safe for concurrent
// use.
type KeyLoader struct {
	repo    *Repository
	column  string
	pending map[string]*Thunk
	keys    []any
}

// KeyLoader starts a loader keyed on column, which must be a column of
// the repository's root table.
func (r *Repository) KeyLoader(column string) *KeyLoader {
	return &KeyLoader{
		repo:    r,
		column:  column,
		pending: make(map[string]*Thunk),
	}
}

// Load registers key for the next flush and returns its thunk. Loading
// a key twice before the flush shares one thunk.
func (l *KeyLoader) Load(key any) *Thunk {
	id := keyID(key)
	if thunk, ok := l.pending[id]; ok {
		return thunk
	}
	thunk := &Thunk{loader: l}
	l.pending[id] = thunk
	l.keys = append(l.keys, key)
	return thunk
}

// Flush runs one IN query over every pending key and distributes the
// rows to their thunks. Keys that matched nothing resolve empty. Rows
// that cannot be attributed to a key accumulate into the returned
// error without blocking the rest of the batch.
func (l *KeyLoader) Flush(ctx context.Context) error {
	pending := l.pending
	keys := l.keys
	l.pending = make(map[string]*Thunk)
	l.keys = nil

	if len(keys) == 0 {
		return nil
	}

	rows, err := l.repo.Query().WhereIn(l.column, keys...).Get(ctx)
	if err != nil {
		for _, thunk := range pending {
			thunk.resolve(nil, err)
		}
		return err
	}

	grouped := make(map[string][]builder.Row, len(pending))
	var distErr error
	for _, row := range rows {
		value, ok := row[l.column]
		if !ok {
			distErr = multierror.Append(distErr, errors.Errorf("repository: row misses key column %q", l.column))
			continue
		}
		grouped[keyID(value)] = append(grouped[keyID(value)], row)
	}
	for id, thunk := range pending {
		thunk.resolve(grouped[id], nil)
	}
	return distErr
}

// keyID folds a key to its lookup form, so the int a caller loads with
// still matches the int64 the driver hands back.
func keyID(key any) string {
	return fmt.Sprintf("%v", key)
}

// Thunk is the pending result of one Load call.
type Thunk struct {
	loader *KeyLoader
	rows   []builder.Row
	err    error
	done   bool
}

func (t *Thunk) resolve(rows []builder.Row, err error) {
	t.rows = rows
	t.err = err
	t.done = true
}

// Rows returns the rows loaded for this thunk's key, flushing the
// loader first when the key is still pending.
func (t *Thunk) Rows(ctx context.Context) ([]builder.Row, error) {
	if !t.done {
		if err := t.loader.Flush(ctx); err != nil {
			return nil, err
		}
	}
	return t.rows, t.err
}
