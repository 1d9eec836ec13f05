package testutils

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session/result"
)

// SessionStub is an in-memory session: it records every statement it is
// handed and serves canned rows, scalars and affected counts back.
// RowsQueue, when filled, feeds successive queries one result set each,
// ahead of Rows.
type SessionStub struct {
	Rows      *RowsStub
	RowsQueue []*RowsStub
	Scalar    any
	Affected  int64

	ActualQuery  string
	ActualParams []any
	Queries      []string
	Params       [][]any

	conn *connectionStub
}

func NewSessionStub(rows *RowsStub) *SessionStub {
	stub := &SessionStub{Rows: rows}
	stub.conn = &connectionStub{session: stub}
	return stub
}

func (s *SessionStub) Context() context.Context {
	return context.Background()
}

func (s *SessionStub) Connection() session.DbConnection {
	return s.conn
}

func (s *SessionStub) record(query string, args []any) {
	s.ActualQuery = query
	s.ActualParams = args
	s.Queries = append(s.Queries, query)
	s.Params = append(s.Params, args)
}

// SessionPoolStub hands the same stub session to every callback.
type SessionPoolStub struct {
	Stub *SessionStub
}

func NewSessionPoolStub(stub *SessionStub) *SessionPoolStub {
	return &SessionPoolStub{Stub: stub}
}

func (p *SessionPoolStub) Session(ctx context.Context, callback session.SessionPoolCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return callback(p.Stub)
}

type connectionStub struct {
	session *SessionStub
}

func (c *connectionStub) Exec(query string, args ...any) (session.Result, error) {
	c.session.record(query, args)
	return result.NewResultImp(0, c.session.Affected), nil
}

func (c *connectionStub) Query(query string, args ...any) (session.Rows, error) {
	c.session.record(query, args)
	if len(c.session.RowsQueue) > 0 {
		rows := c.session.RowsQueue[0]
		c.session.RowsQueue = c.session.RowsQueue[1:]
		return rows, nil
	}
	if c.session.Rows == nil {
		return NewRowsStub(nil), nil
	}
	return c.session.Rows, nil
}

func (c *connectionStub) QueryRow(query string, args ...any) session.Row {
	c.session.record(query, args)
	return &RowStub{value: c.session.Scalar}
}

// RowsStub replays a fixed result set. FailWith, when set, surfaces as
// the iteration error after the replayed rows run out.
type RowsStub struct {
	columns  []string
	rows     [][]any
	idx      int
	Closed   bool
	FailWith error
}

func NewRowsStub(columns []string, rows ...[]any) *RowsStub {
	return &RowsStub{
		columns: columns,
		rows:    rows,
		idx:     -1,
	}
}

func (r *RowsStub) Columns() ([]string, error) {
	return r.columns, nil
}

func (r *RowsStub) Close() error {
	r.Closed = true
	return nil
}

func (r *RowsStub) Err() error {
	if r.idx >= len(r.rows) {
		return r.FailWith
	}
	return nil
}

func (r *RowsStub) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *RowsStub) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.rows) {
		return errors.New("no current row")
	}

	row := r.rows[r.idx]
	for i, val := range row {
		if i >= len(dest) {
			break
		}
		if err := assign(dest[i], val); err != nil {
			return err
		}
	}
	return nil
}

// RowStub carries a single scalar value.
type RowStub struct {
	value    any
	FailWith error
}

func NewRowStub(value any) *RowStub {
	return &RowStub{value: value}
}

func (r *RowStub) Scan(dest ...any) error {
	if r.FailWith != nil {
		return r.FailWith
	}
	if len(dest) == 0 {
		return errors.New("no scan destination")
	}
	return assign(dest[0], r.value)
}

func assign(dest any, val any) error {
	switch d := dest.(type) {
	case *any:
		*d = val
	case *int:
		*d = toInt(val)
	case *int64:
		*d = toInt64(val)
	case *int32:
		*d = int32(toInt64(val))
	case *string:
		*d = val.(string)
	case *bool:
		*d = val.(bool)
	case *[]byte:
		*d = val.([]byte)
	case *float64:
		*d = toFloat64(val)
	case *float32:
		*d = float32(toFloat64(val))
	case *time.Time:
		*d = val.(time.Time)
	case sql.Scanner:
		return d.Scan(val)
	default:
		return errors.New("unsupported scan type")
	}
	return nil
}

func toInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	default:
		panic("cannot convert to int")
	}
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	default:
		panic("cannot convert to int64")
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic("cannot convert to float64")
	}
}
