package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session/result"
)

// Session wraps one acquired pool connection.
type Session struct {
	ctx  context.Context
	conn *pgxpool.Conn
}

func NewSession(ctx context.Context, conn *pgxpool.Conn) *Session {
	return &Session{
		ctx:  ctx,
		conn: conn,
	}
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Connection() session.DbConnection {
	return &connection{ctx: s.ctx, exec: s.conn}
}

// executor matches both *pgxpool.Conn and *pgx.Conn
type executor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// connection implements session.DbConnection
type connection struct {
	ctx  context.Context
	exec executor
}

func (c *connection) Exec(query string, args ...any) (session.Result, error) {
	tag, err := c.exec.Exec(c.ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return result.NewResultImp(0, tag.RowsAffected()), nil
}

func (c *connection) Query(query string, args ...any) (session.Rows, error) {
	rows, err := c.exec.Query(c.ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &rowsAdapter{rows: rows}, nil
}

func (c *connection) QueryRow(query string, args ...any) session.Row {
	return c.exec.QueryRow(c.ctx, query, args...)
}

// rowsAdapter bridges pgx.Rows to session.Rows: pgx closes rows without
// an error return, so Close surfaces the iteration error instead.
type rowsAdapter struct {
	rows pgx.Rows
}

func (r *rowsAdapter) Next() bool {
	return r.rows.Next()
}

func (r *rowsAdapter) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *rowsAdapter) Err() error {
	return r.rows.Err()
}

func (r *rowsAdapter) Columns() ([]string, error) {
	descriptions := r.rows.FieldDescriptions()
	columns := make([]string, len(descriptions))
	for i, description := range descriptions {
		columns[i] = description.Name
	}
	return columns, nil
}

func (r *rowsAdapter) Close() error {
	r.rows.Close()
	return r.rows.Err()
}
