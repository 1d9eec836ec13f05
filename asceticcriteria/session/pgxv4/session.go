// Package pgxv4 is the pgx v4 flavor of the session adapter, kept for
// deployments still on v4 pools. Same surface as the v5 package.
package pgxv4

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session/result"
)

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
	return &connection{ctx: s.ctx, conn: s.conn}
}

type connection struct {
	ctx  context.Context
	conn *pgxpool.Conn
}

func (c *connection) Exec(query string, args ...any) (session.Result, error) {
	tag, err := c.conn.Exec(c.ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return result.NewResultImp(0, tag.RowsAffected()), nil
}

func (c *connection) Query(query string, args ...any) (session.Rows, error) {
	rows, err := c.conn.Query(c.ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &rowsAdapter{rows: rows}, nil
}

func (c *connection) QueryRow(query string, args ...any) session.Row {
	return c.conn.QueryRow(c.ctx, query, args...)
}

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

// Columns converts the v4 field descriptions, whose names arrive as
// byte slices.
func (r *rowsAdapter) Columns() ([]string, error) {
	descriptions := r.rows.FieldDescriptions()
	columns := make([]string, len(descriptions))
	for i, description := range descriptions {
		columns[i] = string(description.Name)
	}
	return columns, nil
}

func (r *rowsAdapter) Close() error {
	r.rows.Close()
	return r.rows.Err()
}
