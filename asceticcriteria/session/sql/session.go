// Package sql adapts database/sql to the session interfaces, for engines
// running on drivers outside the pgx family.
package sql

import (
	"context"
	"database/sql"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session"
)

func NewSession(ctx context.Context, db *sql.DB) *Session {
	return &Session{
		ctx: ctx,
		db:  db,
	}
}

type Session struct {
	ctx context.Context
	db  *sql.DB
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Connection() session.DbConnection {
	return &connection{ctx: s.ctx, db: s.db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type connection struct {
	ctx context.Context
	db  dbExecutor
}

func (c *connection) Exec(query string, args ...any) (session.Result, error) {
	return c.db.ExecContext(c.ctx, query, args...)
}

func (c *connection) Query(query string, args ...any) (session.Rows, error) {
	return c.db.QueryContext(c.ctx, query, args...)
}

func (c *connection) QueryRow(query string, args ...any) session.Row {
	return c.db.QueryRowContext(c.ctx, query, args...)
}

type SessionPool struct {
	db *sql.DB
}

func NewSessionPool(db *sql.DB) *SessionPool {
	return &SessionPool{db: db}
}

func (p *SessionPool) Session(ctx context.Context, callback session.SessionPoolCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return callback(NewSession(ctx, p.db))
}
