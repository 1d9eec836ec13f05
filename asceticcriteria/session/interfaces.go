// Package session abstracts the database boundary: acquiring a
// connection-scoped session from a pool and running statements on it.
// Driver specifics live in the subpackages (pgx, pgxv4, sql); the engine
// only ever sees these interfaces.
package session

import (
	"context"
)

type Session interface {
	Context() context.Context
	Connection() DbConnection
}

type SessionPoolCallback func(Session) error

type SessionPool interface {
	Session(context.Context, SessionPoolCallback) error
}

// Db

type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

type Rows interface {
	Close() error
	Err() error
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
}

// Row carries only Scan: pgx rows surface their error through Scan, so a
// broader contract could not be satisfied across drivers.
type Row interface {
	Scan(dest ...any) error
}

type DbExecutor interface {
	Exec(query string, args ...any) (Result, error)
}

type DbQuerier interface {
	Query(query string, args ...any) (Rows, error)
}

type DbSingleQuerier interface {
	QueryRow(query string, args ...any) Row
}

type DbConnection interface {
	DbExecutor
	DbQuerier
	DbSingleQuerier
}
