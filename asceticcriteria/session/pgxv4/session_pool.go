package pgxv4

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/session"
)

type SessionPool struct {
	pool *pgxpool.Pool
}

func NewSessionPool(pool *pgxpool.Pool) *SessionPool {
	return &SessionPool{pool: pool}
}

func (p *SessionPool) Session(ctx context.Context, callback session.SessionPoolCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return callback(NewSession(ctx, conn))
}
