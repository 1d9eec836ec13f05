package builder

import (
	"context"
	"time"

	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/compiler"
	"github.com/krew-solutions/ascetic-criteria-go/asceticcriteria/predicate"
)

// Row is one result record keyed by column name.
type Row map[string]any

type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

type Order struct {
	Field     string
	Direction OrderDirection
}

// Target is one query under construction inside the execution engine.
// The builder feeds it compiled output; it never sees raw criteria.
type Target interface {
	AddJoin(join compiler.JoinSpec)
	AddWhere(expr predicate.Visitable)
	BindParameter(name string, value any)
	SetColumns(columns ...string)
	SetOrderBy(orders ...Order)
	SetLimit(limit int)
	SetOffset(offset int)
	SetCache(ttl time.Duration)
	Execute(ctx context.Context) ([]Row, error)
	ExecuteScalar(ctx context.Context, expr string) (any, error)
}

// Source hands out fresh targets. Every materialization starts from a
// clean one, which is what keeps paginate's count pass free of the fetch
// pass's limit and offset.
type Source interface {
	NewTarget() Target
	RootAlias() string
}
