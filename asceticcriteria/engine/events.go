package engine

import (
	"time"

	"github.com/google/uuid"
)

// QueryStartedEvent fires right before a statement is sent. QueryID ties
// it to the matching QueryEndedEvent.
type QueryStartedEvent struct {
	QueryID   uuid.UUID
	SQL       string
	Params    []any
	StartedAt time.Time
}

type QueryEndedEvent struct {
	QueryID      uuid.UUID
	ResponseTime time.Duration
	Err          error
}
