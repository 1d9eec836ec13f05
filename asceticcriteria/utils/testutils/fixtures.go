package testutils

import (
	"time"

	"github.com/icrowley/fake"
	"github.com/oklog/ulid/v2"
	"syreclabs.com/go/faker"
)

// NewID issues a fresh ULID string, the key format fixtures use.
func NewID() string {
	return ulid.Make().String()
}

// UserRow fabricates one plausible users row.
func UserRow() map[string]any {
	return map[string]any{
		"id":         NewID(),
		"name":       fake.FullName(),
		"email":      fake.EmailAddress(),
		"city":       fake.City(),
		"age":        faker.Number().NumberInt(2),
		"status":     "active",
		"created_at": time.Now().UTC(),
	}
}

// OrderRow fabricates one orders row owned by userID.
func OrderRow(userID string) map[string]any {
	return map[string]any{
		"id":      NewID(),
		"user_id": userID,
		"product": faker.Commerce().ProductName(),
		"total":   faker.Commerce().Price(),
		"state":   "paid",
	}
}

func UserRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = UserRow()
	}
	return rows
}
