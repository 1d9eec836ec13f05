package testutils

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// SQLDiff renders a character-level diff between two statements, for
// readable failure messages when comparing generated SQL.
func SQLDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	return dmp.DiffPrettyText(diffs)
}
