// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package collection

import (
	"fmt"
	"strings"

	"github.com/jeranaias/specterm/internal/ident"
)

// BulkError pairs an id with the error its per-item operation produced.
type BulkError struct {
	ID  ident.ID
	Err error
}

func (e BulkError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

// BulkResult is the outcome of a best-effort bulk operation over an id
// list: the ids that succeeded and, for each failure, the id with its
// error. Presentation stays best-effort (failures become warnings), but
// the partial-failure content is available to callers and tests.
type BulkResult struct {
	Done   []ident.ID
	Failed []BulkError
}

// Ok reports whether every item succeeded.
func (r *BulkResult) Ok() bool {
	return len(r.Failed) == 0
}

// Add records a successful id.
func (r *BulkResult) Add(id ident.ID) {
	r.Done = append(r.Done, id)
}

// Fail records a failed id.
func (r *BulkResult) Fail(id ident.ID, err error) {
	r.Failed = append(r.Failed, BulkError{ID: id, Err: err})
}

// FailureSummary renders the failed items one per line for warning output.
func (r *BulkResult) FailureSummary() string {
	lines := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		lines[i] = f.Error()
	}
	return strings.Join(lines, "\n")
}
