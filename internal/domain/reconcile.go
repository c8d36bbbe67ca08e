package domain

import "github.com/google/uuid"

// Reposition assigns a new position to an existing option, keeping its
// identity and therefore its accumulated votes.
type Reposition struct {
	ID       uuid.UUID
	Position int
}

// NewOption describes an option to create during reconciliation.
type NewOption struct {
	Text     string
	Position int
}

// ReconcilePlan is the diff between a poll's current option set and a
// proposed list of option texts. Applying Deletes, Repositions, and
// Creates leaves the option set equal to the proposed list in order,
// with positions 0..n-1.
type ReconcilePlan struct {
	Deletes     []uuid.UUID
	Repositions []Reposition
	Creates     []NewOption
}

// Reconcile matches proposed option texts against existing options by
// text equality. An option whose text still appears in the proposal
// keeps its ID (and its vote history) and is moved to the proposal's
// position; removed texts are deleted; new texts are created.
//
// Duplicate proposed texts: each existing option can be claimed by at
// most one position, first position wins; remaining duplicates become
// fresh options. Deliberate behavior, not an error.
//
// proposed must already be trimmed and free of empty strings.
func Reconcile(existing []Option, proposed []string) ReconcilePlan {
	var plan ReconcilePlan

	claimed := make(map[uuid.UUID]bool, len(existing))
	for i, text := range proposed {
		match := -1
		for j, opt := range existing {
			if !claimed[opt.ID] && opt.Text == text {
				match = j
				break
			}
		}
		if match == -1 {
			plan.Creates = append(plan.Creates, NewOption{Text: text, Position: i})
			continue
		}

		opt := existing[match]
		claimed[opt.ID] = true
		if opt.Position != i {
			plan.Repositions = append(plan.Repositions, Reposition{ID: opt.ID, Position: i})
		}
	}

	for _, opt := range existing {
		if !claimed[opt.ID] {
			plan.Deletes = append(plan.Deletes, opt.ID)
		}
	}

	return plan
}
