package domain

import (
	"time"

	"github.com/google/uuid"
)

// MinOptions is the smallest option set a poll may have, enforced on
// creation and on any update that touches the option list.
const MinOptions = 3

// Poll is a timed question with a fixed, ordered set of options.
// StartDate is always strictly before EndDate.
type Poll struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Option is one selectable choice within a poll. Position is unique
// within a poll and runs 0..n-1 without gaps.
type Option struct {
	ID       uuid.UUID `json:"id"`
	PollID   uuid.UUID `json:"pollId"`
	Text     string    `json:"text"`
	Position int       `json:"position"`
}

// Vote is an anonymous, immutable tally increment for one option.
// It carries no voter identity and is never updated; it disappears only
// when its option (or the whole poll) is deleted.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	OptionID  uuid.UUID `json:"optionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// OptionResult is the current tally for a single option.
type OptionResult struct {
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// Results maps option IDs to their current tallies. Options with zero
// votes are always present.
type Results map[uuid.UUID]OptionResult
