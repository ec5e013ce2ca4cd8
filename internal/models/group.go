package models

// Group represents a reusable participant list. Groups own expenses,
// enabling per-group ledgers and settlement history.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates").
	Name string

	// Currency is the ISO 4217 code every expense in the group uses.
	Currency string

	// Members is the list of participant IDs in this group.
	Members []string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Participant is an identified member. The ID is opaque to the core; the
// display fields are carried for consumers and never inspected here.
type Participant struct {
	ID   string
	Name string
}
