// Package models defines the core domain entities for tabmate.
//
//   - Expense: an immutable record of a cost split among participants
//   - Share: one participant's portion of an expense, with a settled flag
//   - Group: a reusable participant list that owns expenses
//   - Settlement: a recorded payment between two participants
//   - Participant: an identified member with display metadata
//
// Expenses are created once, by resolving a split strategy against the
// proposed amount and participant set, and never change afterwards. The
// only mutable bit is the per-share settled flag, and that is flipped by
// producing a new record (WithShareSettled), never in place. Edits are
// modeled as delete plus recreate so shares always reconcile with the
// amount.
package models
