package models

import (
	"errors"

	"github.com/tabmate/tabmate/internal/calculator"
	"github.com/tabmate/tabmate/internal/money"
)

var (
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrSelfSettlement     = errors.New("settlement payer and receiver must differ")
	ErrEmptyParticipant   = errors.New("participant ID can't be empty")
)

// Settlement represents a payment between group members to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromID is the participant who paid (debtor settling up).
	FromID string

	// ToID is the participant who received payment.
	ToID string

	// Amount is the payment amount.
	Amount money.Money

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// Note is an optional description.
	Note string
}

// ForBalance converts the settlement into the aggregator's input shape.
func (s *Settlement) ForBalance() calculator.SettlementForBalance {
	return calculator.SettlementForBalance{
		FromID:   s.FromID,
		ToID:     s.ToID,
		Units:    s.Amount.Units,
		Currency: s.Amount.Currency,
	}
}
