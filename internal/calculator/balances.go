package calculator

import (
	"fmt"

	"github.com/tabmate/tabmate/internal/money"
)

// ShareForBalance is one participant's share of an expense, as the
// aggregator needs it.
type ShareForBalance struct {
	Participant string
	Units       int64
	Settled     bool
}

// ExpenseForBalance is an expense with the minimal information needed for
// balance aggregation.
type ExpenseForBalance struct {
	PayerID  string
	Units    int64
	Currency string
	Shares   []ShareForBalance
}

// SettlementForBalance is a recorded payment between two participants.
type SettlementForBalance struct {
	FromID   string
	ToID     string
	Units    int64
	Currency string
}

// Pair is a canonical participant pair: Low sorts before High, so each
// unordered pair has exactly one representation.
type Pair struct {
	Low  string
	High string
}

// PairOf returns the canonical pair for two participants.
func PairOf(a, b string) Pair {
	if a < b {
		return Pair{Low: a, High: b}
	}
	return Pair{Low: b, High: a}
}

// LedgerView is the derived balance state for a collection of expenses.
// Only the aggregator and the balance store construct it.
type LedgerView struct {
	// PerUserNet maps each participant to their net balance.
	// Positive means the participant is owed money.
	PerUserNet map[string]money.Money

	// PairwiseNet maps each canonical pair to the outstanding amount
	// between them. Positive means High owes Low. Fully settled pairs are
	// omitted.
	PairwiseNet map[Pair]money.Money

	// GroupTotal is the gross spend across all expenses, settled or not.
	GroupTotal money.Money
}

// Aggregate computes a LedgerView from expenses and settlements in a single
// linear pass. Settled shares are excluded from outstanding balances but
// still count toward GroupTotal. All records must share one currency.
func Aggregate(expenses []ExpenseForBalance, settlements []SettlementForBalance) (*LedgerView, error) {
	perUser := make(map[string]int64)
	pairwise := make(map[Pair]int64)
	var total int64
	currency := ""

	checkCurrency := func(c string) error {
		if currency == "" {
			currency = c
			return nil
		}
		if c != currency {
			return fmt.Errorf("%w: %s vs %s", money.ErrCurrencyMismatch, c, currency)
		}
		return nil
	}

	for _, e := range expenses {
		if err := checkCurrency(e.Currency); err != nil {
			return nil, err
		}
		total += e.Units
		if _, ok := perUser[e.PayerID]; !ok {
			perUser[e.PayerID] = 0
		}
		for _, s := range e.Shares {
			if _, ok := perUser[s.Participant]; !ok {
				perUser[s.Participant] = 0
			}
			if s.Settled || s.Participant == e.PayerID {
				// The payer's own share is carved out of what they are
				// owed; a settled share is already paid back.
				continue
			}
			perUser[e.PayerID] += s.Units
			perUser[s.Participant] -= s.Units
			addPairDebt(pairwise, s.Participant, e.PayerID, s.Units)
		}
	}

	for _, s := range settlements {
		if err := checkCurrency(s.Currency); err != nil {
			return nil, err
		}
		// A settlement clears debt from payer to receiver.
		perUser[s.FromID] += s.Units
		perUser[s.ToID] -= s.Units
		addPairDebt(pairwise, s.ToID, s.FromID, s.Units)
	}

	view := &LedgerView{
		PerUserNet:  make(map[string]money.Money, len(perUser)),
		PairwiseNet: make(map[Pair]money.Money),
		GroupTotal:  money.New(total, currency),
	}
	for id, units := range perUser {
		view.PerUserNet[id] = money.New(units, currency)
	}
	for pair, units := range pairwise {
		if units != 0 {
			view.PairwiseNet[pair] = money.New(units, currency)
		}
	}
	return view, nil
}

// addPairDebt records that debtor owes creditor units more, in the
// canonical signed representation (positive = High owes Low).
func addPairDebt(pairwise map[Pair]int64, debtor, creditor string, units int64) {
	pair := PairOf(debtor, creditor)
	if debtor == pair.High {
		pairwise[pair] += units
	} else {
		pairwise[pair] -= units
	}
}
