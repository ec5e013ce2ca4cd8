// Package calculator implements the split and balance math for shared
// expenses. All amounts are integer minor units; every resolved split
// reconciles exactly with the expense amount.
package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// SplitKind identifies how an expense is divided among participants.
type SplitKind string

const (
	SplitEqual      SplitKind = "equal"
	SplitPercentage SplitKind = "percentage"
	SplitExact      SplitKind = "exact"
)

// percentEpsilon is the tolerance on the percentage sum. Percentages must
// total 100 within ±0.01.
var percentEpsilon = decimal.New(1, -2)

var hundred = decimal.New(100, 0)

var (
	ErrNoParticipants       = errors.New("must have at least one participant")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrNonPositiveAmount    = errors.New("amount must be positive")
	ErrMissingParticipant   = errors.New("participant missing a split parameter")
	ErrUnbalancedSplit      = errors.New("split does not reconcile with the amount")
	ErrNegativeShare        = errors.New("share can't be negative")
	ErrUnsupportedSplit     = errors.New("unsupported split kind")
)

// Params carries the per-participant inputs for the non-equal split kinds.
type Params struct {
	// Percentages keys every participant to their percentage (0-100) for
	// SplitPercentage.
	Percentages map[string]decimal.Decimal

	// Amounts keys every participant to their exact share in minor units
	// for SplitExact.
	Amounts map[string]int64
}

// Share is one participant's resolved portion of an expense, in minor units.
type Share struct {
	Participant string
	Units       int64
}

// Resolve divides amount (minor units) among participants according to the
// split kind. The returned shares follow the participant input order and
// always sum to exactly amount.
//
// Remainder tie-break: leftover minor units go to earlier participants
// first. For percentage splits the largest fractional remainder wins before
// position.
func Resolve(amount int64, participants []string, kind SplitKind, params Params) ([]Share, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if amount <= 0 {
		return nil, ErrNonPositiveAmount
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, p)
		}
		seen[p] = true
	}

	var shares []Share
	var err error
	switch kind {
	case SplitEqual:
		shares = resolveEqual(amount, participants)
	case SplitPercentage:
		shares, err = resolvePercentage(amount, participants, params.Percentages)
	case SplitExact:
		shares, err = resolveExact(amount, participants, params.Amounts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSplit, kind)
	}
	if err != nil {
		return nil, err
	}

	// Reconciliation is enforced here, not trusted from the per-kind logic.
	var sum int64
	for _, s := range shares {
		sum += s.Units
	}
	if sum != amount {
		return nil, fmt.Errorf("%w: shares sum to %d, amount is %d", ErrUnbalancedSplit, sum, amount)
	}
	return shares, nil
}

// resolveEqual gives everyone amount/n, with the remainder distributed one
// minor unit at a time to the first participants in input order.
func resolveEqual(amount int64, participants []string) []Share {
	n := int64(len(participants))
	base := amount / n
	remainder := amount % n

	shares := make([]Share, len(participants))
	for i, p := range participants {
		units := base
		if int64(i) < remainder {
			units++
		}
		shares[i] = Share{Participant: p, Units: units}
	}
	return shares
}

// resolvePercentage computes round-down shares from exact decimal fractions
// and corrects the leftover with the largest-remainder method.
func resolvePercentage(amount int64, participants []string, percentages map[string]decimal.Decimal) ([]Share, error) {
	total := decimal.Zero
	for _, p := range participants {
		pct, ok := percentages[p]
		if !ok {
			return nil, fmt.Errorf("%w: no percentage for %s", ErrMissingParticipant, p)
		}
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: percentage %s for %s out of range", ErrUnbalancedSplit, pct, p)
		}
		total = total.Add(pct)
	}
	if total.Sub(hundred).Abs().GreaterThan(percentEpsilon) {
		return nil, fmt.Errorf("%w: percentages sum to %s, want 100", ErrUnbalancedSplit, total)
	}

	amt := decimal.New(amount, 0)
	shares := make([]Share, len(participants))
	remainders := make([]decimal.Decimal, len(participants))
	var floorSum int64
	for i, p := range participants {
		exact := amt.Mul(percentages[p]).Div(hundred)
		floor := exact.Floor()
		shares[i] = Share{Participant: p, Units: floor.IntPart()}
		remainders[i] = exact.Sub(floor)
		floorSum += floor.IntPart()
	}

	// Order of correction: largest fractional remainder first, earlier
	// participant on ties.
	order := make([]int, len(participants))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	leftover := amount - floorSum
	for k := 0; leftover > 0; k = (k + 1) % len(order) {
		shares[order[k]].Units++
		leftover--
	}
	// The epsilon can push the floored sum past the amount; take units back
	// from the smallest remainders, later participants first.
	for k := len(order) - 1; leftover < 0; k = (k - 1 + len(order)) % len(order) {
		if shares[order[k]].Units > 0 {
			shares[order[k]].Units--
			leftover++
		}
	}
	return shares, nil
}

// resolveExact passes the caller's shares through unchanged. The sum must
// equal the amount exactly, with no tolerance.
func resolveExact(amount int64, participants []string, amounts map[string]int64) ([]Share, error) {
	shares := make([]Share, len(participants))
	var sum int64
	for i, p := range participants {
		units, ok := amounts[p]
		if !ok {
			return nil, fmt.Errorf("%w: no amount for %s", ErrMissingParticipant, p)
		}
		if units < 0 {
			return nil, fmt.Errorf("%w: %d for %s", ErrNegativeShare, units, p)
		}
		shares[i] = Share{Participant: p, Units: units}
		sum += units
	}
	if sum != amount {
		return nil, fmt.Errorf("%w: exact shares sum to %d, amount is %d", ErrUnbalancedSplit, sum, amount)
	}
	return shares, nil
}
