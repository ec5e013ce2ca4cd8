package calculator

import (
	"sort"

	"github.com/tabmate/tabmate/internal/money"
)

// Transfer is one suggested payment in a settle-up plan.
type Transfer struct {
	FromID string
	ToID   string
	Amount money.Money
}

// SettleUp turns a LedgerView's net balances into a short list of transfers
// that clears every debt. Greedy matching: the largest debtor pays the
// largest creditor, ties broken by participant ID so the plan is
// reproducible.
func SettleUp(view *LedgerView) []Transfer {
	type entry struct {
		id    string
		units int64
	}
	var debtors, creditors []entry
	currency := view.GroupTotal.Currency
	for id, net := range view.PerUserNet {
		switch {
		case net.Units < 0:
			debtors = append(debtors, entry{id: id, units: -net.Units})
		case net.Units > 0:
			creditors = append(creditors, entry{id: id, units: net.Units})
		}
	}
	byMagnitude := func(list []entry) {
		sort.Slice(list, func(a, b int) bool {
			if list[a].units != list[b].units {
				return list[a].units > list[b].units
			}
			return list[a].id < list[b].id
		})
	}
	byMagnitude(debtors)
	byMagnitude(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].units
		if creditors[j].units < amount {
			amount = creditors[j].units
		}
		transfers = append(transfers, Transfer{
			FromID: debtors[i].id,
			ToID:   creditors[j].id,
			Amount: money.New(amount, currency),
		})
		debtors[i].units -= amount
		creditors[j].units -= amount
		if debtors[i].units == 0 {
			i++
		}
		if creditors[j].units == 0 {
			j++
		}
	}
	return transfers
}
