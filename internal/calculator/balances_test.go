package calculator

import (
	"errors"
	"testing"

	"github.com/tabmate/tabmate/internal/money"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name         string
		expenses     []ExpenseForBalance
		settlements  []SettlementForBalance
		wantErr      error
		validateFunc func(t *testing.T, view *LedgerView)
	}{
		{
			name: "payer is owed everyone else's share",
			expenses: []ExpenseForBalance{
				{
					PayerID: "alice", Units: 6000, Currency: "USD",
					Shares: []ShareForBalance{
						{Participant: "alice", Units: 2000},
						{Participant: "bob", Units: 2000},
						{Participant: "carol", Units: 2000},
					},
				},
			},
			validateFunc: func(t *testing.T, view *LedgerView) {
				if got := view.PerUserNet["alice"].Units; got != 4000 {
					t.Errorf("alice net = %d, want 4000", got)
				}
				if got := view.PerUserNet["bob"].Units; got != -2000 {
					t.Errorf("bob net = %d, want -2000", got)
				}
				if got := view.GroupTotal.Units; got != 6000 {
					t.Errorf("group total = %d, want 6000", got)
				}
				pair := PairOf("alice", "bob")
				// alice < bob, positive means bob owes alice.
				if got := view.PairwiseNet[pair].Units; got != 2000 {
					t.Errorf("pairwise %v = %d, want 2000", pair, got)
				}
			},
		},
		{
			name: "settled share is excluded from outstanding balances",
			expenses: []ExpenseForBalance{
				{
					PayerID: "alice", Units: 6000, Currency: "USD",
					Shares: []ShareForBalance{
						{Participant: "alice", Units: 2000},
						{Participant: "bob", Units: 2000, Settled: true},
						{Participant: "carol", Units: 2000},
					},
				},
			},
			validateFunc: func(t *testing.T, view *LedgerView) {
				// Scenario: B settled, so A is owed 20.00 by C only.
				if got := view.PerUserNet["alice"].Units; got != 2000 {
					t.Errorf("alice net = %d, want 2000", got)
				}
				if got := view.PerUserNet["bob"].Units; got != 0 {
					t.Errorf("bob net = %d, want 0", got)
				}
				if got := view.PerUserNet["carol"].Units; got != -2000 {
					t.Errorf("carol net = %d, want -2000", got)
				}
				if _, ok := view.PairwiseNet[PairOf("alice", "bob")]; ok {
					t.Error("settled pair should be omitted from PairwiseNet")
				}
				if got := view.GroupTotal.Units; got != 6000 {
					t.Errorf("group total = %d, want 6000 (gross spend)", got)
				}
			},
		},
		{
			name: "fully settled expense still counts toward group total",
			expenses: []ExpenseForBalance{
				{
					PayerID: "alice", Units: 900, Currency: "USD",
					Shares: []ShareForBalance{
						{Participant: "bob", Units: 450, Settled: true},
						{Participant: "carol", Units: 450, Settled: true},
					},
				},
			},
			validateFunc: func(t *testing.T, view *LedgerView) {
				for id, net := range view.PerUserNet {
					if net.Units != 0 {
						t.Errorf("%s net = %d, want 0", id, net.Units)
					}
				}
				if len(view.PairwiseNet) != 0 {
					t.Errorf("pairwise entries = %d, want 0", len(view.PairwiseNet))
				}
				if got := view.GroupTotal.Units; got != 900 {
					t.Errorf("group total = %d, want 900", got)
				}
			},
		},
		{
			name: "opposite debts offset pairwise",
			expenses: []ExpenseForBalance{
				{
					PayerID: "alice", Units: 3000, Currency: "USD",
					Shares: []ShareForBalance{
						{Participant: "alice", Units: 1500},
						{Participant: "bob", Units: 1500},
					},
				},
				{
					PayerID: "bob", Units: 2000, Currency: "USD",
					Shares: []ShareForBalance{
						{Participant: "alice", Units: 1000},
						{Participant: "bob", Units: 1000},
					},
				},
			},
			validateFunc: func(t *testing.T, view *LedgerView) {
				pair := PairOf("alice", "bob")
				if got := view.PairwiseNet[pair].Units; got != 500 {
					t.Errorf("pairwise = %d, want 500 (bob owes alice net)", got)
				}
				if got := view.PerUserNet["alice"].Units; got != 500 {
					t.Errorf("alice net = %d, want 500", got)
				}
			},
		},
		{
			name: "settlement clears debt",
			expenses: []ExpenseForBalance{
				{
					PayerID: "alice", Units: 4000, Currency: "USD",
					Shares: []ShareForBalance{
						{Participant: "alice", Units: 2000},
						{Participant: "bob", Units: 2000},
					},
				},
			},
			settlements: []SettlementForBalance{
				{FromID: "bob", ToID: "alice", Units: 2000, Currency: "USD"},
			},
			validateFunc: func(t *testing.T, view *LedgerView) {
				if got := view.PerUserNet["alice"].Units; got != 0 {
					t.Errorf("alice net = %d, want 0", got)
				}
				if got := view.PerUserNet["bob"].Units; got != 0 {
					t.Errorf("bob net = %d, want 0", got)
				}
				if len(view.PairwiseNet) != 0 {
					t.Errorf("pairwise entries = %d, want 0", len(view.PairwiseNet))
				}
			},
		},
		{
			name: "external payer carries no share",
			expenses: []ExpenseForBalance{
				{
					PayerID: "dana", Units: 1000, Currency: "USD",
					Shares: []ShareForBalance{
						{Participant: "alice", Units: 500},
						{Participant: "bob", Units: 500},
					},
				},
			},
			validateFunc: func(t *testing.T, view *LedgerView) {
				if got := view.PerUserNet["dana"].Units; got != 1000 {
					t.Errorf("dana net = %d, want 1000", got)
				}
			},
		},
		{
			name: "mixed currencies fail",
			expenses: []ExpenseForBalance{
				{PayerID: "alice", Units: 100, Currency: "USD"},
				{PayerID: "bob", Units: 100, Currency: "EUR"},
			},
			wantErr: money.ErrCurrencyMismatch,
		},
		{
			name: "empty collection yields empty view",
			validateFunc: func(t *testing.T, view *LedgerView) {
				if len(view.PerUserNet) != 0 || len(view.PairwiseNet) != 0 || view.GroupTotal.Units != 0 {
					t.Errorf("empty view not empty: %+v", view)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := Aggregate(tt.expenses, tt.settlements)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Aggregate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Aggregate() unexpected error: %v", err)
			}

			// Nets must sum to zero whenever every payer is also tracked.
			var sum int64
			for _, net := range view.PerUserNet {
				sum += net.Units
			}
			if sum != 0 {
				t.Errorf("net balances sum to %d, want 0", sum)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, view)
			}
		})
	}
}

func TestSettleUp(t *testing.T) {
	view, err := Aggregate([]ExpenseForBalance{
		{
			PayerID: "alice", Units: 9000, Currency: "USD",
			Shares: []ShareForBalance{
				{Participant: "alice", Units: 3000},
				{Participant: "bob", Units: 3000},
				{Participant: "carol", Units: 3000},
			},
		},
		{
			PayerID: "bob", Units: 3000, Currency: "USD",
			Shares: []ShareForBalance{
				{Participant: "bob", Units: 1500},
				{Participant: "carol", Units: 1500},
			},
		},
	}, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	transfers := SettleUp(view)

	// carol owes 4500, alice is owed 6000, bob is owed... bob paid 1500 of
	// carol's share but owes alice 3000, so bob nets -1500.
	paid := make(map[string]int64)
	for _, tr := range transfers {
		paid[tr.FromID] -= tr.Amount.Units
		paid[tr.ToID] += tr.Amount.Units
	}
	for id, net := range view.PerUserNet {
		if paid[id] != net.Units {
			t.Errorf("transfers settle %s to %d, want %d", id, paid[id], net.Units)
		}
	}

	// Deterministic plan: rerunning yields the same transfers.
	again := SettleUp(view)
	if len(again) != len(transfers) {
		t.Fatalf("plan length changed: %d vs %d", len(again), len(transfers))
	}
	for i := range transfers {
		if again[i] != transfers[i] {
			t.Errorf("transfer[%d] = %+v, want %+v", i, again[i], transfers[i])
		}
	}
}
