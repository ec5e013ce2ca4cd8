package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		participants []string
		kind         SplitKind
		params       Params
		wantErr      error
		validateFunc func(t *testing.T, shares []Share)
	}{
		{
			name:         "equal split with remainder goes to first participants",
			amount:       100,
			participants: []string{"alice", "bob", "carol"},
			kind:         SplitEqual,
			validateFunc: func(t *testing.T, shares []Share) {
				want := []int64{34, 33, 33}
				for i, s := range shares {
					if s.Units != want[i] {
						t.Errorf("share[%d] = %d, want %d", i, s.Units, want[i])
					}
				}
			},
		},
		{
			name:         "equal split exact division",
			amount:       9000,
			participants: []string{"alice", "bob", "carol"},
			kind:         SplitEqual,
			validateFunc: func(t *testing.T, shares []Share) {
				for i, s := range shares {
					if s.Units != 3000 {
						t.Errorf("share[%d] = %d, want 3000", i, s.Units)
					}
				}
			},
		},
		{
			name:         "equal split spread is at most one minor unit",
			amount:       1001,
			participants: []string{"a", "b", "c", "d", "e", "f", "g"},
			kind:         SplitEqual,
			validateFunc: func(t *testing.T, shares []Share) {
				min, max := shares[0].Units, shares[0].Units
				for _, s := range shares {
					if s.Units < min {
						min = s.Units
					}
					if s.Units > max {
						max = s.Units
					}
				}
				if max-min > 1 {
					t.Errorf("share spread = %d, want <= 1", max-min)
				}
			},
		},
		{
			name:         "percentage split reconciles with largest remainder",
			amount:       5000,
			participants: []string{"alice", "bob", "carol"},
			kind:         SplitPercentage,
			params: Params{Percentages: map[string]decimal.Decimal{
				"alice": pct("33.33"),
				"bob":   pct("33.33"),
				"carol": pct("33.34"),
			}},
			validateFunc: func(t *testing.T, shares []Share) {
				// 33.33% of 5000 = 1666.5, 33.34% = 1667. Exact total 5000.
				want := map[string]int64{"alice": 1667, "bob": 1666, "carol": 1667}
				for _, s := range shares {
					if s.Units != want[s.Participant] {
						t.Errorf("%s share = %d, want %d", s.Participant, s.Units, want[s.Participant])
					}
				}
			},
		},
		{
			name:         "percentage split within epsilon still reconciles",
			amount:       10000,
			participants: []string{"alice", "bob"},
			kind:         SplitPercentage,
			params: Params{Percentages: map[string]decimal.Decimal{
				"alice": pct("50.005"),
				"bob":   pct("50.005"),
			}},
		},
		{
			name:         "percentage sum outside epsilon fails",
			amount:       5000,
			participants: []string{"alice", "bob"},
			kind:         SplitPercentage,
			params: Params{Percentages: map[string]decimal.Decimal{
				"alice": pct("60"),
				"bob":   pct("50"),
			}},
			wantErr: ErrUnbalancedSplit,
		},
		{
			name:         "percentage missing a participant fails",
			amount:       5000,
			participants: []string{"alice", "bob"},
			kind:         SplitPercentage,
			params: Params{Percentages: map[string]decimal.Decimal{
				"alice": pct("100"),
			}},
			wantErr: ErrMissingParticipant,
		},
		{
			name:         "exact split passes input through unchanged",
			amount:       740,
			participants: []string{"alice", "bob", "carol"},
			kind:         SplitExact,
			params: Params{Amounts: map[string]int64{
				"alice": 500, "bob": 200, "carol": 40,
			}},
			validateFunc: func(t *testing.T, shares []Share) {
				want := []int64{500, 200, 40}
				for i, s := range shares {
					if s.Units != want[i] {
						t.Errorf("share[%d] = %d, want %d", i, s.Units, want[i])
					}
				}
			},
		},
		{
			name:         "exact split that does not sum fails",
			amount:       1000,
			participants: []string{"alice", "bob"},
			kind:         SplitExact,
			params: Params{Amounts: map[string]int64{
				"alice": 500, "bob": 499,
			}},
			wantErr: ErrUnbalancedSplit,
		},
		{
			name:         "exact split missing a participant fails",
			amount:       1000,
			participants: []string{"alice", "bob"},
			kind:         SplitExact,
			params:       Params{Amounts: map[string]int64{"alice": 1000}},
			wantErr:      ErrMissingParticipant,
		},
		{
			name:         "exact split with negative share fails",
			amount:       100,
			participants: []string{"alice", "bob"},
			kind:         SplitExact,
			params: Params{Amounts: map[string]int64{
				"alice": 200, "bob": -100,
			}},
			wantErr: ErrNegativeShare,
		},
		{
			name:         "no participants fails",
			amount:       100,
			participants: nil,
			kind:         SplitEqual,
			wantErr:      ErrNoParticipants,
		},
		{
			name:         "zero amount fails",
			amount:       0,
			participants: []string{"alice"},
			kind:         SplitEqual,
			wantErr:      ErrNonPositiveAmount,
		},
		{
			name:         "negative amount fails",
			amount:       -100,
			participants: []string{"alice"},
			kind:         SplitEqual,
			wantErr:      ErrNonPositiveAmount,
		},
		{
			name:         "duplicate participant fails",
			amount:       100,
			participants: []string{"alice", "alice"},
			kind:         SplitEqual,
			wantErr:      ErrDuplicateParticipant,
		},
		{
			name:         "unknown split kind fails",
			amount:       100,
			participants: []string{"alice"},
			kind:         SplitKind("proportional"),
			wantErr:      ErrUnsupportedSplit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Resolve(tt.amount, tt.participants, tt.kind, tt.params)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}

			var sum int64
			for _, s := range shares {
				sum += s.Units
				if s.Units < 0 {
					t.Errorf("negative share %d for %s", s.Units, s.Participant)
				}
			}
			if sum != tt.amount {
				t.Errorf("shares sum to %d, want %d", sum, tt.amount)
			}
			if len(shares) != len(tt.participants) {
				t.Errorf("got %d shares, want %d", len(shares), len(tt.participants))
			}
			for i, s := range shares {
				if s.Participant != tt.participants[i] {
					t.Errorf("share[%d] participant = %s, want input order %s", i, s.Participant, tt.participants[i])
				}
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, shares)
			}
		})
	}
}

// TestResolveDeterministic verifies that repeated resolution of the same
// inputs produces identical shares, which the remainder tie-break requires.
func TestResolveDeterministic(t *testing.T) {
	participants := []string{"dave", "alice", "carol", "bob"}
	params := Params{Percentages: map[string]decimal.Decimal{
		"dave": pct("25"), "alice": pct("25"), "carol": pct("25"), "bob": pct("25"),
	}}

	first, err := Resolve(1003, participants, SplitPercentage, params)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Resolve(1003, participants, SplitPercentage, params)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: share[%d] = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}
