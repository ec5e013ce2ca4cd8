package money

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		currency  string
		wantUnits int64
		wantErr   bool
	}{
		{name: "whole amount", input: "50", currency: "USD", wantUnits: 5000},
		{name: "two decimals", input: "50.00", currency: "USD", wantUnits: 5000},
		{name: "cents", input: "0.01", currency: "USD", wantUnits: 1},
		{name: "one decimal", input: "12.3", currency: "EUR", wantUnits: 1230},
		{name: "negative", input: "-4.20", currency: "USD", wantUnits: -420},
		{name: "sub-cent rejected", input: "0.001", currency: "USD", wantErr: true},
		{name: "garbage rejected", input: "ten", currency: "USD", wantErr: true},
		{name: "empty currency rejected", input: "1.00", currency: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.input, tt.currency)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if m.Units != tt.wantUnits {
				t.Errorf("Parse(%q) units = %d, want %d", tt.input, m.Units, tt.wantUnits)
			}
			if m.Currency != tt.currency {
				t.Errorf("Parse(%q) currency = %q, want %q", tt.input, m.Currency, tt.currency)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := New(1050, "USD")
	b := New(50, "USD")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Units != 1100 {
		t.Errorf("Add units = %d, want 1100", sum.Units)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff.Units != 1000 {
		t.Errorf("Sub units = %d, want 1000", diff.Units)
	}

	if _, err := a.Add(New(1, "EUR")); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Add mixed currencies error = %v, want ErrCurrencyMismatch", err)
	}
}

func TestString(t *testing.T) {
	if got := New(5000, "USD").String(); got != "50.00 USD" {
		t.Errorf("String() = %q, want %q", got, "50.00 USD")
	}
	if got := New(-1, "EUR").String(); got != "-0.01 EUR" {
		t.Errorf("String() = %q, want %q", got, "-0.01 EUR")
	}
}
