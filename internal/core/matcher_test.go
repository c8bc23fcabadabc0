package core

import (
	"testing"
	"time"
)

func tx(merchant, description string, cents int64, categoryID string) Transaction {
	return Transaction{
		ID:          "t-" + merchant,
		Merchant:    merchant,
		Description: description,
		Cents:       cents,
		CategoryID:  categoryID,
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		t    Transaction
		r    Rule
		want bool
	}{
		{
			name: "merchant exact ignores case and spacing",
			t:    tx("  UBER  ", "", -2100, ""),
			r:    Rule{CategoryID: "transportation", Match: MerchantMatch{Pattern: "uber", Type: MatchExact}, Active: true},
			want: true,
		},
		{
			name: "merchant exact rejects superstring",
			t:    tx("UBER EATS", "", -2100, ""),
			r:    Rule{CategoryID: "transportation", Match: MerchantMatch{Pattern: "uber", Type: MatchExact}, Active: true},
			want: false,
		},
		{
			name: "merchant contains accepts superstring",
			t:    tx("UBER EATS", "", -2100, ""),
			r:    Rule{CategoryID: "dining", Match: MerchantMatch{Pattern: "uber", Type: MatchContains}, Active: true},
			want: true,
		},
		{
			name: "description contains",
			t:    tx("ACH", "Monthly Gym Membership", -4500, ""),
			r:    Rule{CategoryID: "entertainment", Match: DescriptionMatch{Pattern: "gym", Type: MatchContains}, Active: true},
			want: true,
		},
		{
			name: "amount matches expense magnitude",
			t:    tx("netflix", "", -1599, ""),
			r:    Rule{CategoryID: "entertainment", Match: AmountMatch{Cents: 1599}, Active: true},
			want: true,
		},
		{
			name: "amount matches income magnitude",
			t:    tx("acme payroll", "", 1599, ""),
			r:    Rule{CategoryID: "entertainment", Match: AmountMatch{Cents: 1599}, Active: true},
			want: true,
		},
		{
			name: "amount off by one cent",
			t:    tx("netflix", "", -1598, ""),
			r:    Rule{CategoryID: "entertainment", Match: AmountMatch{Cents: 1599}, Active: true},
			want: false,
		},
		{
			name: "inactive rule never matches",
			t:    tx("uber", "", -2100, ""),
			r:    Rule{CategoryID: "transportation", Match: MerchantMatch{Pattern: "uber", Type: MatchExact}, Active: false},
			want: false,
		},
		{
			name: "empty merchant never matches text rule",
			t:    tx("", "ride downtown", -2100, ""),
			r:    Rule{CategoryID: "transportation", Match: MerchantMatch{Pattern: "uber", Type: MatchContains}, Active: true},
			want: false,
		},
		{
			name: "rule without match condition",
			t:    tx("uber", "", -2100, ""),
			r:    Rule{CategoryID: "transportation", Active: true},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.t, tt.r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
