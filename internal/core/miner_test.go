package core

import "testing"

func categorizedTx(id, merchant, categoryID string, cents int64) Transaction {
	return Transaction{ID: id, Merchant: merchant, Cents: cents, CategoryID: categoryID}
}

func TestProposeRules_MerchantThreshold(t *testing.T) {
	t.Run("five occurrences propose a rule", func(t *testing.T) {
		var txs []Transaction
		for i := 0; i < 5; i++ {
			txs = append(txs, categorizedTx("t", "Trader Joe's", "groceries", -4200))
		}
		got := ProposeRules(txs, nil, DefaultMineOptions())
		if len(got) != 1 {
			t.Fatalf("ProposeRules() = %d proposals, want 1", len(got))
		}
		r := got[0]
		if r.CategoryID != "groceries" {
			t.Errorf("CategoryID = %q, want groceries", r.CategoryID)
		}
		m, ok := r.Match.(MerchantMatch)
		if !ok {
			t.Fatalf("Match = %#v, want MerchantMatch", r.Match)
		}
		if m.Pattern != "trader joe's" {
			t.Errorf("Pattern = %q, want normalized merchant", m.Pattern)
		}
		if r.Occurrences != 5 {
			t.Errorf("Occurrences = %d, want 5", r.Occurrences)
		}
		if !r.Active {
			t.Error("proposal should be active")
		}
	})

	t.Run("two occurrences propose nothing", func(t *testing.T) {
		txs := []Transaction{
			categorizedTx("t1", "Trader Joe's", "groceries", -4200),
			categorizedTx("t2", "Trader Joe's", "groceries", -3100),
		}
		if got := ProposeRules(txs, nil, DefaultMineOptions()); len(got) != 0 {
			t.Errorf("ProposeRules() = %+v, want none below threshold", got)
		}
	})

	t.Run("custom threshold", func(t *testing.T) {
		txs := []Transaction{
			categorizedTx("t1", "Trader Joe's", "groceries", -4200),
			categorizedTx("t2", "Trader Joe's", "groceries", -3100),
		}
		got := ProposeRules(txs, nil, MineOptions{MinOccurrences: 2, FindMerchants: true})
		if len(got) != 1 {
			t.Errorf("ProposeRules() = %d proposals, want 1 at threshold 2", len(got))
		}
	})
}

func TestProposeRules_MajorityWithTieBreak(t *testing.T) {
	t.Run("majority category wins", func(t *testing.T) {
		txs := []Transaction{
			categorizedTx("t1", "netflix", "entertainment", -1599),
			categorizedTx("t2", "netflix", "entertainment", -1599),
			categorizedTx("t3", "netflix", "entertainment", -1599),
			categorizedTx("t4", "netflix", "subscriptions", -1599),
		}
		got := ProposeRules(txs, nil, DefaultMineOptions())
		if len(got) != 1 {
			t.Fatalf("ProposeRules() = %d proposals, want 1", len(got))
		}
		if got[0].CategoryID != "entertainment" {
			t.Errorf("CategoryID = %q, want entertainment", got[0].CategoryID)
		}
		if got[0].Occurrences != 4 {
			t.Errorf("Occurrences = %d, want 4", got[0].Occurrences)
		}
	})

	t.Run("tie goes to first seen", func(t *testing.T) {
		txs := []Transaction{
			categorizedTx("t1", "costco", "groceries", -9000),
			categorizedTx("t2", "costco", "shopping", -8000),
			categorizedTx("t3", "costco", "shopping", -7000),
			categorizedTx("t4", "costco", "groceries", -6000),
		}
		got := ProposeRules(txs, nil, DefaultMineOptions())
		if len(got) != 1 {
			t.Fatalf("ProposeRules() = %d proposals, want 1", len(got))
		}
		if got[0].CategoryID != "groceries" {
			t.Errorf("CategoryID = %q, want first-seen groceries on tie", got[0].CategoryID)
		}
	})
}

func TestProposeRules_IgnoresUncategorized(t *testing.T) {
	txs := []Transaction{
		categorizedTx("t1", "netflix", "entertainment", -1599),
		categorizedTx("t2", "netflix", "entertainment", -1599),
		categorizedTx("t3", "netflix", "", -1599),
		categorizedTx("t4", "netflix", "", -1599),
	}
	if got := ProposeRules(txs, nil, DefaultMineOptions()); len(got) != 0 {
		t.Errorf("ProposeRules() = %+v, uncategorized rows must not count", got)
	}
}

func TestProposeRules_DedupAgainstExisting(t *testing.T) {
	var txs []Transaction
	for i := 0; i < 4; i++ {
		txs = append(txs, categorizedTx("t", "Netflix", "entertainment", -1599))
	}

	t.Run("active rule on same merchant suppresses", func(t *testing.T) {
		existing := []Rule{{
			ID:         "r1",
			CategoryID: "subscriptions",
			Match:      MerchantMatch{Pattern: "netflix", Type: MatchContains},
			Active:     true,
		}}
		if got := ProposeRules(txs, existing, DefaultMineOptions()); len(got) != 0 {
			t.Errorf("ProposeRules() = %+v, want suppression by active rule", got)
		}
	})

	t.Run("inactive rule does not suppress", func(t *testing.T) {
		existing := []Rule{{
			ID:         "r1",
			CategoryID: "subscriptions",
			Match:      MerchantMatch{Pattern: "netflix", Type: MatchExact},
			Active:     false,
		}}
		if got := ProposeRules(txs, existing, DefaultMineOptions()); len(got) != 1 {
			t.Errorf("ProposeRules() = %+v, inactive rules must not suppress", got)
		}
	})

	t.Run("rule on different merchant does not suppress", func(t *testing.T) {
		existing := []Rule{{
			ID:         "r1",
			CategoryID: "entertainment",
			Match:      MerchantMatch{Pattern: "hulu", Type: MatchExact},
			Active:     true,
		}}
		if got := ProposeRules(txs, existing, DefaultMineOptions()); len(got) != 1 {
			t.Errorf("ProposeRules() = %+v, unrelated rule must not suppress", got)
		}
	})
}

func TestProposeRules_Amounts(t *testing.T) {
	txs := []Transaction{
		categorizedTx("t1", "netflix", "entertainment", -1599),
		categorizedTx("t2", "netflix us", "entertainment", -1599),
		categorizedTx("t3", "nflx", "entertainment", -1599),
	}
	opts := MineOptions{MinOccurrences: 3, FindAmounts: true}

	got := ProposeRules(txs, nil, opts)
	if len(got) != 1 {
		t.Fatalf("ProposeRules() = %d proposals, want 1 amount rule", len(got))
	}
	m, ok := got[0].Match.(AmountMatch)
	if !ok {
		t.Fatalf("Match = %#v, want AmountMatch", got[0].Match)
	}
	if m.Cents != 1599 {
		t.Errorf("Cents = %d, want 1599", m.Cents)
	}
	if got[0].Occurrences != 3 {
		t.Errorf("Occurrences = %d, want 3", got[0].Occurrences)
	}

	t.Run("existing active amount rule suppresses", func(t *testing.T) {
		existing := []Rule{{ID: "r1", CategoryID: "entertainment", Match: AmountMatch{Cents: 1599}, Active: true}}
		if got := ProposeRules(txs, existing, opts); len(got) != 0 {
			t.Errorf("ProposeRules() = %+v, want suppression", got)
		}
	})
}

func TestProposeRules_BothKinds(t *testing.T) {
	var txs []Transaction
	for i := 0; i < 3; i++ {
		txs = append(txs, categorizedTx("t", "netflix", "entertainment", -1599))
	}
	got := ProposeRules(txs, nil, MineOptions{MinOccurrences: 3, FindMerchants: true, FindAmounts: true})
	if len(got) != 2 {
		t.Fatalf("ProposeRules() = %d proposals, want merchant + amount", len(got))
	}
	if _, ok := got[0].Match.(MerchantMatch); !ok {
		t.Errorf("got[0] = %#v, want merchant proposal first", got[0].Match)
	}
	if _, ok := got[1].Match.(AmountMatch); !ok {
		t.Errorf("got[1] = %#v, want amount proposal second", got[1].Match)
	}
}

func TestDominantCategory(t *testing.T) {
	tests := []struct {
		name string
		cats []string
		want string
	}{
		{name: "clear majority", cats: []string{"a", "b", "a", "a"}, want: "a"},
		{name: "tie first seen", cats: []string{"b", "a", "a", "b"}, want: "b"},
		{name: "single", cats: []string{"x"}, want: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dominantCategory(tt.cats); got != tt.want {
				t.Errorf("dominantCategory(%v) = %q, want %q", tt.cats, got, tt.want)
			}
		})
	}
}
