package core

// DefaultMinOccurrences is the mining threshold when the caller passes zero.
const DefaultMinOccurrences = 3

// MineOptions controls a pattern mining pass over transaction history.
type MineOptions struct {
	// MinOccurrences is the minimum number of categorized transactions a
	// pattern needs before a rule is proposed. Zero means the default.
	MinOccurrences int
	// FindMerchants mines repeated merchants.
	FindMerchants bool
	// FindAmounts mines repeated amounts.
	FindAmounts bool
}

// DefaultMineOptions mines merchants only, with the default threshold.
func DefaultMineOptions() MineOptions {
	return MineOptions{MinOccurrences: DefaultMinOccurrences, FindMerchants: true}
}

// ProposeRules mines already-categorized transactions for repeated merchants
// and amounts and proposes active rules for them. Each proposal carries the
// dominant category of its group (ties go to the category seen first) and the
// group size as Occurrences. Patterns already covered by an active rule in
// existing are suppressed. Proposals are not persisted.
func ProposeRules(txs []Transaction, existing []Rule, opts MineOptions) []Rule {
	min := opts.MinOccurrences
	if min <= 0 {
		min = DefaultMinOccurrences
	}

	var proposals []Rule
	if opts.FindMerchants {
		proposals = append(proposals, mineMerchants(txs, existing, min)...)
	}
	if opts.FindAmounts {
		proposals = append(proposals, mineAmounts(txs, existing, min)...)
	}
	return proposals
}

func mineMerchants(txs []Transaction, existing []Rule, min int) []Rule {
	covered := make(map[string]bool)
	for _, r := range existing {
		if !r.Active {
			continue
		}
		if m, ok := r.Match.(MerchantMatch); ok {
			covered[m.Pattern] = true
		}
	}

	groups := make(map[string][]string)
	var keys []string
	for _, t := range txs {
		if !t.Categorized() {
			continue
		}
		merchant := foldText(t.Merchant)
		if merchant == "" {
			continue
		}
		if _, seen := groups[merchant]; !seen {
			keys = append(keys, merchant)
		}
		groups[merchant] = append(groups[merchant], t.CategoryID)
	}

	var proposals []Rule
	for _, merchant := range keys {
		cats := groups[merchant]
		if len(cats) < min || covered[merchant] {
			continue
		}
		proposals = append(proposals, Rule{
			CategoryID:  dominantCategory(cats),
			Match:       MerchantMatch{Pattern: merchant, Type: MatchExact},
			Active:      true,
			Occurrences: len(cats),
		})
	}
	return proposals
}

func mineAmounts(txs []Transaction, existing []Rule, min int) []Rule {
	covered := make(map[int64]bool)
	for _, r := range existing {
		if !r.Active {
			continue
		}
		if m, ok := r.Match.(AmountMatch); ok {
			covered[m.Cents] = true
		}
	}

	groups := make(map[int64][]string)
	var keys []int64
	for _, t := range txs {
		if !t.Categorized() || t.Cents == 0 {
			continue
		}
		cents := t.Magnitude()
		if _, seen := groups[cents]; !seen {
			keys = append(keys, cents)
		}
		groups[cents] = append(groups[cents], t.CategoryID)
	}

	var proposals []Rule
	for _, cents := range keys {
		cats := groups[cents]
		if len(cats) < min || covered[cents] {
			continue
		}
		proposals = append(proposals, Rule{
			CategoryID:  dominantCategory(cats),
			Match:       AmountMatch{Cents: cents},
			Active:      true,
			Occurrences: len(cats),
		})
	}
	return proposals
}

// dominantCategory returns the most frequent category. On a tie the category
// that appeared first in the input wins.
func dominantCategory(cats []string) string {
	counts := make(map[string]int, len(cats))
	for _, c := range cats {
		counts[c]++
	}
	best := ""
	bestCount := 0
	seen := make(map[string]bool, len(cats))
	for _, c := range cats {
		if seen[c] {
			continue
		}
		seen[c] = true
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}
