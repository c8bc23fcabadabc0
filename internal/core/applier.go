package core

// ApplyOptions controls a bulk rule application pass.
type ApplyOptions struct {
	// SkipCategorized leaves already-categorized transactions untouched.
	SkipCategorized bool
	// TransactionIDs limits the pass to a subset. Nil means all.
	TransactionIDs []string
}

// DefaultApplyOptions applies rules to every uncategorized transaction.
func DefaultApplyOptions() ApplyOptions {
	return ApplyOptions{SkipCategorized: true}
}

// Assignment is one planned category write.
type Assignment struct {
	TransactionID string
	CategoryID    string
	RuleID        string
}

// PlanAssignments computes the category writes a bulk apply pass would make.
// Rules are tried in the supplied order and the first match wins. Transactions
// already carrying the winning rule's category are skipped, which makes a
// repeated pass over the same data plan nothing.
func PlanAssignments(txs []Transaction, rules []Rule, opts ApplyOptions) []Assignment {
	var subset map[string]bool
	if opts.TransactionIDs != nil {
		subset = make(map[string]bool, len(opts.TransactionIDs))
		for _, id := range opts.TransactionIDs {
			subset[id] = true
		}
	}

	var plan []Assignment
	for _, t := range txs {
		if subset != nil && !subset[t.ID] {
			continue
		}
		if opts.SkipCategorized && t.Categorized() {
			continue
		}
		for _, r := range rules {
			if !Matches(t, r) {
				continue
			}
			if t.CategoryID != r.CategoryID {
				plan = append(plan, Assignment{
					TransactionID: t.ID,
					CategoryID:    r.CategoryID,
					RuleID:        r.ID,
				})
			}
			break
		}
	}
	return plan
}
