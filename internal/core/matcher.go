package core

import "strings"

// Matches reports whether the rule's condition accepts the transaction.
// Inactive rules never match. Text comparisons are trim- and
// case-insensitive; amount comparisons use unsigned cent magnitudes.
func Matches(t Transaction, r Rule) bool {
	if !r.Active {
		return false
	}
	switch m := r.Match.(type) {
	case MerchantMatch:
		return matchText(t.Merchant, m.Pattern, m.Type)
	case DescriptionMatch:
		return matchText(t.Description, m.Pattern, m.Type)
	case AmountMatch:
		return t.Magnitude() == m.Cents
	default:
		return false
	}
}

func matchText(text, pattern string, mt MatchType) bool {
	folded := foldText(text)
	if folded == "" {
		return false
	}
	if mt == MatchContains {
		return strings.Contains(folded, pattern)
	}
	return folded == pattern
}
