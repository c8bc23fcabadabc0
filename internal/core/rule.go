package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MatchType selects how a text pattern compares against a transaction field.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
)

// Match fields as they appear on the wire and in storage.
const (
	FieldMerchant    = "merchant"
	FieldDescription = "description"
	FieldAmount      = "amount"
)

var (
	ErrEmptyPattern      = errors.New("empty pattern")
	ErrInvalidMatchType  = errors.New("invalid match type")
	ErrInvalidMatchField = errors.New("invalid match field")
	ErrMissingMatch      = errors.New("rule has no match condition")
	ErrEmptyCategory     = errors.New("empty category")
)

// Match is the sealed sum of a rule's possible conditions. A rule targets
// exactly one field, so field/value mismatches are unrepresentable. Construct
// values through NewMerchantMatch, NewDescriptionMatch, or NewAmountMatch.
type Match interface {
	Field() string
	sealed()
}

// MerchantMatch compares a normalized pattern against the merchant field.
type MerchantMatch struct {
	Pattern string
	Type    MatchType
}

// DescriptionMatch compares a normalized pattern against the description field.
type DescriptionMatch struct {
	Pattern string
	Type    MatchType
}

// AmountMatch compares unsigned cent magnitudes for equality.
type AmountMatch struct {
	Cents int64
}

func (MerchantMatch) Field() string    { return FieldMerchant }
func (DescriptionMatch) Field() string { return FieldDescription }
func (AmountMatch) Field() string      { return FieldAmount }

func (MerchantMatch) sealed()    {}
func (DescriptionMatch) sealed() {}
func (AmountMatch) sealed()      {}

// foldText normalizes text the same way for patterns and transaction fields
// so matching is trim- and case-insensitive.
func foldText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeMatchType(mt MatchType) (MatchType, error) {
	switch mt {
	case "":
		return MatchExact, nil
	case MatchExact, MatchContains:
		return mt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMatchType, mt)
	}
}

// NewMerchantMatch builds a merchant condition. The pattern is trimmed and
// case-folded; an empty match type defaults to exact.
func NewMerchantMatch(pattern string, mt MatchType) (MerchantMatch, error) {
	p := foldText(pattern)
	if p == "" {
		return MerchantMatch{}, ErrEmptyPattern
	}
	t, err := normalizeMatchType(mt)
	if err != nil {
		return MerchantMatch{}, err
	}
	return MerchantMatch{Pattern: p, Type: t}, nil
}

// NewDescriptionMatch builds a description condition with the same
// normalization as NewMerchantMatch.
func NewDescriptionMatch(pattern string, mt MatchType) (DescriptionMatch, error) {
	p := foldText(pattern)
	if p == "" {
		return DescriptionMatch{}, ErrEmptyPattern
	}
	t, err := normalizeMatchType(mt)
	if err != nil {
		return DescriptionMatch{}, err
	}
	return DescriptionMatch{Pattern: p, Type: t}, nil
}

// NewAmountMatch builds an amount condition from positive cents.
func NewAmountMatch(cents int64) (AmountMatch, error) {
	if cents <= 0 {
		return AmountMatch{}, ErrInvalidAmount
	}
	return AmountMatch{Cents: cents}, nil
}

// Rule assigns a category to any transaction its Match accepts. Occurrences
// carries the supporting sample size for mined proposals; it stays zero for
// hand-written rules.
type Rule struct {
	ID          string
	CategoryID  string
	Match       Match
	Active      bool
	Occurrences int
}

// NewRule builds an active rule for the given category and condition.
func NewRule(categoryID string, m Match) (Rule, error) {
	cat := strings.TrimSpace(categoryID)
	if cat == "" {
		return Rule{}, ErrEmptyCategory
	}
	if m == nil {
		return Rule{}, ErrMissingMatch
	}
	return Rule{CategoryID: cat, Match: m, Active: true}, nil
}

// IsValidation reports whether err is one of the rule validation sentinels,
// letting HTTP handlers map bad input to 422 instead of 500.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyPattern) ||
		errors.Is(err, ErrInvalidMatchType) ||
		errors.Is(err, ErrInvalidMatchField) ||
		errors.Is(err, ErrMissingMatch) ||
		errors.Is(err, ErrEmptyCategory) ||
		errors.Is(err, ErrInvalidAmount)
}

// ruleWire is the flat JSON shape of a rule. Amounts travel as dollars.
type ruleWire struct {
	ID          string    `json:"id,omitempty"`
	CategoryID  string    `json:"categoryId"`
	MatchField  string    `json:"matchField"`
	MatchType   MatchType `json:"matchType,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	Amount      *float64  `json:"amount,omitempty"`
	IsActive    *bool     `json:"isActive,omitempty"`
	Occurrences int       `json:"occurrences,omitempty"`
}

// MarshalJSON flattens the sealed Match into the wire shape.
func (r Rule) MarshalJSON() ([]byte, error) {
	w := ruleWire{
		ID:          r.ID,
		CategoryID:  r.CategoryID,
		IsActive:    &r.Active,
		Occurrences: r.Occurrences,
	}
	switch m := r.Match.(type) {
	case MerchantMatch:
		w.MatchField = FieldMerchant
		w.MatchType = m.Type
		w.Pattern = m.Pattern
	case DescriptionMatch:
		w.MatchField = FieldDescription
		w.MatchType = m.Type
		w.Pattern = m.Pattern
	case AmountMatch:
		w.MatchField = FieldAmount
		amount := Dollars(m.Cents)
		w.Amount = &amount
	default:
		return nil, ErrMissingMatch
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire shape and normalizes through the
// constructors, so a decoded rule is always valid or an error.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var m Match
	switch w.MatchField {
	case FieldMerchant:
		mm, err := NewMerchantMatch(w.Pattern, w.MatchType)
		if err != nil {
			return err
		}
		m = mm
	case FieldDescription:
		dm, err := NewDescriptionMatch(w.Pattern, w.MatchType)
		if err != nil {
			return err
		}
		m = dm
	case FieldAmount:
		if w.Amount == nil {
			return ErrInvalidAmount
		}
		cents, err := CentsFromFloat(*w.Amount)
		if err != nil {
			return err
		}
		am, err := NewAmountMatch(cents)
		if err != nil {
			return err
		}
		m = am
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMatchField, w.MatchField)
	}
	rule, err := NewRule(w.CategoryID, m)
	if err != nil {
		return err
	}
	rule.ID = w.ID
	rule.Occurrences = w.Occurrences
	if w.IsActive != nil {
		rule.Active = *w.IsActive
	}
	*r = rule
	return nil
}
