// Package memory is an in-memory ledger.Store used for local development and
// as the test double for handlers and services.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"smartspend/internal/core"
	"smartspend/internal/ledger"
)

// DefaultCategories is the seed taxonomy, matching the sqlite migration seed.
var DefaultCategories = []core.Category{
	{ID: "groceries", Name: "Groceries"},
	{ID: "dining", Name: "Dining"},
	{ID: "transportation", Name: "Transportation"},
	{ID: "utilities", Name: "Utilities"},
	{ID: "entertainment", Name: "Entertainment"},
	{ID: "shopping", Name: "Shopping"},
	{ID: "housing", Name: "Housing"},
	{ID: "income", Name: "Income"},
	{ID: "uncategorized", Name: "Uncategorized"},
}

type Store struct {
	mu    sync.Mutex
	cats  []core.Category
	txs   []core.Transaction
	rules []core.Rule
}

// New returns a store seeded with the default taxonomy.
func New() *Store {
	return NewWithCategories(DefaultCategories)
}

// NewWithCategories returns a store seeded with the given taxonomy.
func NewWithCategories(cats []core.Category) *Store {
	s := &Store{}
	seen := map[string]struct{}{}
	for _, c := range cats {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		s.cats = append(s.cats, core.Category{ID: id, Name: c.Name})
	}
	return s
}

func (s *Store) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var subset map[string]bool
	if f.IDs != nil {
		subset = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			subset[id] = true
		}
	}
	var out []core.Transaction
	for _, t := range s.txs {
		if subset != nil && !subset[t.ID] {
			continue
		}
		if f.Uncategorized && t.Categorized() {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CategoryID != "" && !s.hasCategory(t.CategoryID) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) SetTransactionCategory(_ context.Context, transactionID, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if categoryID != "" && !s.hasCategory(categoryID) {
		return ledger.ErrNotFound
	}
	for i := range s.txs {
		if s.txs[i].ID == transactionID {
			s.txs[i].CategoryID = categoryID
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) ListRules(_ context.Context) ([]core.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Rule(nil), s.rules...), nil
}

func (s *Store) CreateRule(_ context.Context, r core.Rule) (core.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCategory(r.CategoryID) {
		return core.Rule{}, ledger.ErrNotFound
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.rules = append(s.rules, r)
	return r, nil
}

func (s *Store) SetRuleActive(_ context.Context, ruleID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].ID == ruleID {
			s.rules[i].Active = active
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) DeleteRule(_ context.Context, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rules {
		if s.rules[i].ID == ruleID {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) hasCategory(id string) bool {
	for _, c := range s.cats {
		if c.ID == id {
			return true
		}
	}
	return false
}
