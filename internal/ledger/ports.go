// Package ledger defines the outbound ports of the rule engine: narrow
// interfaces over transaction, rule, and category storage. The sqlite
// repository and the in-memory store implement them.
package ledger

import (
	"context"
	"errors"

	"smartspend/internal/core"
)

// ErrNotFound is returned when a referenced transaction, rule, or category
// does not exist.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows a transaction listing. Zero value lists all.
type TransactionFilter struct {
	// IDs limits the listing to the given transactions. Nil means all.
	IDs []string
	// Uncategorized limits the listing to transactions without a category.
	Uncategorized bool
}

type (
	TransactionReader interface {
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// CategoryWriter performs the single-row category write the bulk applier
	// relies on. Writing the category a row already has must succeed and
	// change nothing.
	CategoryWriter interface {
		SetTransactionCategory(ctx context.Context, transactionID, categoryID string) error
	}

	// RuleReader lists every stored rule, inactive ones included, in
	// creation order.
	RuleReader interface {
		ListRules(ctx context.Context) ([]core.Rule, error)
	}

	RuleWriter interface {
		CreateRule(ctx context.Context, r core.Rule) (core.Rule, error)
		SetRuleActive(ctx context.Context, ruleID string, active bool) error
		DeleteRule(ctx context.Context, ruleID string) error
	}

	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// Store is the full persistence surface the commands wire up.
	Store interface {
		TransactionReader
		TransactionWriter
		CategoryWriter
		RuleReader
		RuleWriter
		CategoryReader
	}
)
