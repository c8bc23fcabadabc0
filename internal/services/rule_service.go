// Package services orchestrates the rule engine over the ledger ports and
// the event stream.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"smartspend/internal/amqp"
	"smartspend/internal/core"
	"smartspend/internal/ledger"
)

// EventPublisher publishes category-change events. A nil publisher disables
// events; publish failures never fail the originating operation.
type EventPublisher interface {
	PublishCategoryChange(ctx context.Context, transactionID, categoryID, ruleID, source string) error
}

// WriteFailure records one transaction whose category write failed during a
// bulk apply pass.
type WriteFailure struct {
	TransactionID string `json:"transactionId"`
	Err           error  `json:"-"`
}

// ApplyResult summarizes a bulk apply pass. Failures never abort the pass;
// the remaining assignments are still attempted.
type ApplyResult struct {
	UpdatedCount int
	UpdatedIDs   []string
	Failures     []WriteFailure
}

// RuleService orchestrates rule application and mining across storage and
// the event stream.
type RuleService struct {
	txs    ledger.TransactionReader
	writer ledger.CategoryWriter
	rules  ledger.RuleReader
	events EventPublisher
}

func NewRuleService(txs ledger.TransactionReader, writer ledger.CategoryWriter, rules ledger.RuleReader, events EventPublisher) *RuleService {
	return &RuleService{
		txs:    txs,
		writer: writer,
		rules:  rules,
		events: events,
	}
}

// ApplyRules loads transactions and rules, plans assignments (first matching
// rule wins, in stored rule order), and performs one category write per
// assignment. A failed write is recorded and the pass continues.
func (s *RuleService) ApplyRules(ctx context.Context, opts core.ApplyOptions) (ApplyResult, error) {
	txs, err := s.txs.ListTransactions(ctx, ledger.TransactionFilter{IDs: opts.TransactionIDs})
	if err != nil {
		return ApplyResult{}, fmt.Errorf("load transactions: %w", err)
	}
	rules, err := s.rules.ListRules(ctx)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("load rules: %w", err)
	}

	plan := core.PlanAssignments(txs, rules, opts)

	var result ApplyResult
	for _, a := range plan {
		if err := s.writer.SetTransactionCategory(ctx, a.TransactionID, a.CategoryID); err != nil {
			slog.ErrorContext(ctx, "Failed to write category",
				"transaction_id", a.TransactionID,
				"category_id", a.CategoryID,
				"error", err)
			result.Failures = append(result.Failures, WriteFailure{TransactionID: a.TransactionID, Err: err})
			continue
		}
		result.UpdatedCount++
		result.UpdatedIDs = append(result.UpdatedIDs, a.TransactionID)
		s.publishCategoryChange(ctx, a.TransactionID, a.CategoryID, a.RuleID, amqp.SourceApply)
	}

	slog.InfoContext(ctx, "Applied rules",
		"planned", len(plan),
		"updated", result.UpdatedCount,
		"failed", len(result.Failures))
	return result, nil
}

// GenerateRules mines transaction history and returns rule proposals without
// persisting them.
func (s *RuleService) GenerateRules(ctx context.Context, opts core.MineOptions) ([]core.Rule, error) {
	txs, err := s.txs.ListTransactions(ctx, ledger.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	rules, err := s.rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	proposals := core.ProposeRules(txs, rules, opts)
	slog.InfoContext(ctx, "Mined rule proposals",
		"transactions", len(txs),
		"proposals", len(proposals))
	return proposals, nil
}

// CategorizeTransaction is the direct user edit. It writes the category and
// publishes a manual-source event.
func (s *RuleService) CategorizeTransaction(ctx context.Context, transactionID, categoryID string) error {
	if err := s.writer.SetTransactionCategory(ctx, transactionID, categoryID); err != nil {
		return fmt.Errorf("set category: %w", err)
	}
	s.publishCategoryChange(ctx, transactionID, categoryID, "", amqp.SourceManual)
	return nil
}

func (s *RuleService) publishCategoryChange(ctx context.Context, transactionID, categoryID, ruleID, source string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCategoryChange(ctx, transactionID, categoryID, ruleID, source); err != nil {
		slog.ErrorContext(ctx, "Failed to publish category change",
			"transaction_id", transactionID,
			"error", err)
		// Don't fail the request - the category is written locally
	}
}
