package services

import (
	"context"
	"errors"
	"testing"

	"smartspend/internal/core"
	"smartspend/internal/ledger"
	"smartspend/internal/ledger/memory"
)

// failingWriter wraps a CategoryWriter and fails for chosen transactions.
type failingWriter struct {
	inner  ledger.CategoryWriter
	failOn map[string]bool
}

func (w *failingWriter) SetTransactionCategory(ctx context.Context, transactionID, categoryID string) error {
	if w.failOn[transactionID] {
		return errors.New("disk full")
	}
	return w.inner.SetTransactionCategory(ctx, transactionID, categoryID)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	events []string
	fail   bool
}

func (p *recordingPublisher) PublishCategoryChange(_ context.Context, transactionID, categoryID, ruleID, source string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, transactionID+":"+categoryID+":"+source)
	return nil
}

func seedStore(t *testing.T) (*memory.Store, []core.Transaction) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	var txs []core.Transaction
	for _, in := range []core.Transaction{
		{Merchant: "uber", Cents: -2100},
		{Merchant: "uber", Cents: -1800},
		{Merchant: "whole foods", Cents: -5600, CategoryID: "groceries"},
	} {
		tx, err := s.AddTransaction(ctx, in)
		if err != nil {
			t.Fatalf("AddTransaction() error = %v", err)
		}
		txs = append(txs, tx)
	}
	if _, err := s.CreateRule(ctx, core.Rule{
		CategoryID: "transportation",
		Match:      core.MerchantMatch{Pattern: "uber", Type: core.MatchContains},
		Active:     true,
	}); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	return s, txs
}

func TestRuleService_ApplyRules(t *testing.T) {
	ctx := context.Background()

	t.Run("updates uncategorized and publishes events", func(t *testing.T) {
		store, txs := seedStore(t)
		pub := &recordingPublisher{}
		svc := NewRuleService(store, store, store, pub)

		result, err := svc.ApplyRules(ctx, core.DefaultApplyOptions())
		if err != nil {
			t.Fatalf("ApplyRules() error = %v", err)
		}
		if result.UpdatedCount != 2 {
			t.Errorf("UpdatedCount = %d, want 2", result.UpdatedCount)
		}
		if len(result.Failures) != 0 {
			t.Errorf("Failures = %+v, want none", result.Failures)
		}
		if len(pub.events) != 2 {
			t.Errorf("published %d events, want 2", len(pub.events))
		}

		got, err := store.ListTransactions(ctx, ledger.TransactionFilter{IDs: []string{txs[0].ID}})
		if err != nil {
			t.Fatalf("ListTransactions() error = %v", err)
		}
		if got[0].CategoryID != "transportation" {
			t.Errorf("CategoryID = %q, want transportation", got[0].CategoryID)
		}
	})

	t.Run("second pass updates nothing", func(t *testing.T) {
		store, _ := seedStore(t)
		svc := NewRuleService(store, store, store, nil)

		if _, err := svc.ApplyRules(ctx, core.DefaultApplyOptions()); err != nil {
			t.Fatalf("first ApplyRules() error = %v", err)
		}
		second, err := svc.ApplyRules(ctx, core.DefaultApplyOptions())
		if err != nil {
			t.Fatalf("second ApplyRules() error = %v", err)
		}
		if second.UpdatedCount != 0 || len(second.Failures) != 0 {
			t.Errorf("second pass = %+v, want zero updates", second)
		}
	})

	t.Run("write failure is partial", func(t *testing.T) {
		store, txs := seedStore(t)
		writer := &failingWriter{inner: store, failOn: map[string]bool{txs[0].ID: true}}
		pub := &recordingPublisher{}
		svc := NewRuleService(store, writer, store, pub)

		result, err := svc.ApplyRules(ctx, core.DefaultApplyOptions())
		if err != nil {
			t.Fatalf("ApplyRules() error = %v", err)
		}
		if result.UpdatedCount != 1 {
			t.Errorf("UpdatedCount = %d, want 1", result.UpdatedCount)
		}
		if len(result.Failures) != 1 || result.Failures[0].TransactionID != txs[0].ID {
			t.Errorf("Failures = %+v, want failure for %s", result.Failures, txs[0].ID)
		}
		if len(pub.events) != 1 {
			t.Errorf("published %d events, want 1 for the successful write", len(pub.events))
		}
	})

	t.Run("publish failure does not fail the pass", func(t *testing.T) {
		store, _ := seedStore(t)
		svc := NewRuleService(store, store, store, &recordingPublisher{fail: true})

		result, err := svc.ApplyRules(ctx, core.DefaultApplyOptions())
		if err != nil {
			t.Fatalf("ApplyRules() error = %v", err)
		}
		if result.UpdatedCount != 2 {
			t.Errorf("UpdatedCount = %d, want 2", result.UpdatedCount)
		}
	})

	t.Run("subset limits the pass", func(t *testing.T) {
		store, txs := seedStore(t)
		svc := NewRuleService(store, store, store, nil)

		result, err := svc.ApplyRules(ctx, core.ApplyOptions{
			SkipCategorized: true,
			TransactionIDs:  []string{txs[1].ID},
		})
		if err != nil {
			t.Fatalf("ApplyRules() error = %v", err)
		}
		if result.UpdatedCount != 1 || result.UpdatedIDs[0] != txs[1].ID {
			t.Errorf("result = %+v, want only %s updated", result, txs[1].ID)
		}
	})
}

func TestRuleService_GenerateRules(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for i := 0; i < 3; i++ {
		if _, err := store.AddTransaction(ctx, core.Transaction{
			Merchant: "Netflix", Cents: -1599, CategoryID: "entertainment",
		}); err != nil {
			t.Fatalf("AddTransaction() error = %v", err)
		}
	}
	svc := NewRuleService(store, store, store, nil)

	proposals, err := svc.GenerateRules(ctx, core.DefaultMineOptions())
	if err != nil {
		t.Fatalf("GenerateRules() error = %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("GenerateRules() = %d proposals, want 1", len(proposals))
	}
	if proposals[0].CategoryID != "entertainment" || proposals[0].Occurrences != 3 {
		t.Errorf("proposal = %+v, want entertainment x3", proposals[0])
	}

	t.Run("proposals are not persisted", func(t *testing.T) {
		rules, err := store.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules() error = %v", err)
		}
		if len(rules) != 0 {
			t.Errorf("ListRules() = %+v, want no stored rules", rules)
		}
	})
}

func TestRuleService_CategorizeTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tx, err := store.AddTransaction(ctx, core.Transaction{Merchant: "uber", Cents: -2100})
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	pub := &recordingPublisher{}
	svc := NewRuleService(store, store, store, pub)

	if err := svc.CategorizeTransaction(ctx, tx.ID, "transportation"); err != nil {
		t.Fatalf("CategorizeTransaction() error = %v", err)
	}
	if len(pub.events) != 1 || pub.events[0] != tx.ID+":transportation:manual" {
		t.Errorf("events = %v, want one manual event", pub.events)
	}

	t.Run("missing transaction surfaces error", func(t *testing.T) {
		err := svc.CategorizeTransaction(ctx, "missing", "transportation")
		if !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("CategorizeTransaction() error = %v, want ErrNotFound", err)
		}
	})
}
