// Package worker holds the background consumer that turns category-change
// events into audit rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartspend/internal/amqp"
)

// AuditStore is the storage surface the worker needs.
type AuditStore interface {
	RecordCategoryChange(ctx context.Context, transactionID, categoryID, ruleID, source string, at time.Time) error
	PruneAudit(ctx context.Context, before time.Time) (int64, error)
}

// AuditWorker consumes category-change events into the audit trail and
// prunes entries past the retention window.
type AuditWorker struct {
	store     AuditStore
	retention time.Duration
}

func NewAuditWorker(store AuditStore, retention time.Duration) *AuditWorker {
	return &AuditWorker{
		store:     store,
		retention: retention,
	}
}

// HandleCategoryChange processes a single category-change message. An error
// requeues the delivery, so the write must be safe to retry.
func (w *AuditWorker) HandleCategoryChange(ctx context.Context, msg *amqp.CategoryChangeMessage) error {
	if msg.TransactionID == "" || msg.Source == "" {
		slog.WarnContext(ctx, "Dropping malformed category change",
			"transaction_id", msg.TransactionID,
			"source", msg.Source)
		return nil
	}

	at := msg.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	if err := w.store.RecordCategoryChange(ctx, msg.TransactionID, msg.CategoryID, msg.RuleID, msg.Source, at); err != nil {
		return fmt.Errorf("record category change: %w", err)
	}

	slog.InfoContext(ctx, "Recorded category change",
		"transaction_id", msg.TransactionID,
		"category_id", msg.CategoryID,
		"source", msg.Source)
	return nil
}

// PruneExpired removes audit rows older than the retention window.
func (w *AuditWorker) PruneExpired(ctx context.Context) error {
	if w.retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-w.retention)
	removed, err := w.store.PruneAudit(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune audit trail: %w", err)
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Pruned audit trail",
			"removed", removed,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
