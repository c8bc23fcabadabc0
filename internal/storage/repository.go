// Package storage is the sqlite implementation of the ledger ports plus the
// category audit trail written by the worker.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartspend/internal/core"
	"smartspend/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const dateLayout = "2006-01-02"

// ListTransactions implements ledger.TransactionReader.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT id, merchant, description, amount_cents, category_id, occurred_on
	          FROM transactions`
	var conds []string
	var args []any
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return nil, nil
		}
		placeholders := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conds = append(conds, "id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.Uncategorized {
		conds = append(conds, "(category_id IS NULL OR category_id = '')")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var categoryID sql.NullString
		var occurredOn string
		if err := rows.Scan(&t.ID, &t.Merchant, &t.Description, &t.Cents, &categoryID, &occurredOn); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.CategoryID = categoryID.String
		if d, err := time.Parse(dateLayout, occurredOn); err == nil {
			t.Date = d
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// AddTransaction implements ledger.TransactionWriter.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	var categoryID sql.NullString
	if t.CategoryID != "" {
		categoryID = sql.NullString{String: t.CategoryID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, merchant, description, amount_cents, category_id, occurred_on)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Merchant, t.Description, t.Cents, categoryID, t.Date.Format(dateLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"merchant", t.Merchant,
		"amount_cents", t.Cents)
	return t, nil
}

// SetTransactionCategory implements ledger.CategoryWriter. Writing the
// category a row already has succeeds and changes nothing.
func (r *SQLiteRepository) SetTransactionCategory(ctx context.Context, transactionID, categoryID string) error {
	var value sql.NullString
	if categoryID != "" {
		value = sql.NullString{String: categoryID, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`, value, transactionID)
	if err != nil {
		return fmt.Errorf("set transaction category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set transaction category: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, ledger.ErrNotFound)
	}
	return nil
}

// ListRules implements ledger.RuleReader. Inactive rules are included;
// creation order is the application order.
func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.Rule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, match_field, match_type, pattern, amount_cents, is_active, occurrences
		 FROM rules ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []core.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return out, nil
}

func scanRule(rows *sql.Rows) (core.Rule, error) {
	var (
		rule       core.Rule
		matchField string
		matchType  sql.NullString
		pattern    sql.NullString
		cents      sql.NullInt64
		active     int64
	)
	if err := rows.Scan(&rule.ID, &rule.CategoryID, &matchField, &matchType, &pattern, &cents, &active, &rule.Occurrences); err != nil {
		return core.Rule{}, fmt.Errorf("scan rule: %w", err)
	}
	rule.Active = active != 0

	mt := core.MatchType(matchType.String)
	switch matchField {
	case core.FieldMerchant:
		rule.Match = core.MerchantMatch{Pattern: pattern.String, Type: mt}
	case core.FieldDescription:
		rule.Match = core.DescriptionMatch{Pattern: pattern.String, Type: mt}
	case core.FieldAmount:
		rule.Match = core.AmountMatch{Cents: cents.Int64}
	default:
		return core.Rule{}, fmt.Errorf("rule %s: %w: %q", rule.ID, core.ErrInvalidMatchField, matchField)
	}
	return rule, nil
}

// CreateRule implements ledger.RuleWriter.
func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.Rule) (core.Rule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	var (
		matchType sql.NullString
		pattern   sql.NullString
		cents     sql.NullInt64
	)
	matchField := rule.Match.Field()
	switch m := rule.Match.(type) {
	case core.MerchantMatch:
		matchType = sql.NullString{String: string(m.Type), Valid: true}
		pattern = sql.NullString{String: m.Pattern, Valid: true}
	case core.DescriptionMatch:
		matchType = sql.NullString{String: string(m.Type), Valid: true}
		pattern = sql.NullString{String: m.Pattern, Valid: true}
	case core.AmountMatch:
		matchType = sql.NullString{String: string(core.MatchExact), Valid: true}
		cents = sql.NullInt64{Int64: m.Cents, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rules (id, category_id, match_field, match_type, pattern, amount_cents, is_active, occurrences)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.CategoryID, matchField, matchType, pattern, cents, boolToInt(rule.Active), rule.Occurrences)
	if err != nil {
		return core.Rule{}, fmt.Errorf("insert rule: %w", err)
	}

	slog.InfoContext(ctx, "Rule saved",
		"id", rule.ID,
		"category_id", rule.CategoryID,
		"match_field", matchField)
	return rule, nil
}

// SetRuleActive implements ledger.RuleWriter.
func (r *SQLiteRepository) SetRuleActive(ctx context.Context, ruleID string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rules SET is_active = ? WHERE id = ?`, boolToInt(active), ruleID)
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, ledger.ErrNotFound)
	}
	return nil
}

// DeleteRule implements ledger.RuleWriter.
func (r *SQLiteRepository) DeleteRule(ctx context.Context, ruleID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, ledger.ErrNotFound)
	}
	return nil
}

// ListCategories implements ledger.CategoryReader.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// RecordCategoryChange appends one audit row. ruleID is empty for manual
// edits.
func (r *SQLiteRepository) RecordCategoryChange(ctx context.Context, transactionID, categoryID, ruleID, source string, at time.Time) error {
	var rule sql.NullString
	if ruleID != "" {
		rule = sql.NullString{String: ruleID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO category_audit (transaction_id, category_id, rule_id, source, changed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		transactionID, categoryID, rule, source, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record category change: %w", err)
	}
	return nil
}

// PruneAudit deletes audit rows older than the cutoff and reports how many
// were removed.
func (r *SQLiteRepository) PruneAudit(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM category_audit WHERE changed_at < ?`, before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("prune audit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune audit: %w", err)
	}
	return affected, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

var _ ledger.Store = (*SQLiteRepository)(nil)
