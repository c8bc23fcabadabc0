package core

import "time"

// Transaction is a single ledger entry. Cents is signed: negative for
// expenses, positive for income. CategoryID is empty while uncategorized.
type Transaction struct {
	ID          string
	Merchant    string
	Description string
	Cents       int64
	CategoryID  string
	Date        time.Time
}

// Magnitude returns the unsigned cent amount. Rule amounts always compare
// against the magnitude so a rule for 12.35 matches a -12.35 expense.
func (t Transaction) Magnitude() int64 {
	if t.Cents < 0 {
		return -t.Cents
	}
	return t.Cents
}

// Categorized reports whether the transaction already has a category.
func (t Transaction) Categorized() bool {
	return t.CategoryID != ""
}

// Category is one entry of the category taxonomy.
type Category struct {
	ID   string
	Name string
}
