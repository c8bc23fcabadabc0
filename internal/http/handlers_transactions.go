package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"smartspend/internal/core"
	"smartspend/internal/ledger"
)

type transactionWire struct {
	ID          string  `json:"id"`
	Merchant    string  `json:"merchant"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	IsExpense   bool    `json:"isExpense"`
	CategoryID  string  `json:"categoryId,omitempty"`
	Date        string  `json:"date"`
}

func toWire(t core.Transaction) transactionWire {
	return transactionWire{
		ID:          t.ID,
		Merchant:    t.Merchant,
		Description: t.Description,
		Amount:      core.Dollars(t.Magnitude()),
		IsExpense:   t.Cents < 0,
		CategoryID:  t.CategoryID,
		Date:        t.Date.Format("2006-01-02"),
	}
}

// handleTransactions serves the transaction collection: GET lists, POST
// creates.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := ledger.TransactionFilter{
		Uncategorized: r.URL.Query().Get("uncategorized") == "true",
	}
	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "List transactions error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	out := make([]transactionWire, 0, len(txs))
	for _, t := range txs {
		out = append(out, toWire(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionWire
	if !readJSON(w, r, &req) {
		return
	}

	cents, err := core.SignedCents(req.Amount, req.IsExpense)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	date := time.Now()
	if v := strings.TrimSpace(req.Date); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, want YYYY-MM-DD")
			return
		}
		date = d
	}

	created, err := s.store.AddTransaction(r.Context(), core.Transaction{
		Merchant:    strings.TrimSpace(req.Merchant),
		Description: strings.TrimSpace(req.Description),
		Cents:       cents,
		CategoryID:  strings.TrimSpace(req.CategoryID),
		Date:        date,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "unknown category: "+req.CategoryID)
			return
		}
		slog.ErrorContext(r.Context(), "Create transaction error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}
	writeJSON(w, http.StatusCreated, toWire(created))
}

// handleCategorize is the direct user edit of one transaction's category.
func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req struct {
		ID         string `json:"id"`
		CategoryID string `json:"categoryId"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusUnprocessableEntity, "id is required")
		return
	}

	if err := s.rules.CategorizeTransaction(r.Context(), req.ID, strings.TrimSpace(req.CategoryID)); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction or category not found")
			return
		}
		slog.ErrorContext(r.Context(), "Categorize transaction error", "error", err, "transaction_id", req.ID)
		writeError(w, http.StatusInternalServerError, "failed to categorize transaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":         req.ID,
		"categoryId": req.CategoryID,
	})
}

// handleCategories serves the seeded taxonomy.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if cats, found := s.categoriesCache.Get(categoriesCacheKey); found {
		writeJSON(w, http.StatusOK, map[string]any{"categories": toCategoryWire(cats)})
		return
	}
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	s.categoriesCache.Set(categoriesCacheKey, cats)
	writeJSON(w, http.StatusOK, map[string]any{"categories": toCategoryWire(cats)})
}

type categoryWire struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toCategoryWire(cats []core.Category) []categoryWire {
	out := make([]categoryWire, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryWire{ID: c.ID, Name: c.Name})
	}
	return out
}
