package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"smartspend/internal/core"
	"smartspend/internal/ledger"
)

// handleRules serves the rule collection: GET lists, POST creates.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListRules(w, r)
	case http.MethodPost:
		s.handleCreateRule(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleRuleSubtree dispatches /api/rules/{apply|generate|id}.
func (s *Server) handleRuleSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/rules/")
	switch rest {
	case "apply":
		s.handleApplyRules(w, r)
	case "generate":
		s.handleGenerateRules(w, r)
	case "":
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.handleRuleByID(w, r, rest)
	}
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	if rules, found := s.rulesCache.Get(rulesCacheKey); found {
		writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
		return
	}
	rules, err := s.store.ListRules(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List rules error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	if rules == nil {
		rules = []core.Rule{}
	}
	s.rulesCache.Set(rulesCacheKey, rules)
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	var rule core.Rule
	if err := json.NewDecoder(body).Decode(&rule); err != nil {
		if core.IsValidation(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	rule.ID = "" // IDs are minted by the store

	created, err := s.store.CreateRule(r.Context(), rule)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "unknown category: "+rule.CategoryID)
			return
		}
		slog.ErrorContext(r.Context(), "Create rule error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}
	s.invalidateRules()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRuleByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		rules, err := s.store.ListRules(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List rules error", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load rule")
			return
		}
		for _, rule := range rules {
			if rule.ID == id {
				writeJSON(w, http.StatusOK, rule)
				return
			}
		}
		writeError(w, http.StatusNotFound, "rule not found")

	case http.MethodPatch:
		var req struct {
			IsActive *bool `json:"isActive"`
		}
		if !readJSON(w, r, &req) {
			return
		}
		if req.IsActive == nil {
			writeError(w, http.StatusUnprocessableEntity, "isActive is required")
			return
		}
		if err := s.store.SetRuleActive(r.Context(), id, *req.IsActive); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, http.StatusNotFound, "rule not found")
				return
			}
			slog.ErrorContext(r.Context(), "Update rule error", "error", err, "rule_id", id)
			writeError(w, http.StatusInternalServerError, "failed to update rule")
			return
		}
		s.invalidateRules()
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "isActive": *req.IsActive})

	case http.MethodDelete:
		if err := s.store.DeleteRule(r.Context(), id); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, http.StatusNotFound, "rule not found")
				return
			}
			slog.ErrorContext(r.Context(), "Delete rule error", "error", err, "rule_id", id)
			writeError(w, http.StatusInternalServerError, "failed to delete rule")
			return
		}
		s.invalidateRules()
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, "GET, PATCH, DELETE")
	}
}

func (s *Server) handleApplyRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req struct {
		TransactionIDs         []string `json:"transactionIds"`
		SkipExistingCategories *bool    `json:"skipExistingCategories"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	opts := core.ApplyOptions{
		SkipCategorized: true,
		TransactionIDs:  req.TransactionIDs,
	}
	if req.SkipExistingCategories != nil {
		opts.SkipCategorized = *req.SkipExistingCategories
	}

	result, err := s.rules.ApplyRules(r.Context(), opts)
	if err != nil {
		slog.ErrorContext(r.Context(), "Apply rules error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply rules")
		return
	}

	failures := make([]map[string]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, map[string]string{
			"transactionId": f.TransactionID,
			"error":         f.Err.Error(),
		})
	}
	updatedIDs := result.UpdatedIDs
	if updatedIDs == nil {
		updatedIDs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Applied rules to %d transactions", result.UpdatedCount),
		"updatedCount": result.UpdatedCount,
		"updatedIds":   updatedIDs,
		"failures":     failures,
	})
}

func (s *Server) handleGenerateRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req struct {
		MinOccurrences int   `json:"minOccurrences"`
		FindMerchants  *bool `json:"findMerchants"`
		FindAmounts    *bool `json:"findAmounts"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.MinOccurrences < 0 {
		writeError(w, http.StatusUnprocessableEntity, "minOccurrences must not be negative")
		return
	}

	opts := core.MineOptions{
		MinOccurrences: req.MinOccurrences,
		FindMerchants:  true,
	}
	if req.FindMerchants != nil {
		opts.FindMerchants = *req.FindMerchants
	}
	if req.FindAmounts != nil {
		opts.FindAmounts = *req.FindAmounts
	}

	proposals, err := s.rules.GenerateRules(r.Context(), opts)
	if err != nil {
		slog.ErrorContext(r.Context(), "Generate rules error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate rules")
		return
	}
	if proposals == nil {
		proposals = []core.Rule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Generated %d rule suggestions", len(proposals)),
		"createdRules": proposals,
	})
}
