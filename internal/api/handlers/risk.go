package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/tradegate/internal/audit"
	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/gate"
	"github.com/wonny/tradegate/internal/limits"
	"github.com/wonny/tradegate/internal/risk"
	"github.com/wonny/tradegate/pkg/logger"
)

// RiskHandler serves the gate's HTTP surface: evaluation, limits lookup and
// the decision trail
// ⭐ SSOT: 리스크 API 핸들러는 이 구조체에서만
type RiskHandler struct {
	gate           *gate.Gate
	limitsProvider contracts.LimitsProvider
	auditRepo      *audit.Repository // nil when running without Postgres
	logger         *logger.Logger
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(g *gate.Gate, limitsProvider contracts.LimitsProvider, auditRepo *audit.Repository, log *logger.Logger) *RiskHandler {
	return &RiskHandler{
		gate:           g,
		limitsProvider: limitsProvider,
		auditRepo:      auditRepo,
		logger:         log,
	}
}

// EvaluateRequest is the evaluation request body
type EvaluateRequest struct {
	WorkspaceID string            `json:"workspace_id"`
	Order       risk.OrderRequest `json:"order"`
}

// ============================================================
// Evaluation
// ============================================================

// Evaluate runs one proposed order through the gate.
// A denial is still HTTP 200: the evaluation succeeded, the answer is no.
// POST /api/risk/evaluate
func (h *RiskHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.WorkspaceID == "" {
		respondError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	result, err := h.gate.Evaluate(r.Context(), req.WorkspaceID, req.Order)
	if err != nil {
		var invalidErr *risk.InvalidInputError
		if errors.As(err, &invalidErr) {
			respondError(w, http.StatusBadRequest, invalidErr.Error())
			return
		}
		h.logger.WithError(err).Error("Evaluation failed")
		respondError(w, http.StatusInternalServerError, "Evaluation failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ============================================================
// Limits
// ============================================================

// GetLimits returns the effective risk limits for a workspace
// GET /api/risk/limits/{workspace}
func (h *RiskHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspace"]

	wsLimits, err := h.limitsProvider.GetLimits(r.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, limits.ErrNotFound) {
			respondError(w, http.StatusNotFound, "No risk limits configured for workspace")
			return
		}
		h.logger.WithError(err).Error("Failed to get risk limits")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve risk limits")
		return
	}

	respondJSON(w, http.StatusOK, wsLimits)
}

// ============================================================
// Decision Trail
// ============================================================

// GetDecisions returns the newest decision records for a workspace
// GET /api/risk/decisions?workspace=ws-1&limit=50
func (h *RiskHandler) GetDecisions(w http.ResponseWriter, r *http.Request) {
	if h.auditRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "Decision trail not configured")
		return
	}

	workspaceID := r.URL.Query().Get("workspace")
	if workspaceID == "" {
		respondError(w, http.StatusBadRequest, "workspace query parameter is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.auditRepo.GetRecent(r.Context(), workspaceID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get decision records")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve decision records")
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// GetStats aggregates decision outcomes for shadow-mode review
// GET /api/risk/stats?workspace=ws-1&from=2026-08-01&to=2026-08-25
func (h *RiskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.auditRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "Decision trail not configured")
		return
	}

	workspaceID := r.URL.Query().Get("workspace")
	if workspaceID == "" {
		respondError(w, http.StatusBadRequest, "workspace query parameter is required")
		return
	}

	// Default window: last 7 days
	to := time.Now()
	from := to.AddDate(0, 0, -7)

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
		to = t
	}

	stats, err := h.auditRepo.GetStats(r.Context(), workspaceID, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get decision stats")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve decision stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// ============================================================
// Response helpers
// ============================================================

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
