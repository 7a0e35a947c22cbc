package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"memoryd/application/services"
	"memoryd/pkg/auth"
)

// InsightHandler handles the long-term analysis endpoints
type InsightHandler struct {
	insight *services.InsightService
	logger  *zap.Logger
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(insight *services.InsightService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{
		insight: insight,
		logger:  logger,
	}
}

// Summary handles GET /insights/summary
func (h *InsightHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	params := services.SummaryParams{
		UserID:   userCtx.UserID,
		ThreadID: r.URL.Query().Get("thread_id"),
	}
	if v, set, ok := queryInt(r, "days"); !ok {
		respondError(w, http.StatusBadRequest, "Invalid days")
		return
	} else if set {
		params.Days = v
	}

	summary, err := h.insight.LongTermSummary(r.Context(), params)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Profile handles GET /insights/profile
func (h *InsightHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	includeRecent := r.URL.Query().Get("recent") != "false"

	profile, err := h.insight.UserProfile(r.Context(), userCtx.UserID, includeRecent)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
