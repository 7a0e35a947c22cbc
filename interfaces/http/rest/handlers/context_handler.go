package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"memoryd/application/services"
	"memoryd/pkg/auth"
)

// ContextHandler handles the calendar-day and conversation rollup endpoints
type ContextHandler struct {
	context *services.ContextService
	logger  *zap.Logger
}

// NewContextHandler creates a new context handler
func NewContextHandler(context *services.ContextService, logger *zap.Logger) *ContextHandler {
	return &ContextHandler{
		context: context,
		logger:  logger,
	}
}

// Daily handles GET /context/daily
func (h *ContextHandler) Daily(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	params := services.DailyParams{
		UserID:         userCtx.UserID,
		ThreadID:       r.URL.Query().Get("thread_id"),
		IncludeSummary: r.URL.Query().Get("summary") != "false",
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		params.Date = &date
	}

	daily, err := h.context.Daily(r.Context(), params)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, daily)
}

// Window handles GET /context/window
func (h *ContextHandler) Window(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	days := 7
	if v, set, ok := queryInt(r, "days"); !ok {
		respondError(w, http.StatusBadRequest, "Invalid days")
		return
	} else if set {
		days = v
	}

	window, err := h.context.Window(r.Context(), services.WindowParams{
		UserID:   userCtx.UserID,
		ThreadID: r.URL.Query().Get("thread_id"),
		Days:     days,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, window)
}

// Conversation handles GET /context/conversation
func (h *ContextHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	params := services.ConversationParams{
		UserID:   userCtx.UserID,
		ThreadID: r.URL.Query().Get("thread_id"),
	}
	if v, set, ok := queryInt(r, "hours"); !ok {
		respondError(w, http.StatusBadRequest, "Invalid hours")
		return
	} else if set {
		params.Hours = v
	}

	summary, err := h.context.ConversationSummary(r.Context(), params)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
