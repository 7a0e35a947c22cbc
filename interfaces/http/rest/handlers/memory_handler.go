package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"memoryd/application/services"
	"memoryd/domain/memory"
	"memoryd/pkg/auth"
	"memoryd/pkg/utils"
)

// MemoryHandler handles the append, query, search, and retention endpoints
type MemoryHandler struct {
	memory  *services.MemoryService
	insight *services.InsightService
	logger  *zap.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(
	memory *services.MemoryService,
	insight *services.InsightService,
	logger *zap.Logger,
) *MemoryHandler {
	return &MemoryHandler{
		memory:  memory,
		insight: insight,
		logger:  logger,
	}
}

// StoreMemoryRequest represents the request body for storing a memory
type StoreMemoryRequest struct {
	Content    string                 `json:"content" validate:"required"`
	Role       string                 `json:"role,omitempty" validate:"omitempty,oneof=user assistant system"`
	ThreadID   string                 `json:"thread_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Tags       []string               `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=100"`
	Importance *float64               `json:"importance,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// StoreImportantRequest represents the request body for the high-importance
// shortcut
type StoreImportantRequest struct {
	Content  string                 `json:"content" validate:"required"`
	Category string                 `json:"category" validate:"required,max=100"`
	ThreadID string                 `json:"thread_id,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Store handles POST /memory
func (h *MemoryHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req StoreMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	entry, err := h.memory.Store(r.Context(), memory.NewEntryParams{
		UserID:     userCtx.UserID,
		ThreadID:   req.ThreadID,
		Content:    req.Content,
		Role:       memory.Role(req.Role),
		Metadata:   req.Metadata,
		Tags:       req.Tags,
		Importance: req.Importance,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// StoreImportant handles POST /memory/important
func (h *MemoryHandler) StoreImportant(w http.ResponseWriter, r *http.Request) {
	var req StoreImportantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	entry, err := h.memory.StoreImportant(r.Context(), services.StoreImportantParams{
		UserID:   userCtx.UserID,
		Content:  req.Content,
		Category: req.Category,
		ThreadID: req.ThreadID,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// Query handles GET /memory
func (h *MemoryHandler) Query(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := memory.Query{
		UserID:   userCtx.UserID,
		ThreadID: r.URL.Query().Get("thread_id"),
		Role:     memory.Role(r.URL.Query().Get("role")),
	}
	if v, set, ok := queryFloat(r, "start_time"); !ok {
		respondError(w, http.StatusBadRequest, "Invalid start_time")
		return
	} else if set {
		q.StartTime = &v
	}
	if v, set, ok := queryFloat(r, "end_time"); !ok {
		respondError(w, http.StatusBadRequest, "Invalid end_time")
		return
	} else if set {
		q.EndTime = &v
	}
	if v, set, ok := queryFloat(r, "min_importance"); !ok {
		respondError(w, http.StatusBadRequest, "Invalid min_importance")
		return
	} else if set {
		q.MinImportance = &v
	}
	if v, set, ok := queryInt(r, "limit"); !ok || (set && v <= 0) {
		respondError(w, http.StatusBadRequest, "Invalid limit")
		return
	} else if set {
		q.Limit = v
	}
	if tags := r.URL.Query().Get("tags"); tags != "" {
		q.Tags = strings.Split(tags, ",")
	}

	entries, err := h.memory.Query(r.Context(), q)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"memories": entries,
		"count":    len(entries),
	})
}

// Search handles GET /memory/search
func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	params := services.SearchParams{
		UserID:   userCtx.UserID,
		Query:    r.URL.Query().Get("q"),
		ThreadID: r.URL.Query().Get("thread_id"),
	}
	if v, set, ok := queryInt(r, "days"); !ok {
		respondError(w, http.StatusBadRequest, "Invalid days")
		return
	} else if set {
		params.Days = &v
	}
	if v, set, ok := queryInt(r, "limit"); !ok || (set && v <= 0) {
		respondError(w, http.StatusBadRequest, "Invalid limit")
		return
	} else if set {
		params.Limit = v
	}

	entries, err := h.insight.Search(r.Context(), params)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":    params.Query,
		"memories": entries,
		"count":    len(entries),
	})
}

// Clear handles DELETE /memory
func (h *MemoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	params := services.ClearParams{
		UserID:   userCtx.UserID,
		ThreadID: r.URL.Query().Get("thread_id"),
	}
	if v, set, ok := queryInt(r, "older_than_days"); !ok {
		respondError(w, http.StatusBadRequest, "Invalid older_than_days")
		return
	} else if set {
		params.OlderThanDays = &v
	}

	removed, err := h.memory.Clear(r.Context(), params)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
	})
}
