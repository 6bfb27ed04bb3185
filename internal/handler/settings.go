package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/enum"
)

// SettingStore defines the database methods needed by settings handlers.
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (database.Setting, error)
	UpsertSetting(ctx context.Context, arg database.UpsertSettingParams) (database.Setting, error)
}

// SettingHandler manages persisted configuration flags (ADMIN only).
type SettingHandler struct {
	store SettingStore
}

func NewSettingHandler(store SettingStore) *SettingHandler {
	return &SettingHandler{store: store}
}

func (h *SettingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{key}", h.Get)
	r.Put("/{key}", h.Put)
}

// allowedSettings guards against arbitrary rows landing in the settings
// table through the API.
var allowedSettings = map[string]bool{
	enum.SettingQueuePayments: true,
}

// --- Request / Response types ---

type settingResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type putSettingRequest struct {
	Value string `json:"value"`
}

// --- Handlers ---

func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !allowedSettings[key] {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown setting"})
		return
	}

	setting, err := h.store.GetSetting(r.Context(), key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unset flags read as their zero value.
			writeJSON(w, http.StatusOK, settingResponse{Key: key, Value: ""})
			return
		}
		log.Printf("ERROR: get setting: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSettingResponse(setting))
}

func (h *SettingHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !allowedSettings[key] {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown setting"})
		return
	}

	var req putSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	setting, err := h.store.UpsertSetting(r.Context(), database.UpsertSettingParams{
		Key:   key,
		Value: req.Value,
	})
	if err != nil {
		log.Printf("ERROR: upsert setting: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSettingResponse(setting))
}

// --- Helper functions ---

func toSettingResponse(s database.Setting) settingResponse {
	return settingResponse{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt}
}
