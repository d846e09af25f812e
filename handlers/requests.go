package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"Mediarr/models"
	"Mediarr/services"
	"Mediarr/store"
)

// RequestHandlers is the LAN-facing admin surface the chat glue calls. It is
// read/administer only: request submission goes through the command layer,
// which talks to the managers first.
type RequestHandlers struct {
	Store      *store.RequestStore
	Tracker    *services.RequestTracker
	Submitter  *services.Submitter
	Automation *services.AutomationService
}

func (h *RequestHandlers) Routes(r *mux.Router) {
	r.HandleFunc("/api/requests", h.ListRequests).Methods(http.MethodGet)
	r.HandleFunc("/api/requests", h.SubmitRequest).Methods(http.MethodPost)
	r.HandleFunc("/api/requests/{id}", h.DeleteRequest).Methods(http.MethodDelete)
	r.HandleFunc("/api/requests/purge-notified", h.PurgeNotified).Methods(http.MethodPost)
	r.HandleFunc("/api/sweep", h.TriggerSweep).Methods(http.MethodPost)
}

// ListRequests returns every tracked request, or one user's with ?user_id=.
func (h *RequestHandlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	if userParam := r.URL.Query().Get("user_id"); userParam != "" {
		userID, err := strconv.ParseInt(userParam, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"requests": h.Store.ByUser(userID)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": h.Store.All()})
}

type submitPayload struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Year        int    `json:"year"`
	CatalogID   int    `json:"catalog_id"`
	ReleaseDate string `json:"release_date"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// SubmitRequest runs the full submission flow for one user request.
func (h *RequestHandlers) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, ok := models.ParseMediaKind(payload.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be movie or series")
		return
	}
	if payload.Title == "" || payload.CatalogID == 0 || payload.UserID == 0 {
		writeError(w, http.StatusBadRequest, "title, catalog_id and user_id are required")
		return
	}

	result, err := h.Submitter.Submit(r.Context(), services.Submission{
		Kind:        kind,
		Title:       payload.Title,
		Year:        payload.Year,
		CatalogID:   payload.CatalogID,
		ReleaseDate: payload.ReleaseDate,
		UserID:      payload.UserID,
		DisplayName: payload.DisplayName,
	})
	if err != nil {
		slog.Error("Failed to submit request", "title", payload.Title, "error", err)
		writeError(w, http.StatusBadGateway, "failed to submit request")
		return
	}

	status := http.StatusOK
	if result.Outcome == services.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{
		"outcome":       result.Outcome,
		"request":       result.Record,
		"release_count": result.ReleaseCount,
	})
}

// DeleteRequest removes a tracked request by id.
func (h *RequestHandlers) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	removed, err := h.Tracker.Remove(id)
	if err != nil {
		slog.Error("Failed to remove request", "request_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove request")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	slog.Info("Request removed via admin API", "request_id", id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": id})
}

// PurgeNotified removes every already-notified request.
func (h *RequestHandlers) PurgeNotified(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.RemoveNotified()
	if err != nil {
		slog.Error("Failed to purge notified requests", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to purge notified requests")
		return
	}
	slog.Info("Purged notified requests via admin API", "count", count)
	writeJSON(w, http.StatusOK, map[string]interface{}{"purged": count})
}

// TriggerSweep queues an immediate reconciliation sweep.
func (h *RequestHandlers) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	h.Automation.TriggerSweep()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "sweep queued"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
