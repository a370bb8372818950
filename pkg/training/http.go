package training

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/selection"
)

type Handler struct {
	service *Service
	maxBody int64
}

func NewHandler(service *Service, maxBody int64) *Handler {
	return &Handler{service: service, maxBody: maxBody}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/training/jobs", h.handleCreateJob).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/training/jobs", h.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/training/jobs/{id}", h.handleGetJob).Methods(http.MethodGet)
}

func (h *Handler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	var req CreateJobInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	job, err := h.service.Create(r.Context(), req)
	switch {
	case errors.Is(err, ErrNoDataset), errors.Is(err, ErrDatasetPath), errors.Is(err, selection.ErrUnknownStrategy):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		logger.Log.WithError(err).Error("failed to create training job")
		http.Error(w, "failed to create training job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job": job})
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	jobs, err := h.service.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list training jobs")
		http.Error(w, "failed to list training jobs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": jobs})
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	job, err := h.service.Get(r.Context(), id)
	if errors.Is(err, ErrJobNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get training job")
		http.Error(w, "failed to get training job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"job": job})
}

func parseLimit(r *http.Request, fallback int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}
