package serving

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
	"github.com/CS-UWC/OralSmart-sub001/pkg/observability/metrics"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/risk/assess", h.handleAssess).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/risk/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/patients/{id}/risk", h.handlePatientRisk).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/predictions", h.handleRecent).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/model", h.handleModel).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/model/reload", h.handleReload).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/features", h.handleFeatures).Methods(http.MethodGet)
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		metrics.ObserveMalformedInput()
		logger.Log.WithError(err).Warn("invalid risk payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *HTTPHandler) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.Assess(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.service.PredictFeatures(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handlePatientRisk(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var t Thresholds
	q := r.URL.Query()
	for key, dst := range map[string]**float64{"min_dmft": &t.MinDMFT, "risk_threshold": &t.RiskThreshold} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "invalid "+key, http.StatusBadRequest)
			return
		}
		*dst = &f
	}
	resp, err := h.service.PatientRisk(r.Context(), id, t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *HTTPHandler) handleModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ModelStatus())
}

func (h *HTTPHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ReloadModel())
}

func (h *HTTPHandler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":  features.SchemaVersion,
		"features": features.Names(),
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		metrics.ObserveMalformedInput()
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrPatientNotFound):
		http.Error(w, "patient assessment not found", http.StatusNotFound)
	case errors.Is(err, ErrLogsDisabled):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Log.WithError(err).Error("risk request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
