package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"scaletrack/internal/database"
	"scaletrack/models"
	"scaletrack/services/coordinator"
)

type measurementService interface {
	Measurements() []models.Measurement
	AddMeasurement(ctx context.Context, m models.Measurement) (int64, error)
	UpdateMeasurement(ctx context.Context, m models.Measurement) error
	DeleteMeasurement(ctx context.Context, id int64) error
	ClearMeasurements(ctx context.Context, userID int64) error
	Tuple(ctx context.Context, id int64) ([3]*models.Measurement, error)
	CountsOfMonth(ctx context.Context, year int) ([12]int, error)
	OfMonth(ctx context.Context, year int, month time.Month) ([]models.Measurement, error)
	OfYear(ctx context.Context, year int) ([]models.Measurement, error)
	SelectedUser(ctx context.Context) models.User
}

var _ measurementService = (*coordinator.Coordinator)(nil)

// MeasurementsHandler exposes the measurement surface of the coordinator.
type MeasurementsHandler struct {
	service measurementService
}

// NewMeasurementsHandler creates a measurements handler.
func NewMeasurementsHandler(s measurementService) *MeasurementsHandler {
	return &MeasurementsHandler{service: s}
}

// Register mounts the measurement routes.
func (h *MeasurementsHandler) Register(r *mux.Router) {
	r.HandleFunc("/measurements", h.List).Methods(http.MethodGet)
	r.HandleFunc("/measurements", h.Add).Methods(http.MethodPost)
	r.HandleFunc("/measurements", h.Clear).Methods(http.MethodDelete)
	r.HandleFunc("/measurements/months", h.CountsOfMonth).Methods(http.MethodGet)
	r.HandleFunc("/measurements/range", h.Range).Methods(http.MethodGet)
	r.HandleFunc("/measurements/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/measurements/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/measurements/{id:[0-9]+}/tuple", h.Tuple).Methods(http.MethodGet)
}

// List returns the selected user's cached measurement list, newest first.
// GET /api/measurements
func (h *MeasurementsHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.service.Measurements()
	if list == nil {
		list = []models.Measurement{}
	}
	jsonResponse(w, list, http.StatusOK)
}

type addMeasurementRequest struct {
	UserID     *int64    `json:"userId"`
	MeasuredAt time.Time `json:"measuredAt"`
	Weight     float32   `json:"weight"`
	Fat        float32   `json:"fat"`
	Water      float32   `json:"water"`
	Muscle     float32   `json:"muscle"`
	LBW        float32   `json:"lbw"`
	Bone       float32   `json:"bone"`
	Waist      float32   `json:"waist"`
	Hip        float32   `json:"hip"`
	Comment    string    `json:"comment"`
}

// Add runs one reading through the ingestion pipeline. A missing userId
// leaves the reading unassigned so the assignment heuristic can run.
// POST /api/measurements
func (h *MeasurementsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addMeasurementRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		jsonError(w, "Invalid measurement payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.MeasuredAt.IsZero() {
		jsonError(w, "measuredAt is required", http.StatusBadRequest)
		return
	}

	m := models.Measurement{
		UserID:     models.NoUserID,
		MeasuredAt: req.MeasuredAt.UTC(),
		Weight:     req.Weight,
		Fat:        req.Fat,
		Water:      req.Water,
		Muscle:     req.Muscle,
		LBW:        req.LBW,
		Bone:       req.Bone,
		Waist:      req.Waist,
		Hip:        req.Hip,
		Comment:    req.Comment,
	}
	if req.UserID != nil {
		m.UserID = *req.UserID
	}

	userID, err := h.service.AddMeasurement(r.Context(), m)
	if errors.Is(err, coordinator.ErrAssignmentRejected) {
		jsonError(w, "No user could be resolved for the reading", http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		jsonError(w, "Failed to store measurement: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]int64{"userId": userID}, http.StatusCreated)
}

// Update rewrites a measurement in place.
// PUT /api/measurements/{id}
func (h *MeasurementsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, "Invalid measurement id", http.StatusBadRequest)
		return
	}

	var m models.Measurement
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		jsonError(w, "Invalid measurement payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	m.ID = id

	if err := h.service.UpdateMeasurement(r.Context(), m); err != nil {
		jsonError(w, "Failed to update measurement: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes one measurement.
// DELETE /api/measurements/{id}
func (h *MeasurementsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, "Invalid measurement id", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteMeasurement(r.Context(), id); err != nil {
		jsonError(w, "Failed to delete measurement: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear removes every measurement of the selected user.
// DELETE /api/measurements
func (h *MeasurementsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	selected := h.service.SelectedUser(r.Context())
	if selected.ID == models.NoUserID {
		jsonError(w, "No user selected", http.StatusConflict)
		return
	}
	if err := h.service.ClearMeasurements(r.Context(), selected.ID); err != nil {
		jsonError(w, "Failed to clear measurements: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tuple returns the previous/current/next measurements around an id.
// GET /api/measurements/{id}/tuple
func (h *MeasurementsHandler) Tuple(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, "Invalid measurement id", http.StatusBadRequest)
		return
	}

	tuple, err := h.service.Tuple(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, "Measurement not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "Failed to load measurement tuple: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]*models.Measurement{
		"previous": tuple[0],
		"current":  tuple[1],
		"next":     tuple[2],
	}, http.StatusOK)
}

// CountsOfMonth returns per-month measurement counts of one year.
// GET /api/measurements/months?year=2014
func (h *MeasurementsHandler) CountsOfMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		jsonError(w, "Invalid or missing year", http.StatusBadRequest)
		return
	}
	counts, err := h.service.CountsOfMonth(r.Context(), year)
	if err != nil {
		jsonError(w, "Failed to count measurements: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, counts, http.StatusOK)
}

// Range returns the selected user's measurements of one month, or of a whole
// year when the month parameter is omitted.
// GET /api/measurements/range?year=2014&month=10
func (h *MeasurementsHandler) Range(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		jsonError(w, "Invalid or missing year", http.StatusBadRequest)
		return
	}

	var list []models.Measurement
	if monthParam := r.URL.Query().Get("month"); monthParam != "" {
		month, err := strconv.Atoi(monthParam)
		if err != nil || month < 1 || month > 12 {
			jsonError(w, "Invalid month", http.StatusBadRequest)
			return
		}
		list, err = h.service.OfMonth(r.Context(), year, time.Month(month))
		if err != nil {
			jsonError(w, "Failed to load measurements: "+err.Error(), http.StatusInternalServerError)
			return
		}
	} else {
		list, err = h.service.OfYear(r.Context(), year)
		if err != nil {
			jsonError(w, "Failed to load measurements: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if list == nil {
		list = []models.Measurement{}
	}
	jsonResponse(w, list, http.StatusOK)
}
