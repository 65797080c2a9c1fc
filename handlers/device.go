package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"scaletrack/services/coordinator"
	"scaletrack/services/device"
)

type deviceService interface {
	StartSearch(name string) bool
	StopSearch()
	DeviceState() (device.State, string)
}

var _ deviceService = (*coordinator.Coordinator)(nil)

// DeviceHandler exposes the device discovery state machine.
type DeviceHandler struct {
	service deviceService
}

// NewDeviceHandler creates a device handler.
func NewDeviceHandler(s deviceService) *DeviceHandler {
	return &DeviceHandler{service: s}
}

// Register mounts the device routes.
func (h *DeviceHandler) Register(r *mux.Router) {
	r.HandleFunc("/device/search", h.Start).Methods(http.MethodPost)
	r.HandleFunc("/device/search", h.Stop).Methods(http.MethodDelete)
	r.HandleFunc("/device", h.State).Methods(http.MethodGet)
}

// Start binds the first supported device family that recognizes the name.
// POST /api/device/search
func (h *DeviceHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		jsonError(w, "Invalid search payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		jsonError(w, "Device name is required", http.StatusBadRequest)
		return
	}

	if !h.service.StartSearch(req.Name) {
		jsonError(w, "Device not recognized: "+req.Name, http.StatusNotFound)
		return
	}

	state, name := h.service.DeviceState()
	jsonResponse(w, map[string]string{"state": state.String(), "name": name}, http.StatusOK)
}

// Stop ends a running search. Always succeeds, searching or not.
// DELETE /api/device/search
func (h *DeviceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.service.StopSearch()
	w.WriteHeader(http.StatusNoContent)
}

// State reports the discovery state and the bound device name.
// GET /api/device
func (h *DeviceHandler) State(w http.ResponseWriter, r *http.Request) {
	state, name := h.service.DeviceState()
	jsonResponse(w, map[string]string{"state": state.String(), "name": name}, http.StatusOK)
}
