package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"scaletrack/internal/database"
	"scaletrack/models"
	"scaletrack/services/coordinator"
)

type userService interface {
	Users(ctx context.Context) ([]models.User, error)
	User(ctx context.Context, id int64) (*models.User, error)
	AddUser(ctx context.Context, u models.User) (*models.User, error)
	UpdateUser(ctx context.Context, u models.User) error
	DeleteUser(ctx context.Context, id int64) error
	SelectedUser(ctx context.Context) models.User
	SelectUser(ctx context.Context, id int64) error
}

var _ userService = (*coordinator.Coordinator)(nil)

// UsersHandler exposes profile management and the selected-user setting.
type UsersHandler struct {
	service userService
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(s userService) *UsersHandler {
	return &UsersHandler{service: s}
}

// Register mounts the user routes.
func (h *UsersHandler) Register(r *mux.Router) {
	r.HandleFunc("/users", h.List).Methods(http.MethodGet)
	r.HandleFunc("/users", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/users/selected", h.Selected).Methods(http.MethodGet)
	r.HandleFunc("/users/selected", h.Select).Methods(http.MethodPut)
	r.HandleFunc("/users/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/users/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

// List returns every profile.
// GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	if err != nil {
		jsonError(w, "Failed to list users: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	jsonResponse(w, users, http.StatusOK)
}

// Create stores a new profile.
// POST /api/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var u models.User
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		jsonError(w, "Invalid user payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(u.Name) == "" {
		jsonError(w, "User name is required", http.StatusBadRequest)
		return
	}

	created, err := h.service.AddUser(r.Context(), u)
	if err != nil {
		jsonError(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, created, http.StatusCreated)
}

// Get returns one profile.
// GET /api/users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	user, err := h.service.User(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "Failed to load user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, user, http.StatusOK)
}

// Update rewrites a profile.
// PUT /api/users/{id}
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	var u models.User
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		jsonError(w, "Invalid user payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	u.ID = id

	if err := h.service.UpdateUser(r.Context(), u); err != nil {
		jsonError(w, "Failed to update user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a profile and its measurements.
// DELETE /api/users/{id}
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		jsonError(w, "Failed to delete user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Selected returns the selected profile, or id -1 when none is selected.
// GET /api/users/selected
func (h *UsersHandler) Selected(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.service.SelectedUser(r.Context()), http.StatusOK)
}

// Select sets (or clears, with id -1) the selected user.
// PUT /api/users/selected
func (h *UsersHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID int64 `json:"id"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		jsonError(w, "Invalid selection payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.service.SelectUser(r.Context(), req.ID)
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "Failed to select user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
