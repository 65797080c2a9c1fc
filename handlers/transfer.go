package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
	"github.com/mozillazg/go-unidecode"

	"scaletrack/models"
	"scaletrack/services/coordinator"
)

const maxImportBytes = 16 << 20

type transferService interface {
	Import(ctx context.Context, r io.Reader) error
	Export(ctx context.Context, w io.Writer) error
	SelectedUser(ctx context.Context) models.User
}

var _ transferService = (*coordinator.Coordinator)(nil)

// TransferHandler exposes CSV import and export.
type TransferHandler struct {
	service transferService
}

// NewTransferHandler creates a transfer handler.
func NewTransferHandler(s transferService) *TransferHandler {
	return &TransferHandler{service: s}
}

// Register mounts the transfer routes.
func (h *TransferHandler) Register(r *mux.Router) {
	r.HandleFunc("/import", h.Import).Methods(http.MethodPost)
	r.HandleFunc("/export", h.Export).Methods(http.MethodGet)
}

// Import stores an uploaded CSV file for the selected user.
// POST /api/import (multipart field "file")
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		jsonError(w, "Invalid multipart upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "Missing upload field 'file'", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		jsonError(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if mtype := mimetype.Detect(data); !mtype.Is("text/csv") && !mtype.Is("text/plain") && !strings.HasPrefix(mtype.String(), "text/") {
		jsonError(w, "Unsupported upload type "+mtype.String(), http.StatusUnsupportedMediaType)
		return
	}

	err = h.service.Import(r.Context(), bytes.NewReader(data))
	var importErr *coordinator.ImportError
	switch {
	case errors.As(err, &importErr):
		jsonError(w, importErr.Error(), http.StatusBadRequest)
	case errors.Is(err, coordinator.ErrNoSelectedUser):
		jsonError(w, "No user selected", http.StatusConflict)
	case err != nil:
		jsonError(w, "Import failed: "+err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Export downloads the selected user's measurements as CSV. The filename is
// an ASCII slug of the user's name.
// GET /api/export
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	selected := h.service.SelectedUser(r.Context())
	if selected.ID == models.NoUserID {
		jsonError(w, "No user selected", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(selected.Name)+`"`)

	if err := h.service.Export(r.Context(), w); err != nil {
		// Headers are gone; all that is left is logging upstream.
		return
	}
}

func exportFilename(userName string) string {
	slug := unidecode.Unidecode(userName)
	slug = strings.ToLower(strings.TrimSpace(slug))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)
	if slug == "" || strings.Trim(slug, "_") == "" {
		slug = "measurements"
	}
	return slug + ".csv"
}
