package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"scaletrack/handlers"
	"scaletrack/models"
	"scaletrack/services/coordinator"
)

type stubTransferService struct {
	selected  models.User
	importErr error
	imported  []byte
	exportCSV string
}

func (s *stubTransferService) Import(_ context.Context, r io.Reader) error {
	if s.importErr != nil {
		return s.importErr
	}
	s.imported, _ = io.ReadAll(r)
	return nil
}

func (s *stubTransferService) Export(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, s.exportCSV)
	return err
}

func (s *stubTransferService) SelectedUser(_ context.Context) models.User { return s.selected }

func newTransferRouter(s *stubTransferService) *mux.Router {
	r := mux.NewRouter()
	handlers.NewTransferHandler(s).Register(r)
	return r
}

func uploadRequest(t *testing.T, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "measurements.csv")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportAcceptsCSVUpload(t *testing.T) {
	s := &stubTransferService{}
	router := newTransferRouter(s)

	csv := []byte("31.10.2014 05:23,70.5,18.2,55,40.1,60,3.2,80,95,\n")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", csv))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, csv, s.imported)
}

func TestImportMissingFileField(t *testing.T) {
	router := newTransferRouter(&stubTransferService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "wrong", []byte("x\n")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportRejectsBinaryUpload(t *testing.T) {
	router := newTransferRouter(&stubTransferService{})

	// PNG magic bytes.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0}))
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestImportParseFailureIs400WithLine(t *testing.T) {
	s := &stubTransferService{importErr: &coordinator.ImportError{Line: 2, Err: coordinator.ErrBadColumnCount}}
	router := newTransferRouter(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", []byte("a,b\n")))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "line 2")
}

func TestImportWithoutSelectionConflicts(t *testing.T) {
	s := &stubTransferService{importErr: coordinator.ErrNoSelectedUser}
	router := newTransferRouter(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", []byte("31.10.2014 05:23,70,0,0,0,0,0,0,0,\n")))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportWithoutSelectionConflicts(t *testing.T) {
	router := newTransferRouter(&stubTransferService{selected: models.User{ID: models.NoUserID}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportSetsDownloadHeaders(t *testing.T) {
	s := &stubTransferService{
		selected:  models.User{ID: 1, Name: "Åsa Öberg"},
		exportCSV: "31.10.2014 05:23,70.5,18.2,55,40.1,60,3.2,80,95,\n",
	}
	router := newTransferRouter(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="asa_oberg.csv"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, s.exportCSV, rec.Body.String())
}

func TestExportFilenameFallsBackForUnmappableNames(t *testing.T) {
	s := &stubTransferService{selected: models.User{ID: 1, Name: "!!!"}}
	router := newTransferRouter(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	require.Equal(t, `attachment; filename="measurements.csv"`, rec.Header().Get("Content-Disposition"))
}
