package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mediastore/internal/models"
	"mediastore/internal/repositories"
	"mediastore/internal/services"
	"mediastore/internal/services/dto"
	"mediastore/internal/storage"
	"mediastore/internal/validator"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Upload{}))

	public, err := storage.NewLocalDriver(storage.Config{
		Name:     "public",
		Type:     "local",
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/static",
	})
	require.NoError(t, err)

	reg := &storage.Registry{}
	reg.Register(public)

	svc := services.NewStorageService(repositories.NewUploadRepository(db), reg, services.UploadDefaults{})

	base := NewBaseHandler(validator.New())
	router := gin.New()
	api := router.Group("/api/v1")
	NewUploadHandler(base, svc).RegisterRoutes(api)
	NewFileHandler(base, svc).RegisterRoutes(api)
	return router
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile(fileField, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, router *gin.Engine, ownerID string, fields map[string]string, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, "file", name, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Owner-ID", ownerID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadEndpointCreatesAndServes(t *testing.T) {
	router := newTestRouter(t)
	content := []byte("handler round trip")

	rec := doUpload(t, router, "owner-1", nil, "notes.txt", content)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "owner-1", resp.OwnerID)
	assert.Equal(t, "notes.txt", resp.OriginalName)
	assert.Equal(t, "document", resp.Category)
	assert.Equal(t, int64(len(content)), resp.SizeBytes)

	// serve it back, anonymously: the default visibility is public
	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+resp.ID, nil)
	serveRec := httptest.NewRecorder()
	router.ServeHTTP(serveRec, req)

	require.Equal(t, http.StatusOK, serveRec.Code)
	got, err := io.ReadAll(serveRec.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, "inline", serveRec.Header().Get("Content-Disposition"))
}

func TestUploadEndpointRequiresPrincipal(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, nil, "file", "notes.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadEndpointRejectsBadForm(t *testing.T) {
	router := newTestRouter(t)

	rec := doUpload(t, router, "owner-1", map[string]string{"visibility": "hidden"}, "notes.txt", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrivateFileRequiresOwner(t *testing.T) {
	router := newTestRouter(t)

	rec := doUpload(t, router, "owner-1", map[string]string{"visibility": "private"}, "secret.txt", []byte("classified"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// anonymous read is refused
	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+resp.ID, nil)
	anonRec := httptest.NewRecorder()
	router.ServeHTTP(anonRec, req)
	assert.Equal(t, http.StatusForbidden, anonRec.Code)

	// the owner reads it fine
	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/"+resp.ID, nil)
	req.Header.Set("X-Owner-ID", "owner-1")
	ownerRec := httptest.NewRecorder()
	router.ServeHTTP(ownerRec, req)
	assert.Equal(t, http.StatusOK, ownerRec.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doUpload(t, router, "owner-1", nil, "gone.txt", []byte("bye"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// a stranger cannot delete it
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/uploads/"+resp.ID, nil)
	req.Header.Set("X-Owner-ID", "intruder")
	strangerRec := httptest.NewRecorder()
	router.ServeHTTP(strangerRec, req)
	assert.Equal(t, http.StatusForbidden, strangerRec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/uploads/"+resp.ID, nil)
	req.Header.Set("X-Owner-ID", "owner-1")
	delRec := httptest.NewRecorder()
	router.ServeHTTP(delRec, req)
	assert.Equal(t, http.StatusOK, delRec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/"+resp.ID, nil)
	missRec := httptest.NewRecorder()
	router.ServeHTTP(missRec, req)
	assert.Equal(t, http.StatusNotFound, missRec.Code)
}

func TestVisibilityPatchEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doUpload(t, router, "owner-1", nil, "toggle.txt", []byte("flip"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "public", resp.Visibility)

	payload := bytes.NewBufferString(`{"visibility":"private"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/uploads/"+resp.ID+"/visibility", payload)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", "owner-1")
	patchRec := httptest.NewRecorder()
	router.ServeHTTP(patchRec, req)

	require.Equal(t, http.StatusOK, patchRec.Code, patchRec.Body.String())
	var patched dto.UploadResponse
	require.NoError(t, json.Unmarshal(patchRec.Body.Bytes(), &patched))
	assert.Equal(t, "private", patched.Visibility)
	assert.Empty(t, patched.PublicURL)
}

func TestSignedURLFallsBackToStreaming(t *testing.T) {
	router := newTestRouter(t)

	rec := doUpload(t, router, "owner-1", nil, "plain.txt", []byte("no signing here"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/"+resp.ID+"/signed-url", nil)
	req.Header.Set("X-Owner-ID", "owner-1")
	urlRec := httptest.NewRecorder()
	router.ServeHTTP(urlRec, req)

	require.Equal(t, http.StatusOK, urlRec.Code, urlRec.Body.String())
	var signed dto.TemporaryURLResponse
	require.NoError(t, json.Unmarshal(urlRec.Body.Bytes(), &signed))
	assert.False(t, signed.Signed)
	assert.Equal(t, "/api/v1/files/"+resp.ID, signed.URL)
	assert.Nil(t, signed.ExpiresAt)
}

func TestStorageUsageEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doUpload(t, router, "owner-1", nil, "counted.txt", []byte("12345"))
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/storage/usage", nil)
	req.Header.Set("X-Owner-ID", "owner-1")
	usageRec := httptest.NewRecorder()
	router.ServeHTTP(usageRec, req)

	require.Equal(t, http.StatusOK, usageRec.Code)
	var usage dto.StorageUsageResponse
	require.NoError(t, json.Unmarshal(usageRec.Body.Bytes(), &usage))
	assert.Equal(t, int64(5), usage.UsedBytes)
}
