package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mediastore/internal/filetype"
	"mediastore/internal/middleware"
	"mediastore/internal/models"
	"mediastore/internal/services"
	"mediastore/internal/services/dto"
	"mediastore/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	*BaseHandler
	storageService services.StorageService
}

func NewFileHandler(base *BaseHandler, storageService services.StorageService) *FileHandler {
	return &FileHandler{
		BaseHandler:    base,
		storageService: storageService,
	}
}

func (h *FileHandler) RegisterRoutes(r *gin.RouterGroup) {
	files := r.Group("/files")
	files.Use(middleware.OptionalPrincipalMiddleware())
	{
		// Public file serving
		files.GET("/:uploadId", h.ServeFile)
		files.GET("/:uploadId/thumb/:size", h.ServeThumbnail)
		files.HEAD("/:uploadId", h.CheckFileExists)

		// Protected file operations
		files.GET("/:uploadId/signed-url", middleware.PrincipalMiddleware(), h.GetSignedURL)
	}
}

// authorizeRead enforces the visibility rule: public objects are served
// to anyone, private objects only to their owner.
func (h *FileHandler) authorizeRead(c *gin.Context, upload *models.Upload) bool {
	if upload.IsPublic || upload.OwnerID == h.GetOwnerID(c) {
		return true
	}
	apperrors.HandleError(c, apperrors.NewForbiddenError("access denied"))
	return false
}

// ServeFile streams the primary object by upload ID.
func (h *FileHandler) ServeFile(c *gin.Context) {
	upload, err := h.storageService.Get(c.Request.Context(), c.Param("uploadId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if !h.authorizeRead(c, upload) {
		return
	}

	reader, err := h.storageService.Stream(c.Request.Context(), upload)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", upload.ContentType)
	c.Header("Content-Length", strconv.FormatInt(upload.SizeBytes, 10))
	c.Header("Cache-Control", "public, max-age=31536000")
	c.Header("ETag", fmt.Sprintf(`"%s"`, upload.ID))

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, upload.OriginalName))
	} else {
		c.Header("Content-Disposition", "inline")
	}

	if _, err := io.Copy(c.Writer, reader); err != nil {
		// Headers already sent, nothing to answer with.
		c.Error(err)
	}
}

// ServeThumbnail streams one generated thumbnail variant.
func (h *FileHandler) ServeThumbnail(c *gin.Context) {
	size := c.Param("size")

	upload, err := h.storageService.Get(c.Request.Context(), c.Param("uploadId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if upload.Category != filetype.CategoryImage {
		apperrors.HandleError(c, apperrors.NewBadRequestError("file is not an image"))
		return
	}

	if !h.authorizeRead(c, upload) {
		return
	}

	reader, err := h.storageService.StreamThumbnail(c.Request.Context(), upload, size)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", upload.ContentType)
	c.Header("Cache-Control", "public, max-age=31536000")
	c.Header("ETag", fmt.Sprintf(`"%s-%s"`, upload.ID, size))
	c.Header("Content-Disposition", "inline")

	if _, err := io.Copy(c.Writer, reader); err != nil {
		c.Error(err)
	}
}

// GetSignedURL returns a temporary signed URL for the object. Falls back
// to the streaming endpoint when the backend cannot sign URLs.
func (h *FileHandler) GetSignedURL(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeOwnerID(c)
	if !ok {
		return
	}

	upload, err := h.storageService.Get(c.Request.Context(), c.Param("uploadId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if upload.OwnerID != ownerID {
		apperrors.HandleError(c, apperrors.NewForbiddenError("access denied"))
		return
	}

	expiry, err := time.ParseDuration(c.DefaultQuery("expiry", "1h"))
	if err != nil || expiry <= 0 {
		expiry = time.Hour
	}

	url, supported, err := h.storageService.TemporaryURL(c.Request.Context(), upload, expiry)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if !supported {
		c.JSON(http.StatusOK, dto.TemporaryURLResponse{
			URL: fmt.Sprintf("/api/v1/files/%s", upload.ID),
		})
		return
	}

	expiresAt := time.Now().Add(expiry)
	c.JSON(http.StatusOK, dto.TemporaryURLResponse{
		URL:       url,
		Signed:    true,
		ExpiresAt: &expiresAt,
	})
}

// CheckFileExists answers HEAD requests with the object's headers.
func (h *FileHandler) CheckFileExists(c *gin.Context) {
	upload, err := h.storageService.Get(c.Request.Context(), c.Param("uploadId"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	if !upload.IsPublic && upload.OwnerID != h.GetOwnerID(c) {
		c.Status(http.StatusForbidden)
		return
	}

	c.Header("Content-Type", upload.ContentType)
	c.Header("Content-Length", strconv.FormatInt(upload.SizeBytes, 10))
	c.Header("ETag", fmt.Sprintf(`"%s"`, upload.ID))
	c.Status(http.StatusOK)
}
