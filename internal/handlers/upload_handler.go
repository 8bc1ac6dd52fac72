package handlers

import (
	"net/http"

	"mediastore/internal/filetype"
	"mediastore/internal/middleware"
	"mediastore/internal/repositories"
	"mediastore/internal/services"
	"mediastore/internal/services/dto"
	"mediastore/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ============================================
// UPLOAD HANDLER
// ============================================

type UploadHandler struct {
	*BaseHandler
	storageService services.StorageService
}

func NewUploadHandler(base *BaseHandler, storageService services.StorageService) *UploadHandler {
	return &UploadHandler{
		BaseHandler:    base,
		storageService: storageService,
	}
}

// ============================================
// ROUTES
// ============================================

func (h *UploadHandler) RegisterRoutes(r *gin.RouterGroup) {
	uploads := r.Group("/uploads")
	uploads.Use(middleware.PrincipalMiddleware())
	{
		uploads.POST("", h.UploadFile)

		uploads.GET("", h.ListUploads)
		uploads.GET("/:uploadId", h.GetUpload)

		uploads.DELETE("/:uploadId", h.DeleteUpload)
		uploads.PATCH("/:uploadId/visibility", h.UpdateVisibility)

		uploads.GET("/storage/usage", h.GetStorageUsage)
	}
}

// ============================================
// HANDLERS
// ============================================

// UploadFile stores a single file from a multipart form.
func (h *UploadHandler) UploadFile(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeOwnerID(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(50 << 20); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("failed to parse form: "+err.Error()))
		return
	}

	var req dto.UploadRequest
	if !h.BindAndValidateForm(c, &req) {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("no file provided"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("failed to open uploaded file"))
		return
	}
	defer file.Close()

	input := services.UploadInput{
		Reader:       file,
		Size:         fileHeader.Size,
		OriginalName: fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		OwnerID:      ownerID,
		ClientIP:     c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		Options: services.UploadOptions{
			Disk:               req.Disk,
			Folder:             req.Folder,
			GenerateThumbnails: req.GenerateThumbnails,
			AllowedExtensions:  req.AllowedExtensions,
		},
	}
	if req.Visibility != "" {
		isPublic := req.Visibility == "public"
		input.Options.IsPublic = &isPublic
	}

	upload, err := h.storageService.Upload(c.Request.Context(), input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.storageService.BuildResponse(upload))
}

// ListUploads returns the caller's uploads with optional filters.
func (h *UploadHandler) ListUploads(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeOwnerID(c)
	if !ok {
		return
	}

	filters := repositories.ListFilters{
		Category: filetype.Category(c.Query("category")),
		Disk:     c.Query("disk"),
		IsPublic: ParseQueryBool(c, "is_public"),
		Limit:    ParseQueryInt(c, "limit", 50),
		Offset:   ParseQueryInt(c, "offset", 0),
	}

	uploads, err := h.storageService.List(c.Request.Context(), ownerID, filters)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	responses := make([]*dto.UploadResponse, 0, len(uploads))
	for _, upload := range uploads {
		responses = append(responses, h.storageService.BuildResponse(upload))
	}

	c.JSON(http.StatusOK, gin.H{
		"uploads": responses,
		"count":   len(responses),
	})
}

// GetUpload returns one upload record.
func (h *UploadHandler) GetUpload(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeOwnerID(c)
	if !ok {
		return
	}

	upload, err := h.storageService.Get(c.Request.Context(), c.Param("uploadId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if !upload.IsPublic && upload.OwnerID != ownerID {
		apperrors.HandleError(c, apperrors.NewForbiddenError("access denied"))
		return
	}

	c.JSON(http.StatusOK, h.storageService.BuildResponse(upload))
}

// DeleteUpload removes an upload, its thumbnails and its record.
func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeOwnerID(c)
	if !ok {
		return
	}

	existed, err := h.storageService.DeleteByID(c.Request.Context(), ownerID, c.Param("uploadId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "file deleted successfully",
		"existed": existed,
	})
}

// UpdateVisibility flips an upload between public and private.
func (h *UploadHandler) UpdateVisibility(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeOwnerID(c)
	if !ok {
		return
	}

	var req dto.UpdateVisibilityRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	upload, err := h.storageService.UpdateVisibility(c.Request.Context(), ownerID, c.Param("uploadId"), req.Visibility == "public")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.storageService.BuildResponse(upload))
}

// GetStorageUsage reports the caller's quota consumption.
func (h *UploadHandler) GetStorageUsage(c *gin.Context) {
	ownerID, ok := h.GetAndAuthorizeOwnerID(c)
	if !ok {
		return
	}

	usage, err := h.storageService.StorageUsage(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, usage)
}
