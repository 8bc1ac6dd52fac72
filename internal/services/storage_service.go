package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"gorm.io/datatypes"

	"mediastore/internal/filetype"
	"mediastore/internal/imageprocessor"
	"mediastore/internal/logger"
	"mediastore/internal/models"
	"mediastore/internal/naming"
	"mediastore/internal/repositories"
	"mediastore/internal/services/dto"
	"mediastore/internal/storage"
	"mediastore/pkg/apperrors"
)

// UploadInput carries one validated binary upload into the pipeline.
type UploadInput struct {
	Reader       io.Reader
	Size         int64
	OriginalName string
	ContentType  string
	OwnerID      string
	ClientIP     string
	UserAgent    string
	Options      UploadOptions
}

// StorageService orchestrates validation, classification, name
// allocation, backend storage, record creation and image processing.
type StorageService interface {
	Upload(ctx context.Context, input UploadInput) (*models.Upload, error)
	Get(ctx context.Context, id string) (*models.Upload, error)
	List(ctx context.Context, ownerID string, filters repositories.ListFilters) ([]*models.Upload, error)
	Delete(ctx context.Context, upload *models.Upload) (bool, error)
	DeleteByID(ctx context.Context, ownerID, id string) (bool, error)
	Stream(ctx context.Context, upload *models.Upload) (io.ReadCloser, error)
	StreamThumbnail(ctx context.Context, upload *models.Upload, size string) (io.ReadCloser, error)
	PublicURL(upload *models.Upload) (string, bool)
	TemporaryURL(ctx context.Context, upload *models.Upload, expiry time.Duration) (string, bool, error)
	ThumbnailURL(upload *models.Upload, size string) (string, bool)
	UpdateVisibility(ctx context.Context, ownerID, id string, isPublic bool) (*models.Upload, error)
	StorageUsage(ctx context.Context, ownerID string) (*dto.StorageUsageResponse, error)
	BuildResponse(upload *models.Upload) *dto.UploadResponse
}

type storageService struct {
	uploadRepo repositories.UploadRepository
	disks      *storage.Registry
	defaults   UploadDefaults
}

// NewStorageService wires the service. defaults may be zero-valued, in
// which case the documented defaults apply.
func NewStorageService(uploadRepo repositories.UploadRepository, disks *storage.Registry, defaults UploadDefaults) StorageService {
	if defaults.Disk == "" {
		defaults = DefaultUploadDefaults()
	}
	return &storageService{
		uploadRepo: uploadRepo,
		disks:      disks,
		defaults:   defaults,
	}
}

// ============================================
// Upload
// ============================================

func (s *storageService) Upload(ctx context.Context, input UploadInput) (*models.Upload, error) {
	opts := resolve(input.Options, s.defaults)

	driver, ok := s.disks.Disk(opts.Disk)
	if !ok {
		return nil, apperrors.ErrUnknownDisk
	}

	contentType, reader, err := sniffContentType(input.ContentType, input.Reader)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := validateUpload(input, contentType, opts); err != nil {
		return nil, err
	}

	if err := s.checkQuota(ctx, input.OwnerID, input.Size); err != nil {
		return nil, err
	}

	category := filetype.Classify(contentType)

	// Dimensions are recorded for every image, including those on
	// backends that never run the local processing pass.
	var width, height int
	if category == filetype.CategoryImage {
		var dimErr error
		width, height, reader, dimErr = probeImageDimensions(reader)
		if dimErr != nil {
			logger.CtxWarn(ctx, "could not read image dimensions", "name", input.OriginalName, "error", dimErr)
		}
	}

	now := time.Now().UTC()
	alloc := naming.Allocate(input.OriginalName, category, opts.Folder, now)

	storedPath, err := driver.Store(ctx, alloc.Folder, alloc.StoredName, reader, input.Size, contentType)
	if err != nil {
		return nil, apperrors.ErrBackendUnavailable(err)
	}

	// Best effort: a driver without per-object visibility degrades to
	// its disk-level default.
	visibility := storage.VisibilityPrivate
	if opts.IsPublic {
		visibility = storage.VisibilityPublic
	}
	if err := driver.SetVisibility(ctx, storedPath, visibility); err != nil && !errors.Is(err, storage.ErrUnsupported) {
		logger.CtxWarn(ctx, "failed to set object visibility", "disk", opts.Disk, "path", storedPath, "error", err)
	}

	upload := &models.Upload{
		OwnerID:      input.OwnerID,
		OriginalName: input.OriginalName,
		StoredName:   alloc.StoredName,
		Folder:       alloc.Folder,
		Path:         storedPath,
		Category:     category,
		ContentType:  contentType,
		SizeBytes:    input.Size,
		Disk:         opts.Disk,
		IsPublic:     opts.IsPublic,
		UploadedAt:   now,
		Metadata: datatypes.JSONMap{
			models.MetaUploadedIP: input.ClientIP,
			models.MetaUserAgent:  input.UserAgent,
		},
	}
	if width > 0 {
		upload.Metadata[models.MetaWidth] = width
		upload.Metadata[models.MetaHeight] = height
	}

	if err := s.uploadRepo.Create(ctx, upload); err != nil {
		// Roll the object back so no orphan is left on the backend:
		// either the object and its record both exist, or neither does.
		if _, delErr := driver.Delete(ctx, storedPath); delErr != nil {
			logger.CtxError(ctx, "failed to roll back stored object", "disk", opts.Disk, "path", storedPath, "error", delErr)
		}
		return nil, apperrors.InternalError(err)
	}

	// Post-commit: image processing mutates metadata but can no longer
	// invalidate the record.
	if category == filetype.CategoryImage && opts.GenerateThumbnails && driver.SupportsLocalProcessing() {
		if err := s.processImage(ctx, driver, upload, opts); err != nil {
			logger.CtxWarn(ctx, "image processing degraded", "upload_id", upload.ID, "error", apperrors.ErrProcessingFailed(err))
		}
		if err := s.uploadRepo.Save(ctx, upload); err != nil {
			logger.CtxWarn(ctx, "failed to persist image metadata", "upload_id", upload.ID, "error", err)
		}
	}

	return upload, nil
}

// processImage normalizes the primary object and derives the fixed
// thumbnail presets. An error means the whole pass was skipped; a
// partial failure is logged and skipped, and the upload stays valid
// with fewer thumbnail entries.
func (s *storageService) processImage(ctx context.Context, driver storage.Driver, upload *models.Upload, opts resolvedOptions) error {
	src, err := driver.Open(ctx, upload.Path)
	if err != nil {
		return fmt.Errorf("reopen primary %s: %w", upload.Path, err)
	}
	img, format, err := imageprocessor.Decode(src)
	src.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", upload.Path, err)
	}

	upload.Metadata[models.MetaWidth] = img.Bounds().Dx()
	upload.Metadata[models.MetaHeight] = img.Bounds().Dy()

	proc := imageprocessor.NewProcessor(opts.ImageQuality)
	data, w, h, resized, err := proc.Normalize(img, format, opts.ImageMaxWidth, opts.ImageMaxHeight)
	switch {
	case err != nil:
		logger.CtxWarn(ctx, "primary re-encode failed", "path", upload.Path, "error", err)
	case resized:
		if _, err := driver.Store(ctx, upload.Folder, upload.StoredName, bytes.NewReader(data), int64(len(data)), upload.ContentType); err != nil {
			logger.CtxWarn(ctx, "failed to overwrite downscaled primary", "path", upload.Path, "error", err)
		} else {
			upload.SizeBytes = int64(len(data))
			upload.Metadata[models.MetaWidth] = w
			upload.Metadata[models.MetaHeight] = h
		}
	}

	// Each preset is an independent pure derivation from the decoded
	// image; one failing size never aborts the others.
	for _, preset := range imageprocessor.Presets {
		thumbData, err := imageprocessor.Thumbnail(img, format, preset)
		if err != nil {
			logger.CtxWarn(ctx, "thumbnail derivation failed", "size", preset.Name, "path", upload.Path, "error", err)
			continue
		}

		thumbPath := naming.ThumbnailPath(upload.Folder, upload.StoredName, preset.Name)
		if _, err := driver.Store(ctx, path.Dir(thumbPath), path.Base(thumbPath), bytes.NewReader(thumbData), int64(len(thumbData)), upload.ContentType); err != nil {
			logger.CtxWarn(ctx, "thumbnail store failed", "size", preset.Name, "path", thumbPath, "error", err)
			continue
		}

		upload.SetThumbnail(preset.Name, thumbPath)
	}

	return nil
}

// probeImageDimensions reads the image header out of the stream's
// leading bytes and returns a reader replaying what was consumed. A
// corrupt header, or one beyond the probe window, yields zero
// dimensions without failing the upload.
func probeImageDimensions(reader io.Reader) (int, int, io.Reader, error) {
	head := make([]byte, 256*1024)
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, 0, reader, err
	}
	head = head[:n]

	rest := io.MultiReader(bytes.NewReader(head), reader)
	w, h, err := imageprocessor.Dimensions(bytes.NewReader(head))
	if err != nil {
		return 0, 0, rest, err
	}
	return w, h, rest, nil
}

// ============================================
// Lookup
// ============================================

func (s *storageService) Get(ctx context.Context, id string) (*models.Upload, error) {
	upload, err := s.uploadRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return upload, nil
}

func (s *storageService) List(ctx context.Context, ownerID string, filters repositories.ListFilters) ([]*models.Upload, error) {
	uploads, err := s.uploadRepo.FindByOwner(ctx, ownerID, filters)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return uploads, nil
}

// ============================================
// Delete
// ============================================

// Delete removes every thumbnail, the primary object and the record.
// The returned bool reports whether the primary object still existed;
// deleting an already-deleted upload is not an error.
func (s *storageService) Delete(ctx context.Context, upload *models.Upload) (bool, error) {
	driver, ok := s.disks.Disk(upload.Disk)
	if !ok {
		return false, apperrors.ErrUnknownDisk
	}

	// Thumbnails first, log-and-continue: they cannot be retried once
	// the record is gone.
	for size, thumbPath := range upload.Thumbnails() {
		if _, err := driver.Delete(ctx, thumbPath); err != nil {
			logger.CtxWarn(ctx, "failed to delete thumbnail", "size", size, "path", thumbPath, "error", err)
		}
	}

	existed, err := driver.Delete(ctx, upload.Path)
	if err != nil {
		return false, apperrors.ErrBackendUnavailable(err)
	}

	if err := s.uploadRepo.Delete(ctx, upload.ID); err != nil {
		return existed, apperrors.InternalError(err)
	}

	return existed, nil
}

func (s *storageService) DeleteByID(ctx context.Context, ownerID, id string) (bool, error) {
	upload, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if upload.OwnerID != ownerID {
		return false, apperrors.NewForbiddenError("access denied")
	}
	return s.Delete(ctx, upload)
}

// ============================================
// Retrieval
// ============================================

// Stream opens a read stream from the owning backend. The caller owns
// the stream and must close it on every exit path.
func (s *storageService) Stream(ctx context.Context, upload *models.Upload) (io.ReadCloser, error) {
	driver, ok := s.disks.Disk(upload.Disk)
	if !ok {
		return nil, apperrors.ErrUnknownDisk
	}

	reader, err := driver.Open(ctx, upload.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrBackendUnavailable(err)
	}

	if err := s.uploadRepo.IncrementDownloads(ctx, upload.ID); err != nil {
		logger.CtxWarn(ctx, "failed to count download", "upload_id", upload.ID, "error", err)
	}

	return reader, nil
}

// StreamThumbnail opens a read stream over one generated thumbnail.
// Thumbnail reads are not counted as downloads.
func (s *storageService) StreamThumbnail(ctx context.Context, upload *models.Upload, size string) (io.ReadCloser, error) {
	driver, ok := s.disks.Disk(upload.Disk)
	if !ok {
		return nil, apperrors.ErrUnknownDisk
	}

	thumbPath, ok := upload.ThumbnailPath(size)
	if !ok {
		// A backend without local processing never has thumbnails,
		// which is a capability gap rather than a missing object.
		if !driver.SupportsLocalProcessing() {
			return nil, apperrors.ErrUnsupportedCapability
		}
		return nil, apperrors.NewNotFoundError("thumbnail not found")
	}

	reader, err := driver.Open(ctx, thumbPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrBackendUnavailable(err)
	}
	return reader, nil
}

func (s *storageService) PublicURL(upload *models.Upload) (string, bool) {
	driver, ok := s.disks.Disk(upload.Disk)
	if !ok || !upload.IsPublic {
		return "", false
	}
	return driver.PublicURL(upload.Path)
}

// TemporaryURL returns a signed URL, or ok=false when the backend has
// no signing capability so callers can fall back to streaming.
func (s *storageService) TemporaryURL(ctx context.Context, upload *models.Upload, expiry time.Duration) (string, bool, error) {
	driver, ok := s.disks.Disk(upload.Disk)
	if !ok {
		return "", false, apperrors.ErrUnknownDisk
	}

	url, err := driver.TemporaryURL(ctx, upload.Path, expiry)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupported) {
			return "", false, nil
		}
		return "", false, apperrors.ErrBackendUnavailable(err)
	}
	return url, true, nil
}

// ThumbnailURL returns the public URL of a thumbnail variant. Absent
// unless the upload is an image with that size generated and the disk
// is publicly served.
func (s *storageService) ThumbnailURL(upload *models.Upload, size string) (string, bool) {
	if upload.Category != filetype.CategoryImage {
		return "", false
	}
	thumbPath, ok := upload.ThumbnailPath(size)
	if !ok {
		return "", false
	}
	driver, ok := s.disks.Disk(upload.Disk)
	if !ok {
		return "", false
	}
	return driver.PublicURL(thumbPath)
}

// ============================================
// Mutation & accounting
// ============================================

func (s *storageService) UpdateVisibility(ctx context.Context, ownerID, id string, isPublic bool) (*models.Upload, error) {
	upload, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upload.OwnerID != ownerID {
		return nil, apperrors.NewForbiddenError("access denied")
	}

	upload.IsPublic = isPublic
	if err := s.uploadRepo.Save(ctx, upload); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if driver, ok := s.disks.Disk(upload.Disk); ok {
		visibility := storage.VisibilityPrivate
		if isPublic {
			visibility = storage.VisibilityPublic
		}
		if err := driver.SetVisibility(ctx, upload.Path, visibility); err != nil && !errors.Is(err, storage.ErrUnsupported) {
			logger.CtxWarn(ctx, "failed to propagate visibility", "path", upload.Path, "error", err)
		}
	}

	return upload, nil
}

func (s *storageService) StorageUsage(ctx context.Context, ownerID string) (*dto.StorageUsageResponse, error) {
	used, err := s.uploadRepo.StorageUsed(ctx, ownerID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.StorageUsageResponse{
		UsedBytes:  used,
		UsedHuman:  humanize.IBytes(uint64(used)),
		LimitBytes: s.defaults.MaxOwnerStorage,
	}
	if s.defaults.MaxOwnerStorage > 0 {
		resp.LimitHuman = humanize.IBytes(uint64(s.defaults.MaxOwnerStorage))
	}
	return resp, nil
}

// ============================================
// Transport shaping
// ============================================

// BuildResponse shapes an upload record for transport: raw and
// humanized size, resolved URLs and per-size thumbnail URLs.
func (s *storageService) BuildResponse(upload *models.Upload) *dto.UploadResponse {
	resp := &dto.UploadResponse{
		ID:           upload.ID,
		OwnerID:      upload.OwnerID,
		OriginalName: upload.OriginalName,
		StoredName:   upload.StoredName,
		Path:         upload.Path,
		Folder:       upload.Folder,
		Category:     string(upload.Category),
		ContentType:  upload.ContentType,
		SizeBytes:    upload.SizeBytes,
		SizeHuman:    humanize.IBytes(uint64(upload.SizeBytes)),
		Disk:         upload.Disk,
		Visibility:   upload.Visibility(),
		DownloadURL:  fmt.Sprintf("/api/v1/files/%s", upload.ID),
		Metadata:     upload.Metadata,
		UploadedAt:   upload.UploadedAt,
		CreatedAt:    upload.CreatedAt,
		UpdatedAt:    upload.UpdatedAt,
	}

	if url, ok := s.PublicURL(upload); ok {
		resp.PublicURL = url
	}

	thumbs := upload.Thumbnails()
	if len(thumbs) > 0 {
		resp.Thumbnails = make(map[string]string, len(thumbs))
		for size := range thumbs {
			if url, ok := s.ThumbnailURL(upload, size); ok {
				resp.Thumbnails[size] = url
			} else {
				resp.Thumbnails[size] = fmt.Sprintf("/api/v1/files/%s/thumb/%s", upload.ID, size)
			}
		}
	}

	return resp
}

// ============================================
// Validation
// ============================================

// validateUpload enforces, in order: well-formed content, the size
// ceiling, the extension allow-list, and the global content-type
// allow-list. Nothing is written before all checks pass.
func validateUpload(input UploadInput, contentType string, opts resolvedOptions) error {
	if input.Reader == nil || input.Size == 0 {
		return apperrors.ErrEmptyFile
	}

	if input.Size > opts.MaxFileSize {
		return apperrors.ErrFileTooLarge
	}

	if len(opts.AllowedExtensions) > 0 {
		ext := naming.Extension(input.OriginalName)
		allowed := false
		for _, e := range opts.AllowedExtensions {
			if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperrors.ErrInvalidExtension
		}
	}

	if !filetype.IsAllowed(contentType) {
		return apperrors.ErrInvalidFileType
	}

	return nil
}

func (s *storageService) checkQuota(ctx context.Context, ownerID string, size int64) error {
	if s.defaults.MaxOwnerStorage <= 0 {
		return nil
	}

	used, err := s.uploadRepo.StorageUsed(ctx, ownerID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if used+size > s.defaults.MaxOwnerStorage {
		return apperrors.ErrStorageQuotaExceeded
	}
	return nil
}

// sniffContentType trusts a concrete declared type and otherwise
// detects one from the content's leading bytes.
func sniffContentType(declared string, reader io.Reader) (string, io.Reader, error) {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared, reader, nil
	}
	if reader == nil {
		return declared, reader, nil
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	detected := mimetype.Detect(head).String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	return detected, io.MultiReader(bytes.NewReader(head), reader), nil
}
