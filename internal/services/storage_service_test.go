package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mediastore/internal/filetype"
	"mediastore/internal/models"
	"mediastore/internal/repositories"
	"mediastore/internal/storage"
	"mediastore/pkg/apperrors"
)

// remoteDriver simulates a backend without local processing.
type remoteDriver struct {
	*storage.LocalDriver
}

func (remoteDriver) SupportsLocalProcessing() bool { return false }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Upload{}))
	return db
}

func newTestService(t *testing.T, defaults UploadDefaults) (StorageService, *storage.Registry) {
	t.Helper()

	public, err := storage.NewLocalDriver(storage.Config{
		Name:     "public",
		Type:     "local",
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/static",
	})
	require.NoError(t, err)

	private, err := storage.NewLocalDriver(storage.Config{
		Name:     "local",
		Type:     "local",
		BasePath: t.TempDir(),
	})
	require.NoError(t, err)

	remoteBase, err := storage.NewLocalDriver(storage.Config{
		Name:     "remote",
		Type:     "local",
		BasePath: t.TempDir(),
	})
	require.NoError(t, err)

	reg := &storage.Registry{}
	reg.Register(public)
	reg.Register(private)
	reg.Register(remoteDriver{remoteBase})

	repo := repositories.NewUploadRepository(newTestDB(t))
	return NewStorageService(repo, reg, defaults), reg
}

func jpegUpload(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func textUpload(content string) UploadInput {
	return UploadInput{
		Reader:       strings.NewReader(content),
		Size:         int64(len(content)),
		OriginalName: "notes.txt",
		ContentType:  "text/plain",
		OwnerID:      "owner-1",
		ClientIP:     "203.0.113.7",
		UserAgent:    "test-agent",
	}
}

func TestUploadStreamRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	content := "round trip payload"
	upload, err := svc.Upload(ctx, textUpload(content))
	require.NoError(t, err)

	assert.Equal(t, filetype.CategoryDocument, upload.Category)
	assert.Equal(t, int64(len(content)), upload.SizeBytes)
	assert.Equal(t, "public", upload.Disk)
	assert.Equal(t, "203.0.113.7", upload.Metadata[models.MetaUploadedIP])
	assert.Equal(t, "test-agent", upload.Metadata[models.MetaUserAgent])

	r, err := svc.Stream(ctx, upload)
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestUploadAllocatesDistinctPaths(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		upload, err := svc.Upload(ctx, textUpload("same name, new path"))
		require.NoError(t, err)
		require.False(t, seen[upload.Path], "path collided: %s", upload.Path)
		seen[upload.Path] = true
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})

	in := textUpload(strings.Repeat("x", 100))
	in.Options.MaxFileSize = 50

	_, err := svc.Upload(context.Background(), in)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}

func TestUploadRejectsExtension(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})

	in := UploadInput{
		Reader:       strings.NewReader("%PDF-1.4 fake"),
		Size:         13,
		OriginalName: "paper.pdf",
		ContentType:  "application/pdf",
		OwnerID:      "owner-1",
		Options:      UploadOptions{AllowedExtensions: []string{"jpg", "png"}},
	}

	_, err := svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrInvalidExtension)
}

func TestUploadRejectsDisallowedContentType(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	in := textUpload("MZ binary")
	in.OriginalName = "setup.exe"
	in.ContentType = "application/x-msdownload"

	_, err := svc.Upload(ctx, in)
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)

	// nothing was recorded
	uploads, err := svc.List(ctx, "owner-1", repositories.ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, uploads)
}

func TestUploadRejectsEmpty(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})

	in := textUpload("")
	in.Size = 0
	_, err := svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrEmptyFile)
}

func TestUploadUnknownDisk(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})

	in := textUpload("x")
	in.Options.Disk = "tape-robot"
	_, err := svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrUnknownDisk)
}

func TestUploadImageGeneratesThumbnails(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	data := jpegUpload(t, 200, 200)
	upload, err := svc.Upload(ctx, UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "avatar.jpg",
		ContentType:  "image/jpeg",
		OwnerID:      "owner-1",
	})
	require.NoError(t, err)

	assert.Equal(t, filetype.CategoryImage, upload.Category)

	thumbs := upload.Thumbnails()
	require.Len(t, thumbs, 3)
	for _, size := range []string{"thumb", "small", "medium"} {
		assert.Contains(t, thumbs, size)
	}

	// 200x200 fits within the 2048 ceiling: primary is untouched
	r, err := svc.Stream(ctx, upload)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.Equal(t, 200, upload.Metadata[models.MetaWidth])
	assert.Equal(t, 200, upload.Metadata[models.MetaHeight])

	url, ok := svc.PublicURL(upload)
	require.True(t, ok)
	assert.Contains(t, url, "http://localhost:8080/static/")

	thumbURL, ok := svc.ThumbnailURL(upload, "small")
	require.True(t, ok)
	assert.Contains(t, thumbURL, "/thumbnails/")

	_, ok = svc.ThumbnailURL(upload, "huge")
	assert.False(t, ok)
}

func TestUploadImageDownscalesOversized(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	data := jpegUpload(t, 3000, 1500)
	upload, err := svc.Upload(ctx, UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "pano.jpg",
		ContentType:  "image/jpeg",
		OwnerID:      "owner-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 2048, upload.Metadata[models.MetaWidth])
	assert.Equal(t, 1024, upload.Metadata[models.MetaHeight])

	// stored size reflects the re-encoded primary
	r, err := svc.Stream(ctx, upload)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, upload.SizeBytes, int64(len(got)))
	assert.NotEqual(t, data, got)
}

func TestUploadImageOnRemoteDiskSkipsProcessing(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	data := jpegUpload(t, 3000, 1500)
	upload, err := svc.Upload(ctx, UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "pano.jpg",
		ContentType:  "image/jpeg",
		OwnerID:      "owner-1",
		Options:      UploadOptions{Disk: "remote"},
	})
	require.NoError(t, err)

	assert.Empty(t, upload.Thumbnails())

	// dimensions are still recorded even though processing is skipped
	assert.Equal(t, 3000, upload.Metadata[models.MetaWidth])
	assert.Equal(t, 1500, upload.Metadata[models.MetaHeight])

	// stored unmodified
	r, err := svc.Stream(ctx, upload)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestUploadGIFThumbnailsStayGIF(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 300, 300))
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	data := buf.Bytes()

	upload, err := svc.Upload(ctx, UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "loader.gif",
		ContentType:  "image/gif",
		OwnerID:      "owner-1",
	})
	require.NoError(t, err)
	require.Len(t, upload.Thumbnails(), 3)

	// stored thumbnail bytes must match the record's gif content type
	// and the .gif thumbnail path
	r, err := svc.StreamThumbnail(ctx, upload, "thumb")
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, []byte("GIF8")), "thumbnail is not a GIF: % x", got[:8])

	thumbPath, ok := upload.ThumbnailPath("thumb")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(thumbPath, ".gif"))
}

func TestThumbnailStreamUnsupportedOnRemoteDisk(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	data := jpegUpload(t, 400, 400)
	upload, err := svc.Upload(ctx, UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "pic.jpg",
		ContentType:  "image/jpeg",
		OwnerID:      "owner-1",
		Options:      UploadOptions{Disk: "remote"},
	})
	require.NoError(t, err)

	_, err = svc.StreamThumbnail(ctx, upload, "thumb")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCapability)
}

func TestUploadCorruptImageDegrades(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	// declared as an image but undecodable: the upload commits, the
	// processing pass degrades to no dimensions and no thumbnails
	content := "not actually a jpeg"
	upload, err := svc.Upload(ctx, UploadInput{
		Reader:       strings.NewReader(content),
		Size:         int64(len(content)),
		OriginalName: "broken.jpg",
		ContentType:  "image/jpeg",
		OwnerID:      "owner-1",
	})
	require.NoError(t, err)

	assert.Equal(t, filetype.CategoryImage, upload.Category)
	assert.Empty(t, upload.Thumbnails())
	assert.NotContains(t, upload.Metadata, models.MetaWidth)
}

func TestUploadSniffsContentType(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})

	data := jpegUpload(t, 50, 50)
	upload, err := svc.Upload(context.Background(), UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "blob",
		ContentType:  "application/octet-stream",
		OwnerID:      "owner-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", upload.ContentType)
	assert.Equal(t, filetype.CategoryImage, upload.Category)
}

func TestUploadQuota(t *testing.T) {
	defaults := DefaultUploadDefaults()
	defaults.MaxOwnerStorage = 30
	svc, _ := newTestService(t, defaults)
	ctx := context.Background()

	_, err := svc.Upload(ctx, textUpload("twenty byte payload!"))
	require.NoError(t, err)

	_, err = svc.Upload(ctx, textUpload("twenty byte payload!"))
	assert.ErrorIs(t, err, apperrors.ErrStorageQuotaExceeded)

	usage, err := svc.StorageUsage(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), usage.UsedBytes)
	assert.Equal(t, int64(30), usage.LimitBytes)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	data := jpegUpload(t, 200, 200)
	upload, err := svc.Upload(ctx, UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "gone.jpg",
		ContentType:  "image/jpeg",
		OwnerID:      "owner-1",
	})
	require.NoError(t, err)
	require.Len(t, upload.Thumbnails(), 3)

	existed, err := svc.Delete(ctx, upload)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = svc.Delete(ctx, upload)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = svc.Stream(ctx, upload)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestDeleteByIDChecksOwnership(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	upload, err := svc.Upload(ctx, textUpload("mine"))
	require.NoError(t, err)

	_, err = svc.DeleteByID(ctx, "intruder", upload.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	existed, err := svc.DeleteByID(ctx, "owner-1", upload.ID)
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestTemporaryURLAbsentOnLocalDisk(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	upload, err := svc.Upload(ctx, textUpload("signed?"))
	require.NoError(t, err)

	url, ok, err := svc.TemporaryURL(ctx, upload, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, url)
}

func TestUpdateVisibility(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	upload, err := svc.Upload(ctx, textUpload("visible"))
	require.NoError(t, err)
	require.True(t, upload.IsPublic)

	updated, err := svc.UpdateVisibility(ctx, "owner-1", upload.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsPublic)

	// a private record exposes no public URL
	_, ok := svc.PublicURL(updated)
	assert.False(t, ok)

	_, err = svc.UpdateVisibility(ctx, "intruder", upload.ID, true)
	require.Error(t, err)
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	_, err := svc.Upload(ctx, textUpload("doc one"))
	require.NoError(t, err)

	data := jpegUpload(t, 40, 40)
	_, err = svc.Upload(ctx, UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "pic.jpg",
		ContentType:  "image/jpeg",
		OwnerID:      "owner-1",
	})
	require.NoError(t, err)

	all, err := svc.List(ctx, "owner-1", repositories.ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	images, err := svc.List(ctx, "owner-1", repositories.ListFilters{Category: filetype.CategoryImage})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, filetype.CategoryImage, images[0].Category)
}

func TestBuildResponse(t *testing.T) {
	svc, _ := newTestService(t, UploadDefaults{})
	ctx := context.Background()

	data := jpegUpload(t, 200, 200)
	upload, err := svc.Upload(ctx, UploadInput{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		OriginalName: "avatar.jpg",
		ContentType:  "image/jpeg",
		OwnerID:      "owner-1",
	})
	require.NoError(t, err)

	resp := svc.BuildResponse(upload)
	assert.Equal(t, upload.ID, resp.ID)
	assert.Equal(t, "image", resp.Category)
	assert.Equal(t, "public", resp.Visibility)
	assert.NotEmpty(t, resp.SizeHuman)
	assert.NotEmpty(t, resp.PublicURL)
	assert.Equal(t, "/api/v1/files/"+upload.ID, resp.DownloadURL)
	assert.Len(t, resp.Thumbnails, 3)
}
