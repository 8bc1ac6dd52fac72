package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mediastore/internal/filetype"
	"mediastore/internal/models"
)

// ErrUploadNotFound is returned when no record matches the query.
var ErrUploadNotFound = errors.New("upload not found")

// ListFilters narrows owner listings.
type ListFilters struct {
	Category filetype.Category
	Disk     string
	IsPublic *bool
	Limit    int
	Offset   int
}

type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) error
	FindByID(ctx context.Context, id string) (*models.Upload, error)
	FindByOwner(ctx context.Context, ownerID string, filters ListFilters) ([]*models.Upload, error)
	Save(ctx context.Context, upload *models.Upload) error
	Delete(ctx context.Context, id string) error
	StorageUsed(ctx context.Context, ownerID string) (int64, error)
	IncrementDownloads(ctx context.Context, id string) error
	FindBatch(ctx context.Context, afterID string, limit int) ([]*models.Upload, error)
}

type uploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *uploadRepository) FindByID(ctx context.Context, id string) (*models.Upload, error) {
	var upload models.Upload
	err := r.db.WithContext(ctx).First(&upload, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepository) FindByOwner(ctx context.Context, ownerID string, filters ListFilters) ([]*models.Upload, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)

	if filters.Category != "" {
		q = q.Where("category = ?", filters.Category)
	}
	if filters.Disk != "" {
		q = q.Where("disk = ?", filters.Disk)
	}
	if filters.IsPublic != nil {
		q = q.Where("is_public = ?", *filters.IsPublic)
	}
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		q = q.Offset(filters.Offset)
	}

	var uploads []*models.Upload
	if err := q.Order("uploaded_at DESC").Find(&uploads).Error; err != nil {
		return nil, err
	}
	return uploads, nil
}

func (r *uploadRepository) Save(ctx context.Context, upload *models.Upload) error {
	return r.db.WithContext(ctx).Save(upload).Error
}

func (r *uploadRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Upload{}, "id = ?", id).Error
}

// StorageUsed sums the primary-object sizes owned by one principal.
// Thumbnails are not counted; they are derived data.
func (r *uploadRepository) StorageUsed(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Upload{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	return total, err
}

func (r *uploadRepository) IncrementDownloads(ctx context.Context, id string) error {
	now := gorm.Expr("CURRENT_TIMESTAMP")
	return r.db.WithContext(ctx).
		Model(&models.Upload{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"download_count":   gorm.Expr("download_count + 1"),
			"last_accessed_at": now,
		}).Error
}

// FindBatch pages through all records by ID for background sweeps.
// Pass the last seen ID to get the next page; empty starts from the top.
func (r *uploadRepository) FindBatch(ctx context.Context, afterID string, limit int) ([]*models.Upload, error) {
	q := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}

	var uploads []*models.Upload
	if err := q.Find(&uploads).Error; err != nil {
		return nil, err
	}
	return uploads, nil
}
