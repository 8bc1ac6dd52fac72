package models

import (
	"time"

	"gorm.io/datatypes"

	"mediastore/internal/filetype"
)

// Metadata keys the pipeline maintains.
const (
	MetaUploadedIP = "uploaded_ip"
	MetaUserAgent  = "user_agent"
	MetaWidth      = "width"
	MetaHeight     = "height"
	MetaThumbnails = "thumbnails"
)

// Upload is the durable metadata record for one stored object.
// Path is unique within a disk; SizeBytes always reflects the primary
// object, never a thumbnail.
type Upload struct {
	BaseModel
	OwnerID      string            `gorm:"not null;index" json:"ownerId"`
	OriginalName string            `gorm:"not null" json:"originalName"`
	StoredName   string            `gorm:"not null" json:"storedName"`
	Folder       string            `gorm:"not null" json:"folder"`
	Path         string            `gorm:"not null;uniqueIndex:idx_uploads_disk_path" json:"path"`
	Category     filetype.Category `gorm:"not null;index" json:"category"`
	ContentType  string            `gorm:"not null" json:"contentType"`
	SizeBytes    int64             `gorm:"not null" json:"sizeBytes"`
	Disk         string            `gorm:"not null;uniqueIndex:idx_uploads_disk_path" json:"disk"`
	IsPublic     bool              `gorm:"default:true" json:"isPublic"`

	// Metadata is the open key/value map: upload provenance, image
	// dimensions, and the thumbnail size -> path sub-map.
	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	UploadedAt     time.Time  `gorm:"not null" json:"uploadedAt"`
	DownloadCount  int64      `gorm:"default:0" json:"downloadCount"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

// Thumbnails returns the size -> relative path map from metadata.
// Empty for non-images and for uploads processed on remote disks.
func (u *Upload) Thumbnails() map[string]string {
	out := make(map[string]string)

	raw, ok := u.Metadata[MetaThumbnails]
	if !ok {
		return out
	}

	// in-memory records hold map[string]string, records read back from
	// jsonb hold map[string]interface{}
	switch m := raw.(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string]interface{}:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}

// SetThumbnail records a generated thumbnail path under its size label.
func (u *Upload) SetThumbnail(size, path string) {
	if u.Metadata == nil {
		u.Metadata = datatypes.JSONMap{}
	}
	thumbs := u.Thumbnails()
	thumbs[size] = path

	converted := make(map[string]interface{}, len(thumbs))
	for k, v := range thumbs {
		converted[k] = v
	}
	u.Metadata[MetaThumbnails] = converted
}

// ThumbnailPath returns the stored path for one size label.
func (u *Upload) ThumbnailPath(size string) (string, bool) {
	p, ok := u.Thumbnails()[size]
	return p, ok
}

// Visibility as the storage layer understands it.
func (u *Upload) Visibility() string {
	if u.IsPublic {
		return "public"
	}
	return "private"
}
