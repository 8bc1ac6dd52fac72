package dto

import "time"

// UploadResponse is the transport representation of an upload record.
type UploadResponse struct {
	ID           string                 `json:"id"`
	OwnerID      string                 `json:"ownerId"`
	OriginalName string                 `json:"originalName"`
	StoredName   string                 `json:"storedName"`
	Path         string                 `json:"path"`
	Folder       string                 `json:"folder"`
	Category     string                 `json:"category"`
	ContentType  string                 `json:"contentType"`
	SizeBytes    int64                  `json:"sizeBytes"`
	SizeHuman    string                 `json:"sizeHuman"`
	Disk         string                 `json:"disk"`
	Visibility   string                 `json:"visibility"`
	PublicURL    string                 `json:"publicUrl,omitempty"`
	DownloadURL  string                 `json:"downloadUrl"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Thumbnails   map[string]string      `json:"thumbnails,omitempty"`
	UploadedAt   time.Time              `json:"uploadedAt"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// StorageUsageResponse reports an owner's quota consumption.
type StorageUsageResponse struct {
	UsedBytes  int64  `json:"usedBytes"`
	UsedHuman  string `json:"usedHuman"`
	LimitBytes int64  `json:"limitBytes"` // 0 means unlimited
	LimitHuman string `json:"limitHuman,omitempty"`
}

// TemporaryURLResponse carries a signed URL and its expiry. When the
// backend cannot sign, Signed is false and URL points at the streaming
// endpoint instead.
type TemporaryURLResponse struct {
	URL       string     `json:"url"`
	Signed    bool       `json:"signed"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
