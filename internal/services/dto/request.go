package dto

// UploadRequest carries the multipart form fields accompanying a file.
// The file itself is read from the "file" form part.
type UploadRequest struct {
	Disk               string   `form:"disk" json:"disk" validate:"omitempty,min=1,max=64"`
	Folder             string   `form:"folder" json:"folder" validate:"omitempty,storagefolder,max=255"`
	Visibility         string   `form:"visibility" json:"visibility" validate:"omitempty,oneof=public private"`
	GenerateThumbnails *bool    `form:"generate_thumbnails" json:"generateThumbnails"`
	AllowedExtensions  []string `form:"allowed_extensions" json:"allowedExtensions" validate:"omitempty,dive,min=1,max=16"`
}

// UpdateVisibilityRequest toggles an upload between public and private.
type UpdateVisibilityRequest struct {
	Visibility string `json:"visibility" validate:"required,oneof=public private"`
}
