package services

// UploadDefaults are the service-wide fallbacks for upload options.
type UploadDefaults struct {
	Disk               string
	Folder             string
	IsPublic           bool
	GenerateThumbnails bool
	MaxFileSize        int64
	ImageQuality       int
	ImageMaxWidth      int
	ImageMaxHeight     int

	// MaxOwnerStorage caps the total primary-object bytes per owner.
	// Zero disables the quota.
	MaxOwnerStorage int64
}

// DefaultUploadDefaults returns the documented defaults.
func DefaultUploadDefaults() UploadDefaults {
	return UploadDefaults{
		Disk:               "public",
		Folder:             "uploads",
		IsPublic:           true,
		GenerateThumbnails: true,
		MaxFileSize:        10 << 20, // 10 MiB
		ImageQuality:       90,
		ImageMaxWidth:      2048,
		ImageMaxHeight:     2048,
	}
}

// UploadOptions is the per-call options bag. Nil/zero fields fall back
// to the service defaults.
type UploadOptions struct {
	Disk               string
	Folder             string
	IsPublic           *bool
	GenerateThumbnails *bool
	MaxFileSize        int64
	AllowedExtensions  []string
	ImageQuality       int
	ImageMaxWidth      int
	ImageMaxHeight     int
}

// resolvedOptions is the merged, fully-populated form used by the
// pipeline.
type resolvedOptions struct {
	Disk               string
	Folder             string
	IsPublic           bool
	GenerateThumbnails bool
	MaxFileSize        int64
	AllowedExtensions  []string
	ImageQuality       int
	ImageMaxWidth      int
	ImageMaxHeight     int
}

// resolve merges opts over the defaults.
func resolve(opts UploadOptions, defaults UploadDefaults) resolvedOptions {
	r := resolvedOptions{
		Disk:               defaults.Disk,
		Folder:             defaults.Folder,
		IsPublic:           defaults.IsPublic,
		GenerateThumbnails: defaults.GenerateThumbnails,
		MaxFileSize:        defaults.MaxFileSize,
		AllowedExtensions:  opts.AllowedExtensions,
		ImageQuality:       defaults.ImageQuality,
		ImageMaxWidth:      defaults.ImageMaxWidth,
		ImageMaxHeight:     defaults.ImageMaxHeight,
	}

	if opts.Disk != "" {
		r.Disk = opts.Disk
	}
	if opts.Folder != "" {
		r.Folder = opts.Folder
	}
	if opts.IsPublic != nil {
		r.IsPublic = *opts.IsPublic
	}
	if opts.GenerateThumbnails != nil {
		r.GenerateThumbnails = *opts.GenerateThumbnails
	}
	if opts.MaxFileSize > 0 {
		r.MaxFileSize = opts.MaxFileSize
	}
	if opts.ImageQuality > 0 {
		r.ImageQuality = opts.ImageQuality
	}
	if opts.ImageMaxWidth > 0 {
		r.ImageMaxWidth = opts.ImageMaxWidth
	}
	if opts.ImageMaxHeight > 0 {
		r.ImageMaxHeight = opts.ImageMaxHeight
	}

	return r
}
