// Package filetype maps declared content types onto coarse file
// categories and owns the per-category content-type allow-lists.
package filetype

import "strings"

// Category is the coarse classification of an upload.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryArchive  Category = "archive"
	CategoryOther    Category = "other"
)

// documentTypes is the fixed list of office/PDF/text content types.
var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/rtf": true,
	"text/plain":      true,
	"text/csv":        true,
}

// archiveTypes is the fixed list of archive content types.
var archiveTypes = map[string]bool{
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/x-tar":            true,
	"application/gzip":             true,
	"application/x-7z-compressed":  true,
	"application/x-rar-compressed": true,
	"application/vnd.rar":          true,
}

// imageTypes is the category allow-list for images. Callers that restrict
// uploads per category (e.g. profile photos) check membership here.
var imageTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/bmp":     true,
	"image/svg+xml": true,
}

var videoTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
	"video/webm":      true,
	"video/x-msvideo": true,
	"video/x-matroska": true,
}

var audioTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/ogg":  true,
	"audio/aac":  true,
	"audio/flac": true,
	"audio/webm": true,
}

// Classify maps a declared content type onto a Category. Total: anything
// unrecognised is CategoryOther.
func Classify(contentType string) Category {
	ct := normalize(contentType)

	switch {
	case strings.HasPrefix(ct, "image/"):
		return CategoryImage
	case strings.HasPrefix(ct, "video/"):
		return CategoryVideo
	case strings.HasPrefix(ct, "audio/"):
		return CategoryAudio
	case documentTypes[ct]:
		return CategoryDocument
	case archiveTypes[ct]:
		return CategoryArchive
	default:
		return CategoryOther
	}
}

// AllowedTypes returns the content-type allow-list for a category.
// CategoryOther has no allow-list and returns nil.
func AllowedTypes(category Category) []string {
	var src map[string]bool
	switch category {
	case CategoryImage:
		src = imageTypes
	case CategoryDocument:
		src = documentTypes
	case CategoryVideo:
		src = videoTypes
	case CategoryAudio:
		src = audioTypes
	case CategoryArchive:
		src = archiveTypes
	default:
		return nil
	}

	out := make([]string, 0, len(src))
	for t := range src {
		out = append(out, t)
	}
	return out
}

// IsAllowed reports whether contentType is on the global allow-list
// spanning all recognised categories.
func IsAllowed(contentType string) bool {
	ct := normalize(contentType)
	return imageTypes[ct] || videoTypes[ct] || audioTypes[ct] ||
		documentTypes[ct] || archiveTypes[ct]
}

// IsAllowedFor reports whether contentType is on the allow-list of the
// given category.
func IsAllowedFor(contentType string, category Category) bool {
	ct := normalize(contentType)
	switch category {
	case CategoryImage:
		return imageTypes[ct]
	case CategoryDocument:
		return documentTypes[ct]
	case CategoryVideo:
		return videoTypes[ct]
	case CategoryAudio:
		return audioTypes[ct]
	case CategoryArchive:
		return archiveTypes[ct]
	default:
		return false
	}
}

// normalize strips parameters ("; charset=...") and lowercases.
func normalize(contentType string) string {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
