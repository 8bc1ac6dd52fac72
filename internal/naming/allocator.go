// Package naming derives collision-free stored filenames and
// time-partitioned folder paths for uploads.
package naming

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"mediastore/internal/filetype"
)

// Allocation is the result of a name allocation: the stored filename and
// the folder it lives under, both relative to the disk root.
type Allocation struct {
	StoredName string
	Folder     string
}

// Path returns folder/storedName.
func (a Allocation) Path() string {
	return path.Join(a.Folder, a.StoredName)
}

// Allocate derives a stored name from the original filename and a folder
// partitioned as {baseFolder}/{category}/{year}/{month}. The stored name
// is the slugified base plus a UUID suffix plus the original extension,
// so repeated uploads of identically named files never collide.
func Allocate(originalName string, category filetype.Category, baseFolder string, now time.Time) Allocation {
	ext := strings.ToLower(path.Ext(originalName))
	base := strings.TrimSuffix(path.Base(originalName), path.Ext(originalName))

	name := slug.Make(base)
	if name == "" {
		name = "file"
	}

	storedName := fmt.Sprintf("%s-%s%s", name, uuid.New().String(), ext)
	folder := path.Join(baseFolder, string(category), fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())))

	return Allocation{
		StoredName: storedName,
		Folder:     folder,
	}
}

// Extension returns the lowercased extension of name without the dot, or
// "" when there is none.
func Extension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	return strings.TrimPrefix(ext, ".")
}

// ThumbnailPath derives the storage path for a thumbnail variant of the
// primary object: {folder}/thumbnails/{base}_{size}{ext}.
func ThumbnailPath(folder, storedName, size string) string {
	ext := path.Ext(storedName)
	base := strings.TrimSuffix(storedName, ext)
	return path.Join(folder, "thumbnails", fmt.Sprintf("%s_%s%s", base, size, ext))
}
