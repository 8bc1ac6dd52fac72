package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		want        Category
	}{
		{"image/jpeg", CategoryImage},
		{"image/png", CategoryImage},
		{"image/webp", CategoryImage},
		{"IMAGE/JPEG", CategoryImage},
		{"image/jpeg; charset=binary", CategoryImage},
		{"video/mp4", CategoryVideo},
		{"video/quicktime", CategoryVideo},
		{"audio/mpeg", CategoryAudio},
		{"application/pdf", CategoryDocument},
		{"application/msword", CategoryDocument},
		{"text/plain", CategoryDocument},
		{"text/csv", CategoryDocument},
		{"application/zip", CategoryArchive},
		{"application/gzip", CategoryArchive},
		{"application/octet-stream", CategoryOther},
		{"application/x-unknown", CategoryOther},
		{"", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.contentType))
		})
	}
}

func TestIsAllowed(t *testing.T) {
	assert.True(t, IsAllowed("image/jpeg"))
	assert.True(t, IsAllowed("application/pdf"))
	assert.True(t, IsAllowed("application/zip"))
	assert.True(t, IsAllowed("audio/ogg"))

	assert.False(t, IsAllowed("application/octet-stream"))
	assert.False(t, IsAllowed("application/x-msdownload"))
	assert.False(t, IsAllowed(""))
}

func TestIsAllowedFor(t *testing.T) {
	assert.True(t, IsAllowedFor("image/png", CategoryImage))
	assert.False(t, IsAllowedFor("image/png", CategoryDocument))
	assert.False(t, IsAllowedFor("application/pdf", CategoryImage))
	assert.False(t, IsAllowedFor("anything", CategoryOther))
}

func TestAllowedTypes(t *testing.T) {
	images := AllowedTypes(CategoryImage)
	assert.Contains(t, images, "image/jpeg")
	assert.Contains(t, images, "image/webp")

	assert.Nil(t, AllowedTypes(CategoryOther))
}
