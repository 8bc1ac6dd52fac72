package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadForm struct {
	Disk       string `json:"disk" validate:"omitempty,min=1,max=64"`
	Folder     string `json:"folder" validate:"omitempty,storagefolder"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public private"`
}

func TestValidatePasses(t *testing.T) {
	v := New()
	err := v.Validate(&uploadForm{Disk: "public", Folder: "uploads/avatars", Visibility: "private"})
	assert.NoError(t, err)
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(&uploadForm{Visibility: "hidden"})
	require.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, vErr.Errors, "visibility")
}

func TestStorageFolderRule(t *testing.T) {
	v := New()

	for _, folder := range []string{"uploads", "a/b/c", ""} {
		assert.NoError(t, v.Validate(&uploadForm{Folder: folder}), folder)
	}

	for _, folder := range []string{"/abs", "up/../out", "a//b", "..", `win\path`} {
		assert.Error(t, v.Validate(&uploadForm{Folder: folder}), folder)
	}
}
