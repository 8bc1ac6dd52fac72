package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriverUnknownType(t *testing.T) {
	_, err := NewDriver(Config{Name: "x", Type: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry([]Config{
		{Name: "local", Type: "local", BasePath: t.TempDir()},
		{Name: "public", Type: "local", BasePath: t.TempDir(), BaseURL: "http://localhost/static"},
	})
	require.NoError(t, err)

	d, ok := reg.Disk("public")
	require.True(t, ok)
	assert.Equal(t, "public", d.Name())

	_, ok = reg.Disk("missing")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"local", "public"}, reg.Names())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]Config{
		{Name: "local", Type: "local", BasePath: t.TempDir()},
		{Name: "local", Type: "local", BasePath: t.TempDir()},
	})
	assert.Error(t, err)
}

func TestRegistryRejectsUnnamedDisk(t *testing.T) {
	_, err := NewRegistry([]Config{{Type: "local", BasePath: t.TempDir()}})
	assert.Error(t, err)
}
