package workers

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mediastore/internal/models"
	"mediastore/internal/repositories"
	"mediastore/internal/storage"
)

func newSweepFixture(t *testing.T) (*CleanupWorker, repositories.UploadRepository, storage.Driver) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Upload{}))

	driver, err := storage.NewLocalDriver(storage.Config{
		Name:     "public",
		Type:     "local",
		BasePath: t.TempDir(),
	})
	require.NoError(t, err)

	reg := &storage.Registry{}
	reg.Register(driver)

	repo := repositories.NewUploadRepository(db)
	return NewCleanupWorker(repo, reg, time.Hour), repo, driver
}

func seedRecord(t *testing.T, repo repositories.UploadRepository, driver storage.Driver, name string, withObject bool) *models.Upload {
	t.Helper()
	ctx := context.Background()

	path := "sweep/" + name
	if withObject {
		stored, err := driver.Store(ctx, "sweep", name, strings.NewReader("content"), 7, "text/plain")
		require.NoError(t, err)
		path = stored
	}

	upload := &models.Upload{
		OwnerID:      "owner-1",
		OriginalName: name,
		StoredName:   name,
		Folder:       "sweep",
		Path:         path,
		Category:     "document",
		ContentType:  "text/plain",
		SizeBytes:    7,
		Disk:         "public",
		UploadedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, upload))
	return upload
}

func TestSweepRemovesOrphanedRecords(t *testing.T) {
	worker, repo, driver := newSweepFixture(t)
	ctx := context.Background()

	kept := seedRecord(t, repo, driver, "kept.txt", true)
	orphan := seedRecord(t, repo, driver, "orphan.txt", false)

	removed, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.FindByID(ctx, kept.ID)
	assert.NoError(t, err)

	_, err = repo.FindByID(ctx, orphan.ID)
	assert.ErrorIs(t, err, repositories.ErrUploadNotFound)
}

func TestSweepSkipsUnknownDisks(t *testing.T) {
	worker, repo, driver := newSweepFixture(t)
	ctx := context.Background()

	stray := seedRecord(t, repo, driver, "stray.txt", false)
	stray.Disk = "decommissioned"
	require.NoError(t, repo.Save(ctx, stray))

	removed, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	_, err = repo.FindByID(ctx, stray.ID)
	assert.NoError(t, err)
}

func TestSweepEmptyTable(t *testing.T) {
	worker, _, _ := newSweepFixture(t)

	removed, err := worker.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
