package database

import (
	"path/filepath"
	"testing"

	"task-tracker-api/internal/config"
	"task-tracker-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db))
	require.True(t, db.Migrator().HasTable(&models.Task{}))
	require.True(t, db.Migrator().HasTable(&models.User{}))
	require.True(t, db.Migrator().HasIndex(&models.Task{}, "TaskID"))

	// migrating twice is harmless
	require.NoError(t, Migrate(db))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "oracle")
}
