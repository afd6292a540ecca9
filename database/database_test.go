package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patiponrmutl/thaimilitary/config"
	"github.com/patiponrmutl/thaimilitary/database"
	"github.com/patiponrmutl/thaimilitary/models"
)

func TestOpenSQLiteCreatesDirectoryAndTables(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "tmo.db")
	db, err := database.Open(&config.Config{DBDriver: "sqlite", DBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	assert.FileExists(t, path)
	assert.True(t, db.Migrator().HasTable(&models.Request{}))
	assert.True(t, db.Migrator().HasTable("military_requests"))
	assert.True(t, db.Migrator().HasTable(&models.AdminAccount{}))
}
