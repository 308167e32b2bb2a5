package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	t.Run("Should embed every migration with up and down sections", func(t *testing.T) {
		entries, err := fs.ReadDir(migrationsFS, "migrations")
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		for _, entry := range entries {
			content, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
			require.NoError(t, err)
			assert.Contains(t, string(content), "-- +goose Up", entry.Name())
			assert.Contains(t, string(content), "-- +goose Down", entry.Name())
		}
	})

	t.Run("Should create the agents table before the tasks table", func(t *testing.T) {
		entries, err := fs.ReadDir(migrationsFS, "migrations")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Contains(t, entries[0].Name(), "agents")
		assert.Contains(t, entries[1].Name(), "tasks")
	})

	t.Run("Should cascade task deletion from agents", func(t *testing.T) {
		content, err := fs.ReadFile(migrationsFS, "migrations/00002_create_tasks.sql")
		require.NoError(t, err)
		assert.Contains(t, string(content), "REFERENCES agents (id) ON DELETE CASCADE")
	})
}
