package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/draft?sslmode=disable", MigrateURL("postgres://u:p@localhost:5432/draft?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/draft", MigrateURL("postgresql://localhost/draft"))
	assert.Equal(t, "pgx5://already", MigrateURL("pgx5://already"))
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "migrations/000001_create_draft_tables.up.sql")
	assert.Contains(t, files, "migrations/000001_create_draft_tables.down.sql")
}
