package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arremate-backend/migrations"
)

func TestPendingMigrations(t *testing.T) {
	files := fstest.MapFS{
		"002_alert_configs.sql": {Data: []byte("SELECT 1;")},
		"001_schema.sql":        {Data: []byte("SELECT 1;")},
		"003_reset_all.sql":     {Data: []byte("DROP SCHEMA public;")},
		"README.md":             {Data: []byte("notes")},
		"old/004_legacy.sql":    {Data: []byte("SELECT 1;")},
	}

	pending, err := PendingMigrations(files, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_schema.sql", "002_alert_configs.sql"}, pending)

	pending, err = PendingMigrations(files, map[string]bool{"001_schema.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_alert_configs.sql"}, pending)
}

func TestEmbeddedMigrationsAreListed(t *testing.T) {
	pending, err := PendingMigrations(migrations.FS, nil)
	require.NoError(t, err)
	assert.Contains(t, pending, "001_arremate_schema.sql")
}
