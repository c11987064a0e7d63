package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erp/jointenant/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add tenant_id to article_tags", "add_tenant_id_to_article_tags"},
		{"Add-Users-Table", "add_users_table"},
		{"add__users__table", "add_users_table"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "add users table", "Create users table with basic fields")
	require.NoError(t, err)

	assert.Len(t, mf.Version, 14)
	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "Create users table with basic fields")
	assert.Contains(t, string(upContent), "Write your UP migration SQL here")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "Rollback")
}

func TestCreateTenantColumnMigration(t *testing.T) {
	t.Run("adds the column, foreign key and index", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateTenantColumnMigration(dir, JoinTenantColumn{
			Table:           "article_tags",
			Column:          "tenant_id",
			ReferencedTable: "tenants",
		})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(mf.UpPath, "_add_tenant_id_to_article_tags.up.sql"))

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "ALTER TABLE article_tags ADD COLUMN IF NOT EXISTS tenant_id VARCHAR(64);")
		assert.Contains(t, string(up), "FOREIGN KEY (tenant_id) REFERENCES tenants (id);")
		assert.Contains(t, string(up), "CREATE INDEX IF NOT EXISTS idx_article_tags_tenant_id ON article_tags (tenant_id);")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "ALTER TABLE article_tags DROP COLUMN IF EXISTS tenant_id;")
	})

	t.Run("omits the foreign key without a referenced table", func(t *testing.T) {
		mf, err := CreateTenantColumnMigration(t.TempDir(), JoinTenantColumn{Table: "user_roles", Column: "tid"})
		require.NoError(t, err)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.NotContains(t, string(up), "FOREIGN KEY")
		assert.Contains(t, string(up), "ADD COLUMN IF NOT EXISTS tid")
	})

	t.Run("requires table and column", func(t *testing.T) {
		_, err := CreateTenantColumnMigration(t.TempDir(), JoinTenantColumn{Table: "article_tags"})
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("lists up migrations only", func(t *testing.T) {
		dir := t.TempDir()
		for _, f := range []string{
			"000001_init.up.sql",
			"000001_init.down.sql",
			"000002_add_tags.up.sql",
			"000002_add_tags.down.sql",
			"README.md",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0755))

		got, err := ListMigrations(os.DirFS(dir))
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init", "000002_add_tags"}, got)
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		got, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("embedded migrations", func(t *testing.T) {
		got, err := ListMigrations(migrations.FS)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"000001_create_tenancy",
			"000002_create_content",
			"000003_create_identity",
		}, got)
	})
}
