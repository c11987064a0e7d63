package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// migrationTemplate is the default template for new migrations
const migrationUpTemplate = `-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
-- Description: {{.Description}}

-- Write your UP migration SQL here

`

const migrationDownTemplate = `-- Migration: {{.Name}} (Rollback)
-- Created: {{.Timestamp}}
-- Description: Rollback for {{.Description}}

-- Write your DOWN migration SQL here

`

const tenantColumnUpTemplate = `-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
-- Description: {{.Description}}

ALTER TABLE {{.Table}} ADD COLUMN IF NOT EXISTS {{.Column}} VARCHAR(64);
{{- if .ReferencedTable}}
ALTER TABLE {{.Table}} ADD CONSTRAINT fk_{{.Table}}_{{.Column}}
    FOREIGN KEY ({{.Column}}) REFERENCES {{.ReferencedTable}} (id);
{{- end}}
CREATE INDEX IF NOT EXISTS idx_{{.Table}}_{{.Column}} ON {{.Table}} ({{.Column}});

-- Backfill existing rows, then enforce the column:
-- ALTER TABLE {{.Table}} ALTER COLUMN {{.Column}} SET NOT NULL;
`

const tenantColumnDownTemplate = `-- Migration: {{.Name}} (Rollback)
-- Created: {{.Timestamp}}

DROP INDEX IF EXISTS idx_{{.Table}}_{{.Column}};
ALTER TABLE {{.Table}} DROP COLUMN IF EXISTS {{.Column}};
`

// MigrationFile represents a migration file pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string

	// Set for tenant column migrations.
	Table           string
	Column          string
	ReferencedTable string
}

// JoinTenantColumn names the tenant column a join table is missing.
type JoinTenantColumn struct {
	Table           string
	Column          string
	ReferencedTable string // empty skips the foreign key
}

// CreateMigration creates a new empty migration file pair
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	return writeMigration(migrationsDir, &MigrationFile{Name: name, Description: description},
		migrationUpTemplate, migrationDownTemplate)
}

// CreateTenantColumnMigration creates a migration pair adding col to its join
// table. The column starts nullable so existing rows can be backfilled.
func CreateTenantColumnMigration(migrationsDir string, col JoinTenantColumn) (*MigrationFile, error) {
	if col.Table == "" || col.Column == "" {
		return nil, fmt.Errorf("join table and tenant column are required")
	}
	mf := &MigrationFile{
		Name:            fmt.Sprintf("add %s to %s", col.Column, col.Table),
		Description:     fmt.Sprintf("Tenant column for join table %s", col.Table),
		Table:           col.Table,
		Column:          col.Column,
		ReferencedTable: col.ReferencedTable,
	}
	return writeMigration(migrationsDir, mf, tenantColumnUpTemplate, tenantColumnDownTemplate)
}

func writeMigration(migrationsDir string, mf *MigrationFile, upTmpl, downTmpl string) (*MigrationFile, error) {
	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	// YYYYMMDDHHMMSS sorts after the embedded sequence numbers
	now := time.Now()
	mf.Version = now.Format("20060102150405")
	mf.Timestamp = now.Format(time.RFC3339)

	baseName := fmt.Sprintf("%s_%s", mf.Version, sanitizeName(mf.Name))
	mf.UpPath = filepath.Join(migrationsDir, baseName+".up.sql")
	mf.DownPath = filepath.Join(migrationsDir, baseName+".down.sql")

	if err := createMigrationFile(mf.UpPath, upTmpl, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := createMigrationFile(mf.DownPath, downTmpl, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}

	return mf, nil
}

// createMigrationFile creates a single migration file from template
func createMigrationFile(path, tmplContent string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// sanitizeName converts a migration name to a safe file name format
func sanitizeName(name string) string {
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			result = append(result, c)
		case c >= 'A' && c <= 'Z':
			result = append(result, c+'a'-'A')
		case c >= '0' && c <= '9':
			result = append(result, c)
		case c == ' ' || c == '-' || c == '_':
			if len(result) > 0 && result[len(result)-1] != '_' {
				result = append(result, '_')
			}
		}
	}
	// Trim trailing underscore
	if len(result) > 0 && result[len(result)-1] == '_' {
		result = result[:len(result)-1]
	}
	return string(result)
}

// ListMigrations returns the base names of the up migrations in fsys.
func ListMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	migrations := make([]string, 0, len(entries)/2)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok && base != "" {
			migrations = append(migrations, base)
		}
	}
	return migrations, nil
}
