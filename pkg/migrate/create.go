package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const migrationTemplate = `-- +goose Up
-- %[1]s
-- Keep statements portable: the same files run on postgres and on sqlite in tests.

-- +goose Down
-- rollback %[1]s
`

// MigrationFilename turns a free-form description into <version>_<name>.sql.
func MigrationFilename(now time.Time, name string) (string, error) {
	safe := strings.ReplaceAll(slug.Make(name), "-", "_")
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	return fmt.Sprintf("%s_%s.sql", now.UTC().Format("20060102150405"), safe), nil
}

// CreateSQLMigration writes an empty goose SQL migration under dir and
// returns its path. Existing files are never overwritten.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	filename, err := MigrationFilename(time.Now(), name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	fullpath := filepath.Join(dir, filename)
	f, err := os.OpenFile(fullpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", fullpath, err)
	}
	defer f.Close()

	label := strings.TrimSuffix(filename, ".sql")
	if _, err := fmt.Fprintf(f, migrationTemplate, label); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}
