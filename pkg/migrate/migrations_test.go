package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestMigrationContainsConstraints(t *testing.T) {
	cases := map[string][]string{
		"*_create_tenants.sql": {
			"CREATE TABLE IF NOT EXISTS tenants",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_document ON tenants (document)",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_subdomain ON tenants (subdomain)",
			"CHECK (status IN ('PENDING', 'ACTIVE', 'SUSPENDED', 'CANCELLED'))",
			"DROP TABLE IF EXISTS tenants",
		},
		"*_create_subscriptions.sql": {
			"FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_tenant ON subscriptions (tenant_id)",
			"DROP TABLE IF EXISTS subscriptions",
		},
		"*_create_users.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_tenant_email ON users (tenant_id, email)",
			"ON users (tenant_id) WHERE role = 'ADMIN'",
			"DROP TABLE IF EXISTS users",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) == 0 {
			t.Fatalf("no migration matching %s", pattern)
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", pattern, sub)
			}
		}
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	bad := fstest.MapFS{
		"m/20260101000000_ok.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"m/2026_bad.sql":          {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if err := ValidateFS(bad, "m"); err == nil {
		t.Fatal("expected invalid filename error")
	}

	dup := fstest.MapFS{
		"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if err := ValidateFS(dup, "m"); err == nil {
		t.Fatal("expected duplicate version error")
	}

	noDown := fstest.MapFS{
		"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n")},
	}
	if err := ValidateFS(noDown, "m"); err == nil {
		t.Fatal("expected missing down error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Trial Columns!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_trial_columns.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestMigrationFilename(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	name, err := MigrationFilename(now, "Índice de assinatura por cliente")
	if err != nil {
		t.Fatalf("filename: %v", err)
	}
	if name != "20260301120000_indice_de_assinatura_por_cliente.sql" {
		t.Fatalf("unexpected filename %s", name)
	}
	if _, err := MigrationFilename(now, "  !!  "); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestCreateSQLMigrationRequiresDir(t *testing.T) {
	if _, err := CreateSQLMigration("", "first"); err == nil {
		t.Fatal("expected error without dir")
	}
}

func TestDialect(t *testing.T) {
	if got := Dialect("sqlite"); got != "sqlite3" {
		t.Fatalf("expected sqlite3, got %s", got)
	}
	if got := Dialect("postgres"); got != "postgres" {
		t.Fatalf("expected postgres, got %s", got)
	}
}

func TestShouldAutoRun(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want bool
	}{
		{"sqlite always", config.Config{DB: config.DBConfig{Driver: "sqlite"}, App: config.AppConfig{Env: "prod"}}, true},
		{"dev with flag", config.Config{App: config.AppConfig{Env: "dev"}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}, true},
		{"dev without flag", config.Config{App: config.AppConfig{Env: "dev"}}, false},
		{"prod postgres", config.Config{App: config.AppConfig{Env: "prod"}, FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true}}, false},
	}
	for _, tc := range cases {
		if got := ShouldAutoRun(&tc.cfg); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
