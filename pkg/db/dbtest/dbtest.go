// Package dbtest opens throwaway sqlite databases with the application schema.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
)

// adminIndex mirrors the partial unique index from the users migration.
const adminIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_tenant_admin ON users (tenant_id) WHERE role = 'ADMIN'`

// New returns a client bound to a private in-memory database that is closed with the test.
func New(t testing.TB) *db.Client {
	t.Helper()

	cfg := config.DBConfig{
		Driver:       config.DBDriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	if err := client.DB().Exec(adminIndex).Error; err != nil {
		t.Fatalf("create admin index: %v", err)
	}
	return client
}
