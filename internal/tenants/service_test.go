package tenants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficinaflow/oficinaflow-backend/pkg/db/dbtest"
	"github.com/oficinaflow/oficinaflow-backend/pkg/db/models"
	"github.com/oficinaflow/oficinaflow-backend/pkg/enums"
	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
)

func newService(t *testing.T) (*Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.New(t).DB())
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	return svc, repo
}

func seed(t *testing.T, repo Repository, subdomain string, status enums.TenantStatus) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		Document:     "doc-" + subdomain,
		DocumentType: enums.DocumentTypeCNPJ,
		Subdomain:    subdomain,
		Name:         "Oficina " + subdomain,
		Plan:         enums.PlanStarter,
		Status:       status,
	}
	require.NoError(t, repo.Create(context.Background(), tenant))
	return tenant
}

func TestActivateOnCheckout(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	tenant := seed(t, repo, "oficina-joao", enums.TenantStatusPending)

	changed, err := svc.ActivateOnCheckout(ctx, tenant.ID, enums.PlanProfessional)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := svc.Get(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TenantStatusActive, stored.Status)
	assert.Equal(t, enums.PlanProfessional, stored.Plan)

	changed, err = svc.ActivateOnCheckout(ctx, tenant.ID, enums.PlanEnterprise)
	require.NoError(t, err)
	assert.False(t, changed, "second activation must be a no-op")

	stored, err = svc.Get(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PlanProfessional, stored.Plan)
}

func TestCancelledTenantNeverReactivates(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	tenant := seed(t, repo, "oficina-fechada", enums.TenantStatusCancelled)

	changed, err := svc.ActivateOnCheckout(ctx, tenant.ID, enums.PlanStarter)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = svc.SuspendOnSubscriptionDeleted(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := svc.Get(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TenantStatusCancelled, stored.Status)
}

func TestSuspendOnSubscriptionDeleted(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	active := seed(t, repo, "oficina-ativa", enums.TenantStatusActive)
	pending := seed(t, repo, "oficina-pendente", enums.TenantStatusPending)

	changed, err := svc.SuspendOnSubscriptionDeleted(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.SuspendOnSubscriptionDeleted(ctx, active.ID)
	require.NoError(t, err)
	assert.False(t, changed, "re-suspending is a safe no-op")

	changed, err = svc.SuspendOnSubscriptionDeleted(ctx, pending.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := svc.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TenantStatusPending, stored.Status)
}

func TestCancel(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	for _, status := range []enums.TenantStatus{enums.TenantStatusPending, enums.TenantStatusActive, enums.TenantStatusSuspended} {
		tenant := seed(t, repo, "cancel-"+string(status), status)
		changed, err := svc.Cancel(ctx, tenant.ID)
		require.NoError(t, err)
		assert.True(t, changed, "cancel from %s", status)

		stored, err := svc.Get(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, enums.TenantStatusCancelled, stored.Status)

		changed, err = svc.Cancel(ctx, tenant.ID)
		require.NoError(t, err)
		assert.False(t, changed)
	}
}

func TestTransitionsOnMissingTenant(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.ActivateOnCheckout(context.Background(), uuid.New(), enums.PlanStarter)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepository_FindMostRecentByStatus(t *testing.T) {
	_, repo := newService(t)
	ctx := context.Background()

	older := seed(t, repo, "antiga", enums.TenantStatusPending)
	time.Sleep(5 * time.Millisecond)
	newer := seed(t, repo, "nova", enums.TenantStatusPending)
	seed(t, repo, "ativa", enums.TenantStatusActive)

	got, err := repo.FindMostRecentByStatus(ctx, enums.TenantStatusPending)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.NotEqual(t, older.ID, got.ID)
}

func TestRepository_TransitionStatusGuardsFromState(t *testing.T) {
	_, repo := newService(t)
	ctx := context.Background()
	tenant := seed(t, repo, "guarded", enums.TenantStatusActive)

	changed, err := repo.TransitionStatus(ctx, tenant.ID, []enums.TenantStatus{enums.TenantStatusPending}, enums.TenantStatusActive, nil)
	require.NoError(t, err)
	assert.False(t, changed)
}
