package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oficinaflow/oficinaflow-backend/pkg/db/dbtest"
)

func TestBaseDBBindsContext(t *testing.T) {
	conn := dbtest.New(t).DB()
	base := NewBase(conn)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx.Statement)
	assert.Equal(t, ctx, withCtx.Statement.Context)

	assert.Same(t, conn, base.DB(nil))
}

func TestBaseBind(t *testing.T) {
	client := dbtest.New(t)
	base := NewBase(client.DB())

	assert.Equal(t, base, base.Bind(nil))

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		bound := base.Bind(tx)
		assert.Same(t, tx, bound.DB(nil))
		return nil
	})
	require.NoError(t, err)
}
