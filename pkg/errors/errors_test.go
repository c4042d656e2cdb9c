package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusBadRequest,
		CodeConfiguration: http.StatusBadRequest,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		assert.Equal(t, status, MetadataFor(code).HTTPStatus, string(code))
	}
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("bogus")).HTTPStatus)
}

func TestAsFindsWrappedError(t *testing.T) {
	cause := stdErrors.New("boom")
	typed := Wrap(CodeDependency, cause, "create checkout session")
	wrapped := fmt.Errorf("outer: %w", typed)

	got := As(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, CodeDependency, got.Code())
	assert.True(t, stdErrors.Is(wrapped, cause))
	assert.True(t, IsCode(wrapped, CodeDependency))
	assert.False(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(cause, CodeDependency))
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("db down"), "load tenant")
	dump := Dump(err)
	assert.Equal(t, CodeInternal, dump.Code)
	assert.Len(t, dump.Chain, 2)
}

func TestDumpFlagsDuplicatesAndPostgresDetails(t *testing.T) {
	dup := Wrap(CodeConflict, gorm.ErrDuplicatedKey, "create tenant")
	assert.True(t, Dump(dup).Duplicate)

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "tenants_document_key", TableName: "tenants"}
	dump := Dump(Wrap(CodeDependency, pgErr, "insert tenant"))
	assert.True(t, dump.Duplicate)
	assert.True(t, dump.Retryable)
	assert.Equal(t, "tenants_document_key", dump.PGConstraint)
	assert.Equal(t, "tenants", dump.PGTable)

	assert.Equal(t, ErrorDump{}, Dump(nil))
}
