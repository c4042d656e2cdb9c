package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/oficinaflow/oficinaflow-backend/pkg/errors"
)

type signup struct {
	Email     string `json:"email" validate:"required,email"`
	Subdomain string `json:"subdomain" validate:"required,subdomain"`
}

func decode(body string) (signup, error) {
	var dest signup
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return dest, DecodeJSONBody(req, &dest)
}

func TestDecodeJSONBody(t *testing.T) {
	got, err := decode(`{"email":"dono@oficina.com.br","subdomain":"oficina-do-ze"}`)
	require.NoError(t, err)
	assert.Equal(t, "oficina-do-ze", got.Subdomain)
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"unknown field":  `{"email":"a@b.com","subdomain":"x","extra":1}`,
		"two objects":    `{"email":"a@b.com","subdomain":"x"}{}`,
		"bad subdomain":  `{"email":"a@b.com","subdomain":"Oficina do Zé"}`,
		"missing fields": `{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(body)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestDecodeJSONBodyDetailsUseJSONNames(t *testing.T) {
	_, err := decode(`{"email":"nope","subdomain":"under_score"}`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Contains(t, details["subdomain"], "lowercase")
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Oficina do João", SanitizeString("  Oficina  do\t João ", 0))
	assert.Equal(t, "João", SanitizeString("João da Silva", 4))
	assert.Equal(t, "", SanitizeString("   ", 10))
}
