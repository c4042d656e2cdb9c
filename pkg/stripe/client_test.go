package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficinaflow/oficinaflow-backend/pkg/config"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:             "sk_test_123",
		Secret:             "whsec_abc",
		Env:                "TEST",
		SessionLookupLimit: 0,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "whsec_abc", client.SigningSecret())
	assert.Equal(t, "brl", client.Currency())
	assert.Equal(t, int64(10), client.SessionLookupLimit())
}

func TestNewClientRejectsMismatchedKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{
		APIKey: "sk_live_123",
		Secret: "whsec_abc",
		Env:    "test",
	}, nil)
	require.Error(t, err)
}

func TestNewClientRequiresSecrets(t *testing.T) {
	_, err := NewClient(context.Background(), config.StripeConfig{Secret: "whsec"}, nil)
	assert.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(context.Background(), config.StripeConfig{APIKey: "sk_test_1"}, nil)
	assert.ErrorIs(t, err, errSecretRequired)
}

func TestNormalizeEnv(t *testing.T) {
	env, err := normalizeEnv("")
	require.NoError(t, err)
	assert.Equal(t, "test", env)

	_, err = normalizeEnv("staging")
	assert.ErrorIs(t, err, errInvalidStripeEnv)
}

func TestNilClientAccessors(t *testing.T) {
	var client *Client
	assert.Empty(t, client.Environment())
	assert.Empty(t, client.SigningSecret())
	assert.False(t, client.IgnoreAPIVersion())
}
