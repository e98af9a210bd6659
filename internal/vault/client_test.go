package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientUsesStaticToken(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")

	c, err := NewClient(context.Background(),
		WithAddress("https://vault.internal:8200"),
		WithToken("s.static"),
	)
	require.NoError(t, err)
	assert.Equal(t, "s.static", c.api.Token())
	assert.Equal(t, "https://vault.internal:8200", c.api.Address())
}

func TestNewClientTokenFromEnvironment(t *testing.T) {
	t.Setenv("VAULT_ADDR", "https://vault.internal:8200")
	t.Setenv("VAULT_TOKEN", "s.env")

	c, err := NewClient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s.env", c.api.Token())
}

func TestOptionsIgnoreEmptyValues(t *testing.T) {
	cfg := &config{address: "https://vault.internal:8200", token: "s.static"}
	WithAddress("")(cfg)
	WithToken("")(cfg)

	assert.Equal(t, "https://vault.internal:8200", cfg.address)
	assert.Equal(t, "s.static", cfg.token)
}
