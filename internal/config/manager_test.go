package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSource_Get(t *testing.T) {
	src := NewEnvSource()
	assert.Equal(t, "env", src.Name())

	t.Setenv("CAPTCHA_TEST_KEY", "  value  ")
	val, err := src.Get("CAPTCHA_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "value", val)

	_, err = src.Get("CAPTCHA_TEST_KEY_UNSET")
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	src, err := newSource("env")
	require.NoError(t, err)
	assert.Equal(t, "env", src.Name())

	_, err = newSource("consul")
	assert.Error(t, err)
}

func TestNewVaultSource_RequiresAddrAndToken(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")
	_, err := NewVaultSource()
	assert.Error(t, err)
}

func TestGetDefault(t *testing.T) {
	t.Setenv("CAPTCHA_TEST_PORT", "9090")
	assert.Equal(t, "9090", GetDefault("CAPTCHA_TEST_PORT", "8080"))
	assert.Equal(t, "8080", GetDefault("CAPTCHA_TEST_PORT_UNSET", "8080"))
}
