package recaptcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "captcha.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const testPolicy = `{
	"global": {
		"site_key": "site-key-global",
		"secret_key": "RECAPTCHA_SECRET",
		"theme": "light"
	},
	"actions": {
		"login": {"theme": "dark"},
		"search": {}
	}
}`

func TestCaptchaService_Verified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "env-secret", r.URL.Query().Get("secret"))
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("CAPTCHA_CONFIG", writePolicyFile(t, testPolicy))
	t.Setenv("RECAPTCHA_SECRET", "env-secret")

	svc := NewCaptchaService(WithEndpoint(srv.URL))
	result := svc.Verify(context.Background(), "token-123", "127.0.0.1", "login")
	assert.True(t, result.Success)
	assert.Equal(t, "verified", result.Status)
	assert.Empty(t, result.ErrorCodes)
}

func TestCaptchaService_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error-codes": ["timeout-or-duplicate"]}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("CAPTCHA_CONFIG", writePolicyFile(t, testPolicy))
	t.Setenv("RECAPTCHA_SECRET", "env-secret")

	svc := NewCaptchaService(WithEndpoint(srv.URL))
	result := svc.Verify(context.Background(), "stale-token", "", "login")
	assert.False(t, result.Success)
	assert.Equal(t, "success_failed", result.Status)
	assert.Equal(t, []string{CodeTimeoutOrDuplicate}, result.ErrorCodes)
}

func TestCaptchaService_TokenMissing(t *testing.T) {
	t.Setenv("CAPTCHA_CONFIG", writePolicyFile(t, testPolicy))
	t.Setenv("RECAPTCHA_SECRET", "env-secret")

	svc := NewCaptchaService()
	result := svc.Verify(context.Background(), "", "", "login")
	assert.False(t, result.Success)
	assert.Equal(t, "token_missing", result.Status)
	assert.Equal(t, []string{CodeMissingInput}, result.ErrorCodes)
}

func TestCaptchaService_SecretNotConfigured(t *testing.T) {
	policy := `{
		"global": {"site_key": "site-key", "secret_key": "MISSING_SECRET_KEY_FOR_TEST"},
		"actions": {"login": {}}
	}`
	t.Setenv("CAPTCHA_CONFIG", writePolicyFile(t, policy))
	os.Unsetenv("MISSING_SECRET_KEY_FOR_TEST")

	svc := NewCaptchaService()
	result := svc.Verify(context.Background(), "token-123", "", "login")
	assert.False(t, result.Success)
	assert.Equal(t, "config_error", result.Status)
}

func TestCaptchaService_VerifyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("CAPTCHA_CONFIG", writePolicyFile(t, testPolicy))
	t.Setenv("RECAPTCHA_SECRET", "env-secret")

	svc := NewCaptchaService(WithEndpoint(srv.URL))
	result := svc.Verify(context.Background(), "token-123", "", "login")
	assert.False(t, result.Success)
	assert.Equal(t, "verify_error", result.Status)
}

func TestCaptchaService_UnknownActionUsesGlobal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("CAPTCHA_CONFIG", writePolicyFile(t, testPolicy))
	t.Setenv("RECAPTCHA_SECRET", "env-secret")

	svc := NewCaptchaService(WithEndpoint(srv.URL))
	result := svc.Verify(context.Background(), "token-123", "", "signup")
	assert.True(t, result.Success)
}

func TestMetadata(t *testing.T) {
	t.Setenv("CAPTCHA_CONFIG", writePolicyFile(t, testPolicy))
	t.Setenv("RECAPTCHA_SECRET", "env-secret")

	meta, err := Metadata("login")
	require.NoError(t, err)
	assert.Equal(t, "login", meta.Action)
	assert.Equal(t, "site-key-global", meta.SiteKey)
	assert.Equal(t, "dark", meta.Theme)
}

func TestNewCaptchaService_PanicsWithoutPolicy(t *testing.T) {
	t.Setenv("CAPTCHA_CONFIG", filepath.Join(t.TempDir(), "does-not-exist.json"))

	assert.Panics(t, func() {
		NewCaptchaService()
	})
}
