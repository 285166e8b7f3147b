package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Backend)
	assert.Equal(t, 3*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  site_title: From File
database:
  backend: postgres
  query_timeout: 5s
auth:
  admin_emails:
    - Boss@Example.com
`), 0o600))

	t.Setenv("BLOG_DATABASE_DSN", "postgres://env/blog")
	t.Setenv("BLOG_RATELIMIT_REQUESTS_PER_MINUTE", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "From File", cfg.App.SiteTitle)
	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "postgres://env/blog", cfg.Database.DSN)
	assert.Equal(t, 7, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, []string{"boss@example.com"}, cfg.Auth.AdminEmails)
}

func TestAdminEmailsFromEnv(t *testing.T) {
	t.Setenv("BLOG_AUTH_ADMIN_EMAILS", "a@x.com, B@x.com")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.Auth.AdminEmails)
}

func TestValidate(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("BLOG_DATABASE_BACKEND", "oracle")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("production needs a secret", func(t *testing.T) {
		t.Setenv("BLOG_APP_ENV", "production")
		_, err := Load("")
		assert.Error(t, err)
	})
}
