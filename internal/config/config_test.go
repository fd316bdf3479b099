package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("ARFA_DATABASE_URL", "")
	t.Setenv("ARFA_JWT_SECRET", "secret")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARFA_DATABASE_URL")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("ARFA_DATABASE_URL", "postgres://localhost/arfa")
	t.Setenv("ARFA_JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARFA_JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ARFA_DATABASE_URL", "postgres://localhost/arfa")
	t.Setenv("ARFA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 86400, cfg.JWTTTLSeconds)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 7, cfg.InviteExpiryDays)
	assert.Equal(t, 20, cfg.InviteDailyLimit)
	assert.Equal(t, 90, cfg.ActivityRetentionDays)
}

func TestLoadClampsBounds(t *testing.T) {
	t.Setenv("ARFA_DATABASE_URL", "postgres://localhost/arfa")
	t.Setenv("ARFA_JWT_SECRET", "secret")
	t.Setenv("ARFA_JWT_TTL_SECONDS", "5")
	t.Setenv("ARFA_ARCHIVE_STS_DURATION_SECONDS", "99999")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.JWTTTLSeconds)
	assert.Equal(t, 3600, cfg.ArchiveSTSDurationSecs)
}

// Archive tooling loads without the database or JWT env set.
func TestLoadArchiveNeedsOnlyArchiveEnv(t *testing.T) {
	t.Setenv("ARFA_DATABASE_URL", "")
	t.Setenv("ARFA_JWT_SECRET", "")
	t.Setenv("ARFA_ARCHIVE_PROVIDER", "local")
	t.Setenv("ARFA_ARCHIVE_LOCAL_DIR", t.TempDir())
	t.Setenv("ARFA_ARCHIVE_BASE_PREFIX", "/arfa/")

	cfg, err := LoadArchive()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.ArchiveProvider)
	assert.Equal(t, "arfa", cfg.ArchiveBasePrefix)
	assert.Equal(t, 900, cfg.ArchiveSTSDurationSecs)
}

func TestLoadArchiveRequiresProvider(t *testing.T) {
	t.Setenv("ARFA_ARCHIVE_PROVIDER", "")
	_, err := LoadArchive()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARFA_ARCHIVE_PROVIDER")
}

func TestGetenvCSVDedupes(t *testing.T) {
	t.Setenv("ARFA_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,https://a.example, ")
	got := getenvCSV("ARFA_CORS_ALLOWED_ORIGINS")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, got)
}
