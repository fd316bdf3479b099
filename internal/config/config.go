package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	HTTPAddr    string
	LogLevel    string

	JWTSecret      string
	JWTTTLSeconds  int
	SessionTTLDays int

	CORSAllowedOrigins []string
	RateLimitPerMinute int

	InviteExpiryDays     int
	InviteDailyLimit     int
	ResetTokenTTLMinutes int

	ActivityRetentionDays int
	WorkerTickSeconds     int

	ArchiveProvider        string // "aliyun" | "local" | ""
	ArchiveEndpoint        string
	ArchiveRegion          string
	ArchiveBucket          string
	ArchiveBasePrefix      string
	ArchiveAccessKeyID     string
	ArchiveAccessKeySecret string
	ArchiveSTSRoleARN      string
	ArchiveSTSDurationSecs int
	ArchiveLocalDir        string
}

func Load() (Config, error) {
	// Optional: load local .env for development. Missing file is fine.
	_ = godotenv.Load()

	jwtTTL := getenvIntDefault("ARFA_JWT_TTL_SECONDS", 86400) // 24 hours
	if jwtTTL < 60 {
		jwtTTL = 60
	}

	sessionTTL := getenvIntDefault("ARFA_SESSION_TTL_DAYS", 30)
	if sessionTTL < 1 {
		sessionTTL = 1
	}

	rateLimit := getenvIntDefault("ARFA_RATE_LIMIT_PER_MINUTE", 120)
	if rateLimit < 1 {
		rateLimit = 1
	}

	inviteExpiry := getenvIntDefault("ARFA_INVITE_EXPIRY_DAYS", 7)
	if inviteExpiry < 1 {
		inviteExpiry = 1
	}

	inviteDaily := getenvIntDefault("ARFA_INVITE_DAILY_LIMIT", 20)
	if inviteDaily < 1 {
		inviteDaily = 1
	}

	resetTTL := getenvIntDefault("ARFA_RESET_TOKEN_TTL_MINUTES", 60)
	if resetTTL < 5 {
		resetTTL = 5
	}

	retention := getenvIntDefault("ARFA_ACTIVITY_RETENTION_DAYS", 90)
	if retention < 1 {
		retention = 1
	}

	workerTick := getenvIntDefault("ARFA_WORKER_TICK_SECONDS", 60)
	if workerTick < 1 {
		workerTick = 1
	}

	cfg := archiveFromEnv()

	cfg.DatabaseURL = os.Getenv("ARFA_DATABASE_URL")
	cfg.HTTPAddr = getenvDefault("ARFA_HTTP_ADDR", ":8080")

	cfg.JWTSecret = os.Getenv("ARFA_JWT_SECRET")
	cfg.JWTTTLSeconds = jwtTTL
	cfg.SessionTTLDays = sessionTTL

	cfg.CORSAllowedOrigins = getenvCSV("ARFA_CORS_ALLOWED_ORIGINS")
	cfg.RateLimitPerMinute = rateLimit

	cfg.InviteExpiryDays = inviteExpiry
	cfg.InviteDailyLimit = inviteDaily
	cfg.ResetTokenTTLMinutes = resetTTL

	cfg.ActivityRetentionDays = retention
	cfg.WorkerTickSeconds = workerTick

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("ARFA_DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("ARFA_JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadArchive reads only the archive and logging settings. Operator tooling
// that never opens the database or signs tokens loads this subset, so it
// runs without ARFA_DATABASE_URL and ARFA_JWT_SECRET set.
func LoadArchive() (Config, error) {
	_ = godotenv.Load()
	cfg := archiveFromEnv()
	if cfg.ArchiveProvider == "" {
		return Config{}, errors.New("ARFA_ARCHIVE_PROVIDER is required")
	}
	return cfg, nil
}

func archiveFromEnv() Config {
	stsDuration := getenvIntDefault("ARFA_ARCHIVE_STS_DURATION_SECONDS", 900) // 15 minutes
	if stsDuration < 60 {
		stsDuration = 60
	}
	if stsDuration > 3600 {
		stsDuration = 3600
	}

	return Config{
		LogLevel: getenvDefault("ARFA_LOG_LEVEL", "info"),

		ArchiveProvider:        strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_PROVIDER")),
		ArchiveEndpoint:        strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_ENDPOINT")),
		ArchiveRegion:          strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_REGION")),
		ArchiveBucket:          strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_BUCKET")),
		ArchiveBasePrefix:      strings.Trim(strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_BASE_PREFIX")), "/"),
		ArchiveAccessKeyID:     strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_ACCESS_KEY_ID")),
		ArchiveAccessKeySecret: strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_ACCESS_KEY_SECRET")),
		ArchiveSTSRoleARN:      strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_STS_ROLE_ARN")),
		ArchiveSTSDurationSecs: stsDuration,
		ArchiveLocalDir:        strings.TrimSpace(os.Getenv("ARFA_ARCHIVE_LOCAL_DIR")),
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvCSV(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
