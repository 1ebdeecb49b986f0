// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the process entry point needs to wire the service.
type Config struct {
	HTTPAddr       string
	AllowedOrigins []string
	GatewayToken   string

	DBDriver    string // postgres | sqlite
	DatabaseURL string

	LogEnv string

	NotificationTargetURL    string   // default deep link for push notifications
	NotificationAllowedHosts []string // webhook hosts users may register

	RewardTimezone    string
	LedgerMaxAttempts int
	TaskCatalogPath   string

	WeeklyAggregationInterval time.Duration

	ProfileSyncURL      string
	ProfileSyncToken    string
	ProfileSyncInterval time.Duration

	ChainRPCURL         string
	TokenContract       string
	TokenMirrorInterval time.Duration

	R2 R2Config
}

// R2Config holds the Cloudflare R2 credentials used for leaderboard archives.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough is configured to talk to R2.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:       GetString("HTTP_ADDR", ":5200"),
		AllowedOrigins: splitList(GetString("ALLOWED_ORIGINS", "http://localhost:3000")),
		GatewayToken:   GetString("GATEWAY_SERVICE_TOKEN", ""),

		DBDriver:    strings.ToLower(GetString("DB_DRIVER", "postgres")),
		DatabaseURL: GetString("DATABASE_URL", ""),

		LogEnv: GetString("LOG_ENV", "development"),

		NotificationTargetURL:    GetString("NOTIFICATION_TARGET_URL", ""),
		NotificationAllowedHosts: splitList(strings.ToLower(GetString("NOTIFICATION_ALLOWED_HOSTS", "api.farcaster.xyz,api.warpcast.com"))),

		RewardTimezone:    GetString("REWARD_TIMEZONE", "UTC"),
		LedgerMaxAttempts: GetInt("LEDGER_MAX_ATTEMPTS", 3),
		TaskCatalogPath:   GetString("TASK_CATALOG_PATH", "tasks.toml"),

		WeeklyAggregationInterval: GetDuration("WEEKLY_AGGREGATION_INTERVAL", 5*time.Minute),

		ProfileSyncURL:      GetString("PROFILE_SYNC_URL", ""),
		ProfileSyncToken:    GetString("PROFILE_SYNC_TOKEN", ""),
		ProfileSyncInterval: GetDuration("PROFILE_SYNC_INTERVAL", time.Minute),

		ChainRPCURL:         GetString("CHAIN_RPC_URL", ""),
		TokenContract:       GetString("TOKEN_CONTRACT", ""),
		TokenMirrorInterval: GetDuration("TOKEN_MIRROR_INTERVAL", 10*time.Minute),

		R2: R2Config{
			AccountID:       GetString("CLOUDFLARE_ACCOUNT_ID", ""),
			AccessKeyID:     GetString("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: GetString("R2_ACCESS_KEY_SECRET", ""),
			Bucket:          GetString("R2_BUCKET_NAME", ""),
			CDNBaseURL:      GetString("CDN_BASE_URL", ""),
		},
	}
}

// Location resolves RewardTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.RewardTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REWARD_TIMEZONE %q: %w", c.RewardTimezone, err)
	}
	return loc, nil
}

// Validate checks the values every command needs. requireGateway is set by `serve`.
func (c *Config) Validate(requireGateway bool) error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.DBDriver))
	}
	if requireGateway && c.GatewayToken == "" {
		errs = append(errs, errors.New("GATEWAY_SERVICE_TOKEN is not set, service cannot authenticate the gateway"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.LedgerMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("LEDGER_MAX_ATTEMPTS must be >= 1, got %d", c.LedgerMaxAttempts))
	}
	if c.ChainRPCURL != "" && c.TokenContract == "" {
		errs = append(errs, errors.New("TOKEN_CONTRACT is required when CHAIN_RPC_URL is set"))
	}
	return errors.Join(errs...)
}

func GetString(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func GetInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return defaultValue
		}
		return n
	}
	return defaultValue
}

func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
