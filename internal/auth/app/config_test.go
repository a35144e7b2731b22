package app

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", testKey)

	cfg := LoadConfig()
	require.Equal(t, "turnstile", cfg.Issuer)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 8080, cfg.Port)
	require.Empty(t, cfg.Redis.Addr)
	require.Equal(t, "turnstile:", cfg.Redis.Prefix)
	require.Nil(t, cfg.CORSAllowedOrigins)
	require.Nil(t, cfg.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	for k, v := range map[string]string{
		"AUTH_SIGNING_KEY":            testKey,
		"AUTH_ISSUER":                 "issuer-x",
		"AUTH_ACCESS_TTL_MINUTES":     "5",
		"AUTH_REFRESH_TTL_DAYS":       "30",
		"REDIS_ADDR":                  "redis:6379",
		"REDIS_DB":                    "2",
		"REDIS_PREFIX":                "ts:",
		"REDIS_DIAL_TIMEOUT":          "2s",
		"MEMORY_CACHE_SWEEP_INTERVAL": "30s",
		"CORS_ALLOWED_ORIGINS":        "https://a.example, ,https://b.example",
		"PORT":                        "9090",
		"SHUTDOWN_GRACE_PERIOD":       "3",
		"RATELIMIT_STRICT_BURST":      "42",
		"TRUSTED_PROXIES":             "10.0.0.0/8, 192.168.1.1",
	} {
		t.Setenv(k, v)
	}

	cfg := LoadConfig()
	require.Equal(t, "issuer-x", cfg.Issuer)
	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, 2, cfg.Redis.DB)
	require.Equal(t, "ts:", cfg.Redis.Prefix)
	require.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
	require.Equal(t, 30*time.Second, cfg.MemorySweepInterval)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 3*time.Minute, cfg.ShutdownGracePeriod)
	require.Equal(t, 42, cfg.RateLimits.Strict.Burst)
	require.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, cfg.TrustedProxies)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			SigningKey: testKey,
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			Port:       8080,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing key", mutate: func(c *Config) { c.SigningKey = "" }, want: "AUTH_SIGNING_KEY"},
		{name: "short key", mutate: func(c *Config) { c.SigningKey = "short" }, want: "too short"},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTTL = 0 }, want: "AUTH_ACCESS_TTL_MINUTES"},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.RefreshTTL = time.Minute }, want: "AUTH_REFRESH_TTL_DAYS"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, want: "PORT"},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.TrustedProxies = []string{"proxy.internal"} }, want: "TRUSTED_PROXIES"},
		{name: "half bootstrap", mutate: func(c *Config) { c.BootstrapAdminUsername = "root" }, want: "BOOTSTRAP_ADMIN"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}

	require.NoError(t, valid().Validate())
}

func TestDecodeSigningKey(t *testing.T) {
	raw := strings.Repeat("k", jwtx.MinKeyLength)
	key, err := decodeSigningKey(raw)
	require.NoError(t, err)
	require.Equal(t, []byte(raw), key)

	bin := make([]byte, 48)
	for i := range bin {
		bin[i] = byte(i)
	}
	key, err = decodeSigningKey(base64KeyPrefix + base64.StdEncoding.EncodeToString(bin))
	require.NoError(t, err)
	require.Equal(t, bin, key)

	_, err = decodeSigningKey(base64KeyPrefix + base64.StdEncoding.EncodeToString(bin[:16]))
	require.ErrorIs(t, err, jwtx.ErrWeakKey)

	_, err = decodeSigningKey(base64KeyPrefix + "!!!")
	require.Error(t, err)
}
