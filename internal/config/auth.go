package config

import (
	"time"

	"github.com/collegeerp/backend/internal/models"
	"github.com/spf13/viper"
)

type AuthConfig struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
	JWTSecret        string
	JWTExpiry        time.Duration
	CookieSecure     bool
	LoginRatePerMin  int
	LoginBurst       int
	StatsCacheTTL    time.Duration
}

func setAuthDefaults() {
	viper.SetDefault("auth.max_login_attempts", 5)
	viper.SetDefault("auth.lock_duration", 2*time.Hour)
	viper.SetDefault("jwt.expiry_hours", 24*7)
	viper.SetDefault("auth.cookie_secure", false)
	viper.SetDefault("auth.login_rate_per_min", 20)
	viper.SetDefault("auth.login_burst", 5)
	viper.SetDefault("fees.stats_cache_ttl", 30*time.Second)
}

// LoadAuthConfig reads the auth settings from viper. Values that do not
// parse to a positive number keep their defaults.
func LoadAuthConfig() *AuthConfig {
	setAuthDefaults()

	return &AuthConfig{
		MaxLoginAttempts: positiveInt("auth.max_login_attempts", 5),
		LockDuration:     positiveDuration("auth.lock_duration", 2*time.Hour),
		JWTSecret:        viper.GetString("jwt.secret_key"),
		JWTExpiry:        time.Duration(positiveInt("jwt.expiry_hours", 24*7)) * time.Hour,
		CookieSecure:     viper.GetBool("auth.cookie_secure"),
		LoginRatePerMin:  positiveInt("auth.login_rate_per_min", 20),
		LoginBurst:       positiveInt("auth.login_burst", 5),
		StatsCacheTTL:    positiveDuration("fees.stats_cache_ttl", 30*time.Second),
	}
}

func positiveInt(key string, defaultVal int) int {
	if v := viper.GetInt(key); v > 0 {
		return v
	}
	return defaultVal
}

func positiveDuration(key string, defaultVal time.Duration) time.Duration {
	if v := viper.GetDuration(key); v > 0 {
		return v
	}
	return defaultVal
}

// LockoutPolicy falls back to models.DefaultLockoutPolicy for unset values.
func (c *AuthConfig) LockoutPolicy() models.LockoutPolicy {
	policy := models.DefaultLockoutPolicy
	if c.MaxLoginAttempts > 0 {
		policy.MaxAttempts = c.MaxLoginAttempts
	}
	if c.LockDuration > 0 {
		policy.LockDuration = c.LockDuration
	}
	return policy
}
