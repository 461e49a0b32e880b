package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// envKeys maps viper keys to the environment variables that set them.
var envKeys = map[string]string{
	"database.host":     "DATABASE_HOST",
	"database.port":     "DATABASE_PORT",
	"database.user":     "DATABASE_USER",
	"database.password": "DATABASE_PASSWORD",
	"database.name":     "DATABASE_NAME",
	"database.ssl_mode": "DATABASE_SSL_MODE",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key":   "JWT_SECRET_KEY",
	"jwt.expiry_hours": "JWT_EXPIRY_HOURS",

	"argon2.time":        "ARGON2_TIME",
	"argon2.memory":      "ARGON2_MEMORY",
	"argon2.threads":     "ARGON2_THREADS",
	"argon2.key_length":  "ARGON2_KEY_LENGTH",
	"argon2.salt_length": "ARGON2_SALT_LENGTH",

	"auth.max_login_attempts": "AUTH_MAX_LOGIN_ATTEMPTS",
	"auth.lock_duration":      "AUTH_LOCK_DURATION",
	"auth.cookie_secure":      "AUTH_COOKIE_SECURE",
	"auth.login_rate_per_min": "AUTH_LOGIN_RATE_PER_MIN",
	"auth.login_burst":        "AUTH_LOGIN_BURST",
	"fees.stats_cache_ttl":    "FEE_STATS_CACHE_TTL",

	"server.port":            "PORT",
	"server.static_dir":      "STATIC_DIR",
	"server.allowed_origins": "CORS_ALLOWED_ORIGINS",
}

// BindEnv binds every setting both binaries read, so the server and
// createadmin resolve the same values from .env and the environment.
func BindEnv() {
	for key, env := range envKeys {
		viper.BindEnv(key, env)
	}
}

// Load reads .env into viper; real environment variables take precedence.
func Load() {
	LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("env")
	viper.AutomaticEnv()
	BindEnv()

	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.static_dir", "./public")
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
		return
	}

	// Dotenv keys land under their lowercased variable name. Copy them to the
	// dotted keys unless the real environment already sets the variable.
	for key, env := range envKeys {
		if _, set := os.LookupEnv(env); set {
			continue
		}
		if fileKey := strings.ToLower(env); viper.InConfig(fileKey) {
			viper.Set(key, viper.Get(fileKey))
		}
	}
}
