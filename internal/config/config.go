package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file named by FLEETCORE_ENV (default .env) and its
// .secret sidecar. Missing files are ignored; values already present in the
// process environment win.
func Load() error {
	envFile := os.Getenv("FLEETCORE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8000
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// AppEnv returns the deployment environment. Defaults to "production".
func AppEnv() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if env == "" {
		return "production"
	}
	return env
}

// Debug reports whether DEBUG is set to a true value.
func Debug() bool {
	v, _ := strconv.ParseBool(os.Getenv("DEBUG"))
	return v
}

// DevMode is true for development and test environments or when DEBUG is on.
func DevMode() bool {
	switch AppEnv() {
	case "development", "dev", "test":
		return true
	}
	return Debug()
}

// AuthCookieName defaults to "fleema_auth".
func AuthCookieName() string {
	if name := os.Getenv("AUTH_COOKIE_NAME"); name != "" {
		return name
	}
	return "fleema_auth"
}

// AuthCookieMaxAge is read as seconds. Defaults to 7 days.
func AuthCookieMaxAge() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("AUTH_COOKIE_MAX_AGE"))
	if err != nil || secs <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(secs) * time.Second
}

// AuthCookieSecure is off in dev mode so the cookie works over plain http.
func AuthCookieSecure() bool {
	return !DevMode()
}

// AuthTokenTTL is read as a Go duration ("168h"). Defaults to the cookie
// max age; "0" disables expiry.
func AuthTokenTTL() time.Duration {
	raw := os.Getenv("AUTH_TOKEN_TTL")
	if raw == "" {
		return AuthCookieMaxAge()
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return AuthCookieMaxAge()
	}
	return d
}

// TokenSweepInterval is how often expired tokens are purged. Defaults to 1h.
func TokenSweepInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("TOKEN_SWEEP_INTERVAL"))
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// StoreBackend selects the persistence layer: postgres (default) or memory.
func StoreBackend() string {
	switch strings.ToLower(os.Getenv("STORE_BACKEND")) {
	case BackendMemory:
		return BackendMemory
	default:
		return BackendPostgres
	}
}

// RunMigrations applies embedded migrations at startup unless set to false.
func RunMigrations() bool {
	v, err := strconv.ParseBool(os.Getenv("RUN_MIGRATIONS"))
	if err != nil {
		return true
	}
	return v
}
