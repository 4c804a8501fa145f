package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultHTTPAddr        = ":8080"
	DefaultAuthBackend     = BackendREST
	DefaultAuthAPIBaseURL  = "http://localhost:3000"
	DefaultKratosPublicURL = "http://127.0.0.1:4433" // Kratos Public API
	DefaultRequestTimeout  = 30 * time.Second
	DefaultRateLimitRPS    = 3.0
	DefaultRateLimitBurst  = 5
	DefaultPageStateTTL    = 10 * time.Minute
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

// Supported authentication backends.
const (
	BackendREST   = "rest"
	BackendKratos = "kratos"
)

// ErrInvalidConfig is returned when an environment value cannot be used.
var ErrInvalidConfig = errors.New("config: invalid value")

// Config holds every runtime setting of the web front-end.
type Config struct {
	HTTPAddr        string
	AuthBackend     string
	AuthAPIBaseURL  string
	KratosPublicURL string
	RequestTimeout  time.Duration

	SessionSecret    []byte
	SessionSecure    bool
	EphemeralSession bool

	RateLimitRPS   float64
	RateLimitBurst int
	PageStateTTL   time.Duration

	LogLevel  string
	LogFormat string
}

// LoadEnvFiles loads the first .env file found among paths. Missing files are
// not an error; the process environment always wins over file values.
func LoadEnvFiles(paths ...string) (string, bool) {
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through lookup, which makes it usable with
// maps in tests.
func LoadFrom(lookup func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		HTTPAddr:        get("HTTP_ADDR", DefaultHTTPAddr),
		AuthBackend:     strings.ToLower(get("AUTH_BACKEND", DefaultAuthBackend)),
		AuthAPIBaseURL:  get("AUTH_API_BASE_URL", DefaultAuthAPIBaseURL),
		KratosPublicURL: get("KRATOS_PUBLIC_URL", DefaultKratosPublicURL),
		LogLevel:        strings.ToLower(get("LOG_LEVEL", DefaultLogLevel)),
		LogFormat:       strings.ToLower(get("LOG_FORMAT", DefaultLogFormat)),
	}

	var err error
	if cfg.RequestTimeout, err = parseDuration("AUTH_REQUEST_TIMEOUT", get("AUTH_REQUEST_TIMEOUT", ""), DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.PageStateTTL, err = parseDuration("PAGE_STATE_TTL", get("PAGE_STATE_TTL", ""), DefaultPageStateTTL); err != nil {
		return nil, err
	}
	if cfg.SessionSecure, err = parseBool("SESSION_SECURE", get("SESSION_SECURE", ""), false); err != nil {
		return nil, err
	}

	cfg.RateLimitRPS = DefaultRateLimitRPS
	if raw := get("RATE_LIMIT_RPS", ""); raw != "" {
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil || v <= 0 {
			return nil, fmt.Errorf("%w: RATE_LIMIT_RPS=%q", ErrInvalidConfig, raw)
		}
		cfg.RateLimitRPS = v
	}
	cfg.RateLimitBurst = DefaultRateLimitBurst
	if raw := get("RATE_LIMIT_BURST", ""); raw != "" {
		v, perr := strconv.Atoi(raw)
		if perr != nil || v <= 0 {
			return nil, fmt.Errorf("%w: RATE_LIMIT_BURST=%q", ErrInvalidConfig, raw)
		}
		cfg.RateLimitBurst = v
	}

	if secret := lookup("SESSION_SECRET"); secret != "" {
		cfg.SessionSecret = []byte(secret)
	} else {
		// Dev only: sessions do not survive a restart.
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = []byte(base64.RawURLEncoding.EncodeToString(key))
		cfg.EphemeralSession = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch c.AuthBackend {
	case BackendREST, BackendKratos:
	default:
		return fmt.Errorf("%w: AUTH_BACKEND=%q (want %q or %q)", ErrInvalidConfig, c.AuthBackend, BackendREST, BackendKratos)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("%w: LOG_FORMAT=%q", ErrInvalidConfig, c.LogFormat)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: HTTP_ADDR is empty", ErrInvalidConfig)
	}
	if c.PageStateTTL <= 0 {
		// Idle pages would be swept while the guard still matters.
		return fmt.Errorf("%w: PAGE_STATE_TTL must be positive", ErrInvalidConfig)
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("%w: SESSION_SECRET must be at least 16 bytes", ErrInvalidConfig)
	}
	return nil
}

func parseDuration(key, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, raw)
	}
	return d, nil
}

func parseBool(key, raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, raw)
	}
	return b, nil
}
