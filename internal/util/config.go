package util

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	defaultLoginRateLimit = 10
	defaultLoginRateBurst = 5

	defaultUploadDir      = "./uploads"
	defaultUploadMaxBytes = 10 << 20

	CSRFTokenLength = 32
	JWTLeeWay       = 5 * time.Second
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

type TokenConfig struct {
	JwtSecretKey []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// NewTokenConfig is fatal when JWT_SECRET is missing: a signing-key
// misconfiguration must stop the process at boot, not fail per request.
func NewTokenConfig() *TokenConfig {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	return &TokenConfig{
		JwtSecretKey: []byte(secret),
		AccessTTL:    parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:   parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
	}
}

// CookieConfig controls the refresh and CSRF cookies. Secure defaults to
// true and should only be relaxed for local development over plain HTTP.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieConfig() *CookieConfig {
	secure := true
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			secure = b
		}
	}

	sameSite := http.SameSiteStrictMode
	if os.Getenv("COOKIE_SAMESITE") == "lax" {
		sameSite = http.SameSiteLaxMode
	}

	return &CookieConfig{
		Path:     "/",
		Domain:   os.Getenv("COOKIE_DOMAIN"),
		Secure:   secure,
		SameSite: sameSite,
	}
}

type RateLimiterConfig struct {
	LoginPerMinute int
	LoginBurst     int
}

func NewRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		LoginPerMinute: parseIntOrDefault("LOGIN_RATE_LIMIT", defaultLoginRateLimit),
		LoginBurst:     parseIntOrDefault("LOGIN_RATE_BURST", defaultLoginRateBurst),
	}
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
	BaseURL  string
}

func NewUploadConfig() *UploadConfig {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = defaultUploadDir
	}

	baseURL := os.Getenv("UPLOAD_BASE_URL")
	if baseURL == "" {
		baseURL = "/uploads"
	}

	maxBytes := int64(parseIntOrDefault("UPLOAD_MAX_BYTES", defaultUploadMaxBytes))

	return &UploadConfig{Dir: dir, MaxBytes: maxBytes, BaseURL: baseURL}
}

func GetWebhookURL() string {
	return os.Getenv("SECURITY_WEBHOOK_URL")
}

func parseIntOrDefault(varName string, def int) int {
	if v := os.Getenv(varName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Invalid integer in %s: %s, using default %d", varName, v, def)
	}
	return def
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}
