package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Console holds the operator console configuration loaded from environment variables.
type Console struct {
	APIURL      string
	HTTPTimeout time.Duration

	SessionBackend string
	SessionFile    string
	RedisAddr      string
	RedisNamespace string
	SessionTTL     time.Duration

	Capture CaptureConfig
	Logging LoggingConfig
}

// CaptureConfig controls how biometric credentials are captured.
type CaptureConfig struct {
	Platform     string
	AgentURL     string
	RPName       string
	Origin       string
	Timeout      time.Duration
	BindProfile  bool
	AgentTimeout time.Duration
}

// Server holds the development backend configuration.
type Server struct {
	Env             string
	HTTPPort        string
	DatabaseURL     string
	RedisAddr       string
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	AdminEmail      string
	AdminPassword   string
	AdminName       string
	RateLimitPerMin int
	CORSOrigins     []string
	Logging         LoggingConfig
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// LoadConsole returns console config populated from environment variables with sensible defaults.
// A .env file in the working directory, when present, is applied first without
// overriding variables that are already set.
func LoadConsole() Console {
	loadDotEnv()
	return Console{
		APIURL:         strings.TrimRight(getEnv("REGDESK_API_URL", "http://localhost:5000"), "/"),
		HTTPTimeout:    durationEnv("HTTP_TIMEOUT", 30*time.Second),
		SessionBackend: getEnv("REGDESK_SESSION_BACKEND", "file"),
		SessionFile:    getEnv("REGDESK_SESSION_FILE", defaultSessionFile()),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisNamespace: getEnv("REDIS_NAMESPACE", "regdesk"),
		SessionTTL:     durationEnv("SESSION_TTL", 24*time.Hour),
		Capture: CaptureConfig{
			Platform:     getEnv("CAPTURE_PLATFORM", "agent"),
			AgentURL:     getEnv("CAPTURE_AGENT_URL", "http://localhost:8765"),
			RPName:       getEnv("CAPTURE_RP_NAME", "Department App"),
			Origin:       getEnv("CAPTURE_ORIGIN", "http://localhost:3000"),
			Timeout:      durationEnv("CAPTURE_TIMEOUT", 60*time.Second),
			BindProfile:  boolEnv("CAPTURE_BIND_PROFILE", false),
			AgentTimeout: durationEnv("CAPTURE_AGENT_TIMEOUT", 90*time.Second),
		},
		Logging: loadLogging(),
	}
}

// LoadServer returns development backend config populated from environment variables.
func LoadServer() Server {
	loadDotEnv()
	return Server{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "5000"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "regdesk-devserver"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:       durationEnv("ACCESS_TTL", 12*time.Hour),
		AdminEmail:      getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "admin"),
		AdminName:       getEnv("ADMIN_NAME", "Administrator"),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		CORSOrigins:     listEnv("CORS_ORIGINS", []string{"http://localhost:3000"}),
		Logging:         loadLogging(),
	}
}

func loadLogging() LoggingConfig {
	return LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Format:     getEnv("LOG_FORMAT", "console"),
		OutputPath: getEnv("LOG_OUTPUT", "stderr"),
	}
}

func loadDotEnv() {
	// A missing .env file is the normal case.
	_ = godotenv.Load()
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".regdesk-session.json"
	}
	return dir + string(os.PathSeparator) + "regdesk" + string(os.PathSeparator) + "session.json"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid duration for %s: %v, using fallback %s\n", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		fmt.Fprintf(os.Stderr, "invalid bool for %s, using fallback %v\n", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		fmt.Fprintf(os.Stderr, "invalid int for %s, using fallback %d\n", key, fallback)
	}
	return fallback
}
