package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// State backends accepted by STATE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Load reads the .env file named by MASHAAER_ENV (default .env) and then its
// .secret sidecar. Missing files are ignored; variables already set in the
// process environment win.
func Load() error {
	envFile := os.Getenv("MASHAAER_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	switch StateBackend() {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if DatabaseURL() == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", os.Getenv("STATE_BACKEND"))
	}
	return nil
}

func ServerPort() int {
	return intEnv("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// StateBackend returns memory, postgres or sqlite. Defaults to memory.
func StateBackend() string {
	b := strings.ToLower(strings.TrimSpace(os.Getenv("STATE_BACKEND")))
	if b == "" {
		return BackendMemory
	}
	return b
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func SQLitePath() string {
	p := os.Getenv("SQLITE_PATH")
	if p == "" {
		return "mashaaer.db"
	}
	return p
}

func EpisodicCap() int {
	return intEnv("EPISODIC_CAP", 100)
}

func RitualCooldown() time.Duration {
	return durationEnv("RITUAL_COOLDOWN", time.Hour)
}

// LoadDefaultRituals reports whether the built-in rituals are installed on a
// fresh state. Defaults to true.
func LoadDefaultRituals() bool {
	v, err := strconv.ParseBool(os.Getenv("LOAD_DEFAULT_RITUALS"))
	if err != nil {
		return true
	}
	return v
}

// RitualsFile is an optional YAML catalog merged in at startup.
func RitualsFile() string {
	return os.Getenv("RITUALS_FILE")
}

func DistillInterval() time.Duration {
	return durationEnv("DISTILL_INTERVAL", 15*time.Minute)
}

func DistillMinIntensity() float64 {
	v, err := strconv.ParseFloat(os.Getenv("DISTILL_MIN_INTENSITY"), 64)
	if err != nil || v < 0 || v > 1 {
		return 0.6
	}
	return v
}

func ReflectInterval() time.Duration {
	return durationEnv("REFLECT_INTERVAL", 30*time.Minute)
}

// EffectsFeedSize bounds the in-memory feed served at /v1/effects.
func EffectsFeedSize() int {
	return intEnv("EFFECTS_FEED_SIZE", 200)
}

// RateLimitRPS returns requests per second per client. Defaults to 100.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

func RateLimitBurst() int {
	return intEnv("RATE_LIMIT_BURST", 20)
}

// LogLevel returns debug, info, warn or error. Defaults to info.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func intEnv(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
