package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"selfpaced/backend/progress"
)

type Config struct {
	Env        string
	LogFormat  string
	DBDriver   string // postgres or sqlite
	DBPath     string // sqlite file, used when DBDriver is sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string
	// Emails that receive the admin role on registration
	AdminEmails []string

	// Self-paced curriculum
	UnlockCadenceDays int
	ModuleCount       int
	FreeModules       []int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		Env:               getEnv("APP_ENV", "local"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DBPath:            getEnv("DB_PATH", "selfpaced.db"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "selfpaced"),
		JWTSecret:         getEnv("JWT_SECRET", "secret"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		AdminEmails:       getEnvList("ADMIN_EMAILS"),
		UnlockCadenceDays: getEnvInt("UNLOCK_CADENCE_DAYS", 7),
		ModuleCount:       getEnvInt("MODULE_COUNT", 8),
		FreeModules:       getEnvInts("FREE_MODULES", []int{0}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

// getEnvInts parses a comma-separated list such as "0,4".
func getEnvInts(key string, defaultValue []int) []int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			log.Printf("Invalid %s entry %q, using defaults", key, part)
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

// UnlockPolicy builds the module schedule from the configured cadence.
func (c *Config) UnlockPolicy() progress.UnlockPolicy {
	free := make(map[int]bool, len(c.FreeModules))
	for _, m := range c.FreeModules {
		free[m] = true
	}
	return progress.UnlockPolicy{CadenceDays: c.UnlockCadenceDays, FreeModules: free}
}
