package config

import (
	"errors"  // For validation errors
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort       string   // Application port
	DBDriver      string   // Database driver: mysql or sqlite
	DBUser        string   // Database user
	DBPassword    string   // Database password
	DBHost        string   // Database host
	DBPort        string   // Database port
	DBName        string   // Database name
	DBPath        string   // SQLite database file (sqlite driver only)
	JWTSecret     string   // JWT secret key
	RedisAddr     string   // Redis server address, empty for in-process cache
	RedisPass     string   // Redis password
	RedisDB       int      // Redis database number
	IsProd        bool     // Is production environment
	UploadDir     string   // Directory holding uploaded images
	CORSOrigins   []string // Allowed browser origins
	AdminUsername string   // Admin account provisioned at start, optional
	AdminPassword string   // Password for AdminUsername
	LogLevel      string   // Logrus level name
	AuthRateLimit float64  // Auth requests per second per client IP
	AuthRateBurst int      // Auth burst size per client IP
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:       getEnv("APP_PORT", "3000"),                                 // Application port
		DBDriver:      getEnv("DB_DRIVER", "mysql"),                               // Database driver
		DBUser:        os.Getenv("DB_USER"),                                       // Database user
		DBPassword:    os.Getenv("DB_PASSWORD"),                                   // Database password
		DBHost:        getEnv("DB_HOST", "localhost"),                             // Database host
		DBPort:        getEnv("DB_PORT", "3306"),                                  // Database port
		DBName:        getEnv("DB_NAME", "vertex_games"),                          // Database name
		DBPath:        getEnv("DB_PATH", "vertex_games.db"),                       // SQLite file
		JWTSecret:     os.Getenv("JWT_SECRET"),                                    // JWT secret key
		RedisAddr:     os.Getenv("REDIS_ADDR"),                                    // Redis server address
		RedisPass:     os.Getenv("REDIS_PASS"),                                    // Redis password
		RedisDB:       redisDB,                                                    // Redis database number
		IsProd:        os.Getenv("IS_PROD") == "true",                             // Is production environment
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),                            // Upload directory
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")), // Vite dev server by default
		AdminUsername: os.Getenv("ADMIN_USERNAME"),                                // Optional admin to provision
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),                                // Its password
		LogLevel:      getEnv("LOG_LEVEL", "info"),                                // Log level
		AuthRateLimit: getEnvFloat("AUTH_RATE_LIMIT", 5),                          // Requests per second
		AuthRateBurst: getEnvInt("AUTH_RATE_BURST", 10),                           // Burst
	}
}

// Validate checks settings the server cannot run without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.IsProd {
			return errors.New("JWT_SECRET must be set in production")
		}
		c.JWTSecret = "dev-secret-change-me" // Development only
	}
	if c.DBDriver != "mysql" && c.DBDriver != "sqlite" {
		return errors.New("DB_DRIVER must be mysql or sqlite")
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// DSN returns the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath + "?_pragma=foreign_keys(1)" // Enforce FK cascades
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

// getEnv retrieves an environment variable with a default fallback
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// getEnvInt parses an integer variable, falling back to def when unset or malformed
func getEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// getEnvFloat parses a float variable, falling back to def when unset or malformed
func getEnvFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

// splitList splits a comma separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
