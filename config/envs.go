package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration values.
type Config struct {
	HostIP            string // Host IP for the server
	RESTPort          int    // Port for the REST API
	DBHost            string // Hostname or IP address for the database
	DBPort            int    // Port number for the database
	DBUser            string // Username for the database
	DBPassword        string // Password for the database
	DBName            string // Name of the database
	RedisAddr         string // host:port of the redis server backing the run queue and maze cache
	RedisPassword     string
	RedisDB           int
	QueueTTLSeconds   int    // Expiry of an idle run queue
	MazeCacheTTL      int    // Seconds a generated maze stays cached
	MaxConcurrentRuns int    // Upper bound on simulations running at once
	GinMode           string // Mode for the Gin framework (e.g., release, debug, test)
	JWTSecret         string // Secret key for JWT signing
	JWTIssuer         string // Issuer claim for JWTs
}

// Envs holds the server configuration once MustLoadServer ran.
var Envs Config

// Load reads the .env file if there is one and returns the configuration,
// falling back to defaults for every unset variable.
func Load() Config {
	loadDotEnv()
	return Config{
		HostIP:            getEnvWithDefault("HOST_IP", "0.0.0.0"),
		RESTPort:          getEnvAsIntWithDefault("REST_PORT", 8080),
		DBHost:            getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:            getEnvAsIntWithDefault("DB_PORT", 27017),
		DBUser:            getEnvWithDefault("DB_USER", ""),
		DBPassword:        getEnvWithDefault("DB_PASS", ""),
		DBName:            getEnvWithDefault("DB_NAME", "maze_swarm"),
		RedisAddr:         getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnvWithDefault("REDIS_PASS", ""),
		RedisDB:           getEnvAsIntWithDefault("REDIS_DB", 0),
		QueueTTLSeconds:   getEnvAsIntWithDefault("QUEUE_TTL", 3600),
		MazeCacheTTL:      getEnvAsIntWithDefault("MAZE_CACHE_TTL", 600),
		MaxConcurrentRuns: getEnvAsIntWithDefault("MAX_CONCURRENT_RUNS", 4),
		GinMode:           getEnvWithDefault("GIN_MODE", "release"),
		JWTSecret:         getEnvWithDefault("JWT_SECRET", ""),
		JWTIssuer:         getEnvWithDefault("JWT_ISSUER", "maze-swarm"),
	}
}

// MustLoadServer loads the configuration the HTTP server needs into Envs.
// Secrets and database credentials have no default; a missing one is fatal.
func MustLoadServer() Config {
	c := Load()
	c.DBUser = mustGetEnv("DB_USER")
	c.DBPassword = mustGetEnv("DB_PASS")
	c.DBHost = mustGetEnv("DB_HOST")
	c.DBPort = mustGetEnvAsInt("DB_PORT")
	c.JWTSecret = mustGetEnv("JWT_SECRET")
	c.JWTIssuer = mustGetEnv("JWT_ISSUER")
	Envs = c
	return c
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}
}

// mustGetEnv retrieves the value of an environment variable or logs a fatal error if not set.
func mustGetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Fatalf("[APP] [FATAL] Environment variable %s is not set", key)
	}
	return value
}

// mustGetEnvAsInt retrieves the value of an environment variable as an integer or logs a fatal error if not set or cannot be parsed.
func mustGetEnvAsInt(key string) int {
	valueStr := mustGetEnv(key)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be an integer: %v", key, err)
	}
	return value
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("[APP] [WARNING] Environment variable %s is not an integer, using %d", key, defaultValue)
		return defaultValue
	}
	return value
}
