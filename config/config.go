package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Geocoder settings. The delay is a hard minimum between requests;
	// the public endpoint enforces a global rate limit.
	GeocoderBaseURL   string
	GeocoderUserAgent string
	GeocoderCountry   string
	GeocoderDelayMs   int

	// Object storage for rehosted listing photos.
	StorageBucket    string
	StoragePublicURL string
	UploadDelayMs    int

	// Plan cap on listings per import. 0 means unlimited.
	ImportLimit int

	ReportPath string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "imovel"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "imovel123"),
		PostgresDB:       getEnv("POSTGRES_DB", "imovel_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		GeocoderBaseURL:   getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "imovel-importer/1.0"),
		GeocoderCountry:   getEnv("GEOCODER_COUNTRY", "Brazil"),
		GeocoderDelayMs:   getEnvInt("GEOCODER_DELAY_MS", 1100),

		StorageBucket:    getEnv("STORAGE_BUCKET", "imovel-photos"),
		StoragePublicURL: getEnv("STORAGE_PUBLIC_URL", ""),
		UploadDelayMs:    getEnvInt("UPLOAD_DELAY_MS", 200),

		ImportLimit: getEnvInt("IMPORT_LIMIT", 0),

		ReportPath: getEnv("REPORT_PATH", "./output/import_report.csv"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
