package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Invoice   InvoiceConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig

	RedisAddr string
}

// InvoiceConfig controls invoice numbering and listing.
type InvoiceConfig struct {
	// Token is the fixed 4-letter business identifier embedded in every
	// formatted invoice ID, e.g. "ZTFY" in "202506ZTFY0001".
	Token    string
	PageSize int
	// LinkBaseURL is the public viewer URL prefix embedded in notifications.
	LinkBaseURL string
}

// GatewayConfig holds WAHA messaging gateway settings.
type GatewayConfig struct {
	BaseURL        string
	APIKey         string
	Session        string
	RequestTimeout time.Duration
	SendPause      time.Duration
	DefaultCountry string
	// SendRate and SendBurst bound gateway throughput across instances
	// when redis is configured. Zero disables the shared bucket.
	SendRate  float64
	SendBurst int
}

// SchedulerConfig controls the periodic job runner.
type SchedulerConfig struct {
	RunInterval       time.Duration
	GenerateDay       int
	DueDays           int
	ReminderBatchSize int
	Notify            bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "backoffice"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "backoffice"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		Invoice: InvoiceConfig{
			Token:       strings.ToUpper(getenv("INVOICE_TOKEN", "ZTFY")),
			PageSize:    getenvInt("INVOICE_PAGE_SIZE", 20),
			LinkBaseURL: getenv("INVOICE_LINK_BASE_URL", "https://billing.wecloud.net/invoices"),
		},
		Gateway: GatewayConfig{
			BaseURL:        strings.TrimRight(getenv("WAHA_BASE_URL", "http://localhost:3000/api"), "/"),
			APIKey:         getenv("WAHA_API_KEY", ""),
			Session:        getenv("WAHA_SESSION", "default"),
			RequestTimeout: getenvDuration("WAHA_REQUEST_TIMEOUT", 30*time.Second),
			SendPause:      getenvDuration("WAHA_SEND_PAUSE", 100*time.Millisecond),
			DefaultCountry: getenv("WAHA_DEFAULT_COUNTRY", "92"),
			SendRate:       getenvFloat("WAHA_SEND_RATE", 1),
			SendBurst:      getenvInt("WAHA_SEND_BURST", 5),
		},
		Scheduler: SchedulerConfig{
			RunInterval:       getenvDuration("SCHEDULER_RUN_INTERVAL", time.Hour),
			GenerateDay:       getenvInt("SCHEDULER_GENERATE_DAY", 1),
			DueDays:           getenvInt("SCHEDULER_DUE_DAYS", 10),
			ReminderBatchSize: getenvInt("SCHEDULER_REMINDER_BATCH", 50),
			Notify:            getenvBool("SCHEDULER_NOTIFY", true),
		},

		RedisAddr: getenv("REDIS_ADDR", ""),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
