package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	PaymentsModeManual = "manual"
	PaymentsModeXendit = "xendit"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Payments   PaymentsConfig
	Manual     ManualPaymentConfig
	Admin      AdminConfig
	Email      EmailConfig
	Storefront StorefrontConfig
	Features   FeatureFlags
	Telemetry  TelemetryConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver string

	// Path is the SQLite database file.
	Path string

	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	if d.Driver == DriverSQLite {
		return "file:" + d.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
}

type PaymentsConfig struct {
	Mode   string
	Xendit XenditConfig
}

type XenditConfig struct {
	BaseURL        string
	APIKey         string
	CallbackToken  string
	PaymentMethods []string
	Timeout        time.Duration
}

type ManualPaymentConfig struct {
	QRImageURL   string
	Instructions string
	PaymentEmail string
}

type AdminConfig struct {
	Token     string
	RateLimit float64
	RateBurst int
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	ShopName string
}

// Configured reports whether SMTP delivery is possible.
func (e EmailConfig) Configured() bool {
	return e.Host != "" && e.User != "" && e.Password != ""
}

type StorefrontConfig struct {
	ClientBaseURL string
	ServerBaseURL string
	Currency      string
}

type FeatureFlags struct {
	EnableOrderCaching      bool
	EnableOrderEvents       bool
	StrictStatusTransitions bool
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	emailFrom := getEnvString("EMAIL_FROM", "orders@example.com")

	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 4000),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnvString("DB_DRIVER", DriverSQLite)),
			Path:         getEnvString("DB_PATH", "storage/orders.sqlite"),
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "acme"),
			Password:     getEnvString("DB_PASSWORD", "acme"),
			Name:         getEnvString("DB_NAME", "acme_storefront"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_ORDER_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic: getEnvString("KAFKA_ORDERS_TOPIC", "storefront.orders"),
		},
		Payments: PaymentsConfig{
			Mode: strings.ToLower(getEnvString("PAYMENTS_MODE", PaymentsModeXendit)),
			Xendit: XenditConfig{
				BaseURL:        getEnvString("XENDIT_BASE_URL", "https://api.xendit.co"),
				APIKey:         getEnvString("XENDIT_API_KEY", ""),
				CallbackToken:  getEnvString("XENDIT_CALLBACK_TOKEN", ""),
				PaymentMethods: getEnvList("XENDIT_PAYMENT_METHODS", []string{"GCASH", "BANK_TRANSFER", "QR_PH"}),
				Timeout:        getEnvDuration("XENDIT_TIMEOUT", 30*time.Second),
			},
		},
		Manual: ManualPaymentConfig{
			QRImageURL:   getEnvString("MANUAL_QR_IMAGE_URL", ""),
			Instructions: getEnvString("MANUAL_PAYMENT_INSTRUCTIONS", "Scan the QR code, send payment, then email your receipt for verification."),
			PaymentEmail: getEnvString("MANUAL_PAYMENT_EMAIL", emailFrom),
		},
		Admin: AdminConfig{
			Token:     strings.TrimSpace(getEnvString("ADMIN_TOKEN", "")),
			RateLimit: getEnvFloat("ADMIN_RATE_LIMIT_RPS", 5),
			RateBurst: getEnvInt("ADMIN_RATE_LIMIT_BURST", 10),
		},
		Email: EmailConfig{
			Host:     getEnvString("EMAIL_HOST", ""),
			Port:     getEnvInt("EMAIL_PORT", 587),
			User:     getEnvString("EMAIL_USER", ""),
			Password: getEnvString("EMAIL_PASSWORD", ""),
			From:     emailFrom,
			ShopName: getEnvString("SHOP_NAME", "Mon Startup Clothing"),
		},
		Storefront: StorefrontConfig{
			ClientBaseURL: strings.TrimRight(getEnvString("CLIENT_BASE_URL", "http://localhost:5173"), "/"),
			ServerBaseURL: strings.TrimRight(getEnvString("SERVER_BASE_URL", "http://localhost:4000"), "/"),
			Currency:      getEnvString("CURRENCY", "PHP"),
		},
		Features: FeatureFlags{
			EnableOrderCaching:      getEnvBool("ENABLE_ORDER_CACHING", false),
			EnableOrderEvents:       getEnvBool("ENABLE_ORDER_EVENTS", false),
			StrictStatusTransitions: getEnvBool("STRICT_STATUS_TRANSITIONS", true),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  getEnvString("SERVICE_NAME", "storefront"),
			OTLPEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
