package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Engine   EngineConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	DatabaseURL            string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	Migrate                bool
}

type RedisConfig struct {
	Addr                    string
	Password                string
	DB                      int
	EventsChannel           string
	LowStockAlertTTLMinutes int
}

type AuthConfig struct {
	Secret                string
	AccessTokenTTLMinutes int
}

type EngineConfig struct {
	TaxRatePercent   string
	TxTimeoutSeconds int
	RevenuePolicy    string
	ConsumptionRules string
}

type JobsConfig struct {
	Enabled             bool
	LowStockCron        string
	PaymentReminderCron string
}

const DefaultConsumptionRules = "PENDING>WASHING:DETERGENT:1,PROCESSING>WASHING:DETERGENT:1,WASHING>DRYING:SOFTENER:1,DRYING>READY:PACKAGING:1,IRONING>READY:PACKAGING:1"

func Load() Config {
	return Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "production"),
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://127.0.0.1:3000"}),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			DatabaseURL:            os.Getenv("DATABASE_URL"),
			MaxOpenConns:           getEnvInt("POSTGRES_MAX_OPEN_CONNS", 30),
			MaxIdleConns:           getEnvInt("POSTGRES_MAX_IDLE_CONNS", 8),
			ConnMaxLifetimeSeconds: getEnvInt("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 1800),
			Migrate:                getEnvBool("POSTGRES_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:                    os.Getenv("REDIS_ADDR"),
			Password:                os.Getenv("REDIS_PASSWORD"),
			DB:                      getEnvInt("REDIS_DB", 0),
			EventsChannel:           getEnv("REDIS_EVENTS_CHANNEL", "laundry:events"),
			LowStockAlertTTLMinutes: positive(getEnvInt("LOW_STOCK_ALERT_TTL_MINUTES", 720), 720),
		},
		Auth: AuthConfig{
			Secret:                strings.TrimSpace(os.Getenv("AUTH_SECRET")),
			AccessTokenTTLMinutes: positive(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 480), 480),
		},
		Engine: EngineConfig{
			TaxRatePercent:   getEnv("TAX_RATE_PERCENT", "7.5"),
			TxTimeoutSeconds: positive(getEnvInt("TX_TIMEOUT_SECONDS", 5), 5),
			RevenuePolicy:    strings.ToLower(getEnv("REVENUE_POLICY", "payment")),
			ConsumptionRules: getEnv("CONSUMPTION_RULES", DefaultConsumptionRules),
		},
		Jobs: JobsConfig{
			Enabled:             getEnvBool("JOBS_ENABLED", true),
			LowStockCron:        getEnv("LOW_STOCK_CRON", "0 8 * * *"),
			PaymentReminderCron: getEnv("PAYMENT_REMINDER_CRON", "0 10 * * *"),
		},
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Server.Port)
}

func (c Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.AppEnv == "dev"
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func positive(val int, fallback int) int {
	if val < 1 {
		return fallback
	}
	return val
}
