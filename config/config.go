package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"modusklar"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"modusklar"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"10"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"50"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"mk"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"`
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"60"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"30"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	TracingEnabled bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	TracingSampler float64 `env:"TRACING_SAMPLER" envDefault:"0.1"`

	// 挑战配置
	ChallengeDays      int    `env:"CHALLENGE_DAYS" envDefault:"30"`
	ChallengeTimezone  string `env:"CHALLENGE_TIMEZONE" envDefault:"Europe/Berlin"`
	MorningWindowStart int    `env:"MORNING_WINDOW_START" envDefault:"9"`
	MorningWindowEnd   int    `env:"MORNING_WINDOW_END" envDefault:"12"`
	EveningWindowStart int    `env:"EVENING_WINDOW_START" envDefault:"20"`
	EveningWindowEnd   int    `env:"EVENING_WINDOW_END" envDefault:"23"`

	// 提醒代理配置，SESSION_ID 由登录接口返回
	ReminderSessionID      string `env:"REMINDER_SESSION_ID"`
	ReminderPollSeconds    int    `env:"REMINDER_POLL_SECONDS" envDefault:"60"`
	ReminderDisplayTimeout int    `env:"REMINDER_DISPLAY_TIMEOUT_SECONDS" envDefault:"5"`
	ReminderInboxSize      int    `env:"REMINDER_INBOX_SIZE" envDefault:"20"`

	// 会话配置
	SessionTTLHours int `env:"SESSION_TTL_HOURS" envDefault:"720"`

	// 审核接口使用的共享密钥，为空时审核接口全部拒绝
	ReviewerAPIKey string `env:"REVIEWER_API_KEY"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.JWTSecret == "" {
		log.Printf("WARN: JWT_SECRET is not set, token endpoints will refuse to start")
	}

	if Cfg.ChallengeDays <= 0 {
		log.Fatal("CHALLENGE_DAYS must be positive")
	}

	if !validWindow(Cfg.MorningWindowStart, Cfg.MorningWindowEnd) {
		log.Fatal("MORNING_WINDOW_START/END must satisfy 0 <= start < end <= 24")
	}

	if !validWindow(Cfg.EveningWindowStart, Cfg.EveningWindowEnd) {
		log.Fatal("EVENING_WINDOW_START/END must satisfy 0 <= start < end <= 24")
	}

	if Cfg.MorningWindowEnd > Cfg.EveningWindowStart {
		log.Fatal("morning window must end before the evening window starts")
	}
}

func validWindow(start, end int) bool {
	return start >= 0 && start < end && end <= 24
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

// Location 返回挑战使用的时区，解析失败时退回本地时区
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ChallengeTimezone)
	if err != nil {
		log.Printf("WARN: invalid CHALLENGE_TIMEZONE %q: %v, falling back to local", c.ChallengeTimezone, err)
		return time.Local
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
