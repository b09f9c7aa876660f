package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server Server
	DB     DB
	Store  Store
	JWT    JWT
	Logger LoggerMode
	Valkey Valkey
	Notify Notify
	Chat   Chat
	Jobs   Jobs
	Admin  Admin
}

type Server struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DB struct {
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string `mapstructure:"sslmode"`
	LogQueries bool   `mapstructure:"log_queries"`
}

type Store struct {
	// Driver is "postgres" or "memory".
	Driver string
}

type JWT struct {
	Secret string
	TTL    time.Duration
}

type LoggerMode struct {
	Level       string
	Development bool
}

type Valkey struct {
	// Addr empty disables cross-instance fan-out.
	Addr string
}

type Notify struct {
	Timeout time.Duration
}

type Chat struct {
	MaxBodyLength int    `mapstructure:"max_body_length"`
	Greeting      string
}

type Jobs struct {
	RatingSchedule string `mapstructure:"rating_schedule"`
}

type Admin struct {
	Email    string
	Password string
	Name     string
}

var defaults = map[string]any{
	"server.port":             "8080",
	"server.environment":      "development",
	"server.shutdown_timeout": 10 * time.Second,
	"db.host":                 "localhost",
	"db.port":                 "5432",
	"db.user":                 "covoit",
	"db.password":             "covoit_dev_password",
	"db.name":                 "covoit",
	"db.sslmode":              "disable",
	"db.log_queries":          false,
	"store.driver":            "postgres",
	"jwt.secret":              "dev-secret-change-me",
	"jwt.ttl":                 24 * time.Hour,
	"logger.level":            "info",
	"logger.development":      true,
	"valkey.addr":             "",
	"notify.timeout":          2 * time.Second,
	"chat.max_body_length":    5000,
	"chat.greeting":           "Hi! I'm getting in touch about our trip.",
	"jobs.rating_schedule":    "@hourly",
	"admin.email":             "",
	"admin.password":          "",
	"admin.name":              "Administrator",
}

// Load reads .env, then config/config.yaml if present, then the environment.
// Environment keys are the upper-cased paths with dots replaced: DB_HOST, JWT_TTL.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return Parse(v)
}

func Parse(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.Chat.MaxBodyLength <= 0 {
		return nil, errors.New("chat.max_body_length must be positive")
	}
	if c.Store.Driver != "postgres" && c.Store.Driver != "memory" {
		return nil, errors.New("store.driver must be postgres or memory")
	}
	return &c, nil
}

// DSN builds the postgres connection string.
func (d DB) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}
