package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"live-quiz-service/internal/domain"
)

type Config struct {
	Server struct {
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
		Prefix   string        `mapstructure:"prefix"`
	} `mapstructure:"redis"`
	Postgres struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"postgres"`
	Quiz struct {
		TTL            time.Duration         `mapstructure:"ttl"`
		TimerMode      domain.TimerMode      `mapstructure:"timerMode"`
		FreeTextPolicy domain.FreeTextPolicy `mapstructure:"freeTextPolicy"`
	} `mapstructure:"quiz"`
	Auth struct {
		Secret string        `mapstructure:"secret"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"auth"`
}

var defaults = map[string]any{
	"server.port":            "8080",
	"server.shutdownTimeout": "5s",
	"log.level":              "info",
	"log.pretty":             false,
	"redis.ttl":              "24h",
	"redis.prefix":           "livequiz",
	"quiz.ttl":               "10m",
	"quiz.timerMode":         string(domain.TimerContinuous),
	"quiz.freeTextPolicy":    string(domain.FreeTextExact),
	"auth.ttl":               "12h",
}

// Load reads a YAML config file. Every key can be overridden from the
// environment, e.g. REDIS_ADDR or QUIZ_TIMERMODE. An empty path loads
// defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only consults keys viper already knows about.
	for _, key := range []string{"redis.addr", "redis.password", "redis.db", "postgres.url", "auth.secret"} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config from file %s: %w", path, err)
		}
	}

	var c Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&c, hook); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Quiz.TimerMode {
	case domain.TimerContinuous, domain.TimerPerQuestion:
	default:
		return fmt.Errorf("config: quiz.timerMode must be %q or %q, got %q", domain.TimerContinuous, domain.TimerPerQuestion, c.Quiz.TimerMode)
	}
	switch c.Quiz.FreeTextPolicy {
	case domain.FreeTextExact, domain.FreeTextUngraded:
	default:
		return fmt.Errorf("config: quiz.freeTextPolicy must be %q or %q, got %q", domain.FreeTextExact, domain.FreeTextUngraded, c.Quiz.FreeTextPolicy)
	}
	if c.Auth.Secret == "" {
		return errors.New("config: auth.secret is required")
	}
	return nil
}
