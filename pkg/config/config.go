package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Ingress   IngressConfig   `mapstructure:"ingress"`
	LogStore  LogStoreConfig  `mapstructure:"logstore"`
	ConfigAPI ConfigAPIConfig `mapstructure:"config_api"`
	Health    HealthConfig    `mapstructure:"health"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// IngressConfig points at the pipeline's webhook entrypoint.
type IngressConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogStoreConfig points at the ClickHouse HTTP interface where the pipeline
// writes its per-request decision records.
type LogStoreConfig struct {
	URL          string        `mapstructure:"url"`
	Database     string        `mapstructure:"database"`
	Table        string        `mapstructure:"table"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollDeadline time.Duration `mapstructure:"poll_deadline"`
}

// ConfigAPIConfig points at the admin API owning the PII entity allow-list.
type ConfigAPIConfig struct {
	URL          string        `mapstructure:"url"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	SyncDeadline time.Duration `mapstructure:"sync_deadline"`
}

type HealthConfig struct {
	PIIServiceURL  string        `mapstructure:"pii_service_url"`
	PromptGuardURL string        `mapstructure:"prompt_guard_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type EvaluatorConfig struct {
	MinInputLen  int           `mapstructure:"min_input_len"`
	MaxInputLen  int           `mapstructure:"max_input_len"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}
	setDefaultValues()
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	if globalConfig.Logging.Level == "" {
		globalConfig.Logging.Level = "info"
	}
	if globalConfig.Ingress.Timeout == 0 {
		globalConfig.Ingress.Timeout = 30 * time.Second
	}
	if globalConfig.LogStore.Database == "" {
		globalConfig.LogStore.Database = "vigil"
	}
	if globalConfig.LogStore.Table == "" {
		globalConfig.LogStore.Table = "events"
	}
	if globalConfig.LogStore.PollInterval == 0 {
		globalConfig.LogStore.PollInterval = 500 * time.Millisecond
	}
	if globalConfig.LogStore.PollDeadline == 0 {
		globalConfig.LogStore.PollDeadline = 30 * time.Second
	}
	if globalConfig.ConfigAPI.SyncInterval == 0 {
		globalConfig.ConfigAPI.SyncInterval = 500 * time.Millisecond
	}
	if globalConfig.ConfigAPI.SyncDeadline == 0 {
		globalConfig.ConfigAPI.SyncDeadline = 15 * time.Second
	}
	if globalConfig.Health.Timeout == 0 {
		globalConfig.Health.Timeout = 5 * time.Second
	}
	if globalConfig.Evaluator.MinInputLen == 0 {
		globalConfig.Evaluator.MinInputLen = 3
	}
	if globalConfig.Evaluator.MaxInputLen == 0 {
		globalConfig.Evaluator.MaxInputLen = 1000
	}
	if globalConfig.Evaluator.ProbeTimeout == 0 {
		globalConfig.Evaluator.ProbeTimeout = 30 * time.Second
	}
	if globalConfig.Database.SSLMode == "" {
		globalConfig.Database.SSLMode = "disable"
	}
}

func GetConfig() *Config {
	return &globalConfig
}
