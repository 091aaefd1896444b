package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Enabled  bool   `mapstructure:"enabled"`
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	Pass    string `mapstructure:"pass"`
	Enabled bool   `mapstructure:"enabled"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// EngineConfig configures the STT backends. An empty URL leaves the
// corresponding remote engine unable to stream.
type EngineConfig struct {
	SherpaServerURL string `mapstructure:"sherpa_server_url"`
	WhisperURL      string `mapstructure:"whisper_url"`
	WhisperLanguage string `mapstructure:"whisper_language"`
}

type Settings struct {
	Server         ServerConfig `mapstructure:"server"`
	DB             DBConfig     `mapstructure:"database"`
	Redis          RedisConfig  `mapstructure:"redis"`
	Auth           AuthConfig   `mapstructure:"auth"`
	Engines        EngineConfig `mapstructure:"engines"`
	PartialTTLSecs int          `mapstructure:"partial_ttl_secs"`
	Env            string       `mapstructure:"env"`
	Debug          bool         `mapstructure:"debug"`
}

func Load() (*Settings, error) {
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8090)
	viper.SetDefault("partial_ttl_secs", 120)
	viper.SetDefault("engines.whisper_language", "en")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &settings, nil
}

func genEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
