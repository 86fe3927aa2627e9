package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/picokeys/pico-bridge/internal/api/http"
)

type Config struct {
	Log     LogConfig
	Http    http.Config
	Devices DevicesConfig
	Prefs   PrefsConfig
	Confirm ConfirmConfig
}

type DevicesConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type PrefsConfig struct {
	Path string `mapstructure:"path"`
}

type ConfirmConfig struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

var config Config

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/pico-bridge")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("http.port", 21325)
	viper.SetDefault("log.level", "INFO")
	viper.SetDefault("devices.poll_interval", "2s")
	viper.SetDefault("prefs.path", "pico-bridge-prefs.json")
	viper.SetDefault("confirm.token_ttl", "2m")

	// config file is optional, defaults and env cover a bare install
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)

	slog.Debug("Config loaded",
		"http_port", config.Http.Port,
		"poll_interval", config.Devices.PollInterval,
		"prefs_path", config.Prefs.Path)
}
