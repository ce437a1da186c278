package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

const envPrefix = "KIOSK"

var validate = validator.New()

// LoadConfig reads the agent configuration from an optional YAML file and the
// environment. Variables from a local .env file are loaded first; variables
// already set in the process environment win.
func LoadConfig(configFile string) (*model.Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "kiosk-agent"))
		}
		v.AddConfigPath("/etc/kiosk-agent")
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:5000")
	v.SetDefault("server.namespace", "/socket_app_patient")
	v.SetDefault("server.socketio_path", "/socket.io/")
	v.SetDefault("server.app_secret", "")

	v.SetDefault("realtime.connect_timeout", 10*time.Second)
	v.SetDefault("realtime.retry_interval", 5*time.Second)

	v.SetDefault("printer.transport", "usb")
	v.SetDefault("printer.vendor_id", 0x04b8)
	v.SetDefault("printer.product_id", 0x0202)
	v.SetDefault("printer.profile", "TM-T88II")
	v.SetDefault("printer.address", "")
	v.SetDefault("printer.width", 0)

	v.SetDefault("reporter.queue_size", 32)
	v.SetDefault("reporter.timeout", 10*time.Second)
	v.SetDefault("reporter.drain_timeout", 5*time.Second)

	v.SetDefault("page.enabled", false)
	v.SetDefault("page.path", "/patient")
	v.SetDefault("page.chrome_path", "")
	v.SetDefault("page.headless", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}
