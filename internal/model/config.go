package model

import "time"

// --- Configuration Structures ---

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Printer  PrinterConfig  `mapstructure:"printer"`
	Reporter ReporterConfig `mapstructure:"reporter"`
	Page     PageConfig     `mapstructure:"page"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	Namespace    string `mapstructure:"namespace" validate:"required,startswith=/"`
	SocketIOPath string `mapstructure:"socketio_path" validate:"required,startswith=/"`
	AppSecret    string `mapstructure:"app_secret"`
}

type RealtimeConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
	RetryInterval  time.Duration `mapstructure:"retry_interval" validate:"gt=0"`
}

type PrinterConfig struct {
	Transport string `mapstructure:"transport" validate:"oneof=usb network"`
	VendorID  int    `mapstructure:"vendor_id" validate:"gte=0,lte=65535"`
	ProductID int    `mapstructure:"product_id" validate:"gte=0,lte=65535"`
	Profile   string `mapstructure:"profile"`
	Address   string `mapstructure:"address" validate:"required_if=Transport network"`
	Width     int    `mapstructure:"width" validate:"gte=0"`
}

type ReporterConfig struct {
	QueueSize    int           `mapstructure:"queue_size" validate:"gt=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout" validate:"gt=0"`
}

type PageConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	ChromePath string `mapstructure:"chrome_path"`
	Headless   bool   `mapstructure:"headless"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"`
}
