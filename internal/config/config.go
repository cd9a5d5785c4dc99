// Package config loads worker configuration from environment
// variables over built-in defaults (koanf structs + env providers).
package config

import (
	"errors"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	DatabaseURL   string `koanf:"database_url"`
	OrdersChannel string `koanf:"orders_channel"`
	RedisAddr     string `koanf:"redis_addr"`
	KafkaAddr     string `koanf:"kafka_addr"`
	ResultTopic   string `koanf:"result_topic"`
	HTTPAddr      string `koanf:"http_addr"`
	OTLPEndpoint  string `koanf:"otlp_endpoint"`
	LogLevel      string `koanf:"log_level"`

	// Printer is the process-wide fallback used when a restaurant has
	// no active printer configuration row.
	Printer PrinterFallback `koanf:"printer"`
}

type PrinterFallback struct {
	IP           string `koanf:"ip"`
	Port         int    `koanf:"port"`
	SavePDF      bool   `koanf:"save_pdf"`
	PDFOutputDir string `koanf:"pdf_output_dir"`
	Retries      int    `koanf:"retries"`
	TimeoutMs    int    `koanf:"timeout_ms"`
}

func defaultConfig() Config {
	return Config{
		OrdersChannel: "orders_new",
		ResultTopic:   "order.print-results",
		HTTPAddr:      ":8081",
		LogLevel:      "info",
		Printer: PrinterFallback{
			Port:         9100,
			PDFOutputDir: "./pdfs",
			Retries:      3,
			TimeoutMs:    10000,
		},
	}
}

func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Printer.Retries < 1 {
		return errors.New("PRINTER_RETRIES must be at least 1")
	}
	if c.Printer.TimeoutMs < 1 {
		return errors.New("PRINTER_TIMEOUT_MS must be positive")
	}
	return nil
}

// envKey maps PRINTER_* variables into the printer block and passes
// the known flat keys through; unrelated environment is ignored.
func envKey(s string) string {
	s = strings.ToLower(s)
	if rest, ok := strings.CutPrefix(s, "printer_"); ok {
		return "printer." + rest
	}
	switch s {
	case "database_url", "orders_channel", "redis_addr", "kafka_addr",
		"result_topic", "http_addr", "otlp_endpoint", "log_level":
		return s
	}
	return ""
}
