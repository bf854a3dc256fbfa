// Package config содержит логику чтения конфигурации кассового терминала.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации кассового терминала.
type Config struct {
	RunAddress      string `env:"RUN_ADDRESS"`
	DatabaseURI     string `env:"DATABASE_URI"`
	ScalePortName   string `env:"SCALE_PORT"`
	PrinterPortName string `env:"PRINTER_PORT"`

	BusinessName    string `env:"BUSINESS_NAME"`
	BusinessAddress string `env:"BUSINESS_ADDRESS"`
	BusinessPhone   string `env:"BUSINESS_PHONE"`
	ReceiptFooter   string `env:"RECEIPT_FOOTER"`
	CurrencySymbol  string `env:"CURRENCY_SYMBOL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envScalePort := cfg.ScalePortName
	envPrinterPort := cfg.PrinterPortName

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.ScalePortName, "s", "", "serial port of the weighing scale")
	flag.StringVar(&cfg.PrinterPortName, "p", "", "serial port of the receipt printer")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envScalePort != "" {
		cfg.ScalePortName = envScalePort
	}
	if envPrinterPort != "" {
		cfg.PrinterPortName = envPrinterPort
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.BusinessName == "" {
		cfg.BusinessName = "Meat Depot"
	}
	if cfg.ReceiptFooter == "" {
		cfg.ReceiptFooter = "Thank you for your purchase!"
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = "R"
	}

	return cfg, nil
}
