package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration, loaded from environment variables
type Config struct {
	DatabasePath string

	CheckIntervalMinutes int
	CheckInterval        time.Duration
	FetchTimeout         time.Duration
	SendTimeout          time.Duration
	Workers              int

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioPhone      string
	CountryPrefix    string

	BrowserFallback bool
	BrowserBin      string

	PriceSelectors []string
	NameSelectors  []string

	LogLevel string
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	sid := os.Getenv("TWILIO_ACCOUNT_SID")
	token := os.Getenv("TWILIO_AUTH_TOKEN")
	phone := os.Getenv("TWILIO_PHONE_NUMBER")
	if sid == "" || token == "" || phone == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER must be set")
	}

	cfg := &Config{
		DatabasePath:         "./watches.db",
		CheckIntervalMinutes: 30,
		FetchTimeout:         8 * time.Second,
		SendTimeout:          8 * time.Second,
		Workers:              4,
		TwilioAccountSID:     sid,
		TwilioAuthToken:      token,
		TwilioPhone:          phone,
		CountryPrefix:        "+1",
		BrowserFallback:      true,
		LogLevel:             "info",
	}

	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.DatabasePath = path
	}

	if envInterval := os.Getenv("CHECK_INTERVAL_MINUTES"); envInterval != "" {
		if parsed, err := strconv.Atoi(envInterval); err == nil && parsed > 0 {
			cfg.CheckIntervalMinutes = parsed
		}
	}
	cfg.CheckInterval = time.Duration(cfg.CheckIntervalMinutes) * time.Minute

	if envTimeout := os.Getenv("FETCH_TIMEOUT_SECONDS"); envTimeout != "" {
		if parsed, err := strconv.Atoi(envTimeout); err == nil && parsed > 0 {
			cfg.FetchTimeout = time.Duration(parsed) * time.Second
		}
	}

	if envTimeout := os.Getenv("SEND_TIMEOUT_SECONDS"); envTimeout != "" {
		if parsed, err := strconv.Atoi(envTimeout); err == nil && parsed > 0 {
			cfg.SendTimeout = time.Duration(parsed) * time.Second
		}
	}

	if envWorkers := os.Getenv("WORKERS"); envWorkers != "" {
		if parsed, err := strconv.Atoi(envWorkers); err == nil && parsed > 0 {
			cfg.Workers = parsed
		}
	}

	if prefix := os.Getenv("COUNTRY_PREFIX"); prefix != "" {
		cfg.CountryPrefix = prefix
	}

	if envBrowser := os.Getenv("BROWSER_FALLBACK"); envBrowser != "" {
		if parsed, err := strconv.ParseBool(envBrowser); err == nil {
			cfg.BrowserFallback = parsed
		}
	}
	cfg.BrowserBin = os.Getenv("BROWSER_BIN")

	// Selector sets are config so markup drift on the target site is an
	// env change, not a code change
	cfg.PriceSelectors = splitSelectors(os.Getenv("PRICE_SELECTORS"))
	cfg.NameSelectors = splitSelectors(os.Getenv("NAME_SELECTORS"))

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

func splitSelectors(raw string) []string {
	if raw == "" {
		return nil
	}
	var selectors []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}
