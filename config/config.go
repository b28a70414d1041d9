package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string        `mapstructure:"APP_PORT"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int           `mapstructure:"MAX_REQUESTS_PER_MIN"`
	WebhookTimeout    time.Duration `mapstructure:"WEBHOOK_TIMEOUT"`
	WebhookSecret     string        `mapstructure:"WEBHOOK_SECRET"`

	// Bookio widget API.
	BookioBaseURL    string        `mapstructure:"BOOKIO_BASE_URL"`
	BookioFacility   string        `mapstructure:"BOOKIO_FACILITY"`
	BookioLang       string        `mapstructure:"BOOKIO_LANG"`
	BookioTimeout    time.Duration `mapstructure:"BOOKIO_TIMEOUT"`
	BookioRatePerSec float64       `mapstructure:"BOOKIO_RATE_PER_SEC"`
	BookioBurst      int           `mapstructure:"BOOKIO_BURST"`

	// Availability and catalog.
	ScanMaxDays       int           `mapstructure:"SCAN_MAX_DAYS"`
	OverviewDays      int           `mapstructure:"OVERVIEW_DAYS"`
	CatalogTTL        time.Duration `mapstructure:"CATALOG_TTL"`
	PopularCategories []int         `mapstructure:"POPULAR_CATEGORIES"`
	CatalogRefresh    string        `mapstructure:"CATALOG_REFRESH"`

	// Salon details read to callers.
	Timezone        string         `mapstructure:"TIMEZONE"`
	SalonName       string         `mapstructure:"SALON_NAME"`
	SalonPhone      string         `mapstructure:"SALON_PHONE"`
	OpeningHours    []DayHours     `mapstructure:"OPENING_HOURS"`
	Locations       map[string]int `mapstructure:"LOCATIONS"`
	DefaultWorkerID int            `mapstructure:"DEFAULT_WORKER_ID"`

	// Redis configuration. An empty address disables the shared catalog tier
	// and the booking request queue.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`
}

// DayHours is one line of the opening hours; empty Hours means closed.
type DayHours struct {
	Day   string `mapstructure:"day"`
	Hours string `mapstructure:"hours"`
}

var defaults = map[string]any{
	"APP_PORT":             "8080",
	"ENV":                  "development",
	"LOG_LEVEL":            "info",
	"MAX_REQUESTS_PER_MIN": 120,
	"WEBHOOK_TIMEOUT":      "25s",
	"WEBHOOK_SECRET":       "",
	"BOOKIO_BASE_URL":      "https://services.bookio.com/widget/api",
	"BOOKIO_FACILITY":      "",
	"BOOKIO_LANG":          "sk",
	"BOOKIO_TIMEOUT":       "8s",
	"BOOKIO_RATE_PER_SEC":  5.0,
	"BOOKIO_BURST":         3,
	"SCAN_MAX_DAYS":        14,
	"OVERVIEW_DAYS":        3,
	"CATALOG_TTL":          "1h",
	"POPULAR_CATEGORIES":   "",
	"CATALOG_REFRESH":      "@every 15m",
	"TIMEZONE":             "Europe/Bratislava",
	"SALON_NAME":           "",
	"SALON_PHONE":          "",
	"OPENING_HOURS":        "",
	"LOCATIONS":            "",
	"DEFAULT_WORKER_ID":    -1,
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"REDIS_CACHE_DB":       0,
	"REDIS_QUEUE_DB":       1,
}

// LoadConfig reads config.yaml from "." or "./config" and lets environment
// variables override it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToLocations,
		stringToOpeningHours,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BookioFacility == "" {
		return errors.New("config: BOOKIO_FACILITY is required")
	}
	if c.BookioBaseURL == "" {
		return errors.New("config: BOOKIO_BASE_URL is required")
	}
	if c.ScanMaxDays <= 0 || c.ScanMaxDays > 60 {
		return fmt.Errorf("config: SCAN_MAX_DAYS must be between 1 and 60, got %d", c.ScanMaxDays)
	}
	if c.WebhookTimeout <= 0 {
		return errors.New("config: WEBHOOK_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: TIMEZONE: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location is the salon's time zone; validate has already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// stringToLocations reads LOCATIONS from the environment as
// "Bratislava=31576;Košice=31577".
func stringToLocations(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(map[string]int{}) {
		return data, nil
	}
	out := map[string]int{}
	for _, pair := range splitEntries(data.(string)) {
		name, id, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("LOCATIONS: %q is not name=workerId", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("LOCATIONS: worker id for %q: %w", name, err)
		}
		out[strings.TrimSpace(name)] = n
	}
	return out, nil
}

// stringToOpeningHours reads OPENING_HOURS from the environment as
// "pondelok až piatok=9:00 až 18:00;nedeľa=".
func stringToOpeningHours(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]DayHours{}) {
		return data, nil
	}
	var out []DayHours
	for _, entry := range splitEntries(data.(string)) {
		day, hours, _ := strings.Cut(entry, "=")
		out = append(out, DayHours{Day: strings.TrimSpace(day), Hours: strings.TrimSpace(hours)})
	}
	return out, nil
}

func splitEntries(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
