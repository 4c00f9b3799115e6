package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds server configuration. Values are layered: defaults, then the
// optional TOML file, then CANDRIVE_* environment variables, then flags.
type Config struct {
	Listen    string
	StaticDir string

	Port        string
	Baud        int
	AutoConnect bool
	AutoSniff   bool
	Simulate    bool

	ReadTimeout      time.Duration
	RingCapacity     int
	SubscriberBuffer int
	OutboxSize       int

	LabelFile   string
	WatchLabels bool

	LogLevel  string
	LogPretty bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:           ":5000",
		Baud:             115200,
		ReadTimeout:      100 * time.Millisecond,
		RingCapacity:     1000,
		SubscriberBuffer: 100,
		OutboxSize:       64,
		LabelFile:        "save/labelDict.csv",
		WatchLabels:      true,
		LogLevel:         "info",
		LogPretty:        true,
	}
}

type fileConfig struct {
	Listen           string `toml:"listen"`
	StaticDir        string `toml:"static_dir"`
	Port             string `toml:"port"`
	Baud             int    `toml:"baud"`
	AutoConnect      bool   `toml:"auto_connect"`
	AutoSniff        bool   `toml:"auto_sniff"`
	Simulate         bool   `toml:"simulate"`
	ReadTimeout      string `toml:"read_timeout"`
	RingCapacity     int    `toml:"ring_capacity"`
	SubscriberBuffer int    `toml:"subscriber_buffer"`
	OutboxSize       int    `toml:"outbox_size"`
	LabelFile        string `toml:"label_file"`
	WatchLabels      bool   `toml:"watch_labels"`
	LogLevel         string `toml:"log_level"`
	LogPretty        bool   `toml:"log_pretty"`
}

// Load returns the defaults overlaid with the TOML file at path. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config (%s): %w", path, err)
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("static_dir") {
		cfg.StaticDir = strings.TrimSpace(raw.StaticDir)
	}
	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("auto_connect") {
		cfg.AutoConnect = raw.AutoConnect
	}
	if meta.IsDefined("auto_sniff") {
		cfg.AutoSniff = raw.AutoSniff
	}
	if meta.IsDefined("simulate") {
		cfg.Simulate = raw.Simulate
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if meta.IsDefined("ring_capacity") {
		cfg.RingCapacity = raw.RingCapacity
	}
	if meta.IsDefined("subscriber_buffer") {
		cfg.SubscriberBuffer = raw.SubscriberBuffer
	}
	if meta.IsDefined("outbox_size") {
		cfg.OutboxSize = raw.OutboxSize
	}
	if meta.IsDefined("label_file") {
		cfg.LabelFile = strings.TrimSpace(raw.LabelFile)
	}
	if meta.IsDefined("watch_labels") {
		cfg.WatchLabels = raw.WatchLabels
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_pretty") {
		cfg.LogPretty = raw.LogPretty
	}

	return cfg, nil
}

// ApplyEnv overrides fields from CANDRIVE_* environment variables.
// Unparseable values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("CANDRIVE_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("CANDRIVE_STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := getenv("CANDRIVE_PORT"); v != "" {
		c.Port = v
	}
	if v := getenv("CANDRIVE_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Baud = n
		}
	}
	if v := getenv("CANDRIVE_AUTO_CONNECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoConnect = b
		}
	}
	if v := getenv("CANDRIVE_AUTO_SNIFF"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoSniff = b
		}
	}
	if v := getenv("CANDRIVE_SIMULATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Simulate = b
		}
	}
	if v := getenv("CANDRIVE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ReadTimeout = d
		}
	}
	if v := getenv("CANDRIVE_RING_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RingCapacity = n
		}
	}
	if v := getenv("CANDRIVE_SUBSCRIBER_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SubscriberBuffer = n
		}
	}
	if v := getenv("CANDRIVE_OUTBOX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OutboxSize = n
		}
	}
	if v := getenv("CANDRIVE_LABEL_FILE"); v != "" {
		c.LabelFile = v
	}
	if v := getenv("CANDRIVE_WATCH_LABELS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.WatchLabels = b
		}
	}
	if v := getenv("CANDRIVE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("CANDRIVE_LOG_PRETTY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LogPretty = b
		}
	}
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("config missing listen address")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.RingCapacity <= 0 {
		return fmt.Errorf("ring_capacity must be positive, got %d", c.RingCapacity)
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("subscriber_buffer must be positive, got %d", c.SubscriberBuffer)
	}
	if c.OutboxSize <= 0 {
		return fmt.Errorf("outbox_size must be positive, got %d", c.OutboxSize)
	}
	if (c.AutoConnect || c.AutoSniff) && !c.Simulate && strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("auto_connect requires a port")
	}
	return nil
}
