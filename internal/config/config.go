// Package config loads the configuration of the ctcphy command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/soypat/ctcphy/ethernet"
	"github.com/soypat/ctcphy/internal"
	"github.com/soypat/ctcphy/mars"
	"github.com/soypat/ctcphy/phy"
)

// Environment variables overriding file values.
const (
	EnvInterface = "CTCPHY_IFACE"
	EnvPHYAddr   = "CTCPHY_PHYADDR"
	EnvLogLevel  = "CTCPHY_LOG_LEVEL"
)

// Config is the complete configuration of the ctcphy command.
type Config struct {
	Interface  string        `yaml:"interface"`
	PHYAddr    int           `yaml:"phyAddr"` // -1 selects the address reported by the driver.
	Aneg       AnegConfig    `yaml:"aneg"`
	Interrupts bool          `yaml:"interrupts"`
	WOL        WOLConfig     `yaml:"wol"`
	Monitor    MonitorConfig `yaml:"monitor"`
	Log        LogConfig     `yaml:"log"`
}

// AnegConfig selects auto-negotiation or a forced link.
type AnegConfig struct {
	Enable    bool     `yaml:"enable"`
	Speed     int      `yaml:"speed"`     // Forced speed in Mbps when Enable is false.
	Duplex    string   `yaml:"duplex"`    // "full" or "half".
	Advertise []string `yaml:"advertise"` // Link mode names, empty advertises everything supported.
}

// WOLConfig holds Wake-on-LAN settings.
type WOLConfig struct {
	Enable  bool   `yaml:"enable"`
	MAC     string `yaml:"mac"`  // Empty selects the interface address.
	Type    string `yaml:"type"` // "pulse" or "level".
	WidthMs int    `yaml:"widthMs"`
	OnInit  bool   `yaml:"onInit"`
}

// MonitorConfig holds link monitor settings.
type MonitorConfig struct {
	Interval   time.Duration `yaml:"interval"`
	EventRate  float64       `yaml:"eventRate"`
	EventBurst int           `yaml:"eventBurst"`
}

// LogConfig holds logging settings. An empty File logs to stderr.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Interface: "eth0",
		PHYAddr:   -1,
		Aneg: AnegConfig{
			Enable: true,
			Speed:  1000,
			Duplex: "full",
		},
		WOL: WOLConfig{
			Type:    "pulse",
			WidthMs: 672,
		},
		Monitor: MonitorConfig{
			Interval:   time.Second,
			EventRate:  10,
			EventBurst: 1,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at path,
// if path is not empty, and then with environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if iface := os.Getenv(EnvInterface); iface != "" {
		cfg.Interface = iface
	}
	if addr := os.Getenv(EnvPHYAddr); addr != "" {
		n, err := strconv.Atoi(addr)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPHYAddr, err)
		}
		cfg.PHYAddr = n
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	return nil
}

// Validate checks the configuration for consistency.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Interface == "" {
		errs = append(errs, errors.New("interface must be set"))
	}
	if cfg.PHYAddr < -1 || cfg.PHYAddr > 31 {
		errs = append(errs, fmt.Errorf("phyAddr %d out of range [-1, 31]", cfg.PHYAddr))
	}
	if !cfg.Aneg.Enable {
		switch cfg.Aneg.Speed {
		case 10, 100, 1000:
		default:
			errs = append(errs, fmt.Errorf("forced speed %d must be 10, 100 or 1000", cfg.Aneg.Speed))
		}
	}
	if _, err := cfg.Duplex(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cfg.Advertise(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cfg.WakeConfig([6]byte{}); err != nil {
		errs = append(errs, err)
	}
	if cfg.Monitor.Interval <= 0 {
		errs = append(errs, errors.New("monitor interval must be positive"))
	}
	if cfg.Monitor.EventRate <= 0 || cfg.Monitor.EventBurst <= 0 {
		errs = append(errs, errors.New("monitor event rate and burst must be positive"))
	}
	if _, err := cfg.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Duplex returns the configured forced duplex.
func (cfg *Config) Duplex() (phy.Duplex, error) {
	switch strings.ToLower(cfg.Aneg.Duplex) {
	case "full", "":
		return phy.DuplexFull, nil
	case "half":
		return phy.DuplexHalf, nil
	}
	return phy.DuplexHalf, fmt.Errorf("invalid duplex %q", cfg.Aneg.Duplex)
}

// Advertise returns the configured advertisement. Zero means advertise everything supported.
func (cfg *Config) Advertise() (adv phy.LinkModes, err error) {
	for _, name := range cfg.Aneg.Advertise {
		m, ok := phy.ParseLinkMode(name)
		if !ok {
			return 0, fmt.Errorf("unknown link mode %q", name)
		}
		adv |= m
	}
	return adv, nil
}

// WakeConfig returns the Wake-on-LAN configuration. hwaddr is the target
// address used when no MAC is configured.
func (cfg *Config) WakeConfig(hwaddr [6]byte) (mars.WOLConfig, error) {
	wc := mars.WOLConfig{Enable: cfg.WOL.Enable, MAC: hwaddr}
	switch strings.ToLower(cfg.WOL.Type) {
	case "pulse", "":
		wc.Type = mars.WOLPulse
	case "level":
		wc.Type = mars.WOLLevel
	default:
		return wc, fmt.Errorf("invalid wol type %q", cfg.WOL.Type)
	}
	if wc.Type == mars.WOLPulse {
		w, ok := mars.WOLWidthFromDuration(time.Duration(cfg.WOL.WidthMs) * time.Millisecond)
		if !ok {
			return wc, fmt.Errorf("invalid wol width %dms, must be 84, 168, 336 or 672", cfg.WOL.WidthMs)
		}
		wc.Width = w
	}
	if cfg.WOL.MAC != "" {
		mac, err := ethernet.ParseAddr(cfg.WOL.MAC)
		if err != nil {
			return wc, fmt.Errorf("wol mac %q: %w", cfg.WOL.MAC, err)
		}
		wc.MAC = mac
	}
	return wc, nil
}

// LogLevel returns the configured log level. "trace" selects per-register logging.
func (cfg *Config) LogLevel() (slog.Level, error) {
	if strings.EqualFold(cfg.Log.Level, "trace") {
		return internal.LevelTrace, nil
	}
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(cfg.Log.Level))
	return lvl, err
}
