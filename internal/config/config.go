// Package config provides Viper-based configuration loading for the world
// server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// WorldConfig holds the simulation's timing and capacity settings.
type WorldConfig struct {
	// TickPeriod is the simulation cycle length.
	TickPeriod time.Duration `mapstructure:"tick_period"`
	// SpawnInterval is how often the probabilistic spawn phase runs.
	SpawnInterval time.Duration `mapstructure:"spawn_interval"`
	// SpawnChance is the percent chance each under-cap spawn entry fires
	// per spawn check.
	SpawnChance float64 `mapstructure:"spawn_chance"`
	// AIInterval rate-limits per-monster AI evaluation.
	AIInterval time.Duration `mapstructure:"ai_interval"`
	// MonsterGrace is how long dead monsters linger before removal.
	MonsterGrace time.Duration `mapstructure:"monster_grace"`
	// BattleGrace is how long ended battles linger before removal.
	BattleGrace time.Duration `mapstructure:"battle_grace"`
	// EventAudit is how long processed world events are retained.
	EventAudit time.Duration `mapstructure:"event_audit"`
	// DefaultZoneCap caps players per zone when the area sets no limit.
	DefaultZoneCap int `mapstructure:"default_zone_cap"`
	// MeleeRange is the distance at which a hunting monster engages.
	MeleeRange float64 `mapstructure:"melee_range"`
}

// ContentConfig points at the on-disk game content.
type ContentConfig struct {
	// Dir is the root of the YAML template catalog.
	Dir string `mapstructure:"dir"`
	// ScriptDir holds Lua spawn scripts.
	ScriptDir string `mapstructure:"script_dir"`
	// ScriptInstructionLimit bounds Lua opcodes per script run; 0 uses the
	// engine default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	World    WorldConfig    `mapstructure:"world"`
	Content  ContentConfig  `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWorld(c.World); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	var errs []string
	if w.TickPeriod <= 0 {
		errs = append(errs, "world.tick_period must be positive")
	}
	if w.SpawnInterval <= 0 {
		errs = append(errs, "world.spawn_interval must be positive")
	}
	if w.SpawnChance <= 0 || w.SpawnChance > 100 {
		errs = append(errs, fmt.Sprintf("world.spawn_chance must be in (0, 100], got %f", w.SpawnChance))
	}
	if w.AIInterval <= 0 {
		errs = append(errs, "world.ai_interval must be positive")
	}
	if w.MonsterGrace <= 0 {
		errs = append(errs, "world.monster_grace must be positive")
	}
	if w.BattleGrace <= 0 {
		errs = append(errs, "world.battle_grace must be positive")
	}
	if w.EventAudit <= 0 {
		errs = append(errs, "world.event_audit must be positive")
	}
	if w.DefaultZoneCap < 1 {
		errs = append(errs, fmt.Sprintf("world.default_zone_cap must be >= 1, got %d", w.DefaultZoneCap))
	}
	if w.MeleeRange <= 0 {
		errs = append(errs, fmt.Sprintf("world.melee_range must be positive, got %f", w.MeleeRange))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Dir == "" {
		errs = append(errs, "content.dir must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with REALMD_ prefix
	v.SetEnvPrefix("REALMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "realmd")
	v.SetDefault("database.password", "realmd")
	v.SetDefault("database.name", "realmd")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("world.tick_period", "1s")
	v.SetDefault("world.spawn_interval", "30s")
	v.SetDefault("world.spawn_chance", 25.0)
	v.SetDefault("world.ai_interval", "1s")
	v.SetDefault("world.monster_grace", "5m")
	v.SetDefault("world.battle_grace", "30s")
	v.SetDefault("world.event_audit", "5m")
	v.SetDefault("world.default_zone_cap", 100)
	v.SetDefault("world.melee_range", 1.5)

	v.SetDefault("content.dir", "content")
	v.SetDefault("content.script_dir", "content/scripts")
	v.SetDefault("content.script_instruction_limit", 0)
}
