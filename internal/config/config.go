package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/pietroferretti/ctftools/internal/analysis"
	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/env"
	"gopkg.in/yaml.v3"
)

// Config captures the ctftools configuration resolved from defaults, optional
// files and environment overrides.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" toml:"analysis" json:"analysis"`
	Server   ServerConfig   `yaml:"server" toml:"server" json:"server"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging" json:"logging"`
}

// AnalysisConfig tunes key length estimation and candidate pruning.
type AnalysisConfig struct {
	TopN           int    `yaml:"top_n" toml:"top_n" json:"top_n" validate:"gte=2,lte=64"`
	MaxComparisons int    `yaml:"max_comparisons" toml:"max_comparisons" json:"max_comparisons" validate:"gte=1"`
	Charset        string `yaml:"charset" toml:"charset" json:"charset" validate:"charset"`
	Combiner       string `yaml:"combiner" toml:"combiner" json:"combiner" validate:"combiner"`
	Workers        int    `yaml:"workers" toml:"workers" json:"workers" validate:"gte=1,lte=256"`
}

// ServerConfig controls the analyzer gRPC server.
type ServerConfig struct {
	Addr        string  `yaml:"addr" toml:"addr" json:"addr" validate:"required,hostname_port"`
	MetricsAddr string  `yaml:"metrics_addr" toml:"metrics_addr" json:"metrics_addr" validate:"omitempty,hostname_port"`
	MaxConns    int     `yaml:"max_conns" toml:"max_conns" json:"max_conns" validate:"gte=0"`
	RateLimit   float64 `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit" validate:"gte=0"`
	RateBurst   int     `yaml:"rate_burst" toml:"rate_burst" json:"rate_burst" validate:"gte=1"`
}

// LoggingConfig selects the diagnostic log output and the audit trail file.
type LoggingConfig struct {
	Level    string `yaml:"level" toml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" toml:"format" json:"format" validate:"oneof=text json"`
	AuditLog string `yaml:"audit_log" toml:"audit_log" json:"audit_log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			TopN:           analysis.DefaultTopN,
			MaxComparisons: analysis.DefaultMaxComparisons,
			Charset:        "printable",
			Combiner:       "xor",
			Workers:        1,
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:50061",
			MaxConns:  64,
			RateLimit: 20,
			RateBurst: 40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. The lookup order for configuration files is:
//  1. ~/.ctftools/config.toml (TOML)
//  2. ~/.xortools/config.toml (TOML, legacy)
//  3. ./ctftools.yml (YAML)
//
// Environment variables prefixed with CTFTOOLS_ have the highest precedence.
// The legacy XORTOOLS_ prefix is still honoured.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile is Load with an explicit configuration file in place of the
// home and working directory lookups. The format follows the extension.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	if err := applyFileConfig(&cfg, data, format); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}

	newPath := filepath.Join(home, ".ctftools", "config.toml")
	data, err := os.ReadFile(newPath)
	if err == nil {
		if err := applyFileConfig(cfg, data, "toml"); err != nil {
			return fmt.Errorf("parse config %s: %w", newPath, err)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read config %s: %w", newPath, err)
	}

	legacyPath := filepath.Join(home, ".xortools", "config.toml")
	data, err = os.ReadFile(legacyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", legacyPath, err)
	}
	slog.Warn("using legacy xortools config", "path", legacyPath)
	if err := applyFileConfig(cfg, data, "toml"); err != nil {
		return fmt.Errorf("parse config %s: %w", legacyPath, err)
	}
	return nil
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	path := filepath.Join(wd, "ctftools.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, "yaml"); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig mirrors Config with pointers so that keys absent from a file
// leave the current value alone.
type fileConfig struct {
	Analysis *fileAnalysisConfig `yaml:"analysis" toml:"analysis"`
	Server   *fileServerConfig   `yaml:"server" toml:"server"`
	Logging  *fileLoggingConfig  `yaml:"logging" toml:"logging"`
}

type fileAnalysisConfig struct {
	TopN           *int    `yaml:"top_n" toml:"top_n"`
	MaxComparisons *int    `yaml:"max_comparisons" toml:"max_comparisons"`
	Charset        *string `yaml:"charset" toml:"charset"`
	Combiner       *string `yaml:"combiner" toml:"combiner"`
	Workers        *int    `yaml:"workers" toml:"workers"`
}

type fileServerConfig struct {
	Addr        *string  `yaml:"addr" toml:"addr"`
	MetricsAddr *string  `yaml:"metrics_addr" toml:"metrics_addr"`
	MaxConns    *int     `yaml:"max_conns" toml:"max_conns"`
	RateLimit   *float64 `yaml:"rate_limit" toml:"rate_limit"`
	RateBurst   *int     `yaml:"rate_burst" toml:"rate_burst"`
}

type fileLoggingConfig struct {
	Level    *string `yaml:"level" toml:"level"`
	Format   *string `yaml:"format" toml:"format"`
	AuditLog *string `yaml:"audit_log" toml:"audit_log"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	if a := fc.Analysis; a != nil {
		setInt(&cfg.Analysis.TopN, a.TopN)
		setInt(&cfg.Analysis.MaxComparisons, a.MaxComparisons)
		setString(&cfg.Analysis.Charset, a.Charset)
		setString(&cfg.Analysis.Combiner, a.Combiner)
		setInt(&cfg.Analysis.Workers, a.Workers)
	}
	if s := fc.Server; s != nil {
		setString(&cfg.Server.Addr, s.Addr)
		setString(&cfg.Server.MetricsAddr, s.MetricsAddr)
		setInt(&cfg.Server.MaxConns, s.MaxConns)
		if s.RateLimit != nil {
			cfg.Server.RateLimit = *s.RateLimit
		}
		setInt(&cfg.Server.RateBurst, s.RateBurst)
	}
	if l := fc.Logging; l != nil {
		setString(&cfg.Logging.Level, l.Level)
		setString(&cfg.Logging.Format, l.Format)
		setString(&cfg.Logging.AuditLog, l.AuditLog)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func lookup(suffix string) (string, bool) {
	val, ok := env.Lookup("CTFTOOLS_"+suffix, "XORTOOLS_"+suffix)
	val = strings.TrimSpace(val)
	return val, ok && val != ""
}

func envString(dst *string, suffix string) {
	if val, ok := lookup(suffix); ok {
		*dst = val
	}
}

func envInt(dst *int, suffix string) {
	if val, ok := lookup(suffix); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dst = parsed
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	envInt(&cfg.Analysis.TopN, "TOP_N")
	envInt(&cfg.Analysis.MaxComparisons, "MAX_COMPARISONS")
	envString(&cfg.Analysis.Charset, "CHARSET")
	envString(&cfg.Analysis.Combiner, "COMBINER")
	envInt(&cfg.Analysis.Workers, "WORKERS")

	envString(&cfg.Server.Addr, "SERVER_ADDR")
	envString(&cfg.Server.MetricsAddr, "METRICS_ADDR")
	envInt(&cfg.Server.MaxConns, "MAX_CONNS")
	if val, ok := lookup("RATE_LIMIT"); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Server.RateLimit = parsed
		}
	}
	envInt(&cfg.Server.RateBurst, "RATE_BURST")

	envString(&cfg.Logging.Level, "LOG_LEVEL")
	envString(&cfg.Logging.Format, "LOG_FORMAT")
	envString(&cfg.Logging.AuditLog, "AUDIT_LOG")
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("charset", func(fl validator.FieldLevel) bool {
		_, err := analysis.LookupCharset(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("combiner", func(fl validator.FieldLevel) bool {
		_, err := cipher.LookupCombiner(fl.Field().String())
		return err == nil
	})
	return v
}()

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
