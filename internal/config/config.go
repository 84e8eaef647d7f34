package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel      = "info"
	defaultLogFormat     = "line"
	defaultMeasurement   = "tasks"
	defaultHostTimeout   = 5 * time.Second
	defaultDebounce      = 5 * time.Second
	defaultBatchSize     = 50
	defaultControlListen = "127.0.0.1:9178"
	defaultStatsInterval = time.Minute
	defaultPprofListen   = "127.0.0.1:6060"
	defaultStateFile     = "connection.toml"
)

// Duration wraps time.Duration for TOML parsing.
// Params: text duration string (e.g. "5s", "1m").
// Returns: parse error on invalid duration.
type Duration struct {
	time.Duration
}

// UnmarshalText parses TOML duration values.
// Params: text is raw duration bytes from TOML.
// Returns: error when value is not a valid Go duration.
func (d *Duration) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	if value == "" {
		d.Duration = 0
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}

	d.Duration = parsed
	return nil
}

// Config represents the root bridge configuration.
// Params: TOML document sections.
// Returns: validated runtime configuration.
type Config struct {
	Influx  InfluxConfig  `toml:"influx"`
	Host    HostConfig    `toml:"host"`
	Control ControlConfig `toml:"control"`
	Sync    SyncConfig    `toml:"sync"`
	Stats   StatsConfig   `toml:"stats"`
	Log     LogConfig     `toml:"log"`
	Pprof   PprofConfig   `toml:"pprof"`

	// StatePath is the resolved connection overlay file location. It is
	// derived from the config path at load time, not set from TOML.
	StatePath string `toml:"-"`
}

// InfluxConfig contains the mutable connection settings for the ingestion
// endpoint. The JSON tags mirror the control-message config payload.
// Params: endpoint URL, auth token, and measurement name.
// Returns: connection settings replaced wholesale on save-config.
type InfluxConfig struct {
	URL         string `toml:"url" json:"endpointUrl"`
	Token       string `toml:"token" json:"authToken"`
	Measurement string `toml:"measurement" json:"measurementName"`
}

// Configured reports whether the connection settings allow network writes.
// Params: none.
// Returns: true when both URL and token are present.
func (c InfluxConfig) Configured() bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.Token) != ""
}

// HostConfig contains host application API settings.
// Params: API base URL, bearer token, and request timeout.
// Returns: host collaborator settings.
type HostConfig struct {
	URL     string   `toml:"url"`
	Token   string   `toml:"token"`
	Timeout Duration `toml:"timeout"`
}

// ControlConfig defines the inbound control/event HTTP listener.
// Params: listen address and allowed CORS origins for the host UI surface.
// Returns: control listener settings.
type ControlConfig struct {
	Listen         string   `toml:"listen"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// SyncConfig holds outbound sync behavior settings.
// Params: debounce window, import batch size, and project wildcard masks.
// Returns: sync runtime settings.
type SyncConfig struct {
	Debounce        Duration `toml:"debounce"`
	BatchSize       int      `toml:"batch_size"`
	IncludeProjects []string `toml:"include_projects"`
	ExcludeProjects []string `toml:"exclude_projects"`
}

// StatsConfig defines optional bridge self-telemetry reporting.
// Params: enabled flag and report interval.
// Returns: self-telemetry settings.
type StatsConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// PprofConfig defines optional runtime pprof HTTP endpoint.
// Params: enabled flag and listen address in host:port format.
// Returns: pprof runtime settings.
type PprofConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// LogConfig contains console/file logging configuration.
// Params: console and file sink options.
// Returns: logger sink settings.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink options from TOML.
// Returns: sink setup.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// Load reads, expands, validates, and returns config from path. The
// persisted connection overlay, when present, replaces the static [influx]
// section so settings saved at runtime survive restarts.
// Params: path to TOML config file or directory with *.toml files.
// Returns: validated config pointer or error.
func Load(path string) (*Config, error) {
	raw, err := readConfigSource(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode TOML %q: %w", path, err)
	}

	cfg.StatePath = resolveStatePath(path)
	cfg.applyDefaults()

	overlay, found, err := LoadConnection(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	if found {
		cfg.Influx = overlay
		if strings.TrimSpace(cfg.Influx.Measurement) == "" {
			cfg.Influx.Measurement = defaultMeasurement
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveStatePath derives the connection overlay location from config path.
// Params: path config file or directory path.
// Returns: overlay file path next to the configuration source.
func resolveStatePath(path string) string {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return filepath.Join(path, defaultStateFile)
	}
	return filepath.Join(filepath.Dir(path), defaultStateFile)
}

// readConfigSource reads one TOML file or concatenates *.toml files from directory.
// Params: path to config file or directory.
// Returns: raw TOML bytes or error.
func readConfigSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config %q: %w", path, err)
	}

	if !info.IsDir() {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", path, readErr)
		}
		return raw, nil
	}

	return readConfigDir(path)
}

// readConfigDir concatenates config snippets from one directory. The
// connection overlay file is skipped; it is applied separately after decode.
// Params: path to directory that contains *.toml files.
// Returns: concatenated TOML content or error.
func readConfigDir(path string) ([]byte, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %q: %w", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() == defaultStateFile {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".toml") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("read config dir %q: no *.toml files", path)
	}

	var builder strings.Builder
	for _, name := range files {
		filePath := filepath.Join(path, name)
		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("read config %q: %w", filePath, readErr)
		}
		builder.Write(raw)
		if len(raw) == 0 || raw[len(raw)-1] != '\n' {
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}

	return []byte(builder.String()), nil
}

// applyDefaults fills defaults for optional configuration fields.
// Params: receiver config pointer.
// Returns: none.
func (c *Config) applyDefaults() {
	c.Log.Console.Level = lowerOrDefault(c.Log.Console.Level, defaultLogLevel)
	c.Log.Console.Format = lowerOrDefault(c.Log.Console.Format, defaultLogFormat)
	c.Log.File.Level = lowerOrDefault(c.Log.File.Level, defaultLogLevel)
	c.Log.File.Format = lowerOrDefault(c.Log.File.Format, "json")

	if !c.Log.Console.Enabled && !c.Log.File.Enabled {
		c.Log.Console.Enabled = true
	}

	if strings.TrimSpace(c.Influx.Measurement) == "" {
		c.Influx.Measurement = defaultMeasurement
	}
	if c.Host.Timeout.Duration <= 0 {
		c.Host.Timeout.Duration = defaultHostTimeout
	}
	if strings.TrimSpace(c.Control.Listen) == "" {
		c.Control.Listen = defaultControlListen
	}
	if len(c.Control.AllowedOrigins) == 0 {
		c.Control.AllowedOrigins = []string{"*"}
	}
	if c.Sync.Debounce.Duration <= 0 {
		c.Sync.Debounce.Duration = defaultDebounce
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = defaultBatchSize
	}
	if c.Stats.Interval.Duration <= 0 {
		c.Stats.Interval.Duration = defaultStatsInterval
	}
	if c.Pprof.Enabled && strings.TrimSpace(c.Pprof.Listen) == "" {
		c.Pprof.Listen = defaultPprofListen
	}
}

// validate checks config consistency and required fields.
// Params: receiver config pointer.
// Returns: validation error for invalid or incomplete config.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Host.URL) == "" {
		return fmt.Errorf("host.url is required")
	}
	if _, err := url.Parse(c.Host.URL); err != nil {
		return fmt.Errorf("host.url is invalid: %w", err)
	}

	// The influx section may be empty: an unconfigured bridge runs with
	// background sync as a silent no-op until save-config arrives.
	if strings.TrimSpace(c.Influx.URL) != "" {
		parsed, err := url.Parse(c.Influx.URL)
		if err != nil {
			return fmt.Errorf("influx.url is invalid: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("influx.url must use http or https")
		}
	}

	if _, _, err := net.SplitHostPort(c.Control.Listen); err != nil {
		return fmt.Errorf("control.listen must be host:port: %w", err)
	}
	for idx, origin := range c.Control.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("control.allowed_origins[%d] cannot be empty", idx)
		}
	}

	if c.Sync.Debounce.Duration <= 0 {
		return fmt.Errorf("sync.debounce must be > 0")
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be > 0")
	}
	if c.Stats.Enabled && c.Stats.Interval.Duration <= 0 {
		return fmt.Errorf("stats.interval must be > 0 when enabled")
	}

	if err := validateSink("log.console", c.Log.Console, false); err != nil {
		return err
	}
	if err := validateSink("log.file", c.Log.File, true); err != nil {
		return err
	}
	return validatePprofConfig("pprof", c.Pprof)
}

// validateSink validates one logging sink configuration.
// Params: name is sink path for errors; sink is sink config; requirePath means path required when enabled.
// Returns: validation error or nil.
func validateSink(name string, sink LogSinkConfig, requirePath bool) error {
	if sink.Enabled && requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required when sink is enabled", name)
	}

	if err := validateLogLevel(sink.Level); err != nil {
		return fmt.Errorf("%s.level: %w", name, err)
	}
	if err := validateLogFormat(sink.Format); err != nil {
		return fmt.Errorf("%s.format: %w", name, err)
	}

	return nil
}

// validateLogLevel validates known log levels.
// Params: level is lower-case level name.
// Returns: error when level is unsupported.
func validateLogLevel(level string) error {
	switch strings.TrimSpace(strings.ToLower(level)) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", level)
	}
}

// validateLogFormat validates supported sink formats.
// Params: format is lower-case format name.
// Returns: error when format is unsupported.
func validateLogFormat(format string) error {
	switch strings.TrimSpace(strings.ToLower(format)) {
	case "line", "json":
		return nil
	default:
		return fmt.Errorf("unsupported value %q", format)
	}
}

// validatePprofConfig validates optional pprof endpoint settings.
// Params: path is config path prefix; cfg pprof section.
// Returns: validation error for invalid listen endpoint.
func validatePprofConfig(path string, cfg PprofConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("%s.listen cannot be empty when enabled", path)
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("%s.listen must be host:port: %w", path, err)
	}
	return nil
}

// lowerOrDefault returns a trimmed lower-case value or default fallback.
// Params: value to normalize; fallback value when empty.
// Returns: normalized value.
func lowerOrDefault(value, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fallback
	}
	return normalized
}
