package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// connectionFile is the on-disk shape of the persisted connection overlay.
// Params: single influx section with the mutable connection settings.
// Returns: overlay document.
type connectionFile struct {
	Influx InfluxConfig `toml:"influx"`
}

// SaveConnection persists replaced connection settings as a TOML overlay.
// The write goes through a temp file and rename so a crash never leaves a
// partially written overlay.
// Params: path overlay file location; settings connection settings to persist.
// Returns: IO or encode error.
func SaveConnection(path string, settings InfluxConfig) error {
	payload, err := toml.Marshal(connectionFile{Influx: settings})
	if err != nil {
		return fmt.Errorf("encode connection settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close state file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace state file %q: %w", path, err)
	}
	return nil
}

// LoadConnection reads the persisted connection overlay when it exists.
// Params: path overlay file location.
// Returns: settings, found flag (false when no overlay exists), and error.
func LoadConnection(path string) (InfluxConfig, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return InfluxConfig{}, false, nil
		}
		return InfluxConfig{}, false, fmt.Errorf("read state file %q: %w", path, err)
	}

	var file connectionFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return InfluxConfig{}, false, fmt.Errorf("decode state file %q: %w", path, err)
	}
	return file.Influx, true, nil
}
