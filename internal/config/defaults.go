package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Subtitle karaoke timings are written in centiseconds, so the chart uses
// a fixed 100 beats per second timebase. 1500 is the conventional value
// written to the BPM tag; players multiply it by four.
const (
	DefaultKaraokeBPM = 1500
	BeatsPerSecond    = 100
)

// Settings are persistent user defaults, loaded from the TOML settings
// file before flags are applied. Flags always win.
type Settings struct {
	OutputDir  string  `toml:"output_dir"`
	KaraokeBPM float64 `toml:"karaoke_bpm"`
	FFmpegPath string  `toml:"ffmpeg_path"`
	Normalize  *bool   `toml:"normalize"`
	NoColor    bool    `toml:"no_color"`
}

func defaultSettings() Settings {
	return Settings{
		OutputDir:  "output",
		KaraokeBPM: DefaultKaraokeBPM,
	}
}

// SettingsPath returns the conventional settings file location.
func SettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate user config dir: %w", err)
	}
	return filepath.Join(dir, "karachart", "config.toml"), nil
}

// LoadSettings reads the settings file at path. A missing file is not an
// error and yields the defaults; a malformed file is.
func LoadSettings(path string) (Settings, error) {
	settings := defaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return defaultSettings(), fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if settings.OutputDir == "" {
		settings.OutputDir = "output"
	}
	if settings.KaraokeBPM == 0 {
		settings.KaraokeBPM = DefaultKaraokeBPM
	}
	return settings, nil
}
