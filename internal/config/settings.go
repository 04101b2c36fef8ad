package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/Skryldev/voiceprep/domain/model"
)

// Settings are the desktop tool's persisted preferences.
type Settings struct {
	OutputFolder    string `json:"output_folder"`
	UseCustomOutput bool   `json:"use_custom_output"`
	LastInputFolder string `json:"last_input_folder,omitempty"`
}

// ResolvePolicy turns the saved preference into an output policy. A custom
// output without a folder falls back to writing beside the inputs.
func (s Settings) ResolvePolicy() model.OutputPolicy {
	if s.UseCustomOutput && s.OutputFolder != "" {
		return model.IntoFolder(s.OutputFolder)
	}
	return model.BesideInputs()
}

// DefaultSettings writes beside the inputs.
func DefaultSettings() Settings {
	return Settings{}
}

// DefaultSettingsPath is ~/.config/voice-prompt-cleanup/settings.json, or
// the user config dir equivalent on other platforms.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "voice-prompt-cleanup", "settings.json")
}

// Store defines persistence operations for settings.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

var _ Store = (*JSONStore)(nil)

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads settings from disk or returns defaults when missing.
func (s *JSONStore) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, err
	}

	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// Save writes settings as indented JSON and creates parent directories.
func (s *JSONStore) Save(cfg Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
