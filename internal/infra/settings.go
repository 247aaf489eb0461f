// Package infra implements the repository interfaces with the local
// filesystem. All app state lives under ~/.modelmux (or a project-local
// .modelmux directory for settings).
package infra

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Settings file names probed on the search path, in order.
var settingsFileNames = []string{"settings.json", "settings.yaml"}

// FileSettingsRepository persists settings to a file. An empty path means
// "search the standard locations".
type FileSettingsRepository struct {
	configPath string
}

// NewFileSettingsRepository creates a file-backed settings repository.
func NewFileSettingsRepository(configPath string) *FileSettingsRepository {
	return &FileSettingsRepository{configPath: configPath}
}

func (fr *FileSettingsRepository) Load() ([]byte, error) {
	configPath := fr.configPath
	if configPath == "" {
		found, err := fr.FindSettingsFile()
		if err != nil {
			return nil, err
		}
		if found == "" {
			return nil, errors.New("no settings file found")
		}
		configPath = found
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading settings file %s", configPath)
	}
	return data, nil
}

func (fr *FileSettingsRepository) Save(data []byte) error {
	configPath := fr.configPath
	if configPath == "" {
		found, _ := fr.FindSettingsFile()
		if found != "" {
			configPath = found
		} else {
			configPath = filepath.Join(".modelmux", "settings.json")
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing settings file %s", configPath)
	}
	return nil
}

// FindSettingsFile probes .modelmux in the working directory, then
// ~/.modelmux, for settings.json or settings.yaml.
func (fr *FileSettingsRepository) FindSettingsFile() (string, error) {
	if fr.configPath != "" {
		if _, err := os.Stat(fr.configPath); err == nil {
			return fr.configPath, nil
		}
		return "", nil
	}

	dirs := []string{".modelmux"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".modelmux"))
	}
	for _, dir := range dirs {
		for _, name := range settingsFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", nil
}

// InMemorySettingsRepository keeps settings bytes in memory, for tests and
// ephemeral runs.
type InMemorySettingsRepository struct {
	data []byte
}

// NewInMemorySettingsRepository creates an empty in-memory repository.
func NewInMemorySettingsRepository() *InMemorySettingsRepository {
	return &InMemorySettingsRepository{}
}

func (mr *InMemorySettingsRepository) Load() ([]byte, error) {
	if mr.data == nil {
		return nil, errors.New("no data stored in memory repository")
	}
	return mr.data, nil
}

func (mr *InMemorySettingsRepository) Save(data []byte) error {
	mr.data = append([]byte(nil), data...)
	return nil
}

func (mr *InMemorySettingsRepository) FindSettingsFile() (string, error) {
	return "", nil
}
