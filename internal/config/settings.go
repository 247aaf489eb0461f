// Package config loads and saves application settings and turns model
// declarations into registry descriptors.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/modelmux/modelmux/internal/infra"
	"github.com/modelmux/modelmux/internal/repository"
	"github.com/modelmux/modelmux/pkg/dispatch/domain"
	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
)

// Provider tags accepted in model declarations.
const (
	ProviderOllama    = "ollama"
	ProviderServer    = "server"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

const defaultContextWindow = 8192

// ModelConfig declares one servable model.
type ModelConfig struct {
	Name     string `json:"name" yaml:"name"`
	Provider string `json:"provider" yaml:"provider"`

	// Host is the runtime address for ollama models; BaseURL the endpoint of
	// OpenAI-compatible servers.
	Host    string `json:"host,omitempty" yaml:"host,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	ContextWindow int     `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	MaxTokens     int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature   float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// Group overrides the concurrency resource group.
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
}

// Settings is the application configuration.
type Settings struct {
	DefaultModel string        `json:"default_model" yaml:"default_model"`
	LogLevel     string        `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	SlotLimit    int           `json:"slot_limit,omitempty" yaml:"slot_limit,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Models       []ModelConfig `json:"models" yaml:"models"`

	settingsRepository repository.SettingsRepository `json:"-" yaml:"-"`
	format             string
}

// NewSettingsWithRepository creates default settings bound to the repository.
func NewSettingsWithRepository(repo repository.SettingsRepository) *Settings {
	s := GetDefaultSettings()
	s.settingsRepository = repo
	return s
}

// NewSettingsWithPath creates settings persisted at the given path; the
// extension selects the format (.yaml/.yml or .json).
func NewSettingsWithPath(configPath string) *Settings {
	s := NewSettingsWithRepository(infra.NewFileSettingsRepository(configPath))
	s.format = formatForPath(configPath)
	return s
}

// Load reads and parses settings from the repository.
func (s *Settings) Load() error {
	if s.settingsRepository == nil {
		return errors.New("no settings repository configured")
	}
	data, err := s.settingsRepository.Load()
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}

	switch s.format {
	case "yaml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return errors.Wrap(err, "parsing settings")
		}
	default:
		if err := json.Unmarshal(data, s); err != nil {
			return errors.Wrap(err, "parsing settings")
		}
	}
	applyDefaults(s)
	return nil
}

// Save writes settings back through the repository in the bound format.
func (s *Settings) Save() error {
	if s.settingsRepository == nil {
		return errors.New("no settings repository configured")
	}

	var (
		data []byte
		err  error
	)
	switch s.format {
	case "yaml":
		data, err = yaml.Marshal(s)
	default:
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "serializing settings")
	}
	return s.settingsRepository.Save(data)
}

// LoadSettings loads settings from configPath, or from the search path when
// empty. A missing file yields defaults, written out on first run.
func LoadSettings(configPath string) (*Settings, error) {
	settings := NewSettingsWithPath(configPath)

	if configPath == "" {
		found, _ := settings.settingsRepository.FindSettingsFile()
		if found == "" {
			return createDefaultSettingsFile()
		}
		settings.format = formatForPath(found)
	}

	if err := settings.Load(); err != nil {
		if configPath != "" {
			return createSettingsFileAtPath(configPath)
		}
		return GetDefaultSettings(), nil
	}
	return settings, nil
}

// Descriptors converts the model declarations into registry descriptors.
// Declarations that fail validation are skipped with an error.
func (s *Settings) Descriptors() ([]domain.Descriptor, error) {
	out := make([]domain.Descriptor, 0, len(s.Models))
	for _, m := range s.Models {
		desc, err := m.Descriptor()
		if err != nil {
			return nil, errors.Wrapf(err, "model %q", m.Name)
		}
		out = append(out, desc)
	}
	return out, nil
}

// Descriptor builds the immutable registry record for this declaration.
func (m ModelConfig) Descriptor() (domain.Descriptor, error) {
	if m.Name == "" {
		return domain.Descriptor{}, errors.New("model name is required")
	}

	var spec domain.ProviderSpec
	switch m.Provider {
	case ProviderOllama:
		spec = domain.LocalSpec{Host: m.Host}
	case ProviderServer:
		if m.BaseURL == "" {
			return domain.Descriptor{}, errors.New("base_url is required for server models")
		}
		spec = domain.ServerSpec{BaseURL: m.BaseURL}
	case ProviderAnthropic:
		spec = domain.CloudSpec{Vendor: domain.VendorAnthropic}
	case ProviderOpenAI:
		spec = domain.CloudSpec{Vendor: domain.VendorOpenAI}
	case ProviderGemini:
		spec = domain.CloudSpec{Vendor: domain.VendorGemini}
	default:
		return domain.Descriptor{}, errors.Errorf("unsupported provider %q", m.Provider)
	}

	window := m.ContextWindow
	if window <= 0 {
		window = defaultContextWindow
	}
	return domain.Descriptor{
		ID:              m.Name,
		Provider:        m.Provider,
		Spec:            spec,
		ContextWindow:   window,
		MaxOutputTokens: m.MaxTokens,
		Temperature:     m.Temperature,
		Group:           m.Group,
	}, nil
}

// GetDefaultSettings returns the first-run configuration: a single local
// model on the default Ollama runtime.
func GetDefaultSettings() *Settings {
	return &Settings{
		DefaultModel: "llama3.1",
		LogLevel:     "info",
		SlotLimit:    2,
		Models: []ModelConfig{
			{
				Name:          "llama3.1",
				Provider:      ProviderOllama,
				ContextWindow: 131072,
			},
		},
	}
}

// Validate rejects settings a dispatcher could not run with.
func (s *Settings) Validate() error {
	if len(s.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	if _, err := s.Descriptors(); err != nil {
		return err
	}
	if s.DefaultModel != "" {
		found := false
		for _, m := range s.Models {
			if m.Name == s.DefaultModel {
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("default model %q is not declared", s.DefaultModel)
		}
	}
	return nil
}

func applyDefaults(s *Settings) {
	defaults := GetDefaultSettings()
	if s.LogLevel == "" {
		s.LogLevel = defaults.LogLevel
	}
	if s.SlotLimit <= 0 {
		s.SlotLimit = defaults.SlotLimit
	}
	if s.DefaultModel == "" && len(s.Models) > 0 {
		s.DefaultModel = s.Models[0].Name
	}
}

func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func createDefaultSettingsFile() (*Settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil
	}
	return createSettingsFileAtPath(filepath.Join(home, ".modelmux", "settings.json"))
}

func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	settings := NewSettingsWithPath(settingsPath)
	if err := settings.Save(); err != nil {
		return GetDefaultSettings(), nil
	}
	pkgLogger.NewComponentLogger("settings").InfoWithIntention(pkgLogger.IntentionConfig,
		"Created default settings file", "path", settingsPath)
	return settings, nil
}
