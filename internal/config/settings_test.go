package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
)

func TestLoadSettingsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := `{
		"default_model": "claude-sonnet",
		"slot_limit": 4,
		"models": [
			{"name": "claude-sonnet", "provider": "anthropic", "context_window": 200000},
			{"name": "qwen2.5", "provider": "server", "base_url": "http://vllm:8000/v1"}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSettingsWithPath(path)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if s.DefaultModel != "claude-sonnet" || s.SlotLimit != 4 || len(s.Models) != 2 {
		t.Errorf("settings = %+v", s)
	}
	if s.LogLevel != "info" {
		t.Errorf("LogLevel default not applied: %q", s.LogLevel)
	}
}

func TestLoadSettingsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := `
default_model: llama3.1
models:
  - name: llama3.1
    provider: ollama
    context_window: 131072
  - name: gemini-2.5-flash
    provider: gemini
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSettingsWithPath(path)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if len(s.Models) != 2 || s.Models[1].Provider != ProviderGemini {
		t.Errorf("models = %+v", s.Models)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	s := NewSettingsWithPath(path)
	s.DefaultModel = "llama3.1"
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	loaded := NewSettingsWithPath(path)
	if err := loaded.Load(); err != nil {
		t.Fatal(err)
	}
	if loaded.DefaultModel != "llama3.1" {
		t.Errorf("DefaultModel = %q", loaded.DefaultModel)
	}
}

func TestDescriptorConversion(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ModelConfig
		wantErr bool
		check   func(t *testing.T, d domain.Descriptor)
	}{
		{
			name: "ollama local",
			cfg:  ModelConfig{Name: "llama3.1", Provider: "ollama", Host: "http://gpu-box:11434"},
			check: func(t *testing.T, d domain.Descriptor) {
				spec, ok := d.Spec.(domain.LocalSpec)
				if !ok || spec.Host != "http://gpu-box:11434" {
					t.Errorf("Spec = %#v", d.Spec)
				}
				if d.ContextWindow != defaultContextWindow {
					t.Errorf("ContextWindow default = %d", d.ContextWindow)
				}
			},
		},
		{
			name: "server needs base_url",
			cfg:  ModelConfig{Name: "qwen2.5", Provider: "server"},
			wantErr: true,
		},
		{
			name: "cloud vendor mapping",
			cfg:  ModelConfig{Name: "gpt-4.1", Provider: "openai", ContextWindow: 1000000},
			check: func(t *testing.T, d domain.Descriptor) {
				spec, ok := d.Spec.(domain.CloudSpec)
				if !ok || spec.Vendor != domain.VendorOpenAI {
					t.Errorf("Spec = %#v", d.Spec)
				}
			},
		},
		{
			name:    "unknown provider",
			cfg:     ModelConfig{Name: "x", Provider: "carrier-pigeon"},
			wantErr: true,
		},
		{
			name:    "missing name",
			cfg:     ModelConfig{Provider: "ollama"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.cfg.Descriptor()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, d)
			}
		})
	}
}

func TestValidateRejectsUnknownDefault(t *testing.T) {
	s := GetDefaultSettings()
	s.DefaultModel = "not-declared"
	if err := s.Validate(); err == nil {
		t.Error("expected error for undeclared default model")
	}
}
