// Package repository declares the persistence boundaries used by the app
// layer; internal/infra provides the file-backed implementations.
package repository

// SettingsRepository abstracts settings persistence.
type SettingsRepository interface {
	Load() ([]byte, error)
	Save(data []byte) error
	// FindSettingsFile returns the path of an existing settings file, or ""
	// when none exists on the search path.
	FindSettingsFile() (string, error)
}
