package infra

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/internal/repository"
)

// FileHistoryRepository stores each topic's conversation as one JSON file
// under the base directory.
type FileHistoryRepository struct {
	baseDir string
}

// NewFileHistoryRepository creates a history repository rooted at baseDir.
// An empty baseDir selects ~/.modelmux/history.
func NewFileHistoryRepository(baseDir string) *FileHistoryRepository {
	if baseDir == "" {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, ".modelmux", "history")
	}
	return &FileHistoryRepository{baseDir: baseDir}
}

func (fr *FileHistoryRepository) Load(topic string) (repository.HistoryState, error) {
	var state repository.HistoryState

	data, err := os.ReadFile(fr.topicPath(topic))
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, errors.Wrapf(err, "reading history for topic %q", topic)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, errors.Wrapf(err, "parsing history for topic %q", topic)
	}
	return state, nil
}

func (fr *FileHistoryRepository) Save(topic string, state repository.HistoryState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "serializing history")
	}
	if err := os.MkdirAll(fr.baseDir, 0o755); err != nil {
		return errors.Wrap(err, "creating history directory")
	}
	if err := os.WriteFile(fr.topicPath(topic), data, 0o644); err != nil {
		return errors.Wrapf(err, "writing history for topic %q", topic)
	}
	return nil
}

func (fr *FileHistoryRepository) Clear(topic string) error {
	err := os.Remove(fr.topicPath(topic))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "clearing history for topic %q", topic)
	}
	return nil
}

func (fr *FileHistoryRepository) topicPath(topic string) string {
	return filepath.Join(fr.baseDir, sanitizeTopic(topic)+".json")
}

// sanitizeTopic keeps topic-derived file names safe on every platform.
func sanitizeTopic(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
