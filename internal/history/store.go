// Package history provides the file-backed conversation store serving the
// dispatcher's history boundary.
package history

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/internal/repository"
	"github.com/modelmux/modelmux/pkg/dispatch/budget"
	"github.com/modelmux/modelmux/pkg/message"
)

// Store keeps per-topic conversation state behind a HistoryRepository.
// Writes are serialized; reads load the current file state.
type Store struct {
	mu   sync.Mutex
	repo repository.HistoryRepository
}

// NewStore creates a history store over the repository.
func NewStore(repo repository.HistoryRepository) *Store {
	return &Store{repo: repo}
}

// Recent returns up to limit of the topic's newest messages, oldest first.
func (s *Store) Recent(_ context.Context, topic string, limit int) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.Load(topic)
	if err != nil {
		return nil, err
	}
	msgs := state.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Subjects returns the topic's past-subject summaries, oldest first.
func (s *Store) Subjects(_ context.Context, topic string) ([]budget.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.Load(topic)
	if err != nil {
		return nil, err
	}
	return state.Subjects, nil
}

// Append records messages at the end of the topic's history.
func (s *Store) Append(_ context.Context, topic string, msgs ...message.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.Load(topic)
	if err != nil {
		return err
	}
	state.Messages = append(state.Messages, msgs...)
	return errors.Wrap(s.repo.Save(topic, state), "appending history")
}

// AddSubject records a compressed subject summary for the topic.
func (s *Store) AddSubject(_ context.Context, topic string, subject budget.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.Load(topic)
	if err != nil {
		return err
	}
	state.Subjects = append(state.Subjects, subject)
	return errors.Wrap(s.repo.Save(topic, state), "adding subject")
}

// Clear removes all state for the topic.
func (s *Store) Clear(_ context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Clear(topic)
}
