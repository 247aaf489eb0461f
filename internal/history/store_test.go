package history

import (
	"context"
	"testing"

	"github.com/modelmux/modelmux/internal/infra"
	"github.com/modelmux/modelmux/pkg/dispatch/budget"
	"github.com/modelmux/modelmux/pkg/message"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(infra.NewFileHistoryRepository(t.TempDir()))
}

func TestAppendAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.Append(ctx, "planning",
			message.NewUserMessage("question"),
			message.NewAssistantMessage("answer"))
		if err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.Recent(ctx, "planning", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 10 {
		t.Fatalf("stored %d messages, want 10", len(all))
	}

	tail, err := s.Recent(ctx, "planning", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 4 {
		t.Fatalf("Recent(4) = %d messages", len(tail))
	}
	if tail[len(tail)-1].Role != message.RoleAssistant {
		t.Error("tail lost ordering")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "alpha", message.NewUserMessage("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "beta", message.NewUserMessage("b")); err != nil {
		t.Fatal(err)
	}

	alpha, _ := s.Recent(ctx, "alpha", 0)
	beta, _ := s.Recent(ctx, "beta", 0)
	if len(alpha) != 1 || len(beta) != 1 || alpha[0].Content == beta[0].Content {
		t.Errorf("topics bled: alpha=%v beta=%v", alpha, beta)
	}
}

func TestSubjectsPersist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddSubject(ctx, "planning", budget.Subject{ID: "s1", Summary: "discussed rollout"}); err != nil {
		t.Fatal(err)
	}
	subjects, err := s.Subjects(ctx, "planning")
	if err != nil {
		t.Fatal(err)
	}
	if len(subjects) != 1 || subjects[0].ID != "s1" {
		t.Errorf("subjects = %v", subjects)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "scratch", message.NewUserMessage("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx, "scratch"); err != nil {
		t.Fatal(err)
	}
	msgs, err := s.Recent(ctx, "scratch", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages after clear: %v", msgs)
	}
}

func TestEmptyTopicReadsAreEmpty(t *testing.T) {
	s := newTestStore(t)
	msgs, err := s.Recent(context.Background(), "never-seen", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("unexpected messages: %v", msgs)
	}
}
