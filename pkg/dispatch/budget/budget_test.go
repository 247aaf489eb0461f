package budget

import (
	"strings"
	"testing"

	"github.com/modelmux/modelmux/pkg/message"
)

// Token counts in these tests rely on the documented chars/4 length
// heuristic, not a real tokenizer. A "100 token" summary is 400 characters.

func repeatText(chars int) string {
	return strings.Repeat("wwwwwww ", (chars+7)/8)[:chars]
}

func makeMessages(n, charsEach int) []message.Message {
	msgs := make([]message.Message, 0, n)
	for i := 0; i < n; i++ {
		role := message.RoleUser
		if i%2 == 1 {
			role = message.RoleAssistant
		}
		msgs = append(msgs, message.Message{Role: role, Content: repeatText(charsEach)})
	}
	return msgs
}

func makeSubjects(n, charsEach int) []Subject {
	subjects := make([]Subject, 0, n)
	for i := 0; i < n; i++ {
		subjects = append(subjects, Subject{
			ID:      "subj-" + strings.Repeat("x", i%5) + string(rune('a'+i%26)),
			Summary: repeatText(charsEach),
		})
	}
	return subjects
}

func TestFitScenarioTrimsToUsableWindow(t *testing.T) {
	// Context window 8000 with a 25% reserve leaves 6000 usable tokens.
	// System prompt 500 tokens, 50 subjects of ~100 tokens, 40 recent
	// messages of ~150 tokens, new message 50 tokens.
	p := NewPlanner()

	parts, err := p.Fit(FitRequest{
		SystemPrompt:  repeatText(2000),
		Subjects:      makeSubjects(50, 400),
		Messages:      makeMessages(40, 600),
		NewMessage:    message.NewUserMessage(repeatText(200)),
		ContextWindow: 8000,
	})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	if parts.Reserve != 2000 {
		t.Errorf("Reserve = %d, want 2000", parts.Reserve)
	}
	if parts.OverBudget {
		t.Fatalf("fit should not be over budget, total=%d", parts.TotalTokens())
	}
	if got, usable := parts.TotalTokens(), parts.UsableWindow(); got > usable {
		t.Errorf("TotalTokens = %d, want <= %d", got, usable)
	}
	// The initial targets do not fit, so at least one message-trim step ran.
	if parts.MessageLimit >= DefaultMessageLimit {
		t.Errorf("MessageLimit = %d, expected trimming below %d", parts.MessageLimit, DefaultMessageLimit)
	}
	if parts.MessageLimit < 5 {
		t.Errorf("MessageLimit = %d, below floor 5 without emergency", parts.MessageLimit)
	}
	if parts.SubjectCount < 3 {
		t.Errorf("SubjectCount = %d, below floor 3 without emergency", parts.SubjectCount)
	}
}

func TestFitSmallInputNeedsNoTrimming(t *testing.T) {
	p := NewPlanner()

	parts, err := p.Fit(FitRequest{
		SystemPrompt:  "You are a helpful assistant.",
		Subjects:      makeSubjects(4, 200),
		Messages:      makeMessages(6, 200),
		NewMessage:    message.NewUserMessage("hello"),
		ContextWindow: 32000,
	})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	if parts.MessageLimit != DefaultMessageLimit {
		t.Errorf("MessageLimit = %d, want default %d", parts.MessageLimit, DefaultMessageLimit)
	}
	if parts.SubjectCount != DefaultSubjectCount {
		t.Errorf("SubjectCount = %d, want default %d", parts.SubjectCount, DefaultSubjectCount)
	}
	if parts.Compression != CompressionBalanced {
		t.Errorf("Compression = %s, want balanced", parts.Compression)
	}
	if len(parts.RecentMessages) != 6 {
		t.Errorf("RecentMessages = %d, want 6", len(parts.RecentMessages))
	}
}

func TestFitEmergencyOverBudgetIsFlagged(t *testing.T) {
	p := NewPlanner()

	// System prompt alone exceeds the usable window; even the emergency
	// minimum cannot fit and must be flagged, not silently returned.
	parts, err := p.Fit(FitRequest{
		SystemPrompt:  repeatText(2000), // 500 tokens
		Messages:      makeMessages(10, 400),
		NewMessage:    message.NewUserMessage("hi"),
		ContextWindow: 400, // usable 300
	})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	if !parts.OverBudget {
		t.Fatal("expected OverBudget to be set")
	}
	if parts.SubjectCount != 0 {
		t.Errorf("emergency SubjectCount = %d, want 0", parts.SubjectCount)
	}
	if parts.MessageLimit != 3 {
		t.Errorf("emergency MessageLimit = %d, want 3", parts.MessageLimit)
	}
	if parts.Compression != CompressionExtreme {
		t.Errorf("emergency Compression = %s, want extreme", parts.Compression)
	}
}

func TestFitInvalidWindow(t *testing.T) {
	p := NewPlanner()
	if _, err := p.Fit(FitRequest{ContextWindow: 0}); err == nil {
		t.Fatal("expected error for zero context window")
	}
}

func TestFitSubjectFloorBeforeEmergency(t *testing.T) {
	p := NewPlanner()

	// Few, small messages: the message-trim and compression strategies free
	// almost nothing, forcing the ladder down to subject trimming.
	parts, err := p.Fit(FitRequest{
		SystemPrompt:  repeatText(400),
		Subjects:      makeSubjects(40, 400),
		Messages:      makeMessages(4, 80),
		NewMessage:    message.NewUserMessage("hi"),
		ContextWindow: 600,
	})
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	if parts.OverBudget {
		t.Fatalf("should fit after subject trimming, total=%d usable=%d",
			parts.TotalTokens(), parts.UsableWindow())
	}
	if parts.SubjectCount >= DefaultSubjectCount {
		t.Errorf("SubjectCount = %d, expected trimming below %d", parts.SubjectCount, DefaultSubjectCount)
	}
}

func TestFitPreFittedInvariantHolds(t *testing.T) {
	// Property: with systemPromptTokens < 0.75 * window, either the fit
	// succeeds within budget or the emergency case is flagged.
	p := NewPlanner()
	windows := []int{1000, 4000, 8000, 64000}
	for _, w := range windows {
		parts, err := p.Fit(FitRequest{
			SystemPrompt:  repeatText(w), // w/4 tokens = 25% of window
			Subjects:      makeSubjects(30, 500),
			Messages:      makeMessages(50, 700),
			NewMessage:    message.NewUserMessage(repeatText(120)),
			ContextWindow: w,
		})
		if err != nil {
			t.Fatalf("window %d: %v", w, err)
		}
		if !parts.OverBudget && parts.TotalTokens() > parts.UsableWindow() {
			t.Errorf("window %d: total %d exceeds usable %d without flag",
				w, parts.TotalTokens(), parts.UsableWindow())
		}
	}
}

func TestCacheKeysStableAndDistinct(t *testing.T) {
	p := NewPlanner()
	req := FitRequest{
		SystemPrompt:  "stable system prompt",
		Subjects:      makeSubjects(5, 100),
		Messages:      makeMessages(4, 100),
		NewMessage:    message.NewUserMessage("question"),
		ContextWindow: 16000,
	}

	first, err := p.Fit(req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Fit(req)
	if err != nil {
		t.Fatal(err)
	}

	if first.System.CacheKey != second.System.CacheKey {
		t.Error("system cache key changed between identical fits")
	}
	if first.Subjects.CacheKey != second.Subjects.CacheKey {
		t.Error("subjects cache key changed between identical fits")
	}
	if first.Recent.CacheKey != second.Recent.CacheKey {
		t.Error("recent cache key changed between identical fits")
	}

	req.SystemPrompt = "different system prompt"
	third, err := p.Fit(req)
	if err != nil {
		t.Fatal(err)
	}
	if third.System.CacheKey == first.System.CacheKey {
		t.Error("system cache key did not change with prompt text")
	}
	if first.Incoming.Cacheable {
		t.Error("part 4 must never be cacheable")
	}
}

func TestFlattenedMergesSystemParts(t *testing.T) {
	p := NewPlanner()
	parts, err := p.Fit(FitRequest{
		SystemPrompt:  "base prompt",
		Subjects:      []Subject{{ID: "s1", Summary: "talked about routing"}},
		Messages:      makeMessages(2, 40),
		NewMessage:    message.NewUserMessage("next"),
		ContextWindow: 16000,
	})
	if err != nil {
		t.Fatal(err)
	}

	system, msgs := parts.Flattened()
	if !strings.Contains(system, "base prompt") || !strings.Contains(system, "routing") {
		t.Errorf("flattened system missing parts: %q", system)
	}
	if len(msgs) != 3 {
		t.Fatalf("flattened messages = %d, want 3", len(msgs))
	}
	if msgs[len(msgs)-1].Content != "next" {
		t.Errorf("last flattened message = %q, want the new message", msgs[len(msgs)-1].Content)
	}

	blocks, msgs2 := parts.CacheAnnotated()
	if len(blocks) != 2 {
		t.Fatalf("cache-annotated blocks = %d, want 2", len(blocks))
	}
	if !blocks[0].Cacheable || !blocks[1].Cacheable {
		t.Error("parts 1 and 2 should be cacheable")
	}
	if len(msgs2) != 3 {
		t.Errorf("cache-annotated messages = %d, want 3", len(msgs2))
	}
}
