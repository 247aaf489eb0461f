package budget

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/modelmux/modelmux/pkg/message"
)

// PromptPart is one of the four prompt segments, carrying its own token
// estimate and cache key.
type PromptPart struct {
	Text      string
	Tokens    int
	CacheKey  string
	Cacheable bool
}

// PromptParts is the fitted four-part prompt:
//
//	part 1: stable system prompt (cacheable)
//	part 2: compressed past-subject summaries (cacheable, grows slowly)
//	part 3: recent in-conversation messages (conditionally cacheable)
//	part 4: the new message (never cacheable)
//
// RecentMessages and NewMessage are retained so provider formatters can emit
// a proper message list instead of re-parsing the rendered text.
type PromptParts struct {
	System   PromptPart
	Subjects PromptPart
	Recent   PromptPart
	Incoming PromptPart

	RecentMessages []message.Message
	NewMessage     message.Message

	// Knob values the fit loop settled on.
	SubjectCount int
	MessageLimit int
	Compression  CompressionMode

	// OverBudget reports that even the emergency minimum prompt exceeds the
	// usable window. The parts are still returned; rejecting or truncating
	// further is the caller's call.
	OverBudget bool

	Window  int
	Reserve int
}

// TotalTokens is the estimated size of all four parts.
func (p *PromptParts) TotalTokens() int {
	return p.System.Tokens + p.Subjects.Tokens + p.Recent.Tokens + p.Incoming.Tokens
}

// UsableWindow is the window minus the response headroom reserve.
func (p *PromptParts) UsableWindow() int {
	return p.Window - p.Reserve
}

// cacheKey returns the hex sha256 of the given canonical text. Keys exist so
// provider adapters supporting prompt caching can detect unchanged parts
// without recomputing server-side cache state.
func cacheKey(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// systemCacheKey hashes the literal system prompt text.
func systemCacheKey(systemPrompt string) string {
	return cacheKey(systemPrompt)
}

// subjectsCacheKey hashes the ordered list of included subject identifiers.
func subjectsCacheKey(subjects []Subject) string {
	ids := make([]string, len(subjects))
	for i, s := range subjects {
		ids[i] = s.ID
	}
	return cacheKey(strings.Join(ids, "\n"))
}

// messagesCacheKey hashes the serialized recent-message list.
func messagesCacheKey(msgs []message.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role.String())
		b.WriteByte(':')
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return cacheKey(b.String())
}
