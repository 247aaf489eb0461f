package budget

import (
	"strings"

	"github.com/modelmux/modelmux/pkg/message"
)

// Two provider-shaped renderings of the same fitted parts. Which one an
// adapter uses depends on whether its backend supports prompt caching;
// neither affects the budget arithmetic.

// SystemBlock is a cache-annotated system segment for providers with native
// prompt caching.
type SystemBlock struct {
	Text      string
	CacheKey  string
	Cacheable bool
}

// Flattened merges parts 1 and 2 into a single system string and returns the
// flat message list (parts 3 + 4). For providers without native caching.
func (p *PromptParts) Flattened() (system string, msgs []message.Message) {
	segments := make([]string, 0, 2)
	if p.System.Text != "" {
		segments = append(segments, p.System.Text)
	}
	if p.Subjects.Text != "" {
		segments = append(segments, p.Subjects.Text)
	}
	system = strings.Join(segments, "\n\n")

	msgs = make([]message.Message, 0, len(p.RecentMessages)+1)
	msgs = append(msgs, p.RecentMessages...)
	msgs = append(msgs, p.NewMessage)
	return system, msgs
}

// CacheAnnotated keeps parts 1 and 2 as separate cache-annotated system
// blocks and flattens parts 3 + 4 into the message list. For providers with
// native prompt caching.
func (p *PromptParts) CacheAnnotated() (blocks []SystemBlock, msgs []message.Message) {
	if p.System.Text != "" {
		blocks = append(blocks, SystemBlock{
			Text:      p.System.Text,
			CacheKey:  p.System.CacheKey,
			Cacheable: p.System.Cacheable,
		})
	}
	if p.Subjects.Text != "" {
		blocks = append(blocks, SystemBlock{
			Text:      p.Subjects.Text,
			CacheKey:  p.Subjects.CacheKey,
			Cacheable: p.Subjects.Cacheable,
		})
	}

	msgs = make([]message.Message, 0, len(p.RecentMessages)+1)
	msgs = append(msgs, p.RecentMessages...)
	msgs = append(msgs, p.NewMessage)
	return blocks, msgs
}
