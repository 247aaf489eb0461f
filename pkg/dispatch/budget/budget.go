package budget

import (
	"strings"

	"github.com/pkg/errors"

	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
	"github.com/modelmux/modelmux/pkg/message"
)

// Budget allocation strategy - universal values for all models.
const (
	// ResponseReserveFraction of the context window is held back for the
	// model's own response.
	ResponseReserveFraction = 0.25
	// Of what remains after the system prompt, this share goes to
	// past-subject summaries; the rest to recent messages.
	SubjectShareFraction = 0.20

	DefaultSubjectCount = 20
	DefaultMessageLimit = 30

	messageTrimStep = 5
	messageFloor    = 5
	subjectTrimStep = 5
	subjectFloor    = 3

	emergencyMessageLimit = 3
)

// FitRequest carries everything the planner needs for one dispatch call.
type FitRequest struct {
	SystemPrompt string
	Subjects     []Subject // oldest first; the most recent N are included
	Messages     []message.Message
	NewMessage   message.Message
	ContextWindow int

	// Zero values select the defaults (20 subjects, 30 messages, balanced).
	SubjectCount int
	MessageLimit int
	Compression  CompressionMode
}

// contextBudget is the per-call planning record mutated by the fit loop and
// discarded afterwards.
type contextBudget struct {
	window        int
	reserve       int
	systemTokens  int
	subjectTarget int
	messageTarget int

	subjectCount int
	messageLimit int
	compression  CompressionMode
	emergency    bool
}

// Planner fits prompts into context windows.
type Planner struct {
	log *pkgLogger.Logger
}

// NewPlanner creates a budget planner.
func NewPlanner() *Planner {
	return &Planner{log: pkgLogger.NewComponentLogger("budget")}
}

// Fit builds the four-part prompt at the requested targets and, when it does
// not fit the usable window, trims along a fixed ladder until it does:
//
//  1. shrink the recent-message window by 5 (floor 5)
//  2. advance the compression mode one step (rich → balanced → minimal → extreme)
//  3. shrink the past-subject count by 5 (floor 3)
//  4. emergency: 3 recent messages, zero subjects, extreme compression
//
// The loop terminates once the budget fits or strategy 4 has been applied;
// an emergency prompt that still exceeds the window is returned with
// OverBudget set rather than silently violating the invariant.
func (p *Planner) Fit(req FitRequest) (*PromptParts, error) {
	if req.ContextWindow <= 0 {
		return nil, errors.Errorf("invalid context window %d", req.ContextWindow)
	}

	b := p.newBudget(req)

	for {
		parts := p.build(req, b)
		if parts.TotalTokens() <= parts.UsableWindow() {
			p.log.DebugWithIntention(pkgLogger.IntentionBudget, "Prompt fitted",
				"total_tokens", parts.TotalTokens(),
				"usable", parts.UsableWindow(),
				"subjects", b.subjectCount,
				"messages", b.messageLimit,
				"compression", b.compression.String())
			return parts, nil
		}
		if b.emergency {
			// Even the minimum-viable prompt exceeds the window.
			parts.OverBudget = true
			p.log.WarnWithIntention(pkgLogger.IntentionBudget, "Emergency prompt still over budget",
				"total_tokens", parts.TotalTokens(), "usable", parts.UsableWindow())
			return parts, nil
		}
		p.trim(b)
	}
}

func (p *Planner) newBudget(req FitRequest) *contextBudget {
	window := req.ContextWindow
	reserve := int(float64(window) * ResponseReserveFraction)
	systemTokens := message.EstimateTokens(req.SystemPrompt)

	remaining := window - reserve - systemTokens
	if remaining < 0 {
		remaining = 0
	}
	subjectTarget := int(float64(remaining) * SubjectShareFraction)
	messageTarget := remaining - subjectTarget

	b := &contextBudget{
		window:        window,
		reserve:       reserve,
		systemTokens:  systemTokens,
		subjectTarget: subjectTarget,
		messageTarget: messageTarget,
		subjectCount:  req.SubjectCount,
		messageLimit:  req.MessageLimit,
		compression:   req.Compression,
	}
	if b.subjectCount <= 0 {
		b.subjectCount = DefaultSubjectCount
	}
	if b.messageLimit <= 0 {
		b.messageLimit = DefaultMessageLimit
	}

	p.log.DebugWithIntention(pkgLogger.IntentionBudget, "Budget targets computed",
		"window", window, "reserve", reserve,
		"system_tokens", systemTokens,
		"subject_target", subjectTarget, "message_target", messageTarget)
	return b
}

// trim applies the first applicable strategy, in strict order.
func (p *Planner) trim(b *contextBudget) {
	switch {
	case b.messageLimit > messageFloor:
		b.messageLimit -= messageTrimStep
		if b.messageLimit < messageFloor {
			b.messageLimit = messageFloor
		}
		p.log.DebugWithIntention(pkgLogger.IntentionBudget, "Shrinking recent-message window",
			"message_limit", b.messageLimit)
	case b.compression < CompressionExtreme:
		b.compression = b.compression.Next()
		p.log.DebugWithIntention(pkgLogger.IntentionBudget, "Advancing compression mode",
			"compression", b.compression.String())
	case b.subjectCount > subjectFloor:
		b.subjectCount -= subjectTrimStep
		if b.subjectCount < subjectFloor {
			b.subjectCount = subjectFloor
		}
		p.log.DebugWithIntention(pkgLogger.IntentionBudget, "Shrinking past-subject count",
			"subject_count", b.subjectCount)
	default:
		b.emergency = true
		b.messageLimit = emergencyMessageLimit
		b.subjectCount = 0
		b.compression = CompressionExtreme
		p.log.InfoWithIntention(pkgLogger.IntentionBudget, "Entering emergency budget mode",
			"message_limit", b.messageLimit, "subject_count", 0)
	}
}

// build renders all four parts at the budget's current knob values.
func (p *Planner) build(req FitRequest, b *contextBudget) *PromptParts {
	subjects := tailSubjects(req.Subjects, b.subjectCount)
	recent := tailMessages(req.Messages, b.messageLimit)

	var subjectsText string
	if len(subjects) > 0 {
		var sb strings.Builder
		sb.WriteString("Previous conversation subjects:\n")
		for _, s := range subjects {
			sb.WriteString("- ")
			sb.WriteString(CompressSummary(s.Summary, b.compression))
			sb.WriteByte('\n')
		}
		subjectsText = sb.String()
	}

	parts := &PromptParts{
		System: PromptPart{
			Text:      req.SystemPrompt,
			Tokens:    b.systemTokens,
			CacheKey:  systemCacheKey(req.SystemPrompt),
			Cacheable: true,
		},
		Subjects: PromptPart{
			Text:      subjectsText,
			Tokens:    message.EstimateTokens(subjectsText),
			CacheKey:  subjectsCacheKey(subjects),
			Cacheable: len(subjects) > 0,
		},
		Recent: PromptPart{
			Text:      renderMessages(recent),
			Tokens:    message.EstimateMessagesTokens(recent),
			CacheKey:  messagesCacheKey(recent),
			Cacheable: len(recent) > 0,
		},
		Incoming: PromptPart{
			Text:   req.NewMessage.Content,
			Tokens: req.NewMessage.EstimatedTokens(),
		},
		RecentMessages: recent,
		NewMessage:     req.NewMessage,
		SubjectCount:   b.subjectCount,
		MessageLimit:   b.messageLimit,
		Compression:    b.compression,
		Window:         b.window,
		Reserve:        b.reserve,
	}
	return parts
}

func tailSubjects(subjects []Subject, n int) []Subject {
	if n <= 0 || len(subjects) == 0 {
		return nil
	}
	if len(subjects) <= n {
		return subjects
	}
	return subjects[len(subjects)-n:]
}

func tailMessages(msgs []message.Message, n int) []message.Message {
	if n <= 0 || len(msgs) == 0 {
		return nil
	}
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// renderMessages produces the estimation-only text form of part 3.
func renderMessages(msgs []message.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role.String())
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
