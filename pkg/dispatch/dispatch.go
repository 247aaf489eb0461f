// Package dispatch is the orchestration core: one Chat entry point that
// budgets the prompt, gates concurrency, calls the provider adapter, tracks
// health, and runs the bounded tool loop.
package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/modelmux/modelmux/pkg/dispatch/budget"
	"github.com/modelmux/modelmux/pkg/dispatch/domain"
	"github.com/modelmux/modelmux/pkg/dispatch/gate"
	"github.com/modelmux/modelmux/pkg/dispatch/health"
	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
	"github.com/modelmux/modelmux/pkg/message"
)

// maxToolDepth bounds the tool loop: one tool round, then the follow-up call
// runs with tools disabled.
const maxToolDepth = 1

// Options parameterize a single Chat call.
type Options struct {
	Topic   string
	ModelID string
	Message string

	SystemPrompt string
	EnableTools  bool
	Priority     gate.Priority
	OnChunk      domain.StreamFunc

	// PreFitted skips budget planning and sends these parts as-is. The
	// caller vouches that they fit the model's window.
	PreFitted *budget.PromptParts

	Compression budget.CompressionMode
}

// ToolResult records one tool round inside a Chat call.
type ToolResult struct {
	Call   ToolCall
	Output string
	Err    string
}

// Result is a completed Chat exchange.
type Result struct {
	ModelID     string
	Content     string
	Thinking    string
	Usage       message.TokenUsage
	Parts       *budget.PromptParts
	ToolResults []ToolResult
}

// Config wires a Dispatcher's collaborators. Registry and Adapters are
// required; the rest are optional.
type Config struct {
	Registry domain.Registry
	Adapters domain.AdapterResolver
	Gate     *gate.Manager
	History  domain.HistoryProvider
	Tools    domain.ToolExecutor
}

// Dispatcher owns all dispatch state: no package-level tables, one instance
// per process (or per test).
type Dispatcher struct {
	registry domain.Registry
	adapters domain.AdapterResolver
	planner  *budget.Planner
	gate     *gate.Manager
	health   *health.Tracker
	history  domain.HistoryProvider
	tools    domain.ToolExecutor
	log      *pkgLogger.Logger

	mu      sync.Mutex
	cancels map[string]cancelEntry
}

type cancelEntry struct {
	id     string
	cancel context.CancelFunc
}

// New creates a dispatcher from the given collaborators.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil || cfg.Adapters == nil {
		return nil, errors.New("dispatch: registry and adapter resolver are required")
	}
	g := cfg.Gate
	if g == nil {
		g = gate.NewManager(gate.DefaultSlotLimit)
	}
	return &Dispatcher{
		registry: cfg.Registry,
		adapters: cfg.Adapters,
		planner:  budget.NewPlanner(),
		gate:     g,
		health:   health.NewTracker(),
		history:  cfg.History,
		tools:    cfg.Tools,
		log:      pkgLogger.NewComponentLogger("dispatch"),
	}, nil
}

// Chat runs one exchange end to end: budget the prompt (unless pre-fitted),
// take a concurrency slot, call the adapter, record health, run at most one
// tool round, and persist the exchange.
func (d *Dispatcher) Chat(ctx context.Context, opts Options) (*Result, error) {
	if opts.ModelID == "" {
		return nil, errors.New("dispatch: model id is required")
	}
	if opts.Message == "" && opts.PreFitted == nil {
		return nil, errors.New("dispatch: message is required")
	}

	desc, err := d.registry.Lookup(opts.ModelID)
	if err != nil {
		return nil, &ErrorContext{
			ModelID:      opts.ModelID,
			Err:          err,
			Status:       health.StatusFailed,
			Alternatives: d.alternativeIDs(domain.Descriptor{ID: opts.ModelID}),
		}
	}

	if opts.Topic != "" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		token := d.registerCancel(opts.Topic, cancel)
		defer d.unregisterCancel(opts.Topic, token)
		defer cancel()
	}

	parts := opts.PreFitted
	if parts == nil {
		parts, err = d.fitPrompt(ctx, desc, opts)
		if err != nil {
			return nil, err
		}
	}

	slot, err := d.gate.Acquire(ctx, desc.ResourceGroup(), opts.Priority)
	if err != nil {
		return nil, errors.Wrap(err, "waiting for execution slot")
	}
	defer d.gate.Release(slot)

	adapter, err := d.adapters.Resolve(desc)
	if err != nil {
		status := d.health.RecordFailure(desc.ID, err)
		return nil, d.errorContext(desc, err, status)
	}

	result, err := d.exchange(ctx, desc, adapter, parts, opts, 0)
	if err != nil {
		return nil, err
	}

	if d.history != nil && opts.Topic != "" && opts.Message != "" {
		hmsgs := []message.Message{
			message.NewUserMessage(opts.Message),
			message.NewAssistantMessage(result.Content),
		}
		if err := d.history.Append(ctx, opts.Topic, hmsgs...); err != nil {
			d.log.WarnWithIntention(pkgLogger.IntentionDispatch, "History append failed",
				"topic", opts.Topic, "error", err.Error())
		}
	}
	return result, nil
}

// exchange performs one adapter round trip plus, at depth 0, an optional
// tool round that re-enters with tools disabled.
func (d *Dispatcher) exchange(ctx context.Context, desc domain.Descriptor, adapter domain.Adapter,
	parts *budget.PromptParts, opts Options, depth int) (*Result, error) {

	d.log.InfoWithIntention(pkgLogger.IntentionDispatch, "Dispatching",
		"model", desc.ID, "topic", opts.Topic, "depth", depth,
		"prompt_tokens", parts.TotalTokens())

	// While a tool round is still possible, hold the stream back: the reply
	// may be a raw invocation the caller must never see. It is replayed below
	// when no invocation turns up.
	toolsArmed := opts.EnableTools && d.tools != nil && depth < maxToolDepth
	onChunk := opts.OnChunk
	if toolsArmed {
		onChunk = nil
	}

	reply, err := adapter.Chat(ctx, domain.ChatRequest{
		Parts:       parts,
		MaxTokens:   desc.MaxOutputTokens,
		Temperature: desc.Temperature,
		OnChunk:     onChunk,
	})
	if err != nil {
		// Caller-initiated cancellation says nothing about the backend.
		if ctx.Err() != nil {
			d.log.InfoWithIntention(pkgLogger.IntentionCancel, "Dispatch cancelled",
				"model", desc.ID, "topic", opts.Topic)
			return nil, errors.Wrap(ctx.Err(), "dispatch cancelled")
		}
		status := d.health.RecordFailure(desc.ID, err)
		return nil, d.errorContext(desc, err, status)
	}
	d.health.RecordSuccess(desc.ID)
	d.log.InfoWithIntention(pkgLogger.IntentionStatistics, "Token usage",
		"model", desc.ID,
		"input", reply.Usage.InputTokens, "output", reply.Usage.OutputTokens,
		"cached", reply.Usage.CachedTokens)

	result := &Result{
		ModelID:  desc.ID,
		Content:  reply.Content,
		Thinking: reply.Thinking,
		Usage:    reply.Usage,
		Parts:    parts,
	}

	if !toolsArmed {
		return result, nil
	}
	call, cleaned, found := ExtractToolCall(reply.Content)
	if !found {
		if opts.OnChunk != nil && reply.Content != "" {
			opts.OnChunk(reply.Content)
		}
		return result, nil
	}
	return d.toolRound(ctx, desc, adapter, parts, opts, result, call, cleaned, depth)
}

// toolRound executes the extracted call and feeds its result back to the
// model as a synthetic user turn. Tool failures are absorbed into that turn
// rather than failing the dispatch.
func (d *Dispatcher) toolRound(ctx context.Context, desc domain.Descriptor, adapter domain.Adapter,
	parts *budget.PromptParts, opts Options, first *Result, call *ToolCall, cleaned string,
	depth int) (*Result, error) {

	d.log.InfoWithIntention(pkgLogger.IntentionTool, "Executing tool",
		"tool", call.Name, "model", desc.ID)

	output, execErr := d.tools.Execute(ctx, call.Name, call.Parameters)
	tr := ToolResult{Call: *call, Output: output}
	if execErr != nil {
		tr.Err = execErr.Error()
		d.log.WarnWithIntention(pkgLogger.IntentionTool, "Tool execution failed",
			"tool", call.Name, "error", execErr.Error())
	}
	followup := message.NewToolFollowupMessage(
		d.tools.FormatResultForLLM(call.Name, output, execErr) +
			"\n\nRespond naturally to the user. Do not call further tools.")

	// Refit with the assistant turn and the tool follow-up appended; the
	// follow-up call runs with tools disabled so the loop stays bounded.
	history := append(append([]message.Message{}, parts.RecentMessages...),
		parts.NewMessage, message.NewAssistantMessage(first.Content))
	refit, err := d.planner.Fit(budget.FitRequest{
		SystemPrompt:  parts.System.Text,
		Messages:      history,
		NewMessage:    followup,
		ContextWindow: parts.Window,
		Compression:   parts.Compression,
	})
	if err != nil {
		return nil, errors.Wrap(err, "refitting tool follow-up")
	}

	// The prose around the invocation survives into the final content, so
	// stream it now; the follow-up reply streams normally after it.
	if cleaned != "" && opts.OnChunk != nil {
		opts.OnChunk(cleaned + "\n\n")
	}

	second, err := d.exchange(ctx, desc, adapter, refit, opts, depth+1)
	if err != nil {
		return nil, err
	}

	second.ToolResults = append([]ToolResult{tr}, second.ToolResults...)
	second.Usage = sumUsage(first.Usage, second.Usage)
	if cleaned != "" {
		second.Content = cleaned + "\n\n" + second.Content
	}
	if first.Thinking != "" {
		second.Thinking = first.Thinking + "\n" + second.Thinking
	}
	second.Parts = parts
	return second, nil
}

// fitPrompt assembles the fit request from history and runs the planner.
func (d *Dispatcher) fitPrompt(ctx context.Context, desc domain.Descriptor, opts Options) (*budget.PromptParts, error) {
	var (
		msgs     []message.Message
		subjects []budget.Subject
		err      error
	)
	if d.history != nil && opts.Topic != "" {
		msgs, err = d.history.Recent(ctx, opts.Topic, budget.DefaultMessageLimit)
		if err != nil {
			return nil, errors.Wrap(err, "loading recent messages")
		}
		subjects, err = d.history.Subjects(ctx, opts.Topic)
		if err != nil {
			return nil, errors.Wrap(err, "loading subjects")
		}
	}

	system := opts.SystemPrompt
	if opts.EnableTools && d.tools != nil {
		if defs := d.tools.Definitions(); defs != "" {
			if system != "" {
				system += "\n\n"
			}
			system += defs
		}
	}

	parts, err := d.planner.Fit(budget.FitRequest{
		SystemPrompt:  system,
		Subjects:      subjects,
		Messages:      msgs,
		NewMessage:    message.NewUserMessage(opts.Message),
		ContextWindow: desc.ContextWindow,
		Compression:   opts.Compression,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fitting prompt for %s", desc.ID)
	}
	if parts.OverBudget {
		d.log.WarnWithIntention(pkgLogger.IntentionBudget, "Sending over-budget emergency prompt",
			"model", desc.ID, "total_tokens", parts.TotalTokens())
	}
	return parts, nil
}

func (d *Dispatcher) errorContext(desc domain.Descriptor, err error, status health.Status) *ErrorContext {
	return &ErrorContext{
		ModelID:      desc.ID,
		Err:          err,
		Status:       status,
		Retryable:    status == health.StatusUnhealthy,
		Alternatives: d.alternativeIDs(desc),
	}
}

func (d *Dispatcher) alternativeIDs(failed domain.Descriptor) []string {
	alts := d.health.AlternativesFor(failed, d.registry.All())
	ids := make([]string, 0, len(alts))
	for _, a := range alts {
		ids = append(ids, a.ID)
	}
	return ids
}

func (d *Dispatcher) registerCancel(topic string, cancel context.CancelFunc) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancels == nil {
		d.cancels = make(map[string]cancelEntry)
	}
	id := uuid.NewString()
	d.cancels[topic] = cancelEntry{id: id, cancel: cancel}
	return id
}

func (d *Dispatcher) unregisterCancel(topic, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Another call on the same topic may have replaced the entry.
	if entry, ok := d.cancels[topic]; ok && entry.id == token {
		delete(d.cancels, topic)
	}
}

// CancelTopic aborts the in-flight dispatch on the topic, if any. Reports
// whether there was one to cancel.
func (d *Dispatcher) CancelTopic(topic string) bool {
	d.mu.Lock()
	entry, ok := d.cancels[topic]
	if ok {
		delete(d.cancels, topic)
	}
	d.mu.Unlock()

	if ok {
		d.log.InfoWithIntention(pkgLogger.IntentionCancel, "Cancelling topic", "topic", topic)
		entry.cancel()
	}
	return ok
}

// AvailableModels lists registered models, deduplicated by id + endpoint.
func (d *Dispatcher) AvailableModels() []domain.Descriptor {
	seen := make(map[string]struct{})
	var out []domain.Descriptor
	for _, desc := range d.registry.All() {
		key := desc.ID + "\x00" + desc.Spec.Endpoint()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, desc)
	}
	return out
}

// ModelHealth reports the health of every registered model; models never
// dispatched show as unknown.
func (d *Dispatcher) ModelHealth() map[string]health.Status {
	out := d.health.Snapshot()
	for _, desc := range d.registry.All() {
		if _, ok := out[desc.ID]; !ok {
			out[desc.ID] = health.StatusUnknown
		}
	}
	return out
}

// ConcurrencyStats exposes the gate's per-group occupancy.
func (d *Dispatcher) ConcurrencyStats() map[string]gate.GroupStats {
	return d.gate.Stats()
}

func sumUsage(a, b message.TokenUsage) message.TokenUsage {
	return message.TokenUsage{
		InputTokens:         a.InputTokens + b.InputTokens,
		OutputTokens:        a.OutputTokens + b.OutputTokens,
		TotalTokens:         a.TotalTokens + b.TotalTokens,
		CachedTokens:        a.CachedTokens + b.CachedTokens,
		CacheCreationTokens: a.CacheCreationTokens + b.CacheCreationTokens,
	}
}
