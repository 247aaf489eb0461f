// Package health tracks per-model availability from observed call outcomes
// and proposes failover alternatives when a model goes bad.
package health

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/modelmux/modelmux/pkg/dispatch/domain"
	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
)

// Status is a model's observed availability.
type Status int

const (
	// StatusUnknown means the model has not been called yet.
	StatusUnknown Status = iota
	// StatusHealthy means the last call succeeded.
	StatusHealthy
	// StatusUnhealthy means the last call failed transiently; the model may
	// recover without intervention.
	StatusUnhealthy
	// StatusFailed means the failure looks permanent (bad credentials,
	// unknown model); retries will not help until configuration changes.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Usable reports whether a model in this status should be offered for
// dispatch or failover.
func (s Status) Usable() bool {
	return s == StatusHealthy || s == StatusUnknown
}

var failedMarkers = []string{
	"credentials",
	"api key",
	"auth",
	"unauthorized",
	"forbidden",
	"model not found",
}

var unhealthyMarkers = []string{
	"network",
	"connection",
	"timeout",
	"deadline",
	"unavailable",
	"overloaded",
}

// Classify maps a call error to the status it implies. Unrecognized errors
// count as transient: most backend hiccups recover on their own, while the
// permanent cases announce themselves in the message.
func Classify(err error) Status {
	if err == nil {
		return StatusHealthy
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range failedMarkers {
		if strings.Contains(msg, marker) {
			return StatusFailed
		}
	}
	for _, marker := range unhealthyMarkers {
		if strings.Contains(msg, marker) {
			return StatusUnhealthy
		}
	}
	return StatusUnhealthy
}

type record struct {
	status    Status
	lastError string
	changedAt time.Time
}

// Tracker records call outcomes per model id.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]record
	log     *pkgLogger.Logger
}

// NewTracker creates an empty health tracker; every model starts unknown.
func NewTracker() *Tracker {
	return &Tracker{
		records: make(map[string]record),
		log:     pkgLogger.NewComponentLogger("health"),
	}
}

// RecordSuccess marks the model healthy.
func (t *Tracker) RecordSuccess(modelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.records[modelID].status
	t.records[modelID] = record{status: StatusHealthy, changedAt: time.Now()}
	if prev == StatusUnhealthy || prev == StatusFailed {
		t.log.InfoWithIntention(pkgLogger.IntentionStatus, "Model recovered", "model", modelID)
	}
}

// RecordFailure classifies the error and updates the model's status. It
// returns the classified status so callers can decide on failover.
func (t *Tracker) RecordFailure(modelID string, err error) Status {
	status := Classify(err)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[modelID] = record{
		status:    status,
		lastError: err.Error(),
		changedAt: time.Now(),
	}
	t.log.WarnWithIntention(pkgLogger.IntentionStatus, "Model failure recorded",
		"model", modelID, "status", status.String(), "error", err.Error())
	return status
}

// Status returns the model's current status; unseen models are unknown.
func (t *Tracker) Status(modelID string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.records[modelID].status
}

// LastError returns the most recent failure message for the model, if any.
func (t *Tracker) LastError(modelID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.records[modelID].lastError
}

// AlternativesFor returns the usable candidates that could stand in for the
// failed model. Variants of the failed model's base name are excluded: if
// "llama3.1:70b" is down, "llama3.1:8b" likely shares the fate.
func (t *Tracker) AlternativesFor(failed domain.Descriptor, candidates []domain.Descriptor) []domain.Descriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	base := failed.BaseName()
	var out []domain.Descriptor
	for _, c := range candidates {
		if c.ID == failed.ID || c.BaseName() == base {
			continue
		}
		if t.records[c.ID].status.Usable() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot returns every tracked model's status, for status displays.
func (t *Tracker) Snapshot() map[string]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Status, len(t.records))
	for id, r := range t.records {
		out[id] = r.status
	}
	return out
}
