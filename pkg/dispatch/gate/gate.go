// Package gate bounds concurrent model calls per resource group. Groups map
// to the hardware or endpoint a model occupies, so two models sharing one
// backend contend for the same slots.
package gate

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgLogger "github.com/modelmux/modelmux/pkg/logger"
)

// Priority orders waiters within a group. Higher values are admitted first;
// equal priorities are served in arrival order.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 5
	PriorityHigh   Priority = 10
)

// DefaultSlotLimit is the per-group concurrency limit when none is configured.
const DefaultSlotLimit = 2

// Slot is an admitted execution permit. Releasing it twice is harmless.
type Slot struct {
	ID         string
	Group      string
	Priority   Priority
	AcquiredAt time.Time
}

func newSlot(group string, priority Priority) Slot {
	return Slot{
		ID:         uuid.NewString(),
		Group:      group,
		Priority:   priority,
		AcquiredAt: time.Now(),
	}
}

// GroupStats is a point-in-time snapshot of one group's occupancy.
type GroupStats struct {
	Active  int
	Waiting int
	Limit   int
}

type waiter struct {
	priority Priority
	seq      uint64
	// ready is buffered so a grant during cancellation never blocks Release.
	ready chan Slot
	index int
}

type waiterQueue []*waiter

func (q waiterQueue) Len() int { return len(q) }
func (q waiterQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q waiterQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *waiterQueue) Push(x any) {
	w := x.(*waiter)
	w.index = len(*q)
	*q = append(*q, w)
}
func (q *waiterQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*q = old[:n-1]
	return w
}

type slotGroup struct {
	active  map[string]struct{}
	waiters waiterQueue
	nextSeq uint64
}

// Manager admits callers into per-group slots up to a configurable limit and
// parks the overflow in a priority queue.
type Manager struct {
	mu     sync.Mutex
	limit  int
	groups map[string]*slotGroup
	log    *pkgLogger.Logger
}

// NewManager creates a gate with the given per-group slot limit. Non-positive
// limits select DefaultSlotLimit.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultSlotLimit
	}
	return &Manager{
		limit:  limit,
		groups: make(map[string]*slotGroup),
		log:    pkgLogger.NewComponentLogger("gate"),
	}
}

func (m *Manager) group(name string) *slotGroup {
	g, ok := m.groups[name]
	if !ok {
		g = &slotGroup{active: make(map[string]struct{})}
		m.groups[name] = g
	}
	return g
}

// Acquire blocks until a slot in the group is available or the context is
// done. The returned slot must be released exactly when the work finishes;
// double releases are ignored.
func (m *Manager) Acquire(ctx context.Context, groupName string, priority Priority) (Slot, error) {
	m.mu.Lock()
	g := m.group(groupName)

	if len(g.active) < m.limit {
		slot := newSlot(groupName, priority)
		g.active[slot.ID] = struct{}{}
		m.mu.Unlock()
		m.log.DebugWithIntention(pkgLogger.IntentionStatistics, "Slot acquired",
			"group", groupName, "slot", slot.ID)
		return slot, nil
	}

	w := &waiter{priority: priority, seq: g.nextSeq, ready: make(chan Slot, 1)}
	g.nextSeq++
	heap.Push(&g.waiters, w)
	waiting := g.waiters.Len()
	m.mu.Unlock()

	m.log.DebugWithIntention(pkgLogger.IntentionStatistics, "Waiting for slot",
		"group", groupName, "priority", int(priority), "queue_depth", waiting)

	select {
	case slot := <-w.ready:
		return slot, nil
	case <-ctx.Done():
		m.mu.Lock()
		if w.index >= 0 {
			heap.Remove(&g.waiters, w.index)
			m.mu.Unlock()
			return Slot{}, ctx.Err()
		}
		m.mu.Unlock()
		// The grant raced the cancellation: a slot landed in w.ready after
		// the waiter left the queue. Hand it back so the next waiter runs.
		select {
		case slot := <-w.ready:
			m.Release(slot)
		default:
		}
		return Slot{}, ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (m *Manager) TryAcquire(groupName string) (Slot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.group(groupName)
	if len(g.active) >= m.limit {
		return Slot{}, false
	}
	slot := newSlot(groupName, PriorityNormal)
	g.active[slot.ID] = struct{}{}
	return slot, true
}

// Release returns a slot to its group, admitting the highest-priority waiter
// if one is parked. Unknown or already-released slots are ignored.
func (m *Manager) Release(slot Slot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[slot.Group]
	if !ok {
		return
	}
	if _, held := g.active[slot.ID]; !held {
		return
	}
	delete(g.active, slot.ID)

	if g.waiters.Len() > 0 && len(g.active) < m.limit {
		w := heap.Pop(&g.waiters).(*waiter)
		next := newSlot(slot.Group, w.priority)
		g.active[next.ID] = struct{}{}
		w.ready <- next
	}
}

// SetLimit changes the per-group slot limit. Raising it admits parked waiters
// immediately; lowering it takes effect as active slots drain.
func (m *Manager) SetLimit(limit int) {
	if limit <= 0 {
		limit = DefaultSlotLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limit = limit
	for name, g := range m.groups {
		for g.waiters.Len() > 0 && len(g.active) < m.limit {
			w := heap.Pop(&g.waiters).(*waiter)
			next := newSlot(name, w.priority)
			g.active[next.ID] = struct{}{}
			w.ready <- next
		}
	}
}

// Stats snapshots every group's occupancy.
func (m *Manager) Stats() map[string]GroupStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]GroupStats, len(m.groups))
	for name, g := range m.groups {
		out[name] = GroupStats{
			Active:  len(g.active),
			Waiting: g.waiters.Len(),
			Limit:   m.limit,
		}
	}
	return out
}
