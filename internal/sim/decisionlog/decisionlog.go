// Package decisionlog records every automation decision and notable event
// in a capacity-bounded ring buffer, so players and authors can audit why
// a runner did what it did.
package decisionlog

import "runnerkeep.gg/internal/protocol"

type Entry struct {
	Tick       uint64         `json:"tick"`
	GameTime   float64        `json:"game_time"`
	RunnerID   string         `json:"runner_id"`
	RunnerName string         `json:"runner_name"`
	Node       string         `json:"node"`
	Layer      protocol.Layer `json:"layer"`
	RuleIndex  int            `json:"rule_index"`
	RuleLabel  string         `json:"rule_label"`
	Reason     string         `json:"reason"`
	Action     string         `json:"action"`
	Conditions string         `json:"conditions"`
	Deferred   bool           `json:"deferred,omitempty"`

	// CollapseKey groups high-frequency repeats: consecutive entries for
	// the same runner with the same non-empty key bump Repeats on the
	// newest entry instead of appending. Empty keys never collapse.
	CollapseKey string `json:"collapse_key,omitempty"`
	Repeats     int    `json:"repeats"`
}

const DefaultCapacity = 500

// Log is an append-only ring buffer. Exceeding capacity evicts the oldest
// entry. A generation counter increments on every append (including
// collapsed appends and evictions) so observers can cheaply detect change.
type Log struct {
	capacity int
	buf      []Entry
	head     int // index of oldest entry
	count    int
	gen      uint64

	// OnAppend, when set, observes every appended entry before collapse,
	// so an archiver sees the full trail even when the ring collapses
	// repeats. Restore does not invoke it.
	OnAppend func(Entry)
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, buf: make([]Entry, capacity)}
}

func (l *Log) Capacity() int      { return l.capacity }
func (l *Log) Len() int           { return l.count }
func (l *Log) Generation() uint64 { return l.gen }

// Append records an entry, collapsing into the newest entry when the
// runner and collapse key match.
func (l *Log) Append(e Entry) {
	l.gen++
	if e.Repeats <= 0 {
		e.Repeats = 1
	}
	if l.OnAppend != nil {
		l.OnAppend(e)
	}
	if l.count > 0 && e.CollapseKey != "" {
		newest := &l.buf[(l.head+l.count-1)%l.capacity]
		if newest.RunnerID == e.RunnerID && newest.CollapseKey == e.CollapseKey {
			newest.Repeats++
			newest.Tick = e.Tick
			newest.GameTime = e.GameTime
			return
		}
	}
	if l.count < l.capacity {
		l.buf[(l.head+l.count)%l.capacity] = e
		l.count++
		return
	}
	// Evict oldest.
	l.buf[l.head] = e
	l.head = (l.head + 1) % l.capacity
}

// at returns the i-th entry counting from oldest.
func (l *Log) at(i int) Entry {
	return l.buf[(l.head+i)%l.capacity]
}

// All returns entries most-recent-first, optionally filtered by layer
// (empty layer means no filter).
func (l *Log) All(layer protocol.Layer) []Entry {
	out := make([]Entry, 0, l.count)
	for i := l.count - 1; i >= 0; i-- {
		e := l.at(i)
		if layer != "" && e.Layer != layer {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ByRunner returns entries for one runner, most-recent-first.
func (l *Log) ByRunner(runnerID string) []Entry {
	out := []Entry{}
	for i := l.count - 1; i >= 0; i-- {
		if e := l.at(i); e.RunnerID == runnerID {
			out = append(out, e)
		}
	}
	return out
}

// ByNode returns entries recorded at one node, most-recent-first.
func (l *Log) ByNode(nodeID string) []Entry {
	out := []Entry{}
	for i := l.count - 1; i >= 0; i-- {
		if e := l.at(i); e.Node == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot returns entries oldest-first, for persistence.
func (l *Log) Snapshot() []Entry {
	out := make([]Entry, 0, l.count)
	for i := 0; i < l.count; i++ {
		out = append(out, l.at(i))
	}
	return out
}

// Restore replaces the log's contents with entries in oldest-first order,
// bypassing collapse so already-collapsed rows keep their repeat counts.
func (l *Log) Restore(entries []Entry) {
	l.head = 0
	l.count = 0
	for _, e := range entries {
		if e.Repeats <= 0 {
			e.Repeats = 1
		}
		if l.count < l.capacity {
			l.buf[l.count] = e
			l.count++
			continue
		}
		l.buf[l.head] = e
		l.head = (l.head + 1) % l.capacity
	}
	l.gen++
}

// InRange returns entries with fromTick <= Tick <= toTick, most-recent-first.
func (l *Log) InRange(fromTick, toTick uint64) []Entry {
	out := []Entry{}
	for i := l.count - 1; i >= 0; i-- {
		if e := l.at(i); e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}
