package reasm

import (
	"sync"
	"time"
)

// entry is the state of one flow. A completed flow keeps only its final
// sequence number and timestamp, so a retransmitted final fragment is
// recognised as a duplicate until the entry expires.
type entry struct {
	frags    [][]byte
	size     int
	lastSeq  int
	done     bool
	lastSeen time.Time
}

// Table tracks in-flight fragment streams for one protocol.
// All methods are safe for concurrent use.
type Table struct {
	name string
	cfg  Config
	now  func() time.Time

	mu      sync.Mutex
	entries map[FlowKey]*entry
	// newest is the latest fragment rx time seen and newestAt the wall
	// clock reading when it was seen. Together they give the sweep a
	// reference time that works for live feeds and replays alike.
	newest   time.Time
	newestAt time.Time
	added    uint64
	evicted  uint64
}

func newTable(name string, cfg Config, now func() time.Time) *Table {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Table{
		name:    name,
		cfg:     cfg,
		now:     now,
		entries: make(map[FlowKey]*entry),
	}
}

// Name returns the protocol name the table was created for.
func (t *Table) Name() string {
	return t.name
}

// Add feeds a fragment into the table and reports what happened to it.
// The fragment data is copied; the caller may reuse its buffer.
func (t *Table) Add(f Fragment) Result {
	if !f.Key.Valid() || f.RxTime.IsZero() || f.Seq < 0 ||
		(t.cfg.Wrap > 0 && f.Seq >= t.cfg.Wrap) {
		return Result{Status: StatusArgsInvalid}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.added++
	if f.RxTime.After(t.newest) {
		t.newest = f.RxTime
		t.newestAt = t.now()
	}

	e, ok := t.entries[f.Key]
	if ok && f.RxTime.Sub(e.lastSeen) > t.cfg.Timeout {
		delete(t.entries, f.Key)
		t.evicted++
		ok = false
	}

	// A completed flow remembers only its final sequence number. Any other
	// fragment, including a resent middle one, starts the flow afresh.
	if ok && e.done {
		if f.Seq == e.lastSeq {
			e.lastSeen = f.RxTime
			return Result{Status: StatusDuplicate}
		}
		delete(t.entries, f.Key)
		ok = false
	}

	if !ok {
		if f.Final && (t.cfg.FirstSeq == SeqAny || f.Seq == t.cfg.FirstSeq) {
			// Not fragmented; nothing to reassemble.
			return Result{Status: StatusSkipped}
		}
		if t.cfg.FirstSeq != SeqAny && f.Seq != t.cfg.FirstSeq {
			return Result{Status: StatusOutOfSequence}
		}
		e = &entry{lastSeq: f.Seq, lastSeen: f.RxTime}
		e.push(f.Data)
		t.entries[f.Key] = e
		return Result{Status: StatusInProgress}
	}

	if f.Seq == e.lastSeq {
		e.lastSeen = f.RxTime
		return Result{Status: StatusDuplicate}
	}
	if f.Seq != t.nextSeq(e.lastSeq) {
		delete(t.entries, f.Key)
		return Result{Status: StatusOutOfSequence}
	}

	e.push(f.Data)
	e.lastSeq = f.Seq
	e.lastSeen = f.RxTime
	if !f.Final {
		return Result{Status: StatusInProgress}
	}

	payload := make([]byte, 0, e.size)
	for _, frag := range e.frags {
		payload = append(payload, frag...)
	}
	e.frags = nil
	e.size = 0
	e.done = true
	return Result{Status: StatusComplete, Payload: payload}
}

func (t *Table) nextSeq(seq int) int {
	if t.cfg.Wrap > 0 {
		return (seq + 1) % t.cfg.Wrap
	}
	return seq + 1
}

func (e *entry) push(data []byte) {
	e.frags = append(e.frags, append([]byte(nil), data...))
	e.size += len(data)
}

// SweepAt evicts every flow whose last activity is older than the timeout
// relative to ref. It returns the number of flows evicted.
func (t *Table) SweepAt(ref time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for key, e := range t.entries {
		if ref.Sub(e.lastSeen) > t.cfg.Timeout {
			delete(t.entries, key)
			n++
		}
	}
	t.evicted += uint64(n)
	return n
}

// Sweep evicts expired flows using the table's reference time: the newest
// fragment timestamp advanced by the wall-clock time elapsed since it arrived.
func (t *Table) Sweep() int {
	t.mu.Lock()
	if t.newest.IsZero() {
		t.mu.Unlock()
		return 0
	}
	ref := t.newest.Add(t.now().Sub(t.newestAt))
	t.mu.Unlock()
	return t.SweepAt(ref)
}

// Len returns the number of flows currently tracked, completed ones included.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// TableStats is a point-in-time summary of a Table.
type TableStats struct {
	Name          string `json:"name"`
	Flows         int    `json:"flows"`
	InProgress    int    `json:"in_progress"`
	BufferedBytes int    `json:"buffered_bytes"`
	Fragments     uint64 `json:"fragments_added"`
	Evicted       uint64 `json:"evicted"`
}

// Stats returns a snapshot of the table.
func (t *Table) Stats() TableStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := TableStats{
		Name:      t.name,
		Flows:     len(t.entries),
		Fragments: t.added,
		Evicted:   t.evicted,
	}
	for _, e := range t.entries {
		if !e.done {
			st.InProgress++
			st.BufferedBytes += e.size
		}
	}
	return st
}
