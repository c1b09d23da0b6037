package reasm

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout is used for tables created with a zero Timeout.
const DefaultTimeout = 10 * time.Second

// Context owns the reassembly tables of one decoding session.
type Context struct {
	mu     sync.Mutex
	tables map[string]*Table
	now    func() time.Time
}

// Option configures a Context.
type Option func(*Context)

// WithClock replaces the wall clock used by the sweeper.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		c.now = now
	}
}

// NewContext creates an empty reassembly context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		tables: make(map[string]*Table),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns the table registered under name, creating it with cfg on
// first use. cfg is ignored for an existing table.
func (c *Context) Table(name string, cfg Config) *Table {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tables[name]; ok {
		return t
	}
	t := newTable(name, cfg, c.now)
	c.tables[name] = t
	return t
}

// Lookup returns the named table, or nil if it has not been created.
func (c *Context) Lookup(name string) *Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables[name]
}

func (c *Context) snapshot() []*Table {
	c.mu.Lock()
	defer c.mu.Unlock()

	tables := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].name < tables[j].name
	})
	return tables
}

// Sweep evicts expired flows from every table and returns the total evicted.
func (c *Context) Sweep() int {
	n := 0
	for _, t := range c.snapshot() {
		n += t.Sweep()
	}
	return n
}

// Run sweeps all tables every interval until ctx is cancelled.
func (c *Context) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultTimeout / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Stats returns a snapshot of every table, sorted by name.
func (c *Context) Stats() []TableStats {
	tables := c.snapshot()
	stats := make([]TableStats, 0, len(tables))
	for _, t := range tables {
		stats = append(stats, t.Stats())
	}
	return stats
}
