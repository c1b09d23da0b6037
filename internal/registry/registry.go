// Package registry provides a next-layer parser registry for dispatching
// X.25 user data to the network-layer decoders.
package registry

import (
	"sort"
	"sync"

	"vdl2_parser/internal/proto"
)

// Protocol slots the X.25 user-data dispatcher routes to.
const (
	SlotCLNP           = "clnp"
	SlotESIS           = "esis"
	SlotCLNPCompressed = "clnp_compressed"
)

// Parser is implemented by each next-layer decoder.
type Parser interface {
	// Name returns the parser's unique identifier.
	Name() string

	// Slots returns the protocol slots this parser handles.
	Slots() []string

	// QuickCheck performs a cheap check on the leading octets.
	// Returns true if the PDU MIGHT be parseable (false = definitely skip).
	QuickCheck(buf []byte) bool

	// Priority determines order when multiple parsers serve the same slot.
	// Lower number = tried first.
	Priority() int

	// Parse decodes buf and returns the node chain plus the message flags
	// it wants merged into the caller's. A nil node means "not mine".
	Parse(buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags)
}

// Registry holds all registered parsers organised by slot.
type Registry struct {
	mu sync.RWMutex

	// bySlot maps slots to parser slices, sorted by Priority (ascending).
	// Register replaces a slot's slice rather than modifying it, so a slice
	// read under the lock stays valid after the lock is released.
	bySlot map[string][]Parser
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		bySlot: make(map[string][]Parser),
	}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a parser to the default registry.
// Called during init() in each parser package.
func Register(p Parser) {
	defaultRegistry.Register(p)
}

// Register adds a parser to the registry.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, slot := range p.Slots() {
		old := r.bySlot[slot]
		parsers := make([]Parser, len(old), len(old)+1)
		copy(parsers, old)
		parsers = append(parsers, p)
		sort.SliceStable(parsers, func(i, j int) bool {
			return parsers[i].Priority() < parsers[j].Priority()
		})
		r.bySlot[slot] = parsers
	}
}

// Dispatch hands buf to the parsers registered for slot, in priority order,
// and returns the first non-nil result. It returns a nil node when no parser
// claimed the PDU.
func (r *Registry) Dispatch(slot string, buf []byte, env proto.Env) (*proto.Node, proto.MsgFlags) {
	r.mu.RLock()
	parsers := r.bySlot[slot]
	r.mu.RUnlock()

	for _, p := range parsers {
		if !p.QuickCheck(buf) {
			continue
		}
		if node, flags := p.Parse(buf, env); node != nil {
			return node, flags
		}
	}
	return nil, 0
}

// Slots returns all slots that have parsers registered.
func (r *Registry) Slots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slots := make([]string, 0, len(r.bySlot))
	for slot := range r.bySlot {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots
}

// AllParsers returns every registered parser once, sorted by name.
func (r *Registry) AllParsers() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Parser
	for _, parsers := range r.bySlot {
		for _, p := range parsers {
			if !seen[p.Name()] {
				seen[p.Name()] = true
				result = append(result, p)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}
