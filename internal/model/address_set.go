package model

import (
	"strings"
	"sync"
)

// AddressSet is the canonical registry of every address a run has seen.
//
// An address moves through the states unknown -> discovered -> visited, and
// may additionally be marked denied once visited. Membership only grows:
// nothing is ever removed from any of the sets.
//
// The set is safe for concurrent use. Check-then-add is atomic, so two
// callers racing to add the same address see exactly one wasNew=true.
type AddressSet struct {
	mu sync.RWMutex

	// order keeps discovery order so artifacts are reproducible.
	order      []string
	discovered map[string]int
	visited    map[string]struct{}
	denied     map[string]struct{}
}

// NewAddressSet creates an empty AddressSet.
func NewAddressSet() *AddressSet {
	return &AddressSet{
		discovered: make(map[string]int),
		visited:    make(map[string]struct{}),
		denied:     make(map[string]struct{}),
	}
}

// NormalizeAddress returns the identity form of an address.
// Fragments never select a different resource, so they are dropped;
// everything else is kept exactly as resolved.
func NormalizeAddress(address string) string {
	address, _, _ = strings.Cut(address, "#")
	return address
}

// Add inserts an address at depth 0 and reports whether it was new.
func (s *AddressSet) Add(address string) bool {
	return s.AddAtDepth(address, 0)
}

// AddAtDepth inserts an address recording the depth of its first discovery.
// Re-adding an existing address is a no-op and returns false; the recorded
// depth is never changed afterwards.
func (s *AddressSet) AddAtDepth(address string, depth int) bool {
	address = NormalizeAddress(address)
	if address == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.discovered[address]; ok {
		return false
	}
	s.discovered[address] = depth
	s.order = append(s.order, address)
	return true
}

// MarkVisited records that a fetch of the address was attempted.
// An address that was never discovered becomes discovered as well,
// keeping visited a subset of discovered.
func (s *AddressSet) MarkVisited(address string) {
	address = NormalizeAddress(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.discovered[address]; !ok {
		s.discovered[address] = 0
		s.order = append(s.order, address)
	}
	s.visited[address] = struct{}{}
}

// MarkDenied records that the server refused the address.
// Denied addresses are always visited as well.
func (s *AddressSet) MarkDenied(address string) {
	address = NormalizeAddress(address)
	s.MarkVisited(address)

	s.mu.Lock()
	s.denied[address] = struct{}{}
	s.mu.Unlock()
}

// Contains reports whether the address has been discovered.
func (s *AddressSet) Contains(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.discovered[NormalizeAddress(address)]
	return ok
}

// IsVisited reports whether a fetch of the address was attempted.
func (s *AddressSet) IsVisited(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.visited[NormalizeAddress(address)]
	return ok
}

// IsDenied reports whether the address was refused.
func (s *AddressSet) IsDenied(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.denied[NormalizeAddress(address)]
	return ok
}

// Depth returns the depth at which the address was first discovered.
func (s *AddressSet) Depth(address string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.discovered[NormalizeAddress(address)]
	return d, ok
}

// Pending returns discovered minus visited, in discovery order.
// It is recomputed on every call and never cached.
func (s *AddressSet) Pending() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]string, 0)
	for _, addr := range s.order {
		if _, ok := s.visited[addr]; !ok {
			pending = append(pending, addr)
		}
	}
	return pending
}

// Discovered returns every discovered address in discovery order.
func (s *AddressSet) Discovered() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Visited returns every visited address in discovery order.
func (s *AddressSet) Visited() []string {
	return s.filter(s.visited)
}

// Denied returns every denied address in discovery order.
func (s *AddressSet) Denied() []string {
	return s.filter(s.denied)
}

func (s *AddressSet) filter(set map[string]struct{}) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(set))
	for _, addr := range s.order {
		if _, ok := set[addr]; ok {
			out = append(out, addr)
		}
	}
	return out
}

// Len returns the number of discovered addresses.
func (s *AddressSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Counts returns the sizes of the discovered, visited and denied sets.
func (s *AddressSet) Counts() (discovered, visited, denied int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), len(s.visited), len(s.denied)
}
