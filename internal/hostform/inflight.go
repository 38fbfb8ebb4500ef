package hostform

import "sync"

// InFlight tracks hostnames with a create call running. Share one set
// between every surface that submits hosts so that concurrent requests
// for the same hostname send a single create.
type InFlight struct {
	mu    sync.Mutex
	hosts map[string]struct{}
}

// NewInFlight returns an empty set.
func NewInFlight() *InFlight {
	return &InFlight{hosts: make(map[string]struct{})}
}

func (s *InFlight) acquire(hostname string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.hosts[hostname]; busy {
		return false
	}
	s.hosts[hostname] = struct{}{}
	return true
}

func (s *InFlight) release(hostname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hosts, hostname)
}

// Busy reports whether a create for hostname is running.
func (s *InFlight) Busy(hostname string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.hosts[hostname]
	return busy
}

// Option configures a Controller.
type Option func(*Controller)

// WithInFlight makes Submit reject a hostname another controller sharing
// set is still creating.
func WithInFlight(set *InFlight) Option {
	return func(c *Controller) { c.inflight = set }
}
