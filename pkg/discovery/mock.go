package discovery

import (
	"context"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// MockMDNSResolver provides a mock mDNS resolver for testing without real network I/O.
// Like zeroconf, it keeps the query open until ctx ends and then closes
// the entries channel.
type MockMDNSResolver struct {
	mu       sync.RWMutex
	services map[string][]*zeroconf.ServiceEntry
}

// NewMockMDNSResolver creates a new mock resolver.
func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{
		services: make(map[string][]*zeroconf.ServiceEntry),
	}
}

// RegisterService registers a service that will be returned by Browse/Lookup.
func (m *MockMDNSResolver) RegisterService(service string, entry *zeroconf.ServiceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service] = append(m.services[service], entry)
}

// ClearServices removes all registered services.
func (m *MockMDNSResolver) ClearServices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = make(map[string][]*zeroconf.ServiceEntry)
}

// Browse implements MDNSResolver.
func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	go m.serve(ctx, m.entries(service, ""), entries)
	return nil
}

// Lookup implements MDNSResolver.
func (m *MockMDNSResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	go m.serve(ctx, m.entries(service, instance), entries)
	return nil
}

func (m *MockMDNSResolver) entries(service, instance string) []*zeroconf.ServiceEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*zeroconf.ServiceEntry
	for _, e := range m.services[service] {
		if instance == "" || e.Instance == instance {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockMDNSResolver) serve(ctx context.Context, found []*zeroconf.ServiceEntry, entries chan<- *zeroconf.ServiceEntry) {
	defer close(entries)
	for _, e := range found {
		select {
		case entries <- e:
		case <-ctx.Done():
			return
		}
	}
	<-ctx.Done()
}

// MockRuleStoreService creates a mock _aram._tcp service entry for testing.
func MockRuleStoreService(instance string, port int, ip net.IP, txt ServiceTXT) *zeroconf.ServiceEntry {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instance,
			Service:  ServiceType,
			Domain:   DefaultDomain,
		},
		HostName: instance + ".local.",
		Port:     port,
		Text:     txt.Encode(),
	}
	if ip.To4() != nil {
		entry.AddrIPv4 = []net.IP{ip}
	} else {
		entry.AddrIPv6 = []net.IP{ip}
	}
	return entry
}
