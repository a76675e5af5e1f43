package discovery

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// DefaultBrowseTimeout is the default timeout for browse operations.
const DefaultBrowseTimeout = 10 * time.Second

// DefaultLookupTimeout is the default timeout for lookup operations.
const DefaultLookupTimeout = 5 * time.Second

// ResolvedService is a discovered rule store.
type ResolvedService struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// HostName is the target host name.
	HostName string

	// Port is the service port.
	Port int

	// IPs contains the resolved IP addresses, sorted by preference.
	IPs []net.IP

	// TXT is the decoded TXT content.
	TXT ServiceTXT
}

// Address returns host:port for the most preferred IP address, or the
// host name if no address was resolved.
func (r ResolvedService) Address() string {
	host := r.HostName
	if len(r.IPs) > 0 {
		host = r.IPs[0].String()
	}
	return net.JoinHostPort(host, strconv.Itoa(r.Port))
}

// MDNSResolver is the interface for mDNS service resolution.
// Implementations deliver results on entries and close it when the
// query ends, as zeroconf.Resolver does.
type MDNSResolver interface {
	// Browse browses for services of the given type.
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

	// Lookup looks up a specific service instance.
	Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// MDNSResolver is the underlying mDNS resolver implementation.
	// If nil, a zeroconf resolver is used.
	MDNSResolver MDNSResolver

	// BrowseTimeout applies when the browse context has no deadline.
	// If zero, DefaultBrowseTimeout is used.
	BrowseTimeout time.Duration

	// LookupTimeout applies when the lookup context has no deadline.
	// If zero, DefaultLookupTimeout is used.
	LookupTimeout time.Duration

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Resolver discovers rule stores via DNS-SD.
type Resolver struct {
	config   ResolverConfig
	resolver MDNSResolver
	log      logging.LeveledLogger
}

// NewResolver creates a new Resolver with the given configuration.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	resolver := config.MDNSResolver
	if resolver == nil {
		zr, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, err
		}
		resolver = zr
	}

	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	if config.LookupTimeout == 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}

	r := &Resolver{
		config:   config,
		resolver: resolver,
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("discovery")
	}
	return r, nil
}

// Browse discovers rule stores on the network. The returned channel
// receives each instance once and is closed when ctx ends or the browse
// timeout expires. Advertisements with unusable TXT records are skipped.
func (r *Resolver) Browse(ctx context.Context) (<-chan ResolvedService, error) {
	ctx, cancel := r.withTimeout(ctx, r.config.BrowseTimeout)

	entries := make(chan *zeroconf.ServiceEntry)
	if err := r.resolver.Browse(ctx, ServiceType, DefaultDomain, entries); err != nil {
		cancel()
		return nil, err
	}

	results := make(chan ResolvedService)
	go func() {
		defer close(results)
		defer drain(entries)
		defer cancel()

		seen := make(map[string]bool)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc, ok := r.resolve(entry)
				if !ok || seen[svc.Instance] {
					continue
				}
				seen[svc.Instance] = true
				select {
				case results <- svc:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return results, nil
}

// Lookup resolves one rule store instance by name.
func (r *Resolver) Lookup(ctx context.Context, instance string) (*ResolvedService, error) {
	ctx, cancel := r.withTimeout(ctx, r.config.LookupTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := r.resolver.Lookup(ctx, instance, ServiceType, DefaultDomain, entries); err != nil {
		return nil, err
	}
	defer func() { go drain(entries) }()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				if ctx.Err() != nil {
					return nil, lookupError(ctx)
				}
				return nil, ErrServiceNotFound
			}
			if svc, ok := r.resolve(entry); ok && svc.Instance == instance {
				return &svc, nil
			}
		case <-ctx.Done():
			return nil, lookupError(ctx)
		}
	}
}

func lookupError(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return ErrTimeout
	}
	return ctx.Err()
}

func (r *Resolver) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (r *Resolver) resolve(entry *zeroconf.ServiceEntry) (ResolvedService, bool) {
	if entry == nil {
		return ResolvedService{}, false
	}
	txt, err := ParseServiceTXT(entry.Text)
	if err != nil {
		if r.log != nil {
			r.log.Debugf("Skipping %q: %v", entry.Instance, err)
		}
		return ResolvedService{}, false
	}

	var ips []net.IP
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)

	return ResolvedService{
		Instance: entry.Instance,
		HostName: entry.HostName,
		Port:     entry.Port,
		IPs:      SortIPsByPreference(ips),
		TXT:      *txt,
	}, true
}

// drain discards entries until the resolver closes the channel.
func drain(entries <-chan *zeroconf.ServiceEntry) {
	for range entries {
	}
}
