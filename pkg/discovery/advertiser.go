package discovery

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/backkem/aram/pkg/crypto"
	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// Service identifiers.
const (
	// ServiceType is the DNS-SD service type of a rule store daemon.
	ServiceType = "_aram._tcp"

	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."

	// MaxInstanceNameLength is the DNS label limit.
	MaxInstanceNameLength = 63
)

// MDNSServer is the interface for mDNS service registration.
// This allows for dependency injection in tests.
type MDNSServer interface {
	// Shutdown stops the server.
	Shutdown()
}

// MDNSServerFactory creates MDNSServer instances.
type MDNSServerFactory interface {
	// Register creates a new mDNS server for the given service.
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

// zeroconfServerFactory is the production implementation using grandcat/zeroconf.
type zeroconfServerFactory struct{}

func (z *zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// ServiceInfo describes the advertised rule store.
type ServiceInfo struct {
	// Instance is the DNS-SD instance name. If empty, a random
	// "aram-XXXXXXXX" name is generated.
	Instance string

	// Port is the TCP port the daemon listens on.
	Port int

	// TXT is the advertised TXT content.
	TXT ServiceTXT
}

// AdvertiserConfig holds configuration for the Advertiser.
type AdvertiserConfig struct {
	// Interfaces specifies which network interfaces to advertise on.
	// If nil, all interfaces are used.
	Interfaces []net.Interface

	// ServerFactory is the factory for creating mDNS servers.
	// If nil, the default zeroconf factory is used.
	ServerFactory MDNSServerFactory

	// Random is the source for generated instance names.
	// If nil, crypto.SystemRandom is used.
	Random io.Reader

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes a rule store on the network. At most one
// advertisement is active at a time.
type Advertiser struct {
	config  AdvertiserConfig
	factory MDNSServerFactory
	random  io.Reader
	log     logging.LeveledLogger

	mu       sync.Mutex
	server   MDNSServer
	instance string
	closed   bool
}

// NewAdvertiser creates a new Advertiser with the given configuration.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	a := &Advertiser{
		config:  config,
		factory: config.ServerFactory,
		random:  config.Random,
	}
	if a.factory == nil {
		a.factory = &zeroconfServerFactory{}
	}
	if a.random == nil {
		a.random = crypto.SystemRandom()
	}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}
	return a
}

// Start begins advertising info.
func (a *Advertiser) Start(info ServiceInfo) error {
	if info.Port <= 0 || info.Port > 65535 {
		return ErrInvalidPort
	}
	if err := info.TXT.Validate(); err != nil {
		return err
	}
	if len(info.Instance) > MaxInstanceNameLength {
		return fmt.Errorf("%w: %d bytes", ErrInvalidInstanceName, len(info.Instance))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.server != nil {
		return ErrAlreadyStarted
	}

	instance := info.Instance
	if instance == "" {
		var err error
		if instance, err = a.randomInstanceName(); err != nil {
			return fmt.Errorf("advertiser: generating instance name: %w", err)
		}
	}

	txt := info.TXT.Encode()
	if a.log != nil {
		a.log.Debugf("Registering mDNS service: instance=%s service=%s port=%d", instance, ServiceType, info.Port)
		a.log.Tracef("TXT records: %v", txt)
	}

	server, err := a.factory.Register(instance, ServiceType, DefaultDomain, info.Port, txt, a.config.Interfaces)
	if err != nil {
		return fmt.Errorf("advertiser: mDNS registration failed: %w", err)
	}

	if a.log != nil {
		a.log.Infof("Advertising %s as %q on port %d", ServiceType, instance, info.Port)
	}
	a.server = server
	a.instance = instance
	return nil
}

// Stop stops the active advertisement.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.server == nil {
		return ErrNotStarted
	}
	a.shutdown()
	return nil
}

// Close stops any advertisement and closes the advertiser.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.server != nil {
		a.shutdown()
	}
	a.closed = true
	return nil
}

func (a *Advertiser) shutdown() {
	a.server.Shutdown()
	if a.log != nil {
		a.log.Infof("Stopped advertising %q", a.instance)
	}
	a.server = nil
	a.instance = ""
}

// IsAdvertising reports whether an advertisement is active.
func (a *Advertiser) IsAdvertising() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// InstanceName returns the instance name of the active advertisement,
// or "" if none is active.
func (a *Advertiser) InstanceName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.instance
}

func (a *Advertiser) randomInstanceName() (string, error) {
	b, err := crypto.ReadRandom(a.random, 4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("aram-%X", b), nil
}
