// Package integration provides end-to-end tests of the rule store: an
// applet served by a transport.Server and driven by a client.Client over
// a real or in-memory connection.
package integration

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/aram/pkg/aram"
	"github.com/backkem/aram/pkg/client"
	"github.com/backkem/aram/pkg/crypto"
	"github.com/backkem/aram/pkg/storage"
	"github.com/backkem/aram/pkg/transport"
)

// Link selects how the client reaches the server.
type Link int

const (
	// LinkTCP uses a TCP loopback connection.
	LinkTCP Link = iota
	// LinkPipe uses an in-memory pion bridge.
	LinkPipe
)

func (l Link) String() string {
	if l == LinkPipe {
		return "pipe"
	}
	return "tcp"
}

// TestPairConfig configures a test pair.
type TestPairConfig struct {
	// Link selects the connection type.
	Link Link

	// Store persists the applet state. If nil, a MemoryStore is used.
	Store storage.Store

	// ChunkSize is the applet chunk size. Zero means the default.
	ChunkSize int

	// MaxEntries bounds the rule count. Zero means unbounded.
	MaxEntries int

	// LoggerFactory for logging. If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// TestPair is a served applet and a connected client.
type TestPair struct {
	Applet *aram.Applet
	Server *transport.Server
	Client *client.Client

	config TestPairConfig
	t      *testing.T
	pipe   *transport.Pipe
	conns  []*transport.Client
}

// NewTestPair creates and starts a served applet with one selected client.
// Everything is shut down by t.Cleanup.
func NewTestPair(t *testing.T, config TestPairConfig) *TestPair {
	t.Helper()

	a, err := aram.New(aram.Config{
		Store:         config.Store,
		Random:        crypto.NewSeededRandom([]byte(t.Name())),
		ChunkSize:     config.ChunkSize,
		MaxEntries:    config.MaxEntries,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		t.Fatalf("aram.New() error = %v", err)
	}

	s, err := transport.NewServer(transport.ServerConfig{
		ListenAddr:    "127.0.0.1:0",
		Handler:       a.Process,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	p := &TestPair{Applet: a, Server: s, config: config, t: t}
	t.Cleanup(p.close)

	p.Client = p.Connect()
	return p
}

// Connect opens another selected client connection to the server. With
// LinkPipe only one connection is available.
func (p *TestPair) Connect() *client.Client {
	p.t.Helper()

	var conn net.Conn
	switch p.config.Link {
	case LinkPipe:
		if p.pipe != nil {
			p.t.Fatal("Connect() called twice on a pipe pair")
		}
		p.pipe = transport.NewPipe()
		if err := p.Server.ServeConn(p.pipe.Conn1()); err != nil {
			p.t.Fatalf("ServeConn() error = %v", err)
		}
		conn = p.pipe.Conn0()
	default:
		var err error
		conn, err = net.DialTimeout("tcp", p.Server.Addr().String(), 5*time.Second)
		if err != nil {
			p.t.Fatalf("Dial() error = %v", err)
		}
	}

	tc := transport.NewClient(conn)
	p.conns = append(p.conns, tc)

	c := client.New(client.Config{Transmitter: tc, LoggerFactory: p.config.LoggerFactory})
	if err := c.Select(Context(p.t)); err != nil {
		p.t.Fatalf("Select() error = %v", err)
	}
	return c
}

func (p *TestPair) close() {
	for _, c := range p.conns {
		c.Close()
	}
	p.Server.Stop()
	if p.pipe != nil {
		p.pipe.Close()
	}
}

// Context returns a context bounded by a test timeout.
func Context(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
