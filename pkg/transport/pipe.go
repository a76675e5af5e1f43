package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// ProcessInterval is how often queued packets are delivered.
	// Default: 1ms
	ProcessInterval time.Duration
}

// Pipe is a connected pair of in-memory connections. It wraps pion's
// test.Bridge and delivers queued packets from a background goroutine,
// so both ends behave like a live connection.
type Pipe struct {
	bridge *test.Bridge
	conn0  net.Conn
	conn1  net.Conn

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPipe creates a pipe with the default configuration.
func NewPipe() *Pipe {
	return NewPipeWithConfig(PipeConfig{})
}

// NewPipeWithConfig creates a pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	interval := config.ProcessInterval
	if interval == 0 {
		interval = time.Millisecond
	}

	bridge := test.NewBridge()
	p := &Pipe{
		bridge: bridge,
		conn0:  &pipeConn{Conn: bridge.GetConn0(), local: PipeAddr(0), remote: PipeAddr(1)},
		conn1:  &pipeConn{Conn: bridge.GetConn1(), local: PipeAddr(1), remote: PipeAddr(0)},
		stopCh: make(chan struct{}),
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				for p.bridge.Tick() > 0 {
				}
			}
		}
	}()

	return p
}

// Conn0 returns the connection for endpoint 0.
func (p *Pipe) Conn0() net.Conn {
	return p.conn0
}

// Conn1 returns the connection for endpoint 1.
func (p *Pipe) Conn1() net.Conn {
	return p.conn1
}

// Close closes both endpoints and stops packet delivery.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err0 := p.conn0.Close()
	err1 := p.conn1.Close()

	close(p.stopCh)
	p.wg.Wait()
	p.bridge.Tick()

	if err0 != nil {
		return err0
	}
	return err1
}

// PipeAddr is the address of a pipe endpoint.
type PipeAddr int

// Network implements net.Addr.
func (a PipeAddr) Network() string { return "pipe" }

func (a PipeAddr) String() string { return fmt.Sprintf("pipe:%d", int(a)) }

// pipeConn gives bridge connections stable addresses for logging and
// makes Close idempotent, since both the pipe and a server may close
// the same endpoint.
type pipeConn struct {
	net.Conn
	local  PipeAddr
	remote PipeAddr

	closeOnce sync.Once
	closeErr  error
}

func (c *pipeConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

func (c *pipeConn) LocalAddr() net.Addr  { return c.local }
func (c *pipeConn) RemoteAddr() net.Addr { return c.remote }
