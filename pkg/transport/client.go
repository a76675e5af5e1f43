package transport

import (
	"context"
	"net"
	"sync"
	"time"
)

// aLongTimeAgo is a deadline in the past, used to interrupt blocked I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Client sends command APDUs over one connection and waits for the
// responses. It is safe for concurrent use; exchanges are serialized.
type Client struct {
	conn   net.Conn
	reader *StreamReader
	writer *StreamWriter

	mu  sync.Mutex
	err error // sticky; set once the connection is unusable
}

// Dial connects to a rule store server at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient creates a client on an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: NewStreamReader(conn),
		writer: NewStreamWriter(conn),
	}
}

// Transmit sends one command and returns its response. If ctx ends
// before the response arrives, the connection is closed and ctx's error
// is returned; the client cannot be used afterwards.
func (c *Client) Transmit(ctx context.Context, command []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(command) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(command) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(aLongTimeAgo)
	})
	defer stop()

	response, err := c.exchange(command)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		c.fail(err)
		return nil, err
	}
	return response, nil
}

func (c *Client) exchange(command []byte) ([]byte, error) {
	if err := c.writer.Write(command); err != nil {
		return nil, err
	}
	return c.reader.Read()
}

func (c *Client) fail(err error) {
	c.err = err
	c.conn.Close()
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		c.err = ErrClosed
		return nil
	}
	c.err = ErrClosed
	return c.conn.Close()
}
