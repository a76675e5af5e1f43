package client

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pion/logging"

	"github.com/backkem/aram/pkg/apdu"
	"github.com/backkem/aram/pkg/aram"
	"github.com/backkem/aram/pkg/tlv"
)

// Transmitter exchanges one command APDU for one response APDU.
type Transmitter interface {
	Transmit(ctx context.Context, command []byte) ([]byte, error)
}

// TransmitFunc adapts a function to Transmitter.
type TransmitFunc func(ctx context.Context, command []byte) ([]byte, error)

// Transmit calls f.
func (f TransmitFunc) Transmit(ctx context.Context, command []byte) ([]byte, error) {
	return f(ctx, command)
}

// Config configures a Client.
type Config struct {
	// Transmitter carries the commands. Required.
	Transmitter Transmitter

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Client sends rule store commands.
type Client struct {
	t   Transmitter
	log logging.LeveledLogger
}

// New creates a client.
func New(config Config) *Client {
	c := &Client{t: config.Transmitter}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("client")
	}
	return c
}

// Select selects the ARA-M.
func (c *Client) Select(ctx context.Context) error {
	_, err := c.transmit(ctx, apdu.Command{
		INS:  aram.InsSelect,
		P1:   aram.P1SelectByName,
		Data: aram.AID,
		Le:   apdu.MaxShortLe,
	})
	return err
}

// GetAll returns every stored rule, most recent first. It sends GET
// DATA [All] and then GET DATA [Next] until the announced length has
// been received.
func (c *Client) GetAll(ctx context.Context) ([]tlv.RefArDo, error) {
	data, err := c.getData(ctx, aram.GetAll, nil)
	if err != nil {
		return nil, err
	}
	length, payload, err := splitEnvelope(data, aram.GetAll)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, length)
	buf = append(buf, payload...)
	for len(buf) < length {
		next, err := c.getData(ctx, aram.GetNext, nil)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			return nil, fmt.Errorf("%w: empty GET DATA [Next] at %d of %d bytes", ErrMalformedResponse, len(buf), length)
		}
		buf = append(buf, next...)
	}
	if len(buf) != length {
		return nil, fmt.Errorf("%w: received %d bytes, announced %d", ErrMalformedResponse, len(buf), length)
	}
	if c.log != nil {
		c.log.Debugf("received rule listing: %d bytes", length)
	}

	rules, err := tlv.ParseRefArDos(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return rules, nil
}

// GetSpecific returns the rule stored for exactly (aid, hash).
func (c *Client) GetSpecific(ctx context.Context, aid, hash []byte) (tlv.RefArDo, error) {
	refDo, err := tlv.RefArDo{AID: aid, Hash: hash}.MarshalRefDo()
	if err != nil {
		return tlv.RefArDo{}, err
	}
	data, err := c.getData(ctx, aram.GetSpecific, refDo)
	if err != nil {
		return tlv.RefArDo{}, err
	}
	length, payload, err := splitEnvelope(data, aram.GetSpecific)
	if err != nil {
		return tlv.RefArDo{}, err
	}
	if len(payload) != length {
		return tlv.RefArDo{}, fmt.Errorf("%w: received %d bytes, announced %d", ErrMalformedResponse, len(payload), length)
	}

	r, end, err := tlv.ParseRefArDo(payload, 0)
	if err != nil {
		return tlv.RefArDo{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if end != len(payload) {
		return tlv.RefArDo{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedResponse, len(payload)-end)
	}
	return r, nil
}

// RefreshTag returns the current refresh tag.
func (c *Client) RefreshTag(ctx context.Context) ([aram.RefreshTagSize]byte, error) {
	var tag [aram.RefreshTagSize]byte
	data, err := c.getData(ctx, aram.GetRefreshTag, nil)
	if err != nil {
		return tag, err
	}
	want := []byte{byte(aram.GetRefreshTag >> 8), byte(aram.GetRefreshTag & 0xFF), aram.RefreshTagSize}
	if len(data) != len(want)+aram.RefreshTagSize || !bytes.HasPrefix(data, want) {
		return tag, fmt.Errorf("%w: refresh tag % X", ErrMalformedResponse, data)
	}
	copy(tag[:], data[len(want):])
	return tag, nil
}

// Store adds a rule.
func (c *Client) Store(ctx context.Context, r tlv.RefArDo) error {
	refArDo, err := r.Marshal()
	if err != nil {
		return err
	}
	return c.storeData(ctx, tlv.TagStoreArDo, refArDo)
}

// DeleteAll deletes every rule.
func (c *Client) DeleteAll(ctx context.Context) error {
	return c.storeData(ctx, tlv.TagDeleteArDo, nil)
}

// DeleteByAID deletes every rule for aid, whatever its hash.
func (c *Client) DeleteByAID(ctx context.Context, aid []byte) error {
	aidRefDo, err := tlv.Append(nil, tlv.TagAidRefDo, aid)
	if err != nil {
		return err
	}
	return c.storeData(ctx, tlv.TagDeleteArDo, aidRefDo)
}

// DeleteByAIDHash deletes every rule for exactly (aid, hash).
func (c *Client) DeleteByAIDHash(ctx context.Context, aid, hash []byte) error {
	refDo, err := tlv.RefArDo{AID: aid, Hash: hash}.MarshalRefDo()
	if err != nil {
		return err
	}
	return c.storeData(ctx, tlv.TagDeleteArDo, refDo)
}

// DeleteRule deletes the rules equal to r. A rule of two bytes or less
// deletes by AID and hash only.
func (c *Client) DeleteRule(ctx context.Context, r tlv.RefArDo) error {
	refArDo, err := r.Marshal()
	if err != nil {
		return err
	}
	return c.storeData(ctx, tlv.TagDeleteArDo, refArDo)
}

// UpdateRefreshTag asks the applet to replace its refresh tag.
func (c *Client) UpdateRefreshTag(ctx context.Context) error {
	return c.storeData(ctx, tlv.TagUpdateRefreshTag, nil)
}

func (c *Client) getData(ctx context.Context, p1p2 uint16, data []byte) ([]byte, error) {
	return c.transmit(ctx, apdu.Command{
		CLA:  aram.CLA,
		INS:  aram.InsGetData,
		P1:   byte(p1p2 >> 8),
		P2:   byte(p1p2),
		Data: data,
		Le:   apdu.MaxShortLe,
	})
}

func (c *Client) storeData(ctx context.Context, tag tlv.Tag, value []byte) error {
	data, err := tlv.Append(nil, tag, value)
	if err != nil {
		return err
	}
	_, err = c.transmit(ctx, apdu.Command{
		CLA:  aram.CLA,
		INS:  aram.InsStoreData,
		P1:   byte(aram.StoreDataP1P2 >> 8),
		P2:   byte(aram.StoreDataP1P2 & 0xFF),
		Data: data,
	})
	return err
}

// transmit sends cmd and returns the response data of a 9000 response.
func (c *Client) transmit(ctx context.Context, cmd apdu.Command) ([]byte, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, err
	}
	if c.log != nil {
		c.log.Tracef("> % X", raw)
	}

	out, err := c.t.Transmit(ctx, raw)
	if err != nil {
		return nil, err
	}
	if c.log != nil {
		c.log.Tracef("< % X", out)
	}

	resp, err := apdu.ParseResponse(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !resp.SW.IsSuccess() {
		return nil, &StatusError{Command: cmd.String(), SW: resp.SW}
	}
	return resp.Data, nil
}

// splitEnvelope checks the two-byte tag and BER length at the start of a
// GET DATA response and returns the announced length with the payload
// bytes that follow.
func splitEnvelope(data []byte, tag uint16) (int, []byte, error) {
	if len(data) < 3 || data[0] != byte(tag>>8) || data[1] != byte(tag) {
		return 0, nil, fmt.Errorf("%w: want %04X envelope, got % X", ErrMalformedResponse, tag, data[:min(len(data), 3)])
	}
	length, next, err := tlv.ReadLength(data, 2)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	payload := data[next:]
	if len(payload) > length {
		return 0, nil, fmt.Errorf("%w: %d payload bytes, announced %d", ErrMalformedResponse, len(payload), length)
	}
	return length, payload, nil
}
