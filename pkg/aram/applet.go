package aram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pion/logging"

	"github.com/backkem/aram/pkg/acl"
	"github.com/backkem/aram/pkg/apdu"
	"github.com/backkem/aram/pkg/crypto"
	"github.com/backkem/aram/pkg/storage"
)

// ErrInvalidChunkSize is returned by New for a chunk size outside
// [MinChunkSize, MaxChunkSize].
var ErrInvalidChunkSize = errors.New("aram: invalid chunk size")

// Config configures an Applet.
type Config struct {
	// Store persists the rule pool and the refresh tag. If nil, a
	// volatile storage.MemoryStore is used.
	Store storage.Store

	// Random is the source of refresh tags. If nil, crypto.SystemRandom
	// is used.
	Random io.Reader

	// ChunkSize is the largest response payload. Zero means
	// DefaultChunkSize.
	ChunkSize int

	// MaxEntries bounds the number of stored rules. Zero means unbounded.
	MaxEntries int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Applet is the ARA-M. It is safe for concurrent use; commands are
// processed one at a time.
type Applet struct {
	store  storage.Store
	random io.Reader
	chunk  int
	log    logging.LeveledLogger

	mu         sync.Mutex
	pool       *acl.Pool
	refreshTag [RefreshTagSize]byte
	listing    listing
}

// New creates an applet and loads its persisted state.
func New(config Config) (*Applet, error) {
	a := &Applet{
		store:  config.Store,
		random: config.Random,
		chunk:  config.ChunkSize,
	}
	if a.store == nil {
		a.store = storage.NewMemoryStore()
	}
	if a.random == nil {
		a.random = crypto.SystemRandom()
	}
	if a.chunk == 0 {
		a.chunk = DefaultChunkSize
	}
	if a.chunk < MinChunkSize || a.chunk > MaxChunkSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, a.chunk)
	}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("aram")
	}

	pool, err := acl.Open(acl.PoolConfig{
		Store:         a.store,
		MaxEntries:    config.MaxEntries,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	a.pool = pool

	tag, err := a.store.Load(KeyRefreshTag)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("aram: loading refresh tag: %w", err)
	case len(tag) != RefreshTagSize:
		return nil, fmt.Errorf("aram: stored refresh tag is %d bytes", len(tag))
	default:
		copy(a.refreshTag[:], tag)
	}

	if a.log != nil {
		a.log.Infof("ARA-M ready: %d rules, chunk size %d", pool.Len(), a.chunk)
	}
	return a, nil
}

// ChunkSize returns the largest response payload the applet produces.
func (a *Applet) ChunkSize() int {
	return a.chunk
}

// Len returns the number of stored rules.
func (a *Applet) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pool.Len()
}

// Transmit processes one command. It fails only if ctx is done.
func (a *Applet) Transmit(ctx context.Context, command []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.Process(command), nil
}

// Process processes one command APDU and returns the response APDU:
// the response data followed by SW1 SW2. Failed commands return the
// status word only and leave the rule store unchanged.
func (a *Applet) Process(command []byte) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := a.process(command)
	sw := statusOf(err)
	if !sw.IsSuccess() {
		data = nil
	}

	if a.log != nil {
		switch {
		case sw == apdu.SWUnknown:
			a.log.Warnf("% X: %v", headerOf(command), err)
		case err != nil:
			a.log.Debugf("% X: %v", headerOf(command), err)
		default:
			a.log.Tracef("% X: %d bytes", headerOf(command), len(data))
		}
	}
	return apdu.Response{Data: data, SW: sw}.Bytes()
}

func headerOf(command []byte) []byte {
	return command[:min(len(command), apdu.HeaderSize)]
}

// statusOf maps a handler error to the status word reported for it.
func statusOf(err error) apdu.StatusWord {
	var sw apdu.StatusWord
	switch {
	case err == nil:
		return apdu.SWSuccess
	case errors.As(err, &sw):
		return sw
	case errors.Is(err, apdu.ErrTooShort):
		return apdu.SWWrongLength
	case errors.Is(err, acl.ErrPoolFull):
		return apdu.SWNotEnoughMemory
	case errors.Is(err, acl.ErrCapacity):
		return apdu.SWDataInvalid
	default:
		return apdu.SWUnknown
	}
}

func (a *Applet) process(command []byte) ([]byte, error) {
	cmd, err := apdu.Parse(command)
	if err != nil {
		return nil, err
	}

	if cmd.CLA&0x80 == 0 && cmd.INS == InsSelect && cmd.P1 == P1SelectByName {
		return nil, a.selectApplet(cmd.Data)
	}
	if cmd.CLA&claMask != CLA {
		return nil, apdu.SWClaNotSupported
	}

	p1p2 := uint16(cmd.P1)<<8 | uint16(cmd.P2)
	switch cmd.INS {
	case InsGetData:
		return a.getData(p1p2, cmd.Data)
	case InsStoreData:
		if p1p2 != StoreDataP1P2 {
			return nil, apdu.SWIncorrectP1P2
		}
		return nil, a.storeData(cmd.Data)
	default:
		return nil, apdu.SWInsNotSupported
	}
}

func (a *Applet) selectApplet(aid []byte) error {
	if !bytes.Equal(aid, AID) {
		return fmt.Errorf("%w: AID %X", apdu.SWFileNotFound, aid)
	}
	a.listing.reset()
	return nil
}

// invalidData reports a malformed command payload.
func invalidData(err error) error {
	return fmt.Errorf("%w: %v", apdu.SWDataInvalid, err)
}
