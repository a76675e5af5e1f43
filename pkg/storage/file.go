package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pion/logging"
	"github.com/zeebo/blake3"
)

// digestSize is the size of the BLAKE3 digest that prefixes the image.
const digestSize = 32

// imageVersion is the layout version of the persisted image.
const imageVersion = 1

// image is the persisted form of the whole store.
type image struct {
	Version uint              `cbor:"1,keyasint"`
	Values  map[string][]byte `cbor:"2,keyasint"`
}

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	// Path is the image file. It is created on first commit.
	Path string

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// FileStore keeps the store image in a single file: a 32-byte BLAKE3
// digest of the CBOR body followed by the body. Commit writes the new
// image to a temporary file, syncs it and renames it over the old one,
// so a reader always sees either the previous or the new image.
type FileStore struct {
	path string
	log  logging.LeveledLogger

	mu     sync.RWMutex
	values map[string][]byte
}

// OpenFileStore opens the image at config.Path. A missing file yields an
// empty store; a file whose digest does not match yields ErrCorrupt.
func OpenFileStore(config FileStoreConfig) (*FileStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("storage: empty path")
	}

	s := &FileStore{
		path:   config.Path,
		values: make(map[string][]byte),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("storage")
	}

	data, err := os.ReadFile(config.Path)
	if errors.Is(err, fs.ErrNotExist) {
		if s.log != nil {
			s.log.Infof("no image at %s, starting empty", config.Path)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: reading image: %w", err)
	}

	values, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	s.values = values

	if s.log != nil {
		s.log.Infof("loaded image %s (%d keys)", config.Path, len(values))
	}
	return s, nil
}

func decodeImage(data []byte) (map[string][]byte, error) {
	if len(data) < digestSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	body := data[digestSize:]
	sum := blake3.Sum256(body)
	if string(sum[:]) != string(data[:digestSize]) {
		return nil, fmt.Errorf("%w: digest mismatch", ErrCorrupt)
	}

	var img image
	if err := Unmarshal(body, &img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if img.Version != imageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, img.Version)
	}
	if img.Values == nil {
		img.Values = make(map[string][]byte)
	}
	return img.Values, nil
}

func encodeImage(values map[string][]byte) ([]byte, error) {
	body, err := Marshal(image{Version: imageVersion, Values: values})
	if err != nil {
		return nil, fmt.Errorf("storage: encoding image: %w", err)
	}
	sum := blake3.Sum256(body)
	out := make([]byte, 0, digestSize+len(body))
	out = append(out, sum[:]...)
	return append(out, body...), nil
}

// Load implements Store.
func (s *FileStore) Load(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

// Commit implements Store.
func (s *FileStore) Commit(batch Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := batch.apply(s.values)
	data, err := encodeImage(next)
	if err != nil {
		return err
	}
	if err := s.writeAtomic(data); err != nil {
		if s.log != nil {
			s.log.Errorf("commit of %d keys failed: %v", len(batch), err)
		}
		return err
	}
	s.values = next

	if s.log != nil {
		s.log.Tracef("committed %d keys (%d bytes)", len(batch), len(data))
	}
	return nil
}

// writeAtomic replaces the image file with data. If any step fails the
// temporary file is removed and the previous image stays in place.
func (s *FileStore) writeAtomic(data []byte) error {
	temporaryPath := s.path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("storage: creating temporary image: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("storage: writing temporary image: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("storage: syncing temporary image: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("storage: closing temporary image: %w", err)
	}
	if err := os.Rename(temporaryPath, s.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("storage: renaming image into place: %w", err)
	}

	// Sync the directory so the rename survives a power loss.
	if dir, err := os.Open(filepath.Dir(s.path)); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// Path returns the image file path.
func (s *FileStore) Path() string {
	return s.path
}
