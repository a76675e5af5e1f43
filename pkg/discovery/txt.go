package discovery

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// TXT record keys.
const (
	// TXTKeyAID is the applet AID, uppercase hex.
	TXTKeyAID = "aid"

	// TXTKeyChunkSize is the GET DATA chunk size.
	TXTKeyChunkSize = "chunk"
)

// AID length bounds (ISO/IEC 7816-4).
const (
	MinAIDLength = 5
	MaxAIDLength = 16
)

// ServiceTXT is the TXT content of a _aram._tcp advertisement.
type ServiceTXT struct {
	// AID is the applet identifier served by the daemon.
	AID []byte

	// ChunkSize is the GET DATA chunk size; zero omits the record.
	ChunkSize int
}

// Validate checks the TXT content.
func (t *ServiceTXT) Validate() error {
	if len(t.AID) < MinAIDLength || len(t.AID) > MaxAIDLength {
		return fmt.Errorf("%w: aid length %d", ErrInvalidTXTRecord, len(t.AID))
	}
	if t.ChunkSize < 0 || t.ChunkSize > 0xFFFF {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidTXTRecord, t.ChunkSize)
	}
	return nil
}

// Encode returns the TXT records in "key=value" form.
func (t *ServiceTXT) Encode() []string {
	records := []string{TXTKeyAID + "=" + strings.ToUpper(hex.EncodeToString(t.AID))}
	if t.ChunkSize > 0 {
		records = append(records, TXTKeyChunkSize+"="+strconv.Itoa(t.ChunkSize))
	}
	return records
}

// ParseTXT splits "key=value" records into a map. Records without '='
// map to an empty value; keys are case-insensitive and stored lowercase.
func ParseTXT(records []string) map[string]string {
	m := make(map[string]string, len(records))
	for _, r := range records {
		key, value, _ := strings.Cut(r, "=")
		if key == "" {
			continue
		}
		m[strings.ToLower(key)] = value
	}
	return m
}

// ParseServiceTXT decodes the TXT records of a _aram._tcp advertisement.
// The aid record is required; unknown keys are ignored.
func ParseServiceTXT(records []string) (*ServiceTXT, error) {
	m := ParseTXT(records)

	raw, ok := m[TXTKeyAID]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidTXTRecord, TXTKeyAID)
	}
	aid, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTXTRecord, TXTKeyAID, err)
	}

	t := &ServiceTXT{AID: aid}
	if v, ok := m[TXTKeyChunkSize]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTXTRecord, TXTKeyChunkSize, err)
		}
		t.ChunkSize = n
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
