package acl

import (
	"fmt"

	"github.com/backkem/aram/pkg/storage"
)

// KeyPool is the storage key of the pool image.
const KeyPool = "acl/pool"

// poolImage is the persisted form of the pool. Slots are stored in
// handle order so links stay valid across a reload.
type poolImage struct {
	First   Handle      `cbor:"1,keyasint"`
	Deleted Handle      `cbor:"2,keyasint"`
	Slots   []slotImage `cbor:"3,keyasint"`
}

type slotImage struct {
	_    struct{} `cbor:",toarray"`
	AID  []byte
	Hash []byte
	Rule []byte
	Next Handle
}

func encodeImage(s state) ([]byte, error) {
	img := poolImage{
		First:   s.first,
		Deleted: s.deleted,
		Slots:   make([]slotImage, len(s.slots)),
	}
	for i := range s.slots {
		sl := &s.slots[i]
		img.Slots[i] = slotImage{
			AID:  sl.aidBytes(),
			Hash: sl.hashBytes(),
			Rule: sl.ruleBytes(),
			Next: sl.next,
		}
	}
	data, err := storage.Marshal(img)
	if err != nil {
		return nil, fmt.Errorf("acl: encoding pool image: %w", err)
	}
	return data, nil
}

func decodeImage(data []byte) (state, error) {
	var img poolImage
	if err := storage.Unmarshal(data, &img); err != nil {
		return state{}, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	s := state{
		first:   img.First,
		deleted: img.Deleted,
		slots:   make([]slot, len(img.Slots)),
	}
	for i, si := range img.Slots {
		if len(si.AID) > SizeAID || len(si.Hash) > SizeHash || len(si.Rule) > SizeRule {
			return state{}, fmt.Errorf("%w: slot %d exceeds capacity", ErrCorruptImage, i)
		}
		sl := &s.slots[i]
		sl.aidLen = uint8(copy(sl.aid[:], si.AID))
		sl.hashLen = uint8(copy(sl.hash[:], si.Hash))
		sl.ruleLen = uint8(copy(sl.rule[:], si.Rule))
		sl.next = si.Next
	}

	// A cycle stops the count; Verify reports it.
	for h := s.first; h != NoEntry && s.active <= len(s.slots); s.active++ {
		if h < 0 || int(h) >= len(s.slots) {
			return state{}, fmt.Errorf("%w: active list reaches handle %d", ErrCorruptImage, h)
		}
		h = s.slots[h].next
	}
	return s, nil
}
