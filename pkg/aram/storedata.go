package aram

import (
	"fmt"

	"github.com/backkem/aram/pkg/acl"
	"github.com/backkem/aram/pkg/apdu"
	"github.com/backkem/aram/pkg/crypto"
	"github.com/backkem/aram/pkg/tlv"
)

// minRuleConstraint is the AR-DO length above which a Delete-AR-DO also
// matches on the rule. Shorter rules delete by AID and hash only.
const minRuleConstraint = 2

func (a *Applet) storeData(data []byte) error {
	if len(data) == 0 {
		return invalidData(fmt.Errorf("%w: empty STORE DATA", tlv.ErrUnexpectedEOF))
	}
	switch tlv.Tag(data[0]) {
	case tlv.TagStoreArDo:
		return a.storeArDo(data)
	case tlv.TagDeleteArDo:
		return a.deleteArDo(data)
	case tlv.TagUpdateRefreshTag:
		return a.updateRefreshTag()
	default:
		return fmt.Errorf("%w: unknown command tag %02X", apdu.SWDataInvalid, data[0])
	}
}

// parseRefDo validates E1 { 4F aid, C1 hash } at data[ofs].
func parseRefDo(data []byte, ofs int) (aid, hash []byte, end int, err error) {
	end, err = tlv.Check(data, ofs, tlv.TagRefDo, MaxRefDoLength)
	if err != nil {
		return nil, nil, 0, err
	}
	aidOfs := ofs + tlv.HeaderSize
	hashOfs, err := tlv.Check(data, aidOfs, tlv.TagAidRefDo, acl.SizeAID)
	if err != nil {
		return nil, nil, 0, err
	}
	hashEnd, err := tlv.Check(data, hashOfs, tlv.TagHashRefDo, acl.SizeHash)
	if err != nil {
		return nil, nil, 0, err
	}
	if hashEnd != end {
		return nil, nil, 0, fmt.Errorf("%w: %s content ends at %d, want %d", tlv.ErrInvalidLength, tlv.TagRefDo, hashEnd, end)
	}
	return tlv.Value(data, aidOfs), tlv.Value(data, hashOfs), end, nil
}

// parseRefArDo validates E2 { REF-DO, E3 rule } at data[ofs].
func parseRefArDo(data []byte, ofs int) (aid, hash, rule []byte, end int, err error) {
	end, err = tlv.Check(data, ofs, tlv.TagRefArDo, MaxRefArDoLength)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	aid, hash, arOfs, err := parseRefDo(data, ofs+tlv.HeaderSize)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	arEnd, err := tlv.Check(data, arOfs, tlv.TagArDo, acl.SizeRule)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	if arEnd != end {
		return nil, nil, nil, 0, fmt.Errorf("%w: %s content ends at %d, want %d", tlv.ErrInvalidLength, tlv.TagRefArDo, arEnd, end)
	}
	return aid, hash, tlv.Value(data, arOfs), end, nil
}

// checkEnd reports an inner data object that does not exactly fill its
// command container.
func checkEnd(tag tlv.Tag, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s content ends at %d, want %d", tlv.ErrInvalidLength, tag, got, want)
	}
	return nil
}

// storeArDo handles F0 <len> REF-AR-DO.
func (a *Applet) storeArDo(data []byte) error {
	end, err := tlv.Check(data, 0, tlv.TagStoreArDo, MaxCommandLength)
	if err != nil {
		return invalidData(err)
	}
	aid, hash, rule, refArDoEnd, err := parseRefArDo(data, tlv.HeaderSize)
	if err != nil {
		return invalidData(err)
	}
	if err := checkEnd(tlv.TagStoreArDo, refArDoEnd, end); err != nil {
		return invalidData(err)
	}

	if _, err := a.pool.Add(aid, hash, rule); err != nil {
		return err
	}
	a.listing.reset()

	if a.log != nil {
		a.log.Debugf("stored rule aid=%X hash=%X (%d rules)", aid, hash, a.pool.Len())
	}
	return nil
}

// deleteArDo handles F1 <len> [AID-REF-DO | REF-DO | REF-AR-DO]. An
// empty F1 deletes every rule; otherwise a target that matches no rule
// fails with 6A88.
func (a *Applet) deleteArDo(data []byte) error {
	end, err := tlv.Check(data, 0, tlv.TagDeleteArDo, MaxCommandLength)
	if err != nil {
		return invalidData(err)
	}

	var n int
	inner := tlv.HeaderSize
	switch {
	case end == inner:
		n, err = a.pool.DeleteAll()

	case tlv.Tag(data[inner]) == tlv.TagAidRefDo:
		aidEnd, err := tlv.Check(data, inner, tlv.TagAidRefDo, acl.SizeAID)
		if err != nil {
			return invalidData(err)
		}
		if err := checkEnd(tlv.TagDeleteArDo, aidEnd, end); err != nil {
			return invalidData(err)
		}
		aid := tlv.Value(data, inner)
		if a.pool.SearchByAID(aid) == acl.NoEntry {
			return fmt.Errorf("%w: no rule for aid=%X", apdu.SWNotFound, aid)
		}
		n, err = a.pool.DeleteByAID(aid)
		if err != nil {
			return err
		}

	case tlv.Tag(data[inner]) == tlv.TagRefDo:
		aid, hash, refDoEnd, err := parseRefDo(data, inner)
		if err != nil {
			return invalidData(err)
		}
		if err := checkEnd(tlv.TagDeleteArDo, refDoEnd, end); err != nil {
			return invalidData(err)
		}
		if n, err = a.deleteByAIDHash(aid, hash); err != nil {
			return err
		}

	case tlv.Tag(data[inner]) == tlv.TagRefArDo:
		aid, hash, rule, refArDoEnd, err := parseRefArDo(data, inner)
		if err != nil {
			return invalidData(err)
		}
		if err := checkEnd(tlv.TagDeleteArDo, refArDoEnd, end); err != nil {
			return invalidData(err)
		}
		if len(rule) <= minRuleConstraint {
			n, err = a.deleteByAIDHash(aid, hash)
		} else if a.pool.SearchByAIDHashRule(aid, hash, rule) == acl.NoEntry {
			return fmt.Errorf("%w: no rule for aid=%X hash=%X rule=%X", apdu.SWNotFound, aid, hash, rule)
		} else {
			n, err = a.pool.DeleteByAIDHashRule(aid, hash, rule)
		}
		if err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: unknown delete target %s", apdu.SWDataInvalid, tlv.Tag(data[inner]))
	}
	if err != nil {
		return err
	}

	a.listing.reset()
	if a.log != nil {
		a.log.Debugf("deleted %d rules (%d left)", n, a.pool.Len())
	}
	return nil
}

func (a *Applet) deleteByAIDHash(aid, hash []byte) (int, error) {
	if a.pool.SearchByAIDHash(aid, hash) == acl.NoEntry {
		return 0, fmt.Errorf("%w: no rule for aid=%X hash=%X", apdu.SWNotFound, aid, hash)
	}
	return a.pool.DeleteByAIDHash(aid, hash)
}

// updateRefreshTag replaces the refresh tag with fresh random bytes.
func (a *Applet) updateRefreshTag() error {
	tag, err := crypto.ReadRandom(a.random, RefreshTagSize)
	if err != nil {
		return err
	}
	err = a.pool.Txn(func(tx *acl.Tx) error {
		tx.Put(KeyRefreshTag, tag)
		return nil
	})
	if err != nil {
		return err
	}
	copy(a.refreshTag[:], tag)

	if a.log != nil {
		a.log.Debugf("refresh tag updated to %X", tag)
	}
	return nil
}
