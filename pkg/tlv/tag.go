package tlv

import "fmt"

// Tag is a one-byte BER-TLV tag.
type Tag byte

// Data object tags (GlobalPlatform SE Access Control, section 3 and 5).
const (
	TagAidRefDo  Tag = 0x4F
	TagHashRefDo Tag = 0xC1
	TagRefDo     Tag = 0xE1
	TagRefArDo   Tag = 0xE2
	TagArDo      Tag = 0xE3

	// STORE DATA commands.
	TagStoreArDo        Tag = 0xF0
	TagDeleteArDo       Tag = 0xF1
	TagUpdateRefreshTag Tag = 0xF2
)

// HeaderSize is the size of a tag byte plus a single-byte length.
const HeaderSize = 2

// String returns the data object name.
func (t Tag) String() string {
	switch t {
	case TagAidRefDo:
		return "AID-REF-DO"
	case TagHashRefDo:
		return "HASH-REF-DO"
	case TagRefDo:
		return "REF-DO"
	case TagRefArDo:
		return "REF-AR-DO"
	case TagArDo:
		return "AR-DO"
	case TagStoreArDo:
		return "Command-Store-AR-DO"
	case TagDeleteArDo:
		return "Command-Delete-AR-DO"
	case TagUpdateRefreshTag:
		return "Command-UpdateRefreshTag-DO"
	default:
		return fmt.Sprintf("Tag(%02X)", byte(t))
	}
}
