package aram

import (
	"github.com/backkem/aram/pkg/acl"
	"github.com/backkem/aram/pkg/tlv"
)

// AID is the application identifier of the ARA-M.
var AID = []byte{0xA0, 0x00, 0x00, 0x01, 0x51, 0x41, 0x43, 0x4C, 0x00}

// Command header values.
const (
	CLA          = 0x80
	claMask      = 0xFC
	InsSelect    = 0xA4
	InsGetData   = 0xCA
	InsStoreData = 0xE2

	P1SelectByName = 0x04
)

// GET DATA P1P2 values.
const (
	GetAll        uint16 = 0xFF40
	GetSpecific   uint16 = 0xFF50
	GetNext       uint16 = 0xFF60
	GetRefreshTag uint16 = 0xDF20
)

// StoreDataP1P2 is the only P1P2 accepted by STORE DATA.
const StoreDataP1P2 uint16 = 0x9000

// RefreshTagSize is the size of the refresh tag.
const RefreshTagSize = 8

// Chunk sizes.
const (
	DefaultChunkSize = 255
	MinChunkSize     = 8
	MaxChunkSize     = 256
)

// Largest accepted lengths of the constructed data objects.
const (
	MaxRefDoLength   = 2*tlv.HeaderSize + acl.SizeAID + acl.SizeHash
	MaxRefArDoLength = tlv.HeaderSize + MaxRefDoLength + tlv.HeaderSize + acl.SizeRule
	MaxCommandLength = tlv.HeaderSize + MaxRefArDoLength
)

// KeyRefreshTag is the storage key of the refresh tag.
const KeyRefreshTag = "aram/refresh-tag"
