package apdu

import "fmt"

// StatusWord is the SW1-SW2 trailer of a response APDU.
type StatusWord uint16

// Status words used by the rule store.
const (
	SWSuccess         StatusWord = 0x9000
	SWWrongLength     StatusWord = 0x6700
	SWDataInvalid     StatusWord = 0x6984
	SWFileNotFound    StatusWord = 0x6A82
	SWNotEnoughMemory StatusWord = 0x6A84
	SWIncorrectP1P2   StatusWord = 0x6A86
	SWNotFound        StatusWord = 0x6A88
	SWInsNotSupported StatusWord = 0x6D00
	SWClaNotSupported StatusWord = 0x6E00
	SWUnknown         StatusWord = 0x6F00
)

// SW1 returns the high byte of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the low byte of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsSuccess reports whether the status word is 9000.
func (sw StatusWord) IsSuccess() bool {
	return sw == SWSuccess
}

// String returns a readable name for the status word.
func (sw StatusWord) String() string {
	switch sw {
	case SWSuccess:
		return "success"
	case SWWrongLength:
		return "wrong length"
	case SWDataInvalid:
		return "data invalid"
	case SWFileNotFound:
		return "application not found"
	case SWNotEnoughMemory:
		return "not enough memory"
	case SWIncorrectP1P2:
		return "incorrect P1/P2"
	case SWNotFound:
		return "referenced data not found"
	case SWInsNotSupported:
		return "instruction not supported"
	case SWClaNotSupported:
		return "class not supported"
	case SWUnknown:
		return "no precise diagnosis"
	default:
		return fmt.Sprintf("SW %04X", uint16(sw))
	}
}

// Error implements error so a status word can be returned directly.
func (sw StatusWord) Error() string {
	return fmt.Sprintf("apdu: %04X (%s)", uint16(sw), sw.String())
}
