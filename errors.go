// Package ctcphy is the root of the Centec MARS Ethernet PHY control module.
// It holds the generic errors shared by the phy, mars and monitor packages.
package ctcphy

import "strconv"

type errGeneric uint8

// Generic errors common to PHY management.
const (
	_                errGeneric = iota // non-initialized err
	ErrInvalidAddr                     // invalid address
	ErrInvalidConfig                   // invalid configuration
	ErrUnsupported                     // unsupported operation
	ErrShortBuffer                     // short buffer
)

func (err errGeneric) Error() string {
	return err.String()
}

func (err errGeneric) String() string {
	switch err {
	case ErrInvalidAddr:
		return "invalid address"
	case ErrInvalidConfig:
		return "invalid configuration"
	case ErrUnsupported:
		return "unsupported operation"
	case ErrShortBuffer:
		return "short buffer"
	default:
		return "errGeneric(" + strconv.Itoa(int(err)) + ")"
	}
}
