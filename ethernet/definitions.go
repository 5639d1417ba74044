package ethernet

import (
	"errors"
	"strconv"
)

const (
	sizeHeaderNoVLAN = 14
	sizeHeaderVLAN   = 18
	// SizeFCS is the length of the frame check sequence trailing every frame on the wire.
	SizeFCS = 4
	// minEthPayload is the minimum payload size for an Ethernet frame, assuming
	// that no 802.1Q VLAN tags are present.
	minEthPayload = 46
)

var errBadAddr = errors.New("ethernet: invalid hardware address")

// AppendAddr appends the text representation of the hardware address to the destination buffer.
func AppendAddr(dst []byte, hwAddr [6]byte) []byte {
	for i, b := range hwAddr {
		if i != 0 {
			dst = append(dst, ':')
		}
		if b < 16 {
			dst = append(dst, '0')
		}
		dst = strconv.AppendUint(dst, uint64(b), 16)
	}
	return dst
}

// ParseAddr parses a hardware address of the form 01:23:45:67:89:ab.
// Dashes are accepted as separators.
func ParseAddr(s string) (hw [6]byte, err error) {
	if len(s) != 17 {
		return hw, errBadAddr
	}
	for i := range hw {
		off := 3 * i
		if i != 0 && s[off-1] != ':' && s[off-1] != '-' {
			return hw, errBadAddr
		}
		hi, okh := unhex(s[off])
		lo, okl := unhex(s[off+1])
		if !okh || !okl {
			return hw, errBadAddr
		}
		hw[i] = hi<<4 | lo
	}
	return hw, nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// BroadcastAddr returns the all 0xff's broadcast hardware/MAC/EUI/OUI address.
func BroadcastAddr() [6]byte {
	return [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

type Type uint16

// IsSize returns true if the EtherType is actually the size of the payload
// and should NOT be interpreted as an EtherType.
func (et Type) IsSize() bool { return et <= 1500 }

// Ethernet type flags
const (
	TypeIPv4      Type = 0x0800 // IPv4
	TypeARP       Type = 0x0806 // ARP
	TypeWakeOnLAN Type = 0x0842 // wake on LAN
	TypeIPv6      Type = 0x86DD // IPv6
	TypeVLAN      Type = 0x8100 // VLAN
)

func (et Type) String() string {
	switch et {
	case TypeIPv4:
		return "IPv4"
	case TypeARP:
		return "ARP"
	case TypeWakeOnLAN:
		return "wake on LAN"
	case TypeIPv6:
		return "IPv6"
	case TypeVLAN:
		return "VLAN"
	}
	if et.IsSize() {
		return "size(" + strconv.Itoa(int(et)) + ")"
	}
	return "Type(0x" + strconv.FormatUint(uint64(et), 16) + ")"
}
