package ethernet

import (
	"encoding/binary"
	"hash/crc32"
)

// crcTable is the IEEE CRC-32 table used for Ethernet FCS calculation.
var crcTable = crc32.MakeTable(crc32.IEEE)

// CRC32 calculates the Ethernet Frame Check Sequence (FCS) for the given data.
// The CRC is computed using the IEEE 802.3 CRC-32 polynomial.
// The input should be the frame data from destination MAC through payload,
// excluding any existing FCS.
func CRC32(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// AppendFCS appends the frame check sequence of frame to frame. The FCS is
// transmitted least significant byte first.
func AppendFCS(frame []byte) []byte {
	return binary.LittleEndian.AppendUint32(frame, CRC32(frame))
}

// CheckFCS reports whether the last 4 bytes of frame hold a valid FCS over the rest of it.
func CheckFCS(frame []byte) bool {
	if len(frame) < SizeFCS {
		return false
	}
	off := len(frame) - SizeFCS
	return CRC32(frame[:off]) == binary.LittleEndian.Uint32(frame[off:])
}
