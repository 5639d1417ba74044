package internal

import (
	"encoding/binary"
	"log/slog"
)

// SlogAddr6 returns a slog.Attr for a 6-byte hardware (MAC) address
// packed into a uint64 without allocating a string.
func SlogAddr6(key string, addr *[6]byte) slog.Attr {
	var buf [8]byte
	copy(buf[2:], addr[:])
	u64Addr := binary.BigEndian.Uint64(buf[:])
	return slog.Uint64(key, u64Addr)
}

// SlogReg returns a slog.Attr for a 16 bit register value.
func SlogReg(key string, v uint16) slog.Attr {
	return slog.Uint64(key, uint64(v))
}
