package ethernet

import "encoding/binary"

// Wake-on-LAN magic packet layout: a synchronization stream of six 0xff bytes
// followed by sixteen repetitions of the target hardware address.
const (
	magicSyncLen    = 6
	magicRepeats    = 16
	SizeMagicPacket = magicSyncLen + magicRepeats*6
)

// AppendWakeOnLAN appends a broadcast Ethernet frame of EtherType 0x0842
// carrying a magic packet addressed to target. The payload is padded to the
// Ethernet minimum. No FCS is appended, see [AppendFCS].
func AppendWakeOnLAN(dst []byte, src, target [6]byte) []byte {
	bcast := BroadcastAddr()
	dst = append(dst, bcast[:]...)
	dst = append(dst, src[:]...)
	dst = binary.BigEndian.AppendUint16(dst, uint16(TypeWakeOnLAN))
	dst = AppendMagicPacket(dst, target)
	for pad := minEthPayload - SizeMagicPacket; pad > 0; pad-- {
		dst = append(dst, 0)
	}
	return dst
}

// AppendMagicPacket appends the magic packet payload for target to dst.
func AppendMagicPacket(dst []byte, target [6]byte) []byte {
	for range magicSyncLen {
		dst = append(dst, 0xff)
	}
	for range magicRepeats {
		dst = append(dst, target[:]...)
	}
	return dst
}

// IsMagicPacket reports whether payload contains a magic packet for target
// anywhere within it, as wake logic matching on the raw byte stream does.
func IsMagicPacket(payload []byte, target [6]byte) bool {
	for off := 0; off+SizeMagicPacket <= len(payload); off++ {
		if matchMagic(payload[off:off+SizeMagicPacket], target) {
			return true
		}
	}
	return false
}

func matchMagic(b []byte, target [6]byte) bool {
	for _, c := range b[:magicSyncLen] {
		if c != 0xff {
			return false
		}
	}
	b = b[magicSyncLen:]
	for i := range magicRepeats {
		if [6]byte(b[6*i:6*i+6]) != target {
			return false
		}
	}
	return true
}
