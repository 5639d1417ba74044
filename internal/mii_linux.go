//go:build linux && !baremetal

package internal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mdioPHYIDC45 flags a Clause 45 address in the mii_ioctl_data phy_id field.
const mdioPHYIDC45 = 0x8000

// MIIBus accesses the MDIO bus behind a network interface through the kernel's
// SIOCGMIIREG and SIOCSMIIREG ioctls. It implements phy.MDIOBus.
type MIIBus struct {
	fd   int
	name string
}

// NewMIIBus opens a control socket for MDIO access on the named interface.
func NewMIIBus(ifaceName string) (*MIIBus, error) {
	if len(ifaceName) >= unix.IFNAMSIZ {
		return nil, errors.New("name too large")
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("mii socket open: %w", err)
	}
	return &MIIBus{fd: fd, name: ifaceName}, nil
}

// PHYAddr returns the address of the PHY attached to the interface as reported by the driver.
func (bus *MIIBus) PHYAddr() (uint8, error) {
	ifr := makeMIIReq(bus.name)
	err := ioctl(bus.fd, unix.SIOCGMIIPHY, unsafe.Pointer(&ifr))
	if err != nil {
		return 0, err
	}
	return uint8(ifr.mii.phyID & 0x1f), nil
}

// Read reads a PHY register. Clause 45 framing is used when devAddr is non-zero.
func (bus *MIIBus) Read(phyAddr, devAddr uint8, regAddr uint16) (uint16, error) {
	ifr := makeMIIReq(bus.name)
	ifr.mii.phyID = MIIPHYID(phyAddr, devAddr)
	ifr.mii.regNum = regAddr
	err := ioctl(bus.fd, unix.SIOCGMIIREG, unsafe.Pointer(&ifr))
	if err != nil {
		return 0, err
	}
	return ifr.mii.valOut, nil
}

// Write writes a PHY register. Clause 45 framing is used when devAddr is non-zero.
func (bus *MIIBus) Write(phyAddr, devAddr uint8, regAddr, value uint16) error {
	ifr := makeMIIReq(bus.name)
	ifr.mii.phyID = MIIPHYID(phyAddr, devAddr)
	ifr.mii.regNum = regAddr
	ifr.mii.valIn = value
	return ioctl(bus.fd, unix.SIOCSMIIREG, unsafe.Pointer(&ifr))
}

// HardwareAddress6 returns the MAC address of the interface.
func (bus *MIIBus) HardwareAddress6() (hw [6]byte, err error) {
	return getSocketHW(bus.fd, bus.name)
}

func (bus *MIIBus) Close() error {
	return unix.Close(bus.fd)
}

// MIIPHYID encodes a PHY address for the mii_ioctl_data phy_id field.
func MIIPHYID(phyAddr, devAddr uint8) uint16 {
	if devAddr == 0 {
		return uint16(phyAddr & 0x1f)
	}
	return mdioPHYIDC45 | uint16(phyAddr&0x1f)<<5 | uint16(devAddr&0x1f)
}

// miiReq mirrors struct ifreq with struct mii_ioctl_data in the ifr_ifru union.
type miiReq struct {
	name [unix.IFNAMSIZ]byte
	mii  struct {
		phyID  uint16
		regNum uint16
		valIn  uint16
		valOut uint16
	}
	_ [16]byte // pad to sizeof(struct ifreq).
}

func makeMIIReq(name string) miiReq {
	var ifr miiReq
	copy(ifr.name[:], name)
	return ifr
}

type ifreq struct {
	Name [unix.IFNAMSIZ]byte
	Data [24]byte // union data (covers ifr_hwaddr, etc.)
}

func getSocketHW(sockfd int, ifaceName string) (hw [6]byte, err error) {
	const safamilyHW6 = 1
	var ifr ifreq
	copy(ifr.Name[:], ifaceName)
	err = ioctl(sockfd, unix.SIOCGIFHWADDR, unsafe.Pointer(&ifr))
	if err != nil {
		return hw, err
	}
	saFamily := *(*uint16)(unsafe.Pointer(&ifr.Data[0])) // Host order.
	if saFamily != safamilyHW6 {
		return hw, fmt.Errorf("expecting sa_family=1 got %d", saFamily)
	}
	copy(hw[:], ifr.Data[2:]) // first two bytes are sa_family
	return hw, nil
}

func ioctl(fd int, request uintptr, argp unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), request, uintptr(argp))
	if errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}

// PacketSocket sends raw Ethernet frames on an interface through an AF_PACKET socket.
type PacketSocket struct {
	fd   int
	name string
}

// NewPacketSocket opens a raw packet socket bound to the named interface.
func NewPacketSocket(name string) (*PacketSocket, error) {
	index, err := interfaceIndex(name)
	if err != nil {
		return nil, err
	}
	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(proto))
	if err != nil {
		return nil, err
	}
	ll := unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  index,
	}
	if err := unix.Bind(fd, &ll); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &PacketSocket{fd: fd, name: name}, nil
}

func (ps *PacketSocket) Write(frame []byte) (int, error) {
	return unix.Write(ps.fd, frame)
}

func (ps *PacketSocket) HardwareAddress6() (hw [6]byte, err error) {
	return getSocketHW(ps.fd, ps.name)
}

func (ps *PacketSocket) Close() error {
	return unix.Close(ps.fd)
}

// htons converts a uint16 from host to network byte order.
func htons(i uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], i)
	return binary.NativeEndian.Uint16(b[:])
}
