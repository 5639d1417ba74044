//go:build !linux || baremetal

package internal

import "errors"

type MIIBus struct{}

func NewMIIBus(ifaceName string) (*MIIBus, error) {
	return nil, errors.ErrUnsupported
}
func (bus *MIIBus) PHYAddr() (uint8, error) {
	return 0, errors.ErrUnsupported
}
func (bus *MIIBus) Read(phyAddr, devAddr uint8, regAddr uint16) (uint16, error) {
	return 0, errors.ErrUnsupported
}
func (bus *MIIBus) Write(phyAddr, devAddr uint8, regAddr, value uint16) error {
	return errors.ErrUnsupported
}
func (bus *MIIBus) HardwareAddress6() (hw [6]byte, err error) {
	return hw, errors.ErrUnsupported
}
func (bus *MIIBus) Close() error {
	return errors.ErrUnsupported
}

// MIIPHYID encodes a PHY address for the mii_ioctl_data phy_id field.
func MIIPHYID(phyAddr, devAddr uint8) uint16 {
	if devAddr == 0 {
		return uint16(phyAddr & 0x1f)
	}
	return 0x8000 | uint16(phyAddr&0x1f)<<5 | uint16(devAddr&0x1f)
}

type PacketSocket struct{}

func NewPacketSocket(name string) (*PacketSocket, error) {
	return nil, errors.ErrUnsupported
}
func (ps *PacketSocket) Write(frame []byte) (int, error) {
	return -1, errors.ErrUnsupported
}
func (ps *PacketSocket) HardwareAddress6() (hw [6]byte, err error) {
	return hw, errors.ErrUnsupported
}
func (ps *PacketSocket) Close() error {
	return errors.ErrUnsupported
}
