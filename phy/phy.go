// Package phy provides Ethernet PHY management via MDIO.
// It supports IEEE 802.3 Clause 22 register access for configuring and
// monitoring physical layer transceivers and holds the register layouts,
// link mode masks and generic status resolution shared by vendor drivers.
package phy

import (
	"errors"
	"time"

	"github.com/soypat/ctcphy"
)

// FindClause22PHYs finds all regular non-clause45 PHYs on the MDIO bus and writes them to dst.
// FindClause22PHYs returns error only if unable to find no PHYs.
func FindClause22PHYs(mdio MDIOBus, dst []uint8) (n int, err error) {
	const maxAddr = 31
	if len(dst) < 32 {
		return -1, ctcphy.ErrShortBuffer
	}
	for addr := uint8(0); addr <= maxAddr; addr++ {
		val, err := mdio.Read(addr, 0, AddrBMSR)
		if err != nil {
			continue
		}
		// Basic status has some bits that must be zero and one, so if this check fails then we know its a bad address.
		if val != 0xffff && val != 0x0000 {
			dst[n] = addr
			n++
		}
	}
	if n <= 0 {
		err = errors.New("no phy found")
	}
	return n, err
}

// Device is a generic Clause 22 PHY. Vendor drivers use it for the standard
// register set and fall back to its status resolution when they lack a
// vendor specific status register.
type Device struct {
	mdio    MDIOBus
	phyaddr uint8
}

// ConfigureAs22 resets all state of device to be used as a Clause22 device. Does not do a software reset.
func (phy *Device) ConfigureAs22(mdio MDIOBus, phyAddr uint8) error {
	if phyAddr > 31 {
		return ctcphy.ErrInvalidAddr
	} else if mdio == nil {
		return ctcphy.ErrInvalidConfig
	}
	phy.mdio = mdio
	phy.phyaddr = phyAddr
	return nil
}

// Bus returns the MDIO bus the device was configured with.
func (phy *Device) Bus() MDIOBus { return phy.mdio }

// PHYAddr returns the PHY address on the MDIO bus (0-31).
func (phy *Device) PHYAddr() uint8 {
	return phy.phyaddr
}

// ID returns the 32 bit PHY identifier formed by registers 2 (high half) and 3 (low half).
func (phy *Device) ID() (uint32, error) {
	id1, err := phy.Read(AddrPHYID1)
	if err != nil {
		return 0, err
	}
	id2, err := phy.Read(AddrPHYID2)
	if err != nil {
		return 0, err
	}
	return uint32(id1)<<16 | uint32(id2), nil
}

// BasicControl reads the Basic Mode Control Register (BMCR, register 0).
func (phy *Device) BasicControl() (BMCR, error) {
	ctl, err := phy.Read(AddrBMCR)
	return BMCR(ctl), err
}

// BasicStatus reads the Basic Mode Status Register (BMSR, register 1).
func (phy *Device) BasicStatus() (BMSR, error) {
	stat, err := phy.Read(AddrBMSR)
	return BMSR(stat), err
}

// Advertisement reads the current Auto-Negotiation Advertisement Register.
func (phy *Device) Advertisement() (ANAR, error) {
	val, err := phy.Read(AddrANAR)
	return ANAR(val), err
}

// LinkPartnerAdvertisement reads what the link partner is advertising (ANLPAR).
func (phy *Device) LinkPartnerAdvertisement() (ANAR, error) {
	val, err := phy.Read(AddrANLPAR)
	return ANAR(val), err
}

// ResetPHY performs a software reset and waits for completion.
// Returns an error on IO error on MDIO bus or on timeout during wait for register reset.
func (phy *Device) ResetPHY() (err error) {
	err = phy.Write(AddrBMCR, uint16(BMCRReset))
	if err != nil {
		return err
	}
	// Wait for reset to complete (bit self-clears).
	// IEEE 802.3 allows up to 500ms.
	const maxPolls = 50
	const resetTimeout = 500 * time.Millisecond
	var ctl BMCR
	for i := 0; i < maxPolls; i++ {
		ctl, err = phy.BasicControl()
		if err != nil {
			return err
		}
		if ctl&BMCRReset == 0 {
			return nil
		}
		time.Sleep(resetTimeout / maxPolls)
	}
	return errors.New("PHY reset timeout")
}

// UpdateLink reads the link status bit. The basic status register is read twice:
// the first read clears a latched link failure so the second reflects live state.
func (phy *Device) UpdateLink() (up bool, err error) {
	_, err = phy.BasicStatus()
	if err != nil {
		return false, err
	}
	status, err := phy.BasicStatus()
	if err != nil {
		return false, err
	}
	return status.LinkUp(), nil
}

// ReadStatus resolves the current link state using only standard registers.
// With auto-negotiation enabled the highest common ability of our advertisement
// and the link partner's is selected, gigabit first. With auto-negotiation
// disabled the forced BMCR speed and duplex are reported.
func (phy *Device) ReadStatus() (Status, error) {
	st := DownStatus()
	up, err := phy.UpdateLink()
	if err != nil || !up {
		return st, err
	}
	st.Link = true
	ctl, err := phy.BasicControl()
	if err != nil {
		return st, err
	}
	if ctl&BMCRANEnable == 0 {
		mode := ctl.ForcedMode()
		st.Speed = mode.SpeedMbps()
		if mode.IsFullDuplex() {
			st.Duplex = DuplexFull
		}
		return st, nil
	}
	gbcr, err := phy.Read(AddrGBCR)
	if err != nil {
		return st, err
	}
	gbsr, err := phy.Read(AddrGBSR)
	if err != nil {
		return st, err
	}
	adv, err := phy.Advertisement()
	if err != nil {
		return st, err
	}
	lpa, err := phy.LinkPartnerAdvertisement()
	if err != nil {
		return st, err
	}
	mode := resolve(GBCR(gbcr), GBSR(gbsr), adv, lpa)
	if mode != LinkDown {
		st.Speed = mode.SpeedMbps()
	}
	if mode.IsFullDuplex() {
		st.Duplex = DuplexFull
		st.Pause = lpa&ANARPause != 0
		st.AsymPause = lpa&ANARPauseAsym != 0
	}
	return st, nil
}

// resolve returns the highest priority common mode per IEEE 802.3 Annex 28B.3.
func resolve(gbcr GBCR, gbsr GBSR, adv, lpa ANAR) LinkMode {
	// Partner gigabit bits sit two positions above ours.
	common1000 := uint16(gbcr) & (uint16(gbsr) >> 2)
	switch {
	case common1000&uint16(GBCR1000Full) != 0:
		return Link1000FDX
	case common1000&uint16(GBCR1000Half) != 0:
		return Link1000HDX
	}
	return (adv & lpa).LinkMode()
}

// Read reads a Clause 22 register of the device.
func (phy *Device) Read(reg uint16) (uint16, error) {
	return Read(phy.mdio, phy.phyaddr, reg)
}

// Write writes a Clause 22 register of the device.
func (phy *Device) Write(reg, value uint16) error {
	return Write(phy.mdio, phy.phyaddr, reg, value)
}
