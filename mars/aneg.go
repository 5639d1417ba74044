package mars

import (
	"log/slog"

	"github.com/soypat/ctcphy"
	"github.com/soypat/ctcphy/phy"
)

// ConfigAneg applies the link configuration selected with [Device.SetAdvertising]
// or [Device.SetForced] to every medium of the port mode.
//
// With auto-negotiation disabled the forced speed and duplex are written and no
// restart is ever issued. Otherwise the advertisement is trimmed to the supported
// modes and written to the copper registers; negotiation is restarted only when
// the advertisement changed or the copper interface was not negotiating.
// The SerDes interface only gets auto-negotiation enabled.
func (d *Device) ConfigAneg() error {
	if !d.inited {
		return ctcphy.ErrInvalidConfig
	}
	if !d.autoneg {
		return d.setupForced()
	}
	if d.mode.copper() {
		changed, err := d.configAdvert()
		if err != nil {
			return err
		}
		if !changed {
			// Advertisement did not change but negotiation may never have been
			// started, or the PHY may be isolated.
			ctl, err := d.pageBMCR(PageCopper)
			if err != nil {
				return err
			}
			changed = ctl&phy.BMCRANEnable == 0 || ctl&phy.BMCRIsolate != 0
		}
		if changed {
			err = d.restartAneg(PageCopper)
			if err != nil {
				return err
			}
		}
	}
	if d.mode.fiber() {
		return d.restartAneg(PageSerDes)
	}
	return nil
}

// setupForced writes the forced link configuration. Pause is not negotiated on a forced link.
func (d *Device) setupForced() error {
	d.status.Pause = false
	d.status.AsymPause = false
	if d.mode.copper() {
		err := d.pageUpdate(PageCopper, phy.AddrBMCR, func(v uint16) uint16 {
			ctl := phy.BMCR(v) & (phy.BMCRLoopback | phy.BMCRIsolate | phy.BMCRPowerDown)
			switch d.speed {
			case 1000:
				ctl |= phy.BMCRSpeed1000
			case 100:
				ctl |= phy.BMCRSpeed100
			}
			if d.duplex == phy.DuplexFull {
				ctl |= phy.BMCRFullDuplex
			}
			return uint16(ctl)
		})
		if err != nil {
			return err
		}
	}
	if d.mode.fiber() {
		err := d.pageUpdate(PageSerDes, phy.AddrBMCR, func(v uint16) uint16 {
			return v &^ uint16(phy.BMCRANEnable)
		})
		if err != nil {
			return err
		}
	}
	d.log.debug("mars:forced", slog.Int("speed", d.speed), slog.String("duplex", d.duplex.String()))
	return nil
}

// configAdvert writes the copper advertisement registers and reports whether
// any of them changed. The gigabit register is only touched when the PHY
// declares extended status.
func (d *Device) configAdvert() (changed bool, err error) {
	d.advertising &= d.supported
	adv := d.advertising
	err = d.withPage(PageCopper, func() error {
		v, err := d.gen.Read(phy.AddrANAR)
		if err != nil {
			return err
		}
		old := phy.ANAR(v)
		anar := old &^ (phy.ANARSpeedMask | phy.ANARPauseMask)
		anar |= adv.ANAR()
		if anar != old {
			err = d.gen.Write(phy.AddrANAR, uint16(anar))
			if err != nil {
				return err
			}
			changed = true
		}
		bmsr, err := d.gen.BasicStatus()
		if err != nil {
			return err
		}
		if !bmsr.HasExtendedStatus() {
			return nil
		}
		v, err = d.gen.Read(phy.AddrGBCR)
		if err != nil {
			return err
		}
		oldg := phy.GBCR(v)
		gbcr := oldg &^ phy.GBCRSpeedMask
		if d.supported.HasAny(phy.ModesGigabit) {
			gbcr |= adv.GBCR()
		}
		if gbcr != oldg {
			changed = true
		}
		return d.gen.Write(phy.AddrGBCR, uint16(gbcr))
	})
	return changed, err
}

// restartAneg enables auto-negotiation on page. The copper interface is also
// taken out of isolation and told to restart negotiation.
func (d *Device) restartAneg(page Page) error {
	d.log.debug("mars:aneg-restart", slog.String("page", page.String()))
	return d.pageUpdate(page, phy.AddrBMCR, func(v uint16) uint16 {
		ctl := phy.BMCR(v) | phy.BMCRANEnable
		if page == PageCopper {
			ctl |= phy.BMCRANRestart
			ctl &^= phy.BMCRIsolate
		}
		return uint16(ctl)
	})
}
