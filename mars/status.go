package mars

import (
	"log/slog"

	"github.com/soypat/ctcphy"
	"github.com/soypat/ctcphy/phy"
)

// ReadStatus refreshes the link state. Copper is checked before fiber; the first
// medium with link becomes the carrier and its page is left selected. Speed and
// duplex are then decoded from the carrier's specific status register and pause
// from the link partner ability, the latter only on full duplex links.
//
// Variants without a specific status register resolve the status from the
// standard registers instead.
func (d *Device) ReadStatus() (phy.Status, error) {
	if !d.inited {
		return d.status, ctcphy.ErrInvalidConfig
	}
	var err error
	var st phy.Status
	if d.variant.VendorStatus {
		st, err = d.readVendorStatus()
	} else {
		st, err = d.gen.ReadStatus()
	}
	if err != nil {
		return d.status, err
	}
	if st.Link != d.status.Link || st.Speed != d.status.Speed || st.Duplex != d.status.Duplex {
		d.log.debug("mars:status", slog.String("status", st.String()), slog.String("carrier", d.carrier.String()))
	}
	d.status = st
	return st, nil
}

func (d *Device) readVendorStatus() (phy.Status, error) {
	st := phy.DownStatus()
	up, err := d.updateLink()
	if err != nil || !up {
		return st, err
	}
	st.Link = true
	page := d.carrier.page()
	ss, err := d.PageRead(page, regSpecificStatus)
	if err != nil {
		return st, err
	}
	lpa, err := d.PageRead(page, phy.AddrANLPAR)
	if err != nil {
		return st, err
	}
	st.Speed, st.Duplex = SpecificStatus(ss).Decode()
	if st.Duplex == phy.DuplexFull {
		st.Pause = phy.ANAR(lpa)&phy.ANARPause != 0
		st.AsymPause = phy.ANAR(lpa)&phy.ANARPauseAsym != 0
	}
	return st, nil
}

// updateLink looks for link on the media of the port mode, copper first.
func (d *Device) updateLink() (up bool, err error) {
	for _, page := range d.mode.pages() {
		up, err = d.mediumLink(page)
		if err != nil {
			return false, err
		}
		if !up {
			continue
		}
		err = d.selectPage(page)
		if err != nil {
			return false, err
		}
		if page == PageSerDes {
			d.carrier = CarrierFiber
		} else {
			d.carrier = CarrierUTP
		}
		return true, nil
	}
	return false, nil
}

// mediumLink reads the basic status of page twice. The first read clears a
// latched link failure, the second reflects live state.
func (d *Device) mediumLink(page Page) (bool, error) {
	_, err := d.pageBMSR(page)
	if err != nil {
		return false, err
	}
	bmsr, err := d.pageBMSR(page)
	if err != nil {
		return false, err
	}
	return bmsr.LinkUp(), nil
}
