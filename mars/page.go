package mars

import (
	"log/slog"

	"github.com/soypat/ctcphy/internal"
	"github.com/soypat/ctcphy/phy"
)

// ExtRead reads an extended register. The target address is latched in the
// address register before the data register is read, so no other access to the
// PHY may happen between the two transactions.
func (d *Device) ExtRead(addr uint16) (uint16, error) {
	err := d.gen.Write(regExtAddr, addr)
	if err != nil {
		return 0, err
	}
	v, err := d.gen.Read(regExtData)
	if err != nil {
		return 0, err
	}
	d.log.trace("mars:ext-read", internal.SlogReg("addr", addr), internal.SlogReg("val", v))
	return v, nil
}

// ExtWrite writes an extended register through the address/data register pair.
func (d *Device) ExtWrite(addr, value uint16) error {
	err := d.gen.Write(regExtAddr, addr)
	if err != nil {
		return err
	}
	d.log.trace("mars:ext-write", internal.SlogReg("addr", addr), internal.SlogReg("val", value))
	return d.gen.Write(regExtData, value)
}

// CurrentPage reads the page selector and returns the selected page.
func (d *Device) CurrentPage() (Page, error) {
	v, err := d.ExtRead(extPageSelect)
	return pageFromSelect(v), err
}

// selectPage persistently selects the register bank addressed by standard accesses.
// Only the page bit is written.
func (d *Device) selectPage(p Page) error {
	return d.ExtWrite(extPageSelect, p.selectValue())
}

// withPage runs fn with page selected and restores the previously selected page on
// every return path once the selection succeeded. The first error is returned:
// an error in fn wins over a failed restore.
func (d *Device) withPage(page Page, fn func() error) (err error) {
	saved, err := d.ExtRead(extPageSelect)
	if err != nil {
		return err
	}
	err = d.selectPage(page)
	if err != nil {
		return err
	}
	defer func() {
		rerr := d.selectPage(pageFromSelect(saved))
		if err == nil {
			err = rerr
		}
		if rerr != nil {
			d.log.error("mars:page-restore", slog.String("page", pageFromSelect(saved).String()), slog.String("err", rerr.Error()))
		}
	}()
	return fn()
}

// PageRead reads a standard register on page and leaves the page selector as it was found.
func (d *Device) PageRead(page Page, reg uint16) (v uint16, err error) {
	err = d.withPage(page, func() (err error) {
		v, err = d.gen.Read(reg)
		return err
	})
	return v, err
}

// PageWrite writes a standard register on page and leaves the page selector as it was found.
func (d *Device) PageWrite(page Page, reg, value uint16) error {
	return d.withPage(page, func() error {
		return d.gen.Write(reg, value)
	})
}

// PageExtRead reads a page scoped extended register.
func (d *Device) PageExtRead(page Page, addr uint16) (v uint16, err error) {
	err = d.withPage(page, func() (err error) {
		v, err = d.ExtRead(addr)
		return err
	})
	return v, err
}

// PageExtWrite writes a page scoped extended register.
func (d *Device) PageExtWrite(page Page, addr, value uint16) error {
	return d.withPage(page, func() error {
		return d.ExtWrite(addr, value)
	})
}

// pageUpdate performs a read-modify-write of a standard register within a single page scope.
func (d *Device) pageUpdate(page Page, reg uint16, modify func(uint16) uint16) error {
	return d.withPage(page, func() error {
		v, err := d.gen.Read(reg)
		if err != nil {
			return err
		}
		return d.gen.Write(reg, modify(v))
	})
}

func (d *Device) pageBMCR(page Page) (phy.BMCR, error) {
	v, err := d.PageRead(page, phy.AddrBMCR)
	return phy.BMCR(v), err
}

func (d *Device) pageBMSR(page Page) (phy.BMSR, error) {
	v, err := d.PageRead(page, phy.AddrBMSR)
	return phy.BMSR(v), err
}
