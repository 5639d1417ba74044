package mars

import (
	"log/slog"

	"github.com/soypat/ctcphy"
)

// AckInterrupt clears pending interrupts by reading the copper interrupt status
// register and returns the events that were pending.
func (d *Device) AckInterrupt() (IntrEvents, error) {
	if !d.inited {
		return 0, ctcphy.ErrInvalidConfig
	}
	v, err := d.PageRead(PageCopper, regIntrEvent)
	if err != nil {
		return 0, err
	}
	ev := IntrEvents(v)
	if ev != 0 {
		d.log.trace("mars:intr", slog.String("events", ev.String()))
	}
	return ev, nil
}

// ConfigIntr enables or disables the link interrupts. The WOL interrupt source
// shares the mask register and is left as configured by [Device.ConfigureWOL].
func (d *Device) ConfigIntr(enable bool) error {
	if !d.inited {
		return ctcphy.ErrInvalidConfig
	}
	return d.pageUpdate(PageCopper, regIntrMask, func(v uint16) uint16 {
		v &= uint16(IntrWOL)
		if enable {
			v |= uint16(IntrLinkEvents)
		}
		return v
	})
}
