package mars

import (
	"log/slog"

	"github.com/soypat/ctcphy/internal"
)

// PortMode is the media configuration strapped into the chip.
type PortMode uint8

const (
	PortUTP   PortMode = iota // Copper only.
	PortFiber                 // Fiber only.
	PortCombo                 // Copper and fiber, whichever links.
)

func (m PortMode) String() string {
	switch m {
	case PortUTP:
		return "utp"
	case PortFiber:
		return "fiber"
	case PortCombo:
		return "combo"
	}
	return "unknown"
}

// copper reports whether the copper interface is in use.
func (m PortMode) copper() bool { return m == PortUTP || m == PortCombo }

// fiber reports whether the SerDes interface is in use.
func (m PortMode) fiber() bool { return m == PortFiber || m == PortCombo }

// pages returns the register banks of the media in use, copper first.
func (m PortMode) pages() []Page {
	switch m {
	case PortUTP:
		return []Page{PageCopper}
	case PortFiber:
		return []Page{PageSerDes}
	default:
		return []Page{PageCopper, PageSerDes}
	}
}

// Carrier is the medium currently carrying the link.
type Carrier uint8

const (
	CarrierUnknown Carrier = iota // Combo port before the first link.
	CarrierUTP
	CarrierFiber
)

func (c Carrier) String() string {
	switch c {
	case CarrierUTP:
		return "utp"
	case CarrierFiber:
		return "fiber"
	}
	return "unknown"
}

// page returns the register bank of the carrier. Unknown carriers map to copper.
func (c Carrier) page() Page {
	if c == CarrierFiber {
		return PageSerDes
	}
	return PageCopper
}

// chipModes maps the low three bits of the chip configuration register to a port mode.
var chipModes = [8]PortMode{
	0: PortUTP,
	1: PortFiber,
	2: PortCombo,
	3: PortUTP,
	4: PortFiber,
	5: PortFiber,
	6: PortCombo,
	7: PortCombo,
}

// PortModeFromChipConfig returns the port mode encoded in a chip configuration register value.
func PortModeFromChipConfig(cfg uint16) PortMode {
	return chipModes[cfg&chipModeMask]
}

// ReadPortMode reads the port mode from the chip configuration register
// without changing the state of the device.
func (d *Device) ReadPortMode() (PortMode, error) {
	cfg, err := d.ExtRead(extChipConfig)
	return PortModeFromChipConfig(cfg), err
}

// classify reads the chip configuration and fixes the port mode of the device.
// The carrier is seeded when the mode leaves no choice.
func (d *Device) classify() error {
	cfg, err := d.ExtRead(extChipConfig)
	if err != nil {
		return err
	}
	d.mode = PortModeFromChipConfig(cfg)
	switch d.mode {
	case PortUTP:
		d.carrier = CarrierUTP
	case PortFiber:
		d.carrier = CarrierFiber
	default:
		d.carrier = CarrierUnknown
	}
	d.log.debug("mars:classify", internal.SlogReg("chipcfg", cfg), slog.String("mode", d.mode.String()))
	return nil
}
