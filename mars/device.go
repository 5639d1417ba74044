// Package mars drives the Centec MARS family of gigabit Ethernet PHYs.
//
// The chips hide most of their configuration behind an indirectly addressed
// extended register space and expose two banks of standard registers, one for
// the copper (UTP) interface and one for the SerDes (fiber) interface, selected
// by a page register. Every access that crosses pages restores the selector
// before returning so other users of the bus keep addressing the bank they expect.
//
// A Device performs no locking. Callers must serialize calls to a Device and
// must not access the same PHY through other means while a call is in progress.
package mars

import (
	"fmt"
	"log/slog"

	"github.com/soypat/ctcphy"
	"github.com/soypat/ctcphy/internal"
	"github.com/soypat/ctcphy/phy"
)

// Config holds the host side configuration of a MARS device.
type Config struct {
	// Supported is the capability mask of the host side (MAC) of the link.
	// The zero value selects [phy.ModesGigabitFeatures] plus pause modes.
	Supported phy.LinkModes
	// HardwareAddr is the MAC address of the attached interface. It is the
	// magic packet target when WOLOnInit is set.
	HardwareAddr [6]byte
	// WOLOnInit enables magic packet wake during [Device.ConfigInit].
	WOLOnInit bool
	Logger    *slog.Logger
}

// Device is a MARS PHY on an MDIO bus.
type Device struct {
	gen     phy.Device
	variant *Variant
	log     logger

	inited  bool
	mode    PortMode
	carrier Carrier

	supported   phy.LinkModes
	advertising phy.LinkModes
	autoneg     bool
	speed       int
	duplex      phy.Duplex
	status      phy.Status

	hwaddr    [6]byte
	wolOnInit bool
}

// Probe reads the PHY identifier at phyAddr and returns an unconfigured Device
// if it belongs to the MARS family. [Device.ConfigInit] must be called before use.
func Probe(bus phy.MDIOBus, phyAddr uint8, cfg Config) (*Device, error) {
	var gen phy.Device
	err := gen.ConfigureAs22(bus, phyAddr)
	if err != nil {
		return nil, err
	}
	id, err := gen.ID()
	if err != nil {
		return nil, err
	}
	v, ok := LookupVariant(id)
	if !ok {
		return nil, fmt.Errorf("mars: phy id %#08x at addr %d: %w", id, phyAddr, ctcphy.ErrUnsupported)
	}
	return New(bus, phyAddr, v, cfg)
}

// New returns a Device for a PHY of a known variant without reading its identifier.
func New(bus phy.MDIOBus, phyAddr uint8, v *Variant, cfg Config) (*Device, error) {
	if v == nil {
		return nil, ctcphy.ErrInvalidConfig
	}
	d := &Device{
		variant:   v,
		log:       logger{log: cfg.Logger},
		hwaddr:    cfg.HardwareAddr,
		wolOnInit: cfg.WOLOnInit,
		supported: cfg.Supported,
		autoneg:   true,
		speed:     1000,
		duplex:    phy.DuplexFull,
		status:    phy.DownStatus(),
	}
	if d.supported == 0 {
		d.supported = phy.ModesGigabitFeatures | phy.ModesPause
	}
	d.advertising = d.supported
	err := d.gen.ConfigureAs22(bus, phyAddr)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Variant returns the chip variant of the device.
func (d *Device) Variant() *Variant { return d.variant }

// PHYAddr returns the address of the PHY on the MDIO bus.
func (d *Device) PHYAddr() uint8 { return d.gen.PHYAddr() }

// PortMode returns the media mode established by [Device.ConfigInit].
func (d *Device) PortMode() PortMode { return d.mode }

// Carrier returns the medium that carried the link on the last status read.
func (d *Device) Carrier() Carrier { return d.carrier }

// Supported returns the capability mask of the device.
func (d *Device) Supported() phy.LinkModes { return d.supported }

// Advertising returns the advertisement mask. It is always a subset of [Device.Supported].
func (d *Device) Advertising() phy.LinkModes { return d.advertising }

// Status returns the link status decoded by the last call to [Device.ReadStatus].
func (d *Device) Status() phy.Status { return d.status }

// SetAdvertising enables auto-negotiation with the given advertisement.
// Modes not supported by the device are dropped.
func (d *Device) SetAdvertising(adv phy.LinkModes) {
	d.autoneg = true
	d.advertising = adv & d.supported
}

// SetForced disables auto-negotiation and selects a fixed speed and duplex,
// applied on the next [Device.ConfigAneg].
func (d *Device) SetForced(speedMbps int, duplex phy.Duplex) error {
	switch speedMbps {
	case 10, 100, 1000:
	default:
		return fmt.Errorf("mars: forced speed %d: %w", speedMbps, ctcphy.ErrInvalidConfig)
	}
	d.autoneg = false
	d.speed = speedMbps
	d.duplex = duplex
	return nil
}

// Autoneg reports whether auto-negotiation is selected.
func (d *Device) Autoneg() bool { return d.autoneg }

// ConfigInit applies the variant specific register programming, discovers the
// abilities of the PHY, classifies the port mode and optionally enables
// magic packet wake. It must be called once after the PHY is bound and before
// any other operation. The port mode is fixed by the first successful call;
// later calls fail with [ctcphy.ErrInvalidConfig].
func (d *Device) ConfigInit() error {
	if d.inited {
		return ctcphy.ErrInvalidConfig
	}
	for _, w := range d.variant.init {
		err := d.applyInit(w)
		if err != nil {
			return fmt.Errorf("mars: init %s: %w", w.what, err)
		}
	}
	features := phy.ModeTP | phy.ModeMII | phy.ModeAUI | phy.ModeFibre | phy.ModeBNC | phy.ModesPause
	bmsr, err := d.pageBMSR(PageCopper)
	if err != nil {
		return err
	}
	features |= phy.ModesFromBMSR(bmsr)
	if bmsr.HasExtendedStatus() {
		es, err := d.PageRead(PageCopper, phy.AddrESTATUS)
		if err != nil {
			return err
		}
		features |= phy.ModesFromESTATUS(phy.ESTATUS(es))
	}
	d.supported &= features
	d.advertising &= d.supported

	err = d.classify()
	if err != nil {
		return err
	}
	d.inited = true
	d.log.debug("mars:init", slog.String("variant", d.variant.Name), slog.String("mode", d.mode.String()),
		slog.String("supported", d.supported.String()))
	if d.wolOnInit && d.variant.WOL {
		err = d.SetWOL(true, d.hwaddr)
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) applyInit(w regWrite) error {
	d.log.trace("mars:init-write", slog.String("what", w.what), internal.SlogReg("addr", w.addr), internal.SlogReg("val", w.value))
	if w.space == SpaceExtended {
		return d.PageExtWrite(w.page, w.addr, w.value)
	}
	return d.PageWrite(w.page, w.addr, w.value)
}

// Suspend powers down the media interfaces of the port mode.
func (d *Device) Suspend() error {
	return d.setPowerDown(true)
}

// Resume powers up the media interfaces of the port mode.
func (d *Device) Resume() error {
	return d.setPowerDown(false)
}

func (d *Device) setPowerDown(down bool) error {
	if !d.inited {
		return ctcphy.ErrInvalidConfig
	}
	for _, page := range d.mode.pages() {
		err := d.pageUpdate(page, phy.AddrBMCR, func(v uint16) uint16 {
			if down {
				return v | uint16(phy.BMCRPowerDown)
			}
			return v &^ uint16(phy.BMCRPowerDown)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type logger struct {
	log *slog.Logger
}

func (l logger) error(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelError, msg, attrs...)
}
func (l logger) debug(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelDebug, msg, attrs...)
}
func (l logger) trace(msg string, attrs ...slog.Attr) {
	if internal.LogEnabled(l.log, internal.LevelTrace) {
		internal.LogAttrs(l.log, internal.LevelTrace, msg, attrs...)
	}
}
