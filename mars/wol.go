package mars

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soypat/ctcphy"
	"github.com/soypat/ctcphy/internal"
)

// WOL configuration register bits (extended 0xa00a).
const (
	wolTypePulse uint16 = 1 << 0
	wolWidth1    uint16 = 1 << 1
	wolWidth2    uint16 = 1 << 2
	wolEnable    uint16 = 1 << 3
	wolIntrSel   uint16 = 1 << 6

	wolWidthMask = wolWidth1 | wolWidth2
)

// WOLType selects how the wake signal is driven.
type WOLType uint8

const (
	WOLLevel WOLType = iota // Wake pin held at level.
	WOLPulse                // Wake pin pulsed for the configured width.
)

func (t WOLType) String() string {
	if t == WOLPulse {
		return "pulse"
	}
	return "level"
}

// WOLWidth is the duration of the wake pulse.
type WOLWidth uint8

const (
	WOLWidth84ms WOLWidth = iota
	WOLWidth168ms
	WOLWidth336ms
	WOLWidth672ms
)

// Duration returns the pulse width as a time.Duration.
func (w WOLWidth) Duration() time.Duration {
	return (84 * time.Millisecond) << (w & 3)
}

// WOLWidthFromDuration returns the pulse width matching d.
func WOLWidthFromDuration(d time.Duration) (WOLWidth, bool) {
	for w := WOLWidth84ms; w <= WOLWidth672ms; w++ {
		if w.Duration() == d {
			return w, true
		}
	}
	return 0, false
}

func (w WOLWidth) bits() uint16 {
	return uint16(w&3) << 1
}

// WOLConfig is the Wake-on-LAN configuration of a device.
// Width is only used by the pulse type.
type WOLConfig struct {
	Enable bool
	Type   WOLType
	Width  WOLWidth
	MAC    [6]byte // Magic packet target.
}

// WakeOptions is a set of wake sources.
type WakeOptions uint8

const (
	WakeMagic WakeOptions = 1 << 5 // Magic packet.
)

// WOLInfo reports wake capabilities and the enabled wake sources.
type WOLInfo struct {
	Supported WakeOptions
	Enabled   WakeOptions
}

// GetWOL reports magic packet wake support and whether it is enabled.
// Pulse type and width are not reported. GetWOL only reads global registers
// and may be called before [Device.ConfigInit].
func (d *Device) GetWOL() (WOLInfo, error) {
	if !d.variant.WOL {
		return WOLInfo{}, ctcphy.ErrUnsupported
	}
	info := WOLInfo{Supported: WakeMagic}
	v, err := d.ExtRead(extWOLConfig)
	if err != nil {
		return info, err
	}
	if v&wolEnable != 0 {
		info.Enabled |= WakeMagic
	}
	return info, nil
}

// SetWOL enables or disables magic packet wake for mac. The wake signal is
// pulsed for 672ms. Disabling leaves the stored address and pulse width in place.
func (d *Device) SetWOL(enable bool, mac [6]byte) error {
	return d.ConfigureWOL(WOLConfig{
		Enable: enable,
		Type:   WOLPulse,
		Width:  WOLWidth672ms,
		MAC:    mac,
	})
}

// ConfigureWOL programs the wake configuration. The whole sequence runs with the
// copper page selected and the previous page restored afterwards.
func (d *Device) ConfigureWOL(cfg WOLConfig) error {
	if !d.inited {
		return ctcphy.ErrInvalidConfig
	} else if !d.variant.WOL {
		return ctcphy.ErrUnsupported
	} else if cfg.Type > WOLPulse || cfg.Width > WOLWidth672ms {
		return fmt.Errorf("mars: wol type %d width %d: %w", cfg.Type, cfg.Width, ctcphy.ErrInvalidConfig)
	}
	err := d.withPage(PageCopper, func() error {
		err := d.writeWOLConfig(cfg)
		if err != nil || !cfg.Enable {
			return err
		}
		v, err := d.gen.Read(regIntrMask)
		if err != nil {
			return err
		}
		err = d.gen.Write(regIntrMask, v|uint16(IntrWOL))
		if err != nil {
			return err
		}
		return d.writeMagicMAC(cfg.MAC)
	})
	if err != nil {
		return err
	}
	if cfg.Enable {
		d.log.debug("mars:wol-enable", slog.String("type", cfg.Type.String()),
			slog.Duration("width", cfg.Width.Duration()), internal.SlogAddr6("mac", &cfg.MAC))
	} else {
		d.log.debug("mars:wol-disable")
	}
	return nil
}

func (d *Device) writeWOLConfig(cfg WOLConfig) error {
	v, err := d.ExtRead(extWOLConfig)
	if err != nil {
		return err
	}
	switch {
	case !cfg.Enable:
		v &^= wolEnable | wolIntrSel
	case cfg.Type == WOLLevel:
		v |= wolEnable
		v &^= wolTypePulse | wolIntrSel
	default:
		v |= wolEnable | wolTypePulse | wolIntrSel
		v = v&^wolWidthMask | cfg.Width.bits()
	}
	return d.ExtWrite(extWOLConfig, v)
}

// writeMagicMAC stores the magic packet target, two bytes per register, most significant register first.
func (d *Device) writeMagicMAC(mac [6]byte) error {
	regs := [3]uint16{extMagicMAC2, extMagicMAC1, extMagicMAC0}
	for i, reg := range regs {
		err := d.ExtWrite(reg, uint16(mac[2*i])<<8|uint16(mac[2*i+1]))
		if err != nil {
			return err
		}
	}
	return nil
}
