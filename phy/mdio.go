package phy

import (
	"strconv"
)

// MDIOBus is a HAL for MDIO bus access supporting both Clause 22 and Clause 45 devices.
// Implementations should use devaddr to select the framing:
//   - devaddr=0: Clause 22 framing (devaddr ignored in transaction)
//   - devaddr>=1: Clause 45 framing (PMA/PMD=1, WIS=2, PCS=3, PHY XS=4, DTE XS=5, AN=7)
//
// Register address range: Clause 22 uses 0-31, Clause 45 uses 0-65535.
// Invalid combinations of devaddr and regAddr may or may not return an error
// depending on the implementation or result in undefined behavior.
//
// An MDIOBus carries device state between transactions (selected page, latched
// indirect address) so callers must not interleave multi-transaction sequences
// aimed at the same PHY.
type MDIOBus interface {
	// Read reads a 16-bit register from the PHY.
	Read(phyAddr, devAddr uint8, regAddr uint16) (value uint16, err error)
	// Write writes a 16-bit value to a PHY register.
	Write(phyAddr, devAddr uint8, regAddr, value uint16) error
}

// BusError is returned when a register transaction on the [MDIOBus] fails.
// Timeouts, missing turnaround and NACKs are not distinguished.
type BusError struct {
	Op      string // "read" or "write"
	PHYAddr uint8
	DevAddr uint8
	Reg     uint16
	Err     error
}

func (e *BusError) Error() string {
	buf := make([]byte, 0, 64)
	buf = append(buf, "mdio "...)
	buf = append(buf, e.Op...)
	buf = append(buf, " phy="...)
	buf = strconv.AppendUint(buf, uint64(e.PHYAddr), 10)
	if e.DevAddr != 0 {
		buf = append(buf, " dev="...)
		buf = strconv.AppendUint(buf, uint64(e.DevAddr), 10)
	}
	buf = append(buf, " reg=0x"...)
	buf = strconv.AppendUint(buf, uint64(e.Reg), 16)
	if e.Err != nil {
		buf = append(buf, ": "...)
		buf = append(buf, e.Err.Error()...)
	}
	return string(buf)
}

func (e *BusError) Unwrap() error { return e.Err }

// Read reads a Clause 22 register and wraps any failure in a [BusError].
func Read(bus MDIOBus, phyAddr uint8, reg uint16) (uint16, error) {
	v, err := bus.Read(phyAddr, 0, reg)
	if err != nil {
		return v, &BusError{Op: "read", PHYAddr: phyAddr, Reg: reg, Err: err}
	}
	return v, nil
}

// Write writes a Clause 22 register and wraps any failure in a [BusError].
func Write(bus MDIOBus, phyAddr uint8, reg, value uint16) error {
	err := bus.Write(phyAddr, 0, reg, value)
	if err != nil {
		return &BusError{Op: "write", PHYAddr: phyAddr, Reg: reg, Err: err}
	}
	return nil
}
