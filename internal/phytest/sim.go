// Package phytest provides an in-memory MARS PHY for testing code that drives
// it over a phy.MDIOBus.
package phytest

import (
	"errors"
	"strconv"

	"github.com/soypat/ctcphy/ethernet"
)

// Page is a register bank of the simulated PHY.
type Page uint8

const (
	PageCopper Page = iota
	PageSerDes
)

// Standard register addresses understood by the simulator.
const (
	RegBMCR     = 0x00
	RegBMSR     = 0x01
	RegPHYID1   = 0x02
	RegPHYID2   = 0x03
	RegANAR     = 0x04
	RegLPA      = 0x05
	RegGBCR     = 0x09
	RegMMDCtl   = 0x0d
	RegMMDData  = 0x0e
	RegESTATUS  = 0x0f
	RegSpecific = 0x11
	RegIntrMask = 0x12
	RegIntrStat = 0x13
	RegExtAddr  = 0x1e
	RegExtData  = 0x1f
)

// Extended register addresses understood by the simulator.
const (
	ExtPageSelect = 0xa000
	ExtChipConfig = 0xa001
	ExtMagicMAC2  = 0xa007
	ExtMagicMAC1  = 0xa008
	ExtMagicMAC0  = 0xa009
	ExtWOLConfig  = 0xa00a
	extGlobalBase = 0xa000
)

const (
	bmcrReset     = 0x8000
	bmcrANRestart = 0x0200
	bmsrLink      = 0x0004
	wolEnable     = 0x0008
	intrWOL       = 0x0040
	selectSerDes  = 0x0002
)

// Default register contents on both pages after New.
const (
	DefaultBMCR    = 0x1140
	DefaultBMSR    = 0x7969 // Link bit is driven by SetLink.
	DefaultANAR    = 0x01e1
	DefaultGBCR    = 0x0200
	DefaultESTATUS = 0x3000
)

var (
	errClause45 = errors.New("phytest: clause 45 access not supported")
	errNoDev    = errors.New("phytest: no device at address")
)

// OpKind distinguishes register transactions.
type OpKind uint8

const (
	OpRead OpKind = iota
	OpWrite
)

func (k OpKind) String() string {
	if k == OpWrite {
		return "W"
	}
	return "R"
}

// Op is a single register transaction seen by the simulator.
type Op struct {
	Kind    OpKind
	PHYAddr uint8
	DevAddr uint8
	Reg     uint16
	// Value is the value written or read.
	Value uint16
	// Page is the page selected when the transaction was issued.
	Page Page
	// Failed is set when [Sim.Fault] rejected the transaction.
	Failed bool
}

func (op Op) String() string {
	buf := make([]byte, 0, 24)
	buf = append(buf, op.Kind.String()...)
	buf = append(buf, " 0x"...)
	buf = strconv.AppendUint(buf, uint64(op.Reg), 16)
	buf = append(buf, "=0x"...)
	buf = strconv.AppendUint(buf, uint64(op.Value), 16)
	if op.Page == PageSerDes {
		buf = append(buf, " serdes"...)
	}
	if op.Failed {
		buf = append(buf, " FAIL"...)
	}
	return string(buf)
}

// Sim is a register level model of a MARS PHY. Standard registers are banked
// per page except for the extended address/data pair. Extended registers below
// 0xa000 are banked per page, the rest are global. It implements phy.MDIOBus.
// Sim is not safe for concurrent use.
type Sim struct {
	// Addr is the bus address the simulated PHY answers on. Other addresses read all ones.
	Addr uint8
	// Fault, if set, is called before every transaction. A non-nil error fails the
	// transaction without touching any register.
	Fault func(op Op) error
	// Log records every transaction in order.
	Log []Op

	std       [2][32]uint16
	ext       [2]map[uint16]uint16
	global    map[uint16]uint16
	extAddr   uint16
	link      [2]bool
	latchDown [2]bool
	mmdCtl    uint16
	mmdAddr   [32]uint16
	mmd       map[uint32]uint16
}

// New returns a simulated PHY at addr with identifier id and the given chip
// configuration register value. The copper page is selected and both links are down.
func New(addr uint8, id uint32, chipConfig uint16) *Sim {
	s := &Sim{
		Addr:   addr,
		global: make(map[uint16]uint16),
		mmd:    make(map[uint32]uint16),
	}
	for p := range s.std {
		s.ext[p] = make(map[uint16]uint16)
		r := &s.std[p]
		r[RegBMCR] = DefaultBMCR
		r[RegBMSR] = DefaultBMSR
		r[RegPHYID1] = uint16(id >> 16)
		r[RegPHYID2] = uint16(id)
		r[RegANAR] = DefaultANAR
		r[RegGBCR] = DefaultGBCR
		r[RegESTATUS] = DefaultESTATUS
	}
	s.global[ExtChipConfig] = chipConfig
	return s
}

// Read implements phy.MDIOBus.
func (s *Sim) Read(phyAddr, devAddr uint8, regAddr uint16) (uint16, error) {
	op := Op{Kind: OpRead, PHYAddr: phyAddr, DevAddr: devAddr, Reg: regAddr, Page: s.Page()}
	if err := s.check(&op); err != nil {
		return 0, err
	}
	if phyAddr != s.Addr {
		op.Value = 0xffff
		s.Log = append(s.Log, op)
		return 0xffff, nil
	}
	op.Value = s.read(regAddr)
	s.Log = append(s.Log, op)
	return op.Value, nil
}

// Write implements phy.MDIOBus.
func (s *Sim) Write(phyAddr, devAddr uint8, regAddr, value uint16) error {
	op := Op{Kind: OpWrite, PHYAddr: phyAddr, DevAddr: devAddr, Reg: regAddr, Value: value, Page: s.Page()}
	if err := s.check(&op); err != nil {
		return err
	}
	s.Log = append(s.Log, op)
	if phyAddr != s.Addr {
		return nil
	}
	s.write(regAddr, value)
	return nil
}

func (s *Sim) check(op *Op) error {
	if op.DevAddr != 0 {
		op.Failed = true
		s.Log = append(s.Log, *op)
		return errClause45
	} else if op.Reg > 31 {
		op.Failed = true
		s.Log = append(s.Log, *op)
		return errNoDev
	}
	if s.Fault != nil {
		if err := s.Fault(*op); err != nil {
			op.Failed = true
			s.Log = append(s.Log, *op)
			return err
		}
	}
	return nil
}

func (s *Sim) read(reg uint16) uint16 {
	p := s.Page()
	switch reg {
	case RegExtAddr:
		return s.extAddr
	case RegExtData:
		return s.Ext(p, s.extAddr)
	case RegBMSR:
		v := s.std[p][RegBMSR] &^ bmsrLink
		if s.link[p] && !s.latchDown[p] {
			v |= bmsrLink
		}
		s.latchDown[p] = false
		return v
	case RegIntrStat:
		v := s.std[p][RegIntrStat]
		s.std[p][RegIntrStat] = 0
		return v
	case RegMMDData:
		dev := s.mmdCtl & 0x1f
		if s.mmdCtl&0xc000 == 0 {
			return s.mmdAddr[dev]
		}
		return s.mmd[uint32(dev)<<16|uint32(s.mmdAddr[dev])]
	}
	return s.std[p][reg]
}

func (s *Sim) write(reg, value uint16) {
	p := s.Page()
	switch reg {
	case RegExtAddr:
		s.extAddr = value
	case RegExtData:
		s.SetExt(p, s.extAddr, value)
	case RegBMCR:
		s.std[p][RegBMCR] = value &^ (bmcrReset | bmcrANRestart)
	case RegBMSR, RegPHYID1, RegPHYID2, RegESTATUS, RegIntrStat:
		// Read only.
	case RegMMDCtl:
		s.mmdCtl = value
	case RegMMDData:
		dev := s.mmdCtl & 0x1f
		if s.mmdCtl&0xc000 == 0 {
			s.mmdAddr[dev] = value
		} else {
			s.mmd[uint32(dev)<<16|uint32(s.mmdAddr[dev])] = value
		}
	default:
		s.std[p][reg] = value
	}
}

// Page returns the page currently selected by the page select register.
func (s *Sim) Page() Page {
	if s.global[ExtPageSelect]&selectSerDes != 0 {
		return PageSerDes
	}
	return PageCopper
}

// Reg returns a standard register on page without side effects.
func (s *Sim) Reg(p Page, reg uint16) uint16 {
	if reg == RegBMSR {
		v := s.std[p][RegBMSR] &^ bmsrLink
		if s.link[p] {
			v |= bmsrLink
		}
		return v
	}
	return s.std[p][reg&31]
}

// SetReg sets a standard register on page without side effects.
func (s *Sim) SetReg(p Page, reg, value uint16) {
	s.std[p][reg&31] = value
}

// Ext returns an extended register. Addresses at or above 0xa000 ignore p.
func (s *Sim) Ext(p Page, addr uint16) uint16 {
	if addr >= extGlobalBase {
		return s.global[addr]
	}
	return s.ext[p][addr]
}

// SetExt sets an extended register. Addresses at or above 0xa000 ignore p.
func (s *Sim) SetExt(p Page, addr, value uint16) {
	if addr >= extGlobalBase {
		s.global[addr] = value
		return
	}
	s.ext[p][addr] = value
}

// MMD returns a register of MMD device dev written through registers 0x0d and 0x0e.
func (s *Sim) MMD(dev uint8, addr uint16) uint16 {
	return s.mmd[uint32(dev&0x1f)<<16|uint32(addr)]
}

// SetLink sets the link state of the medium behind page. A link drop is
// latched in the status register until it is read.
func (s *Sim) SetLink(p Page, up bool) {
	if s.link[p] && !up {
		s.latchDown[p] = true
	}
	s.link[p] = up
}

// RaiseEvents sets bits in the copper interrupt status register.
func (s *Sim) RaiseEvents(bits uint16) {
	s.std[PageCopper][RegIntrStat] |= bits
}

// MagicMAC returns the magic packet target stored in the WOL address registers.
func (s *Sim) MagicMAC() (mac [6]byte) {
	regs := [3]uint16{ExtMagicMAC2, ExtMagicMAC1, ExtMagicMAC0}
	for i, r := range regs {
		v := s.global[r]
		mac[2*i] = byte(v >> 8)
		mac[2*i+1] = byte(v)
	}
	return mac
}

// Receive delivers a frame, FCS included, to the simulated PHY and reports
// whether it woke up. A wake requires magic packet wake to be enabled and a
// magic packet for the stored address. The WOL interrupt is raised when
// unmasked.
func (s *Sim) Receive(frame []byte) bool {
	if s.global[ExtWOLConfig]&wolEnable == 0 || !ethernet.CheckFCS(frame) {
		return false
	}
	efrm, err := ethernet.NewFrame(frame[:len(frame)-ethernet.SizeFCS])
	if err != nil || efrm.Validate() != nil {
		return false
	}
	if !ethernet.IsMagicPacket(efrm.Payload(), s.MagicMAC()) {
		return false
	}
	if s.std[PageCopper][RegIntrMask]&intrWOL != 0 {
		s.RaiseEvents(intrWOL)
	}
	return true
}

// ResetLog discards the transaction log.
func (s *Sim) ResetLog() { s.Log = s.Log[:0] }

// Writes returns the values written to standard register reg on page, in order.
func (s *Sim) Writes(p Page, reg uint16) (values []uint16) {
	for _, op := range s.Log {
		if op.Kind == OpWrite && !op.Failed && op.Reg == reg && op.Page == p {
			values = append(values, op.Value)
		}
	}
	return values
}

// ExtWrites returns the values written to extended register addr, in order.
// The returned pages are the pages selected at the time of each write.
func (s *Sim) ExtWrites(addr uint16) (values []uint16, pages []Page) {
	latched := uint16(0)
	for _, op := range s.Log {
		if op.Kind != OpWrite || op.Failed {
			continue
		}
		switch op.Reg {
		case RegExtAddr:
			latched = op.Value
		case RegExtData:
			if latched == addr {
				values = append(values, op.Value)
				pages = append(pages, op.Page)
			}
		}
	}
	return values, pages
}

// FailAfter returns a fault function that fails every transaction after the first n with err.
func FailAfter(n int, err error) func(Op) error {
	count := 0
	return func(Op) error {
		count++
		if count > n {
			return err
		}
		return nil
	}
}

// FailNth returns a fault function that fails only the nth transaction matching
// match (counted from 1) with err.
func FailNth(n int, match func(Op) bool, err error) func(Op) error {
	count := 0
	return func(op Op) error {
		if match != nil && !match(op) {
			return nil
		}
		count++
		if count == n {
			return err
		}
		return nil
	}
}
