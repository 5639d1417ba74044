package mars

import (
	"strconv"

	"github.com/soypat/ctcphy/phy"
)

// Standard space vendor registers. They alias across pages.
const (
	regExtAddr        = 0x1e // Indirect extended address.
	regExtData        = 0x1f // Indirect extended data.
	regSpecificStatus = 0x11 // PHY specific status (speed/duplex resolution).
	regIntrMask       = 0x12 // Interrupt enable. Also carries the WOL interrupt source bit.
	regIntrEvent      = 0x13 // Interrupt status, cleared on read.
)

// Extended space registers. Addresses at or above 0xa000 are global to the chip,
// addresses below are scoped to the selected page.
const (
	extPageSelect   uint16 = 0xa000
	extChipConfig   uint16 = 0xa001
	extMagicMAC2    uint16 = 0xa007 // Bytes 0 and 1 of the magic packet target.
	extMagicMAC1    uint16 = 0xa008 // Bytes 2 and 3.
	extMagicMAC0    uint16 = 0xa009 // Bytes 4 and 5.
	extWOLConfig    uint16 = 0xa00a
	extRGMIIClock   uint16 = 0x000c
	extSleepControl uint16 = 0x0027
	extSDSLinkTimer uint16 = 0x00a5
)

const (
	pageSelectSerDes uint16 = 0x2 // Page selector bit, set when the SerDes bank is selected.
	chipModeMask     uint16 = 0x7
)

// Space identifies how a register is addressed.
type Space uint8

const (
	// SpaceStandard registers are addressed directly on the bus (0-31).
	SpaceStandard Space = iota
	// SpaceExtended registers are reached through the indirect address/data pair.
	SpaceExtended
)

// Page selects which physical sub-interface the standard registers address.
type Page uint8

const (
	PageCopper Page = iota // UTP facing register bank.
	PageSerDes             // Fiber/serial link facing register bank.
)

func (p Page) String() string {
	if p == PageSerDes {
		return "serdes"
	}
	return "copper"
}

// selectValue returns the page selector value that selects p.
func (p Page) selectValue() uint16 {
	if p == PageSerDes {
		return pageSelectSerDes
	}
	return 0
}

func pageFromSelect(v uint16) Page {
	if v&pageSelectSerDes != 0 {
		return PageSerDes
	}
	return PageCopper
}

// SpecificStatus is the vendor PHY specific status register at 0x11.
type SpecificStatus uint16

const (
	SpecSpeed1000  SpecificStatus = 0x8000
	SpecSpeed100   SpecificStatus = 0x4000
	SpecFullDuplex SpecificStatus = 0x2000
)

// Decode returns speed and duplex encoded in the specific status register.
// Bit 15 takes priority, then bit 14; bit 13 selects full duplex for 100 and 10Mbps.
func (ss SpecificStatus) Decode() (speed int, duplex phy.Duplex) {
	speed, duplex = 10, phy.DuplexHalf
	switch {
	case ss&SpecSpeed1000 != 0:
		speed, duplex = 1000, phy.DuplexFull
	case ss&SpecSpeed100 != 0:
		speed = 100
		if ss&SpecFullDuplex != 0 {
			duplex = phy.DuplexFull
		}
	case ss&SpecFullDuplex != 0:
		duplex = phy.DuplexFull
	}
	return speed, duplex
}

// IntrEvents holds interrupt mask and status bits of registers 0x12 and 0x13.
type IntrEvents uint16

const (
	IntrWOL           IntrEvents = 1 << 6
	IntrLinkUp        IntrEvents = 1 << 10
	IntrLinkDown      IntrEvents = 1 << 11
	IntrDuplexChanged IntrEvents = 1 << 13
	IntrSpeedChanged  IntrEvents = 1 << 14

	// IntrLinkEvents is written to the mask register when interrupts are enabled.
	IntrLinkEvents = IntrSpeedChanged | IntrDuplexChanged | IntrLinkDown | IntrLinkUp
)

func (ev IntrEvents) String() string {
	if ev == 0 {
		return "none"
	}
	var buf []byte
	add := func(bit IntrEvents, name string) {
		if ev&bit == 0 {
			return
		}
		if len(buf) > 0 {
			buf = append(buf, '|')
		}
		buf = append(buf, name...)
		ev &^= bit
	}
	add(IntrSpeedChanged, "speed")
	add(IntrDuplexChanged, "duplex")
	add(IntrLinkDown, "link-down")
	add(IntrLinkUp, "link-up")
	add(IntrWOL, "wol")
	if ev != 0 {
		if len(buf) > 0 {
			buf = append(buf, '|')
		}
		buf = append(buf, "0x"...)
		buf = strconv.AppendUint(buf, uint64(ev), 16)
	}
	return string(buf)
}

// regWrite is a single register programming step of a chip variant.
type regWrite struct {
	space Space
	page  Page
	addr  uint16
	value uint16
	what  string
}

// Variant describes a member of the MARS chip family.
type Variant struct {
	ID   uint32
	Name string
	// VendorStatus is set when link status is decoded from the specific status
	// register. Otherwise only standard registers are used.
	VendorStatus bool
	// WOL is set when the chip supports magic packet wake.
	WOL  bool
	init []regWrite
}

// IDMask is applied to the PHY identifier before matching variants.
const IDMask uint32 = 0xffffffff

const (
	IDMARS1S   uint32 = 0x01e04013
	IDMARS1SV1 uint32 = 0x00782013
	IDMARS1P   uint32 = 0x01e04011
	IDMARS1PV1 uint32 = 0x00782011
)

var initLinkTimer = regWrite{space: SpaceExtended, page: PageSerDes, addr: extSDSLinkTimer, value: 0x5, what: "serdes link timer 2.6ms"}

var init1P = []regWrite{
	{space: SpaceExtended, page: PageCopper, addr: extRGMIIClock, value: 0x8051, what: "rgmii clock 2.5MHz on link down"},
	{space: SpaceExtended, page: PageCopper, addr: extSleepControl, value: 0x2029, what: "disable sleep mode"},
	// MMD7 0x8001 bit6 cleared: do not respond to MDIO accesses on PHYAD0.
	{space: SpaceStandard, page: PageCopper, addr: phy.AddrMMDControl, value: 0x0007, what: "mmd7 address"},
	{space: SpaceStandard, page: PageCopper, addr: phy.AddrMMDData, value: 0x8001, what: "mmd7 reg 0x8001"},
	{space: SpaceStandard, page: PageCopper, addr: phy.AddrMMDControl, value: 0x4007, what: "mmd7 data"},
	{space: SpaceStandard, page: PageCopper, addr: phy.AddrMMDData, value: 0x003f, what: "disable phyad0 response"},
	initLinkTimer,
}

var variants = [...]Variant{
	{ID: IDMARS1S, Name: "CTC MARS1S", VendorStatus: true, WOL: true, init: []regWrite{initLinkTimer}},
	{ID: IDMARS1SV1, Name: "CTC MARS1S_V1", VendorStatus: true, WOL: true, init: []regWrite{initLinkTimer}},
	{ID: IDMARS1P, Name: "CTC MARS1P", init: init1P},
	{ID: IDMARS1PV1, Name: "CTC MARS1P_V1", init: init1P},
}

// LookupVariant returns the variant matching the PHY identifier.
func LookupVariant(id uint32) (*Variant, bool) {
	for i := range variants {
		if variants[i].ID&IDMask == id&IDMask {
			return &variants[i], true
		}
	}
	return nil, false
}

// Variants returns the chip variants known to the driver.
func Variants() []Variant {
	return variants[:]
}
