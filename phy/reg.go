package phy

// See https://github.com/PieVo/mdio-tool/blob/master/mii.h

// Registers 0..15 as defined by 802.3.
const (
	// First two registers are BMCR and BMSR. See below.

	AddrPHYID1 = 0x02 // PHY Identifier 1, OUI bits 3-18.
	AddrPHYID2 = 0x03 // PHY Identifier 2, OUI bits 19-24, model and revision.

	AddrMMDControl = 0x0d // MMD access control (Clause 22 to 45 bridge).
	AddrMMDData    = 0x0e // MMD access address/data.
)

// BMCR represents the Basic Mode Control Register at address 0x00.
// Reference: IEEE 802.3 Clause 22.2.4.1
type BMCR uint16

const (
	AddrBMCR = 0x00 // Address of Basic Mode Control Register.

	BMCRSpeed1000  BMCR = 0x0040 // MSB of Speed (1000Mbps)
	BMCRCollision  BMCR = 0x0080 // Collision test
	BMCRFullDuplex BMCR = 0x0100 // Full duplex mode
	BMCRANRestart  BMCR = 0x0200 // Restart auto-negotiation
	BMCRIsolate    BMCR = 0x0400 // Isolate PHY from MII
	BMCRPowerDown  BMCR = 0x0800 // Power down PHY
	BMCRANEnable   BMCR = 0x1000 // Enable auto-negotiation
	BMCRSpeed100   BMCR = 0x2000 // Select 100Mbps
	BMCRLoopback   BMCR = 0x4000 // Enable TXD loopback
	BMCRReset      BMCR = 0x8000 // Software reset (self-clearing)
)

// ForcedMode returns the link mode selected by the speed and duplex bits.
// The result is only meaningful when auto-negotiation is disabled.
func (ctl BMCR) ForcedMode() LinkMode {
	full := ctl&BMCRFullDuplex != 0
	switch {
	case ctl&BMCRSpeed1000 != 0:
		return pickDuplex(full, Link1000HDX, Link1000FDX)
	case ctl&BMCRSpeed100 != 0:
		return pickDuplex(full, Link100HDX, Link100FDX)
	default:
		return pickDuplex(full, Link10HDX, Link10FDX)
	}
}

func pickDuplex(full bool, half, fdx LinkMode) LinkMode {
	if full {
		return fdx
	}
	return half
}

// BMSR represents the Basic Mode Status Register at address 0x01.
// Reference: IEEE 802.3 Clause 22.2.4.2
type BMSR uint16

const (
	AddrBMSR = 0x01 // Address of Basic Mode Status Register.

	BMSRExtCap      BMSR = 0x0001 // Extended register capability
	BMSRJabber      BMSR = 0x0002 // Jabber detected
	BMSRLinkStatus  BMSR = 0x0004 // Link status (1=up)
	BMSRANCap       BMSR = 0x0008 // Auto-negotiation capable
	BMSRRemoteFault BMSR = 0x0010 // Remote fault detected
	BMSRANComplete  BMSR = 0x0020 // Auto-negotiation complete
	BMSRNoPreamble  BMSR = 0x0040 // Preamble suppression capable
	BMSRExtStatus   BMSR = 0x0100 // Extended status in register 15
	BMSR100Half2    BMSR = 0x0200 // 100BASE-T2 half-duplex capable
	BMSR100Full2    BMSR = 0x0400 // 100BASE-T2 full-duplex capable
	BMSR10Half      BMSR = 0x0800 // 10Mbps half-duplex capable
	BMSR10Full      BMSR = 0x1000 // 10Mbps full-duplex capable
	BMSR100Half     BMSR = 0x2000 // 100Mbps half-duplex capable
	BMSR100Full     BMSR = 0x4000 // 100Mbps full-duplex capable
	BMSR100Base4    BMSR = 0x8000 // 100BASE-T4 capable
)

// LinkUp reports the link status bit. The bit is latched low: the first read after
// a link failure returns false even if the link has since recovered.
func (s BMSR) LinkUp() bool { return s&BMSRLinkStatus != 0 }

// AutoNegotiationComplete reports whether the auto-negotiation process has completed.
func (s BMSR) AutoNegotiationComplete() bool { return s&BMSRANComplete != 0 }

// HasExtendedStatus reports whether register 15 holds gigabit capabilities.
// Per 802.3-2008, 22.2.4.2.16 all 1000Mbit/s capable PHYs set this bit.
func (s BMSR) HasExtendedStatus() bool { return s&BMSRExtStatus != 0 }

// ANAR represents the Auto-Negotiation Advertisement Register value at address 0x04.
// ANLPAR (Link Partner Ability Register at 0x05) shares the same bit layout.
// Reference: IEEE 802.3 Clause 28.2.4.1
type ANAR uint16

const (
	AddrANAR   = 0x04 // Address of Auto-Negotiation Advertisement Register.
	AddrANLPAR = 0x05 // Address of Auto-Negotiation Link Partner Advertisement Register.
	AddrANER   = 0x06 // Address of Auto-Negotiation Error Register.

	ANARSelector     ANAR = 0x001f // Protocol selector mask
	ANARSelector8023 ANAR = 0x0001 // IEEE 802.3 selector value (required)
	ANAR10Half       ANAR = 0x0020 // 10BASE-T half-duplex
	ANAR10Full       ANAR = 0x0040 // 10BASE-T full-duplex
	ANAR100Half      ANAR = 0x0080 // 100BASE-TX half-duplex
	ANAR100Full      ANAR = 0x0100 // 100BASE-TX full-duplex
	ANAR100BaseT4    ANAR = 0x0200 // 100BASE-T4
	ANARPause        ANAR = 0x0400 // Pause capability
	ANARPauseAsym    ANAR = 0x0800 // Asymmetric pause
	ANARRemoteFault  ANAR = 0x2000 // Remote fault
	ANARAck          ANAR = 0x4000 // Acknowledge (ANLPAR only)
	ANARNextPage     ANAR = 0x8000 // Next page capable

	// Convenience masks
	ANARSpeedMask ANAR = ANAR10Half | ANAR10Full | ANAR100Half | ANAR100Full | ANAR100BaseT4
	ANARPauseMask ANAR = ANARPause | ANARPauseAsym
)

// NewANAR returns an ANAR with the IEEE 802.3 selector set.
// Always start with this when building an advertisement value.
func NewANAR() ANAR {
	return ANARSelector8023
}

// LinkMode returns the highest priority LinkMode from the ANAR speed bits.
// Priority order per IEEE 802.3 Annex 28B.3.
// Returns LinkDown if no speed bits are set.
func (a ANAR) LinkMode() LinkMode {
	switch {
	case a&ANAR100Full != 0:
		return Link100FDX
	case a&ANAR100BaseT4 != 0:
		return Link100T4
	case a&ANAR100Half != 0:
		return Link100HDX
	case a&ANAR10Full != 0:
		return Link10FDX
	case a&ANAR10Half != 0:
		return Link10HDX
	default:
		return LinkDown
	}
}

// GBCR represents the 1000BASE-T Control Register (MII_CTRL1000) at address 0x09.
// Reference: IEEE 802.3 Clause 40.5.1.1
type GBCR uint16

const (
	AddrGBCR = 0x09 // Address of 1000BASE-T Control Register.

	GBCR1000Half GBCR = 0x0100 // Advertise 1000BASE-T half duplex
	GBCR1000Full GBCR = 0x0200 // Advertise 1000BASE-T full duplex
	GBCRPortType GBCR = 0x0400 // Multiport device preferred
	GBCRMaster   GBCR = 0x0800 // Configure as master (when manual)
	GBCRManualMS GBCR = 0x1000 // Manual master/slave configuration

	GBCRSpeedMask GBCR = GBCR1000Half | GBCR1000Full
)

// GBSR represents the 1000BASE-T Status Register (MII_STAT1000) at address 0x0a.
// Link partner gigabit abilities sit two bits above their GBCR counterparts.
type GBSR uint16

const (
	AddrGBSR = 0x0a // Address of 1000BASE-T Status Register.

	GBSRPartner1000Half GBSR = 0x0400 // Link partner 1000BASE-T half duplex capable
	GBSRPartner1000Full GBSR = 0x0800 // Link partner 1000BASE-T full duplex capable
	GBSRMasterSlaveRes  GBSR = 0x4000 // Local PHY resolved to master
	GBSRMasterSlaveErr  GBSR = 0x8000 // Master/slave configuration fault
)

// ESTATUS represents the Extended Status Register at address 0x0f.
// Reference: IEEE 802.3 Clause 22.2.4.4
type ESTATUS uint16

const (
	AddrESTATUS = 0x0f // Address of Extended Status Register.

	ESTATUS1000THalf ESTATUS = 0x1000 // 1000BASE-T half duplex capable
	ESTATUS1000TFull ESTATUS = 0x2000 // 1000BASE-T full duplex capable
	ESTATUS1000XHalf ESTATUS = 0x4000 // 1000BASE-X half duplex capable
	ESTATUS1000XFull ESTATUS = 0x8000 // 1000BASE-X full duplex capable
)
