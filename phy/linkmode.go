package phy

import "strconv"

// LinkMode represents the negotiated/force-set Ethernet link speed and duplex mode.
//
// Naming convention:
//   - H/HDX: Half-duplex (one direction at a time)
//   - F/FDX: Full-duplex (simultaneous bidirectional)
//   - T4: 100BASE-T4 (100Mbps over 4 twisted pairs, legacy)
type LinkMode uint8

const (
	LinkDown    LinkMode = iota // down
	Link10HDX                   // 10M-H
	Link10FDX                   // 10M-F
	Link100HDX                  // 100M-H
	Link100FDX                  // 100M-F
	Link100T4                   // 100M-T4
	Link1000HDX                 // 1000M-H
	Link1000FDX                 // 1000M-F
)

var linkModeNames = [...]string{
	LinkDown:    "down",
	Link10HDX:   "10M-H",
	Link10FDX:   "10M-F",
	Link100HDX:  "100M-H",
	Link100FDX:  "100M-F",
	Link100T4:   "100M-T4",
	Link1000HDX: "1000M-H",
	Link1000FDX: "1000M-F",
}

func (lm LinkMode) String() string {
	if int(lm) < len(linkModeNames) {
		return linkModeNames[lm]
	}
	return "LinkMode(" + strconv.Itoa(int(lm)) + ")"
}

// SpeedMbps returns the link speed in megabits per second.
func (lm LinkMode) SpeedMbps() int {
	switch lm {
	case Link10HDX, Link10FDX:
		return 10
	case Link100HDX, Link100FDX, Link100T4:
		return 100
	case Link1000HDX, Link1000FDX:
		return 1000
	default:
		return 0
	}
}

// IsFullDuplex returns true if the link mode is full duplex.
func (lm LinkMode) IsFullDuplex() bool {
	return lm == Link10FDX || lm == Link100FDX || lm == Link1000FDX
}

// LinkModes is a set of link modes and port features. It is used both as the
// capability mask of a PHY (what it supports) and as the advertisement mask
// (what it offers to the link partner during auto-negotiation).
type LinkModes uint32

const (
	Mode10Half LinkModes = 1 << iota
	Mode10Full
	Mode100Half
	Mode100Full
	Mode1000Half
	Mode1000Full
	ModeAutoneg
	ModeTP
	ModeAUI
	ModeMII
	ModeFibre
	ModeBNC
	ModePause
	ModeAsymPause

	ModesSpeed           = Mode10Half | Mode10Full | Mode100Half | Mode100Full | Mode1000Half | Mode1000Full
	ModesGigabit         = Mode1000Half | Mode1000Full
	ModesPause           = ModePause | ModeAsymPause
	ModesBasic           = Mode10Half | Mode10Full | Mode100Half | Mode100Full | ModeAutoneg | ModeTP | ModeMII
	ModesGigabitFeatures = ModesBasic | ModesGigabit
)

var linkModesNames = [...]string{
	"10baseT/Half", "10baseT/Full", "100baseT/Half", "100baseT/Full",
	"1000baseT/Half", "1000baseT/Full", "Autoneg", "TP", "AUI", "MII",
	"FIBRE", "BNC", "Pause", "Asym_Pause",
}

// Has reports whether all modes in m are present in lm.
func (lm LinkModes) Has(m LinkModes) bool { return lm&m == m }

// HasAny reports whether any of the modes in m is present in lm.
func (lm LinkModes) HasAny(m LinkModes) bool { return lm&m != 0 }

// AppendNames appends the names of the set modes to dst separated by spaces.
func (lm LinkModes) AppendNames(dst []byte) []byte {
	first := true
	for i, name := range linkModesNames {
		if lm&(1<<i) == 0 {
			continue
		}
		if !first {
			dst = append(dst, ' ')
		}
		first = false
		dst = append(dst, name...)
	}
	return dst
}

func (lm LinkModes) String() string { return string(lm.AppendNames(nil)) }

// ParseLinkMode returns the single-mode bitmask with the given name as printed by
// [LinkModes.String] or a short form such as "1000full" or "pause".
func ParseLinkMode(name string) (LinkModes, bool) {
	for i, n := range linkModesNames {
		if n == name {
			return 1 << i, true
		}
	}
	switch name {
	case "10half":
		return Mode10Half, true
	case "10full":
		return Mode10Full, true
	case "100half":
		return Mode100Half, true
	case "100full":
		return Mode100Full, true
	case "1000half":
		return Mode1000Half, true
	case "1000full":
		return Mode1000Full, true
	case "autoneg":
		return ModeAutoneg, true
	case "pause":
		return ModePause, true
	case "asympause", "asym_pause":
		return ModeAsymPause, true
	}
	return 0, false
}

// ANAR returns the auto-negotiation advertisement register bits for the
// 10/100 speed and pause modes in lm. Selector bits are not included.
func (lm LinkModes) ANAR() (a ANAR) {
	if lm&Mode10Half != 0 {
		a |= ANAR10Half
	}
	if lm&Mode10Full != 0 {
		a |= ANAR10Full
	}
	if lm&Mode100Half != 0 {
		a |= ANAR100Half
	}
	if lm&Mode100Full != 0 {
		a |= ANAR100Full
	}
	if lm&ModePause != 0 {
		a |= ANARPause
	}
	if lm&ModeAsymPause != 0 {
		a |= ANARPauseAsym
	}
	return a
}

// GBCR returns the 1000BASE-T control register advertisement bits for lm.
func (lm LinkModes) GBCR() (g GBCR) {
	if lm&Mode1000Half != 0 {
		g |= GBCR1000Half
	}
	if lm&Mode1000Full != 0 {
		g |= GBCR1000Full
	}
	return g
}

// ModesFromANAR returns the link modes advertised in an ANAR or ANLPAR value.
func ModesFromANAR(a ANAR) (lm LinkModes) {
	if a&ANAR10Half != 0 {
		lm |= Mode10Half
	}
	if a&ANAR10Full != 0 {
		lm |= Mode10Full
	}
	if a&ANAR100Half != 0 {
		lm |= Mode100Half
	}
	if a&ANAR100Full != 0 {
		lm |= Mode100Full
	}
	if a&ANARPause != 0 {
		lm |= ModePause
	}
	if a&ANARPauseAsym != 0 {
		lm |= ModeAsymPause
	}
	return lm
}

// ModesFromBMSR returns the abilities a PHY declares in its basic status register.
func ModesFromBMSR(s BMSR) (lm LinkModes) {
	if s&BMSRANCap != 0 {
		lm |= ModeAutoneg
	}
	if s&BMSR100Full != 0 {
		lm |= Mode100Full
	}
	if s&BMSR100Half != 0 {
		lm |= Mode100Half
	}
	if s&BMSR10Full != 0 {
		lm |= Mode10Full
	}
	if s&BMSR10Half != 0 {
		lm |= Mode10Half
	}
	return lm
}

// ModesFromESTATUS returns the 1000BASE-T abilities in the extended status register.
func ModesFromESTATUS(es ESTATUS) (lm LinkModes) {
	if es&ESTATUS1000TFull != 0 {
		lm |= Mode1000Full
	}
	if es&ESTATUS1000THalf != 0 {
		lm |= Mode1000Half
	}
	return lm
}

// Duplex is the duplex setting of a link.
type Duplex uint8

const (
	DuplexHalf Duplex = iota
	DuplexFull
)

func (d Duplex) String() string {
	if d == DuplexFull {
		return "full"
	}
	return "half"
}

// Status is the decoded state of a link as read from the PHY.
type Status struct {
	Link      bool
	Speed     int // Mbps.
	Duplex    Duplex
	Pause     bool // Link partner supports symmetric pause.
	AsymPause bool // Link partner supports asymmetric pause.
}

// DownStatus returns the status reported for a link that is down: 10Mbps half duplex, no pause.
func DownStatus() Status {
	return Status{Speed: 10, Duplex: DuplexHalf}
}

// Mode returns the link mode of the status or [LinkDown] if there is no link.
func (s Status) Mode() LinkMode {
	if !s.Link {
		return LinkDown
	}
	full := s.Duplex == DuplexFull
	switch s.Speed {
	case 1000:
		return pickDuplex(full, Link1000HDX, Link1000FDX)
	case 100:
		return pickDuplex(full, Link100HDX, Link100FDX)
	default:
		return pickDuplex(full, Link10HDX, Link10FDX)
	}
}

// AppendText appends a human readable representation of the status to dst.
func (s Status) AppendText(dst []byte) []byte {
	if !s.Link {
		return append(dst, "link down"...)
	}
	dst = append(dst, "link up "...)
	dst = strconv.AppendInt(dst, int64(s.Speed), 10)
	dst = append(dst, "Mbps "...)
	dst = append(dst, s.Duplex.String()...)
	if s.Pause {
		dst = append(dst, " pause"...)
	}
	if s.AsymPause {
		dst = append(dst, " asym-pause"...)
	}
	return dst
}

func (s Status) String() string { return string(s.AppendText(nil)) }
