package mars

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/soypat/ctcphy"
	"github.com/soypat/ctcphy/internal/phytest"
	"github.com/soypat/ctcphy/phy"
)

const (
	chipUTP   = 0
	chipFiber = 1
	chipCombo = 2
)

func TestConfigAnegAdvertisement(t *testing.T) {
	d, sim := newTestDevice(t, IDMARS1S, chipUTP)
	d.SetAdvertising(phy.Mode100Full | phy.Mode1000Full | phy.ModePause)
	err := d.ConfigAneg()
	if err != nil {
		t.Fatal(err)
	}
	anar := sim.Reg(phytest.PageCopper, phy.AddrANAR)
	if anar != uint16(phy.ANARSelector8023|phy.ANAR100Full|phy.ANARPause) {
		t.Errorf("ANAR %#x", anar)
	}
	gbcr := sim.Reg(phytest.PageCopper, phy.AddrGBCR)
	if gbcr != uint16(phy.GBCR1000Full) {
		t.Errorf("GBCR %#x", gbcr)
	}
	ctl := sim.Writes(phytest.PageCopper, phy.AddrBMCR)
	if len(ctl) != 1 {
		t.Fatalf("expected one BMCR write, got %#x", ctl)
	}
	if phy.BMCR(ctl[0])&(phy.BMCRANEnable|phy.BMCRANRestart) != phy.BMCRANEnable|phy.BMCRANRestart {
		t.Errorf("restart not requested: BMCR %#x", ctl[0])
	}
}

func TestConfigAnegNoChange(t *testing.T) {
	d, sim := newTestDevice(t, IDMARS1S, chipUTP)
	err := d.ConfigAneg()
	if err != nil {
		t.Fatal(err)
	}
	sim.ResetLog()
	// Same advertisement, negotiation enabled and not isolated: no restart.
	err = d.ConfigAneg()
	if err != nil {
		t.Fatal(err)
	}
	if ctl := sim.Writes(phytest.PageCopper, phy.AddrBMCR); len(ctl) != 0 {
		t.Errorf("unexpected restart %#x", ctl)
	}
	if w := sim.Writes(phytest.PageCopper, phy.AddrANAR); len(w) != 0 {
		t.Errorf("unchanged ANAR rewritten: %#x", w)
	}
	// GBCR is written unconditionally.
	if w := sim.Writes(phytest.PageCopper, phy.AddrGBCR); len(w) != 1 {
		t.Errorf("expected one GBCR write, got %#x", w)
	}

	for _, ctl := range []phy.BMCR{
		// Negotiation disabled.
		phy.BMCRFullDuplex | phy.BMCRSpeed1000,
		// Isolated.
		phy.BMCRANEnable | phy.BMCRIsolate | phy.BMCRFullDuplex | phy.BMCRSpeed1000,
	} {
		sim.SetReg(phytest.PageCopper, phy.AddrBMCR, uint16(ctl))
		sim.ResetLog()
		err = d.ConfigAneg()
		if err != nil {
			t.Fatal(err)
		}
		w := sim.Writes(phytest.PageCopper, phy.AddrBMCR)
		if len(w) != 1 {
			t.Fatalf("BMCR %#x: expected restart, got writes %#x", ctl, w)
		}
		got := phy.BMCR(w[0])
		if got&phy.BMCRANEnable == 0 || got&phy.BMCRANRestart == 0 || got&phy.BMCRIsolate != 0 {
			t.Errorf("BMCR %#x: restart wrote %#x", ctl, got)
		}
	}
}

func TestConfigAnegSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const allModes = phy.ModesGigabitFeatures | phy.ModesPause | phy.ModeFibre
	for i := 0; i < 200; i++ {
		supported := phy.LinkModes(rng.Uint32())&allModes | phy.ModeTP
		sim := newSim(IDMARS1S, chipUTP)
		d, err := Probe(sim, testAddr, Config{Supported: supported})
		if err != nil {
			t.Fatal(err)
		}
		err = d.ConfigInit()
		if err != nil {
			t.Fatal(err)
		}
		if d.Advertising()&^d.Supported() != 0 {
			t.Fatalf("after init advertising %q not subset of %q", d.Advertising(), d.Supported())
		}
		if d.Supported()&^supported != 0 {
			t.Fatalf("supported %q grew beyond host mask %q", d.Supported(), supported)
		}
		d.SetAdvertising(phy.LinkModes(rng.Uint32()) & allModes)
		err = d.ConfigAneg()
		if err != nil {
			t.Fatal(err)
		}
		if d.Advertising()&^d.Supported() != 0 {
			t.Fatalf("advertising %q not subset of %q", d.Advertising(), d.Supported())
		}
		anar := phy.ANAR(sim.Reg(phytest.PageCopper, phy.AddrANAR))
		if phy.ModesFromANAR(anar)&^d.Supported() != 0 {
			t.Fatalf("ANAR %#x advertises unsupported modes (supported %q)", anar, d.Supported())
		}
		gbcr := phy.GBCR(sim.Reg(phytest.PageCopper, phy.AddrGBCR))
		if gbcr&phy.GBCRSpeedMask != d.Advertising().GBCR() {
			t.Fatalf("GBCR %#x does not match advertising %q", gbcr, d.Advertising())
		}
	}
}

func TestConfigAnegNoGigabitSupport(t *testing.T) {
	sim := newSim(IDMARS1S, chipUTP)
	d, err := Probe(sim, testAddr, Config{Supported: phy.ModesBasic | phy.ModesPause})
	if err != nil {
		t.Fatal(err)
	}
	sim.SetReg(phytest.PageCopper, phy.AddrGBCR, uint16(phy.GBCRSpeedMask|phy.GBCRMaster))
	err = d.ConfigInit()
	if err != nil {
		t.Fatal(err)
	}
	d.SetAdvertising(phy.ModesGigabitFeatures)
	err = d.ConfigAneg()
	if err != nil {
		t.Fatal(err)
	}
	gbcr := phy.GBCR(sim.Reg(phytest.PageCopper, phy.AddrGBCR))
	if gbcr != phy.GBCRMaster {
		t.Errorf("GBCR %#x: gigabit advertised or unrelated bits lost", gbcr)
	}
}

func TestConfigAnegNoExtendedStatus(t *testing.T) {
	sim := newSim(IDMARS1S, chipUTP)
	sim.SetReg(phytest.PageCopper, phy.AddrBMSR, phytest.DefaultBMSR&^uint16(phy.BMSRExtStatus))
	d, err := Probe(sim, testAddr, Config{})
	if err != nil {
		t.Fatal(err)
	}
	err = d.ConfigInit()
	if err != nil {
		t.Fatal(err)
	}
	if d.Supported().HasAny(phy.ModesGigabit) {
		t.Errorf("gigabit supported without extended status: %q", d.Supported())
	}
	sim.ResetLog()
	err = d.ConfigAneg()
	if err != nil {
		t.Fatal(err)
	}
	if w := sim.Writes(phytest.PageCopper, phy.AddrGBCR); len(w) != 0 {
		t.Errorf("GBCR written without extended status: %#x", w)
	}
}

func TestConfigAnegForced(t *testing.T) {
	tests := []struct {
		chip   uint16
		speed  int
		duplex phy.Duplex
		want   phy.BMCR
	}{
		{chip: chipUTP, speed: 1000, duplex: phy.DuplexFull, want: phy.BMCRSpeed1000 | phy.BMCRFullDuplex},
		{chip: chipUTP, speed: 100, duplex: phy.DuplexHalf, want: phy.BMCRSpeed100},
		{chip: chipCombo, speed: 10, duplex: phy.DuplexFull, want: phy.BMCRFullDuplex},
		{chip: chipFiber, speed: 1000, duplex: phy.DuplexFull},
	}
	for _, tt := range tests {
		d, sim := newTestDevice(t, IDMARS1S, tt.chip)
		// Loopback survives the forced write, AN enable does not.
		sim.SetReg(phytest.PageCopper, phy.AddrBMCR, uint16(phy.BMCRANEnable|phy.BMCRLoopback|phy.BMCRSpeed100))
		d.status.Pause = true
		err := d.SetForced(tt.speed, tt.duplex)
		if err != nil {
			t.Fatal(err)
		}
		err = d.ConfigAneg()
		if err != nil {
			t.Fatal(err)
		}
		for _, op := range sim.Log {
			if op.Kind == phytest.OpWrite && (op.Reg == phy.AddrANAR || op.Reg == phy.AddrGBCR) {
				t.Errorf("chip %d: advertisement written in forced mode: %s", tt.chip, op)
			}
			if op.Kind == phytest.OpWrite && op.Reg == phy.AddrBMCR && phy.BMCR(op.Value)&phy.BMCRANRestart != 0 {
				t.Errorf("chip %d: restart issued in forced mode: %s", tt.chip, op)
			}
		}
		copper := sim.Writes(phytest.PageCopper, phy.AddrBMCR)
		if d.PortMode().copper() {
			want := tt.want | phy.BMCRLoopback
			if len(copper) != 1 || phy.BMCR(copper[0]) != want {
				t.Errorf("chip %d: copper BMCR writes %#x, want %#x", tt.chip, copper, want)
			}
		} else if len(copper) != 0 {
			t.Errorf("chip %d: copper BMCR written on fiber port", tt.chip)
		}
		serdes := sim.Reg(phytest.PageSerDes, phy.AddrBMCR)
		if d.PortMode().fiber() && phy.BMCR(serdes)&phy.BMCRANEnable != 0 {
			t.Errorf("chip %d: serdes AN still enabled: %#x", tt.chip, serdes)
		}
		if d.Status().Pause || d.Status().AsymPause {
			t.Errorf("chip %d: pause kept on forced link", tt.chip)
		}
	}
}

func TestSetForcedInvalid(t *testing.T) {
	d, _ := newTestDevice(t, IDMARS1S, chipUTP)
	for _, speed := range []int{0, 2500, 1001} {
		err := d.SetForced(speed, phy.DuplexFull)
		if !errors.Is(err, ctcphy.ErrInvalidConfig) {
			t.Errorf("speed %d: got %v", speed, err)
		}
	}
	if !d.Autoneg() {
		t.Error("rejected forced setting disabled autoneg")
	}
}

func TestConfigAnegMedia(t *testing.T) {
	t.Run("fiber", func(t *testing.T) {
		d, sim := newTestDevice(t, IDMARS1S, chipFiber)
		sim.SetReg(phytest.PageSerDes, phy.AddrBMCR, uint16(phy.BMCRFullDuplex|phy.BMCRSpeed1000|phy.BMCRIsolate))
		err := d.ConfigAneg()
		if err != nil {
			t.Fatal(err)
		}
		for _, op := range sim.Log {
			if op.Kind == phytest.OpWrite && op.Page == phytest.PageCopper && op.Reg < regExtAddr {
				t.Errorf("copper register written on fiber port: %s", op)
			}
		}
		w := sim.Writes(phytest.PageSerDes, phy.AddrBMCR)
		want := phy.BMCRANEnable | phy.BMCRFullDuplex | phy.BMCRSpeed1000 | phy.BMCRIsolate
		if len(w) != 1 || phy.BMCR(w[0]) != want {
			t.Errorf("serdes BMCR writes %#x, want %#x", w, want)
		}
	})
	t.Run("combo", func(t *testing.T) {
		d, sim := newTestDevice(t, IDMARS1S, chipCombo)
		err := d.ConfigAneg()
		if err != nil {
			t.Fatal(err)
		}
		copperAt, serdesAt, copperRestarts := -1, -1, 0
		for i, op := range sim.Log {
			if op.Kind != phytest.OpWrite || op.Reg != phy.AddrBMCR {
				continue
			}
			if op.Page == phytest.PageCopper {
				copperRestarts++
				if copperAt < 0 {
					copperAt = i
				}
			} else if serdesAt < 0 {
				serdesAt = i
			}
		}
		if copperAt < 0 || serdesAt < 0 || copperAt > serdesAt {
			t.Errorf("copper must be configured before serdes: copper=%d serdes=%d", copperAt, serdesAt)
		}
		if copperRestarts != 1 {
			t.Errorf("copper restarted %d times", copperRestarts)
		}
		if sim.Page() != phytest.PageCopper {
			t.Error("page not restored")
		}
	})
}

func TestNotInitialized(t *testing.T) {
	sim := newSim(IDMARS1S, chipUTP)
	d, err := Probe(sim, testAddr, Config{})
	if err != nil {
		t.Fatal(err)
	}
	sim.ResetLog()
	if err := d.ConfigAneg(); !errors.Is(err, ctcphy.ErrInvalidConfig) {
		t.Errorf("ConfigAneg: %v", err)
	}
	if _, err := d.ReadStatus(); !errors.Is(err, ctcphy.ErrInvalidConfig) {
		t.Errorf("ReadStatus: %v", err)
	}
	if err := d.Suspend(); !errors.Is(err, ctcphy.ErrInvalidConfig) {
		t.Errorf("Suspend: %v", err)
	}
	if err := d.SetWOL(true, [6]byte{1, 2, 3, 4, 5, 6}); !errors.Is(err, ctcphy.ErrInvalidConfig) {
		t.Errorf("SetWOL: %v", err)
	}
	if err := d.ConfigureWOL(WOLConfig{}); !errors.Is(err, ctcphy.ErrInvalidConfig) {
		t.Errorf("ConfigureWOL: %v", err)
	}
	if err := d.ConfigIntr(true); !errors.Is(err, ctcphy.ErrInvalidConfig) {
		t.Errorf("ConfigIntr: %v", err)
	}
	if _, err := d.AckInterrupt(); !errors.Is(err, ctcphy.ErrInvalidConfig) {
		t.Errorf("AckInterrupt: %v", err)
	}
	if len(sim.Log) != 0 {
		t.Errorf("uninitialized device touched the bus: %v", sim.Log)
	}
}

func TestSetAdvertisingMasked(t *testing.T) {
	sim := newSim(IDMARS1S, chipUTP)
	d, err := Probe(sim, testAddr, Config{Supported: phy.ModesBasic})
	if err != nil {
		t.Fatal(err)
	}
	err = d.ConfigInit()
	if err != nil {
		t.Fatal(err)
	}
	sim.ResetLog()
	d.SetAdvertising(phy.ModesGigabit | phy.Mode100Full)
	if d.Advertising()&^d.Supported() != 0 {
		t.Fatalf("advertising %q not subset of %q", d.Advertising(), d.Supported())
	}
	if d.Advertising() != phy.Mode100Full {
		t.Errorf("advertising %q, want %q", d.Advertising(), phy.Mode100Full)
	}
	if len(sim.Log) != 0 {
		t.Errorf("SetAdvertising touched the bus: %v", sim.Log)
	}
}
