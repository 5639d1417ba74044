package mars

import (
	"testing"

	"github.com/soypat/ctcphy/internal/phytest"
	"github.com/soypat/ctcphy/phy"
)

func TestSpecificStatusDecode(t *testing.T) {
	tests := []struct {
		ss     SpecificStatus
		speed  int
		duplex phy.Duplex
	}{
		{ss: 0x0000, speed: 10, duplex: phy.DuplexHalf},
		{ss: 0x2000, speed: 10, duplex: phy.DuplexFull},
		{ss: 0x4000, speed: 100, duplex: phy.DuplexHalf},
		{ss: 0x6000, speed: 100, duplex: phy.DuplexFull},
		{ss: 0x8000, speed: 1000, duplex: phy.DuplexFull},
		{ss: 0xa000, speed: 1000, duplex: phy.DuplexFull},
		{ss: 0xc000, speed: 1000, duplex: phy.DuplexFull},
		{ss: 0x9fff, speed: 1000, duplex: phy.DuplexFull},
		{ss: 0x1fff, speed: 10, duplex: phy.DuplexHalf},
	}
	for _, tt := range tests {
		speed, duplex := tt.ss.Decode()
		if speed != tt.speed || duplex != tt.duplex {
			t.Errorf("%#04x: got %d/%s, want %d/%s", uint16(tt.ss), speed, duplex, tt.speed, tt.duplex)
		}
	}
}

func TestReadStatusVendor(t *testing.T) {
	tests := []struct {
		name string
		ss   uint16
		lpa  uint16
		want phy.Status
	}{
		{name: "1000 full pause", ss: 0x8000, lpa: 0x0400, want: phy.Status{Link: true, Speed: 1000, Duplex: phy.DuplexFull, Pause: true}},
		{name: "1000 full asym", ss: 0x8000, lpa: 0x0800, want: phy.Status{Link: true, Speed: 1000, Duplex: phy.DuplexFull, AsymPause: true}},
		{name: "100 full both", ss: 0x6000, lpa: 0x0c00, want: phy.Status{Link: true, Speed: 100, Duplex: phy.DuplexFull, Pause: true, AsymPause: true}},
		{name: "100 half no pause", ss: 0x4000, lpa: 0x0c00, want: phy.Status{Link: true, Speed: 100, Duplex: phy.DuplexHalf}},
		{name: "10 full", ss: 0x2000, lpa: 0, want: phy.Status{Link: true, Speed: 10, Duplex: phy.DuplexFull}},
		{name: "10 half no pause", ss: 0, lpa: 0x0c00, want: phy.Status{Link: true, Speed: 10, Duplex: phy.DuplexHalf}},
	}
	for _, tt := range tests {
		d, sim := newTestDevice(t, IDMARS1S, chipUTP)
		sim.SetLink(phytest.PageCopper, true)
		sim.SetReg(phytest.PageCopper, regSpecificStatus, tt.ss)
		sim.SetReg(phytest.PageCopper, phy.AddrANLPAR, tt.lpa)
		got, err := d.ReadStatus()
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
		if d.Status() != got {
			t.Errorf("%s: status not stored", tt.name)
		}
		if d.Carrier() != CarrierUTP {
			t.Errorf("%s: carrier %s", tt.name, d.Carrier())
		}
	}
}

func TestReadStatusNoLink(t *testing.T) {
	for _, chip := range []uint16{chipUTP, chipFiber, chipCombo} {
		d, sim := newTestDevice(t, IDMARS1S, chip)
		sim.SetReg(phytest.PageCopper, regSpecificStatus, 0x8000)
		sim.SetReg(phytest.PageSerDes, regSpecificStatus, 0x8000)
		got, err := d.ReadStatus()
		if err != nil {
			t.Fatal(err)
		}
		if got != phy.DownStatus() {
			t.Errorf("chip %d: got %+v", chip, got)
		}
		for _, op := range sim.Log {
			if op.Reg == regSpecificStatus || op.Reg == phy.AddrANLPAR {
				t.Errorf("chip %d: status register read without link: %s", chip, op)
			}
		}
	}
}

func TestReadStatusLatchedLink(t *testing.T) {
	d, sim := newTestDevice(t, IDMARS1S, chipUTP)
	sim.SetReg(phytest.PageCopper, regSpecificStatus, 0x8000)
	sim.SetLink(phytest.PageCopper, true)
	sim.SetLink(phytest.PageCopper, false)
	sim.SetLink(phytest.PageCopper, true)
	st, err := d.ReadStatus()
	if err != nil {
		t.Fatal(err)
	}
	if !st.Link {
		t.Error("latched link failure hid a live link")
	}
}

func TestReadStatusCombo(t *testing.T) {
	tests := []struct {
		name        string
		copper      bool
		fiber       bool
		wantCarrier Carrier
		wantSpeed   int
		wantPage    phytest.Page
	}{
		{name: "fiber only", fiber: true, wantCarrier: CarrierFiber, wantSpeed: 100, wantPage: phytest.PageSerDes},
		{name: "copper wins", copper: true, fiber: true, wantCarrier: CarrierUTP, wantSpeed: 1000, wantPage: phytest.PageCopper},
		{name: "copper only", copper: true, wantCarrier: CarrierUTP, wantSpeed: 1000, wantPage: phytest.PageCopper},
	}
	for _, tt := range tests {
		d, sim := newTestDevice(t, IDMARS1S, chipCombo)
		if d.Carrier() != CarrierUnknown {
			t.Fatalf("combo carrier before link: %s", d.Carrier())
		}
		sim.SetReg(phytest.PageCopper, regSpecificStatus, 0x8000)
		sim.SetReg(phytest.PageSerDes, regSpecificStatus, 0x6000)
		sim.SetLink(phytest.PageCopper, tt.copper)
		sim.SetLink(phytest.PageSerDes, tt.fiber)
		// Start on the other page so the carrier selection is observable.
		start := PageSerDes
		if tt.wantPage == phytest.PageSerDes {
			start = PageCopper
		}
		err := d.selectPage(start)
		if err != nil {
			t.Fatal(err)
		}
		st, err := d.ReadStatus()
		if err != nil {
			t.Fatal(err)
		}
		if !st.Link || st.Speed != tt.wantSpeed {
			t.Errorf("%s: got %+v", tt.name, st)
		}
		if d.Carrier() != tt.wantCarrier {
			t.Errorf("%s: carrier %s, want %s", tt.name, d.Carrier(), tt.wantCarrier)
		}
		if sim.Page() != tt.wantPage {
			t.Errorf("%s: page %d left selected, want %d", tt.name, sim.Page(), tt.wantPage)
		}
	}
}

func TestReadStatusGenericVariant(t *testing.T) {
	d, sim := newTestDevice(t, IDMARS1P, chipUTP)
	sim.SetLink(phytest.PageCopper, true)
	// Not consulted by variants without vendor status.
	sim.SetReg(phytest.PageCopper, regSpecificStatus, 0x8000)
	sim.SetReg(phytest.PageCopper, phy.AddrGBSR, 0)
	sim.SetReg(phytest.PageCopper, phy.AddrANLPAR, 0x05e1)
	st, err := d.ReadStatus()
	if err != nil {
		t.Fatal(err)
	}
	want := phy.Status{Link: true, Speed: 100, Duplex: phy.DuplexFull, Pause: true}
	if st != want {
		t.Errorf("got %+v, want %+v", st, want)
	}
	for _, op := range sim.Log {
		if op.Reg == regSpecificStatus {
			t.Errorf("vendor status register read: %s", op)
		}
	}
}

func TestReadStatusBusError(t *testing.T) {
	d, sim := newTestDevice(t, IDMARS1S, chipUTP)
	sim.SetLink(phytest.PageCopper, true)
	sim.SetReg(phytest.PageCopper, regSpecificStatus, 0x8000)
	_, err := d.ReadStatus()
	if err != nil {
		t.Fatal(err)
	}
	prev := d.Status()
	sim.Fault = phytest.FailNth(1, isRead(regSpecificStatus), errInjected)
	_, err = d.ReadStatus()
	checkBusError(t, err, regSpecificStatus)
	if d.Status() != prev {
		t.Error("failed read replaced stored status")
	}
}
