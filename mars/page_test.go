package mars

import (
	"math/rand"
	"testing"

	"github.com/soypat/ctcphy/internal/phytest"
)

func TestExtAccess(t *testing.T) {
	d, sim := newTestDevice(t, IDMARS1S, 0)
	err := d.ExtWrite(extWOLConfig, 0x1234)
	if err != nil {
		t.Fatal(err)
	}
	v, err := d.ExtRead(extWOLConfig)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Errorf("read back %#x", v)
	}
	want := []phytest.Op{
		{Kind: phytest.OpWrite, Reg: regExtAddr, Value: extWOLConfig},
		{Kind: phytest.OpWrite, Reg: regExtData, Value: 0x1234},
		{Kind: phytest.OpWrite, Reg: regExtAddr, Value: extWOLConfig},
		{Kind: phytest.OpRead, Reg: regExtData, Value: 0x1234},
	}
	if len(sim.Log) != len(want) {
		t.Fatalf("expected %d transactions, got %v", len(want), sim.Log)
	}
	for i, op := range sim.Log {
		if op.Kind != want[i].Kind || op.Reg != want[i].Reg || op.Value != want[i].Value || op.PHYAddr != testAddr {
			t.Errorf("transaction %d: got %s, want %s", i, op, want[i])
		}
	}
}

func TestExtPageScope(t *testing.T) {
	d, sim := newTestDevice(t, IDMARS1S, 0)
	err := d.PageExtWrite(PageSerDes, 0x00a5, 0x7)
	if err != nil {
		t.Fatal(err)
	}
	if sim.Ext(phytest.PageSerDes, 0x00a5) != 0x7 {
		t.Error("page scoped register not written on serdes page")
	}
	if sim.Ext(phytest.PageCopper, 0x00a5) == 0x7 {
		t.Error("page scoped register leaked to copper page")
	}
	v, err := d.PageExtRead(PageSerDes, 0x00a5)
	if err != nil || v != 0x7 {
		t.Errorf("PageExtRead: %#x %v", v, err)
	}
}

func TestPageRestore(t *testing.T) {
	for _, start := range []Page{PageCopper, PageSerDes} {
		for _, target := range []Page{PageCopper, PageSerDes} {
			d, sim := newTestDevice(t, IDMARS1S, 0)
			err := d.selectPage(start)
			if err != nil {
				t.Fatal(err)
			}
			sim.SetReg(simPage(target), regSpecificStatus, 0xbeef)
			v, err := d.PageRead(target, regSpecificStatus)
			if err != nil {
				t.Fatal(err)
			}
			if v != 0xbeef {
				t.Errorf("%s->%s: read %#x from wrong page", start, target, v)
			}
			if got := sim.Page(); got != simPage(start) {
				t.Errorf("%s->%s: page not restored, at %d", start, target, got)
			}
			cur, err := d.CurrentPage()
			if err != nil || cur != start {
				t.Errorf("%s->%s: CurrentPage=%s err=%v", start, target, cur, err)
			}
		}
	}
}

func TestPageRestoreMasksSelector(t *testing.T) {
	d, sim := newTestDevice(t, IDMARS1S, 0)
	// Unrelated selector bits are not written back.
	sim.SetExt(phytest.PageCopper, extPageSelect, 0x8103)
	err := d.PageWrite(PageCopper, regIntrMask, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := sim.Ext(phytest.PageCopper, extPageSelect); got != pageSelectSerDes {
		t.Errorf("restored selector %#x, want %#x", got, pageSelectSerDes)
	}
	if got := sim.Writes(phytest.PageCopper, regIntrMask); len(got) != 1 {
		t.Errorf("write went to wrong page: %v", sim.Log)
	}
}

func TestPageIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d, sim := newTestDevice(t, IDMARS1S, 2)
	for i := 0; i < 500; i++ {
		start := Page(rng.Intn(2))
		err := d.selectPage(start)
		if err != nil {
			t.Fatal(err)
		}
		page := Page(rng.Intn(2))
		reg := uint16(rng.Intn(0x1d))
		switch rng.Intn(4) {
		case 0:
			_, err = d.PageRead(page, reg)
		case 1:
			err = d.PageWrite(page, reg, uint16(rng.Uint32()))
		case 2:
			_, err = d.PageExtRead(page, uint16(rng.Intn(0x100)))
		case 3:
			err = d.PageExtWrite(page, uint16(rng.Intn(0x100)), uint16(rng.Uint32()))
		}
		if err != nil {
			t.Fatal(err)
		}
		if sim.Page() != simPage(start) {
			t.Fatalf("iteration %d: page %s not restored after access on %s", i, start, page)
		}
	}
}

func TestPageErrorPropagation(t *testing.T) {
	var (
		readSel  = isRead(regExtData)
		writeSel = isWrite(regExtData)
		readReg  = isRead(regSpecificStatus)
	)
	tests := []struct {
		name      string
		fault     func(phytest.Op) error
		failReg   uint16
		wantOps   int
		wantSelDW int // successful page selector data writes.
	}{
		{name: "save", fault: phytest.FailNth(1, readSel, errInjected), failReg: regExtData, wantOps: 2, wantSelDW: 0},
		{name: "select", fault: phytest.FailNth(1, writeSel, errInjected), failReg: regExtData, wantOps: 4, wantSelDW: 0},
		{name: "access", fault: phytest.FailNth(1, readReg, errInjected), failReg: regSpecificStatus, wantOps: 7, wantSelDW: 2},
		{name: "restore", fault: phytest.FailNth(2, writeSel, errInjected), failReg: regExtData, wantOps: 7, wantSelDW: 1},
	}
	for _, tt := range tests {
		d, sim := newTestDevice(t, IDMARS1S, 0)
		sim.Fault = tt.fault
		_, err := d.PageRead(PageSerDes, regSpecificStatus)
		checkBusError(t, err, tt.failReg)
		if len(sim.Log) != tt.wantOps {
			t.Errorf("%s: expected %d transactions, got %d: %v", tt.name, tt.wantOps, len(sim.Log), sim.Log)
		}
		sel, _ := sim.ExtWrites(extPageSelect)
		if len(sel) != tt.wantSelDW {
			t.Errorf("%s: expected %d selector writes, got %v", tt.name, tt.wantSelDW, sel)
		}
		if tt.name == "access" && sim.Page() != phytest.PageCopper {
			t.Errorf("%s: page not restored after access error", tt.name)
		}
	}
}
