package mars

import (
	"errors"
	"testing"

	"github.com/soypat/ctcphy/internal/phytest"
	"github.com/soypat/ctcphy/phy"
)

const testAddr = 4

var errInjected = errors.New("injected bus failure")

func newSim(id uint32, chipCfg uint16) *phytest.Sim {
	return phytest.New(testAddr, id, chipCfg)
}

// newTestDevice returns an initialized device on a simulated PHY with an empty transaction log.
func newTestDevice(t *testing.T, id uint32, chipCfg uint16) (*Device, *phytest.Sim) {
	t.Helper()
	sim := newSim(id, chipCfg)
	d, err := Probe(sim, testAddr, Config{})
	if err != nil {
		t.Fatal(err)
	}
	err = d.ConfigInit()
	if err != nil {
		t.Fatal(err)
	}
	sim.ResetLog()
	return d, sim
}

func simPage(p Page) phytest.Page {
	if p == PageSerDes {
		return phytest.PageSerDes
	}
	return phytest.PageCopper
}

func isWrite(reg uint16) func(phytest.Op) bool {
	return func(op phytest.Op) bool { return op.Kind == phytest.OpWrite && op.Reg == reg }
}

func isRead(reg uint16) func(phytest.Op) bool {
	return func(op phytest.Op) bool { return op.Kind == phytest.OpRead && op.Reg == reg }
}

// checkBusError checks err is a bus error on reg caused by the injected failure.
func checkBusError(t *testing.T, err error, reg uint16) {
	t.Helper()
	var berr *phy.BusError
	if !errors.As(err, &berr) {
		t.Fatalf("expected bus error, got %v", err)
	}
	if berr.Reg != reg {
		t.Errorf("bus error on reg %#x, want %#x", berr.Reg, reg)
	}
	if !errors.Is(err, errInjected) {
		t.Errorf("bus error does not wrap injected failure: %v", err)
	}
}
