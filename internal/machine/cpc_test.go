package machine

import (
	"testing"

	"github.com/retrocore/cpcec-go/internal/fdc/fdc765"
)

type emptyCPCImage struct{}

func (emptyCPCImage) Geometry(drive, cylinder, head int) (fdc765.Geometry, bool) { return fdc765.Geometry{}, false }
func (emptyCPCImage) ReadSector(drive, cylinder, head int, sectorID byte) ([]byte, bool) {
	return nil, false
}
func (emptyCPCImage) WriteSector(drive, cylinder, head int, sectorID byte, data []byte) bool {
	return false
}

func newTestCPC() *CPC {
	lowerROM := make([]byte, 16384)
	upperROM := make([]byte, 16384)
	return NewCPC(DefaultOptions(), lowerROM, upperROM, emptyCPCImage{})
}

func TestCPCGateArrayInkWriteGoesThroughPort(t *testing.T) {
	c := newTestCPC()
	c.Out(0x7F00, 0x03) // select pen 3
	c.Out(0x7F00, 0x40|0x0A) // assign hardware ink 10
	if got := c.ga.Ink(3); got != 10 {
		t.Fatalf("pen 3 ink = %d, want 10", got)
	}
}

func TestCPCASICStaysLockedUntilUnlockSequenceWritten(t *testing.T) {
	c := newTestCPC()
	c.Out(0x7F00, 0x00) // a plain GA write, not part of the lock sequence
	if c.asic.Unlocked() {
		t.Fatal("ASIC unlocked too early")
	}
	for _, b := range []byte{0x00, 0xFF, 0x77, 0xB3, 0x51, 0xA8, 0xD4, 0x62, 0x39, 0x9C, 0x46, 0x2B, 0x15, 0x8A, 0xCD} {
		c.Out(0x7F00, b)
	}
	if !c.asic.Unlocked() {
		t.Fatal("ASIC should be unlocked after the full 15-byte sequence")
	}
}

func TestCPCASICRegisterWritesOnlyTakeEffectOnceUnlocked(t *testing.T) {
	c := newTestCPC()
	c.Out(0x4200, 0x12) // sprite attribute region, still locked: must be ignored
	if c.asic.SpriteAt(0).X != 0 {
		t.Fatal("locked ASIC accepted a register write")
	}
	for _, b := range []byte{0x00, 0xFF, 0x77, 0xB3, 0x51, 0xA8, 0xD4, 0x62, 0x39, 0x9C, 0x46, 0x2B, 0x15, 0x8A, 0xCD} {
		c.Out(0x7F00, b)
	}
	c.Out(0x4200, 0x34) // sprite 0's X-lo byte
	if c.asic.SpriteAt(0).X != 0x34 {
		t.Fatalf("sprite 0 X = %#x, want 0x34", c.asic.SpriteAt(0).X)
	}
}

func TestCPCPSGRegisterSelectAndWriteViaPPI(t *testing.T) {
	c := newTestCPC()
	c.Out(0xF400, 0x07) // latch the mixer register index on port A
	c.Out(0xF600, 0xC0) // BDIR=1,BC1=1: latch it as the selected PSG register
	c.Out(0xF400, 0x3E) // latch the mixer value on port A
	c.Out(0xF600, 0x80) // BDIR=1,BC1=0: write it to the selected register
	if got := c.psg.Registers()[7]; got != 0x3E {
		t.Fatalf("PSG mixer register = %#x, want 0x3E", got)
	}
}

func TestCPCTickAdvancesCRTCAtOneQuarterCPUClock(t *testing.T) {
	c := newTestCPC()
	c.Tick(8) // two CRTC character clocks (the CRTC runs at 1MHz against a 4MHz Z80)
	if got := c.crtc.MemoryAddress(); got != 1 {
		t.Fatalf("CRTC memory address = %d after 2 character clocks, want 1", got)
	}
}

func TestCPCRAMExpansionRegisterProgramsBanking(t *testing.T) {
	c := newTestCPC()
	c.Out(0x7F00, 0xC0|0x01) // function 3 (RAM config), select layout 1: window 3 -> RAM page 7
	c.mmu.Poke(0xC000, 0xAB)
	if got := c.mmu.RAMPage(7)[0]; got != 0xAB {
		t.Fatalf("RAM page 7 byte 0 = %#x, want 0xAB after selecting RAM config 1", got)
	}
}
