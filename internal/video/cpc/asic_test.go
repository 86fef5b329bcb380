package cpc

import "testing"

func TestASICStartsLocked(t *testing.T) {
	a := NewASIC()
	a.WriteRegister(0x2DA, 5)
	if x, _ := a.SoftScroll(); x != 0 {
		t.Fatalf("soft scroll write should be ignored while locked, got %d", x)
	}
}

func TestUnlockSequenceOpensRegisterBlock(t *testing.T) {
	a := NewASIC()
	for _, b := range unlockSequence {
		a.WriteLockSequence(b)
	}
	if !a.Unlocked() {
		t.Fatal("ASIC should be unlocked after the full sequence")
	}
	a.WriteRegister(0x2DA, 7)
	if x, _ := a.SoftScroll(); x != 7 {
		t.Fatalf("soft scroll X = %d, want 7", x)
	}
}

func TestMismatchedByteResetsUnlockProgress(t *testing.T) {
	a := NewASIC()
	a.WriteLockSequence(unlockSequence[0])
	a.WriteLockSequence(unlockSequence[1])
	a.WriteLockSequence(0x01) // mismatch, not equal to sequence[0] either
	for _, b := range unlockSequence {
		a.WriteLockSequence(b)
	}
	if !a.Unlocked() {
		t.Fatal("a fresh full pass after a mismatch should still unlock")
	}
}

func TestPaletteRGBExpands4BitChannels(t *testing.T) {
	a := NewASIC()
	for _, b := range unlockSequence {
		a.WriteLockSequence(b)
	}
	a.WriteRegister(0x2C0, 0x0F) // entry 0 low byte: G/B nibbles
	a.WriteRegister(0x2C1, 0x0F) // entry 0 high byte: R nibble
	rgb := a.PaletteRGB(0)
	if rgb[0] != 255 {
		t.Fatalf("red channel = %d, want 255", rgb[0])
	}
}

type dmaTestMemory map[uint16]byte

func (m dmaTestMemory) Peek(addr uint16) byte { return m[addr] }

type dmaTestPSG struct {
	regs [16]byte
}

func (p *dmaTestPSG) WriteRegister(reg, value byte) { p.regs[reg&0x0F] = value }

func TestDMAChannelLoadsPSGRegisters(t *testing.T) {
	a := NewASIC()
	for _, b := range unlockSequence {
		a.WriteLockSequence(b)
	}
	// Program channel 0's command list at 0x1000: load reg 8 with 0x0F,
	// reg 9 with 0x0F, reg 10 with 0x0F, then stop.
	mem := dmaTestMemory{
		0x1000: 0x0F, 0x1001: 0x08, // 080F
		0x1002: 0x0F, 0x1003: 0x09, // 090F
		0x1004: 0x0F, 0x1005: 0x0A, // 0A0F
		0x1006: 0x00, 0x1007: 0x40, // 4000 STOP
	}
	psgOut := &dmaTestPSG{}
	a.SetDMALinks(mem, psgOut)

	a.WriteRegister(0x2E0, 0x00) // channel 0 PC lo
	a.WriteRegister(0x2E1, 0x10) // channel 0 PC hi -> 0x1000
	a.WriteRegister(0x2EF, 0x01) // enable channel 0

	for i := 0; i < 4; i++ {
		a.OnScanline(i)
	}

	if psgOut.regs[8] != 0x0F || psgOut.regs[9] != 0x0F || psgOut.regs[10] != 0x0F {
		t.Fatalf("PSG regs 8/9/10 = %#x/%#x/%#x, want 0x0F each", psgOut.regs[8], psgOut.regs[9], psgOut.regs[10])
	}
	if !a.dma[0].Stopped {
		t.Fatal("channel 0 should be stopped after its STOP command")
	}
}

func TestSpriteAttrWritesPosition(t *testing.T) {
	a := NewASIC()
	for _, b := range unlockSequence {
		a.WriteLockSequence(b)
	}
	a.WriteRegister(0x200, 0x34) // sprite 0 X lo
	a.WriteRegister(0x201, 0x01) // sprite 0 X hi
	if a.SpriteAt(0).X != 0x0134 {
		t.Fatalf("sprite 0 X = %#x, want 0x134", a.SpriteAt(0).X)
	}
}
