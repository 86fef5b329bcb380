package cpc

import "testing"

func TestSelectAndWriteRegister(t *testing.T) {
	c := NewCRTC()
	c.SelectRegister(rHDisplayed)
	c.WriteData(48)
	if c.Register(rHDisplayed) != 48 {
		t.Fatalf("R1 = %d, want 48", c.Register(rHDisplayed))
	}
}

func TestStartAddrHiMaskedTo6Bits(t *testing.T) {
	c := NewCRTC()
	c.SelectRegister(rStartAddrHi)
	c.WriteData(0xFF)
	if c.Register(rStartAddrHi) != 0x3F {
		t.Fatalf("R12 = %#x, want masked to 0x3F", c.Register(rStartAddrHi))
	}
}

func TestDisplayEnabledWithinHAndVWindow(t *testing.T) {
	c := NewCRTC()
	c.startFrame()
	c.Tick()
	if !c.DisplayEnabled() {
		t.Fatal("first character of frame should be within the displayed window")
	}
}

func TestHSyncAssertsAtSyncPosition(t *testing.T) {
	c := NewCRTC()
	sawHSync := false
	for i := 0; i < 70; i++ {
		c.Tick()
		if c.HSync() {
			sawHSync = true
			break
		}
	}
	if !sawHSync {
		t.Fatal("HSync should assert once hCounter reaches R2")
	}
}

func TestMemoryAddressAdvancesDuringDisplay(t *testing.T) {
	c := NewCRTC()
	c.startFrame()
	start := c.MemoryAddress()
	c.Tick()
	c.Tick()
	if c.MemoryAddress() != start+1 && c.MemoryAddress() != start+2 {
		t.Fatalf("MA should advance while displaying, got %#x from start %#x", c.MemoryAddress(), start)
	}
}
