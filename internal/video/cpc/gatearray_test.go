package cpc

import "testing"

func TestWriteControlSelectsInk(t *testing.T) {
	g := NewGateArray()
	g.WriteControl(0x03)       // select pen 3
	g.WriteControl(0x40 | 0x0A) // assign ink 10 to the selected pen
	if g.Ink(3) != 10 {
		t.Fatalf("Ink(3) = %d, want 10", g.Ink(3))
	}
}

func TestWriteControlSetsModeAndROMPaging(t *testing.T) {
	g := NewGateArray()
	g.WriteControl(0x80 | 0x02 | 0x04) // mode 2, lower ROM disabled
	if g.Mode() != 2 {
		t.Fatalf("Mode() = %d, want 2", g.Mode())
	}
	if g.LowerROMEnabled() {
		t.Fatal("lower ROM should be disabled")
	}
	if !g.UpperROMEnabled() {
		t.Fatal("upper ROM should remain enabled")
	}
}

func TestInterruptCounterFiresEvery52HSyncs(t *testing.T) {
	g := NewGateArray()
	for i := 0; i < 51; i++ {
		g.OnHSyncFallingEdge(false)
	}
	if g.InterruptPending() {
		t.Fatal("interrupt should not fire before the 52nd HSYNC")
	}
	g.OnHSyncFallingEdge(false)
	if !g.InterruptPending() {
		t.Fatal("interrupt should fire on the 52nd HSYNC")
	}
}

func TestPixelsForByteMode2DecodesEightBits(t *testing.T) {
	g := NewGateArray()
	g.WriteControl(0x80 | 0x02)
	px := g.PixelsForByte(0b10110001)
	want := []byte{1, 0, 1, 1, 0, 0, 0, 1}
	for i := range want {
		if px[i] != want[i] {
			t.Fatalf("pixel %d = %d, want %d", i, px[i], want[i])
		}
	}
}
