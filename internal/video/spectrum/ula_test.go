package spectrum

import "testing"

func TestBitmapAddrNonLinearMapping(t *testing.T) {
	// y=0 and y=64 both land in scan-row 0 of their own third, 2048
	// bytes apart.
	if got := bitmapAddr(0, 0); got != 0 {
		t.Fatalf("bitmapAddr(0,0) = %#x, want 0", got)
	}
	if got := bitmapAddr(0, 64); got != 2048 {
		t.Fatalf("bitmapAddr(0,64) = %#x, want 0x800", got)
	}
	// Within one character row, incrementing y by one scanline advances
	// by 256 bytes, not 32.
	if got := bitmapAddr(0, 1); got != 256 {
		t.Fatalf("bitmapAddr(0,1) = %#x, want 0x100", got)
	}
}

func TestWritePort6SetsBorder(t *testing.T) {
	u := New(Model48K)
	u.WritePort6(0x05)
	if u.border != 5 {
		t.Fatalf("border = %d, want 5", u.border)
	}
}

func TestPixelColorUsesInkWhenBitSet(t *testing.T) {
	u := New(Model48K)
	u.vram[bitmapAddr(0, 0)] = 0x80 // top-left pixel set
	u.vram[attrAddr(0, 0)] = 0x07   // ink=white, paper=black, no bright/flash
	rgb := u.pixelColor(0, 0)
	if rgb != standardInkRGB[7] {
		t.Fatalf("pixelColor = %v, want ink white %v", rgb, standardInkRGB[7])
	}
}

func TestFlashSwapsInkAndPaperWhenPhaseSet(t *testing.T) {
	u := New(Model48K)
	u.vram[bitmapAddr(0, 0)] = 0x80
	u.vram[attrAddr(0, 0)] = 0x80 | (1 << 3) | 2 // flash, paper=1, ink=2
	u.flashPhase = true
	rgb := u.pixelColor(0, 0)
	if rgb != standardInkRGB[1] {
		t.Fatalf("flashed pixel should show paper color as ink, got %v want %v", rgb, standardInkRGB[1])
	}
}

func TestULAplusPalette(t *testing.T) {
	u := New(Model48K)
	u.WriteULAplusControl(0x40, true, 1) // enable
	u.WriteULAplusControl(0x02, true, 0xE0)
	u.vram[bitmapAddr(0, 0)] = 0x80
	u.vram[attrAddr(0, 0)] = 2 // ink index 2, pixel set
	rgb := u.pixelColor(0, 0)
	if rgb[0] != 255 {
		t.Fatalf("ULAplus red channel = %d, want 255 for packed 0xE0", rgb[0])
	}
}

func TestIRQAssertedOnlyAtTopOfFrame(t *testing.T) {
	u := New(Model48K)
	if !u.IRQAsserted() {
		t.Fatal("IRQ should be asserted at line 0, T 0")
	}
	u.SyncT(40)
	if u.IRQAsserted() {
		t.Fatal("IRQ should have deasserted after irqLength T-cycles")
	}
}

func TestContentionZeroOutsideBitmapWindow(t *testing.T) {
	u := New(Model48K)
	u.line = 0 // top border line, outside the 192-line display area
	u.lineT = 0
	if c := u.Contention(); c != 0 {
		t.Fatalf("Contention outside display area = %d, want 0", c)
	}
}
