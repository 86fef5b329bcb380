package machine

import (
	"testing"

	"github.com/retrocore/cpcec-go/internal/video/spectrum"
)

func newTest48KSpectrum() *Spectrum {
	rom := make([]byte, 16384)
	opts := DefaultOptions()
	opts.Family = FamilySpectrum
	opts.RAMSizeKB = 48
	return NewSpectrum(opts, spectrum.Model48K, [][]byte{rom}, nil, nil)
}

func newTest128KSpectrum() *Spectrum {
	rom := make([]byte, 16384)
	opts := DefaultOptions()
	opts.Family = FamilySpectrum
	opts.RAMSizeKB = 128
	return NewSpectrum(opts, spectrum.Model128K, [][]byte{rom, rom}, nil, nil)
}

func TestSpectrumBorderWriteGoesThroughULAPort(t *testing.T) {
	s := newTest48KSpectrum()
	s.Out(0xFE, 0x05) // bits 0-2: border color 5
	frame := s.Frame()
	if len(frame) == 0 {
		t.Fatal("Frame() returned no pixels")
	}
	// Run the beam through ULA line 28, which draws canvas row 0; column
	// 100 of that row is top border and must show ink 5 (cyan).
	s.ula.SyncT(29 * 224)
	w, _ := s.FrameSize()
	idx := (0*w + 100) * 4
	if got := frame[idx : idx+3]; got[0] != 0 || got[1] != 215 || got[2] != 215 {
		t.Fatalf("border pixel = %v, want [0 215 215]", got)
	}
}

func TestSpectrumScreenWriteMirrorsIntoULAVRAM(t *testing.T) {
	s := newTest48KSpectrum()
	s.Write(0x4010, 0xAA)
	if got := s.ula.VRAM()[0x10]; got != 0xAA {
		t.Fatalf("ULA VRAM[0x10] = %#x, want 0xAA", got)
	}
	if got := s.mmu.Peek(0x4010); got != 0xAA {
		t.Fatalf("normal RAM read at 0x4010 = %#x, want 0xAA (write trap must not swallow the write)", got)
	}
}

func TestSpectrum128KPagingSelectsRAMBank(t *testing.T) {
	s := newTest128KSpectrum()
	s.Out(0x7FFD, 0x03) // select RAM bank 3 into window 3
	s.Write(0xC000, 0x77)
	if got := s.mmu.RAMPage(3)[0]; got != 0x77 {
		t.Fatalf("RAM bank 3 byte 0 = %#x, want 0x77 after paging window 3 to bank 3", got)
	}
}

func TestSpectrum48KHasNoAYChip(t *testing.T) {
	s := newTest48KSpectrum()
	if s.ay != nil {
		t.Fatal("48K Spectrum should not have an AY-3-8910")
	}
	// writing to the AY's real ports must be a no-op, not a nil-pointer panic
	s.Out(0xFFFD, 0x07)
	s.Out(0xBFFD, 0x3E)
}

func TestSpectrum128KHasAYChip(t *testing.T) {
	s := newTest128KSpectrum()
	if s.ay == nil {
		t.Fatal("128K Spectrum should have an AY-3-8910")
	}
	s.Out(0xFFFD, 0x07) // select mixer register
	s.Out(0xBFFD, 0x3E) // write mixer value
	if got := s.ay.Registers()[7]; got != 0x3E {
		t.Fatalf("AY mixer register = %#x, want 0x3E", got)
	}
}

func TestSpectrumKeyboardRowRead(t *testing.T) {
	s := newTest48KSpectrum()
	s.SetKey(0, 0, true) // row 0, bit 0 pressed
	got := s.In(0xFEFE)  // high byte 0xFE selects row 0
	if got&0x01 != 0 {
		t.Fatalf("keyboard read bit 0 = 1, want 0 (pressed keys read low)")
	}
}
