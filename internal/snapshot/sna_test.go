package snapshot

import (
	"encoding/binary"
	"testing"
)

func build48KSNA(t *testing.T) []byte {
	t.Helper()
	raw := make([]byte, sna48Size)
	raw[0] = 0x3F      // I
	raw[21] = 0x44     // F
	raw[22] = 0x55     // A
	binary.LittleEndian.PutUint16(raw[23:25], 0x8000) // SP
	raw[26] = 3 // border

	// Put the resume PC on the emulated stack at address 0x8000.
	spOffset := 0x8000 - 0x4000
	binary.LittleEndian.PutUint16(raw[27+spOffset:27+spOffset+2], 0x9000)
	return raw
}

func TestParseSpectrumSNA48K(t *testing.T) {
	raw := build48KSNA(t)
	s, err := ParseSpectrumSNA(raw)
	if err != nil {
		t.Fatalf("ParseSpectrumSNA: %v", err)
	}
	if s.CPU.A != 0x55 || s.CPU.F != 0x44 {
		t.Fatalf("AF = %#x%#x, want 0x55 0x44", s.CPU.A, s.CPU.F)
	}
	if s.CPU.PC != 0x9000 {
		t.Fatalf("PC = %#x, want 0x9000 (popped from stack)", s.CPU.PC)
	}
	if s.CPU.SP != 0x8002 {
		t.Fatalf("SP = %#x, want 0x8002 after POP PC", s.CPU.SP)
	}
	if s.Border != 3 {
		t.Fatalf("Border = %d, want 3", s.Border)
	}
}

func TestParseSpectrumSNATooShort(t *testing.T) {
	_, err := ParseSpectrumSNA(make([]byte, 100))
	if err == nil {
		t.Fatal("expected an error for a too-short SNA image")
	}
}

func TestParseCPCSNARejectsBadSignature(t *testing.T) {
	_, err := ParseCPCSNA(make([]byte, 0x200))
	if err == nil {
		t.Fatal("expected an error for a missing MV - SNA signature")
	}
}

func TestParseCPCSNAReadsRegistersAndRAM(t *testing.T) {
	raw := make([]byte, 0x100+65536)
	copy(raw, cpcSNASignature)
	raw[0x12] = 0x7A // A
	raw[0x11] = 0x01 // F
	binary.LittleEndian.PutUint16(raw[0x2A:0x2C], 0x1234) // PC
	binary.LittleEndian.PutUint16(raw[0x6B:0x6D], 64)     // 64K RAM
	raw[0x100+10] = 0x99                                  // a byte inside bank 0

	s, err := ParseCPCSNA(raw)
	if err != nil {
		t.Fatalf("ParseCPCSNA: %v", err)
	}
	if s.CPU.A != 0x7A {
		t.Fatalf("A = %#x, want 0x7A", s.CPU.A)
	}
	if s.CPU.PC != 0x1234 {
		t.Fatalf("PC = %#x, want 0x1234", s.CPU.PC)
	}
	if len(s.RAMBanks) != 1 || s.RAMBanks[0][10] != 0x99 {
		t.Fatalf("RAM bank not captured correctly")
	}
}
