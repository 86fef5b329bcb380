package debugger

import (
	"strings"
	"testing"

	"github.com/retrocore/cpcec-go/internal/snapshot"
)

type fakeMemory map[uint16]byte

func (m fakeMemory) Read(addr uint16) byte { return m[addr] }

func TestDisassembleBasicInstructions(t *testing.T) {
	mem := fakeMemory{
		0x0000: 0x00,       // NOP
		0x0001: 0x3E, 0x05, // LD A, $05
		0x0003: 0xC3, 0x00, 0x10, // JP $1000
	}
	lines := Disassemble(mem, 0, 3)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].Mnemonic != "NOP" {
		t.Fatalf("lines[0] = %q, want NOP", lines[0].Mnemonic)
	}
	if lines[1].Mnemonic != "LD A, $05" {
		t.Fatalf("lines[1] = %q, want LD A, $05", lines[1].Mnemonic)
	}
	if lines[1].Address != 0x0001 {
		t.Fatalf("lines[1].Address = %#x, want 0x0001", lines[1].Address)
	}
	if lines[2].Mnemonic != "JP $1000" {
		t.Fatalf("lines[2] = %q, want JP $1000", lines[2].Mnemonic)
	}
}

func TestDisassembleCBAndEDPrefixes(t *testing.T) {
	mem := fakeMemory{
		0x0000: 0xCB, 0x47, // BIT 0, A
		0x0002: 0xED, 0xB0, // LDIR
	}
	lines := Disassemble(mem, 0, 2)
	if lines[0].Mnemonic != "BIT 0, A" {
		t.Fatalf("got %q, want BIT 0, A", lines[0].Mnemonic)
	}
	if lines[1].Mnemonic != "LDIR" {
		t.Fatalf("got %q, want LDIR", lines[1].Mnemonic)
	}
}

func TestDisassembleIndexedIXDisplacement(t *testing.T) {
	mem := fakeMemory{
		0x0000: 0xDD, 0x36, 0x05, 0x42, // LD (IX+5), $42
	}
	lines := Disassemble(mem, 0, 1)
	if lines[0].Mnemonic != "LD (IX+5), $42" {
		t.Fatalf("got %q, want LD (IX+5), $42", lines[0].Mnemonic)
	}
	if len(lines[0].Bytes) != 4 {
		t.Fatalf("consumed %d bytes, want 4", len(lines[0].Bytes))
	}
}

func TestBreakpointsSetClearHit(t *testing.T) {
	b := NewBreakpoints()
	if b.Hit(0x100) {
		t.Fatal("fresh set should have no breakpoints")
	}
	b.Set(0x100)
	if !b.Hit(0x100) {
		t.Fatal("0x100 should be armed")
	}
	b.Clear(0x100)
	if b.Hit(0x100) {
		t.Fatal("0x100 should be disarmed after Clear")
	}
}

func TestBreakpointsClearAll(t *testing.T) {
	b := NewBreakpoints()
	b.Set(0x10)
	b.Set(0x20)
	b.ClearAll()
	if len(b.List()) != 0 {
		t.Fatalf("List() = %v, want empty after ClearAll", b.List())
	}
}

func TestFormatRegistersIncludesPCAndFlags(t *testing.T) {
	s := snapshot.CPUState{PC: 0x8000, F: 0x41} // Z and C set
	out := FormatRegisters(s)
	if !strings.Contains(out, "PC=8000") {
		t.Fatalf("missing PC in output:\n%s", out)
	}
	if !strings.Contains(out, "flags: .Z.....C") {
		t.Fatalf("flag rendering wrong:\n%s", out)
	}
}

func TestFormatMemoryRendersHexAndASCII(t *testing.T) {
	mem := fakeMemory{0x0000: 'H', 0x0001: 'i', 0x0002: 0x00}
	out := FormatMemory(mem, 0, 1)
	if !strings.Contains(out, "48 69 00") {
		t.Fatalf("missing hex bytes:\n%s", out)
	}
	if !strings.Contains(out, "Hi.") {
		t.Fatalf("missing ASCII gutter:\n%s", out)
	}
}
