package memory

import "testing"

func TestWindowsDefaultToSequentialRAMPages(t *testing.T) {
	m := New(4, 1)
	m.RAMPage(0)[0] = 0xAA
	if m.Peek(0x0000) != 0xAA {
		t.Fatal("window 0 should read RAM page 0")
	}
	m.RAMPage(3)[PageSize-1] = 0x55
	if m.Peek(0xFFFF) != 0x55 {
		t.Fatal("window 3 should read RAM page 3")
	}
}

func TestPokeToNullWriteIsAbsorbed(t *testing.T) {
	m := New(0, 1)
	rom := m.ROMPage(0)
	rom[0] = 0x01
	m.MapRead(0, rom)
	m.MapWrite(0, nil)
	m.Poke(0x0000, 0x99)
	if m.Peek(0x0000) != 0x01 {
		t.Fatal("write to ROM window must not alter the ROM page")
	}
}

func TestCPCBankingConfig2MapsUpperRAM(t *testing.T) {
	mmu := New(8, 2)
	lowROM, highROM := mmu.ROMPage(0), mmu.ROMPage(1)
	b := NewCPCBanking(mmu, lowROM, highROM)
	mmu.RAMPage(4)[0] = 0x11
	mmu.RAMPage(7)[0] = 0x22
	b.SetROMEnable(false, false)
	b.SelectRAM(2, 0) // {4,5,6,7}
	if mmu.Peek(0x0000) != 0x11 {
		t.Fatalf("window 0 should map RAM page 4, got %#x", mmu.Peek(0x0000))
	}
	if mmu.Peek(0xC000) != 0x22 {
		t.Fatalf("window 3 should map RAM page 7, got %#x", mmu.Peek(0xC000))
	}
}

func TestSpectrumBankingFixedWindows(t *testing.T) {
	mmu := New(8, 2)
	roms := []*Page{mmu.ROMPage(0), mmu.ROMPage(1)}
	b := NewSpectrumBanking(mmu, roms)
	mmu.RAMPage(5)[0] = 0x77
	mmu.RAMPage(2)[0] = 0x88
	if mmu.Peek(0x4000) != 0x77 {
		t.Fatalf("window 1 should always be bank 5, got %#x", mmu.Peek(0x4000))
	}
	if mmu.Peek(0x8000) != 0x88 {
		t.Fatalf("window 2 should always be bank 2, got %#x", mmu.Peek(0x8000))
	}
	b.SelectRAM(6)
	mmu.RAMPage(6)[0] = 0x66
	if mmu.Peek(0xC000) != 0x66 {
		t.Fatalf("window 3 should follow SelectRAM, got %#x", mmu.Peek(0xC000))
	}
}

func TestContentionTable(t *testing.T) {
	if !Contention(5, false, false) {
		t.Fatal("bank 5 is always contended")
	}
	if Contention(1, false, false) {
		t.Fatal("bank 1 only contended on 128K")
	}
	if !Contention(1, true, false) {
		t.Fatal("bank 1 must be contended on 128K")
	}
}
