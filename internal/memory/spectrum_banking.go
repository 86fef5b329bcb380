package memory

// plus3RAMModes is the four +3 alternate-RAM page sets selectable via
// the +3 paging register's special-mode bit (spec §4.2: "{0,1,2,3},
// {4,5,6,7}, {4,5,6,3}, {4,7,6,3}").
var plus3RAMModes = [4][4]int{
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{4, 5, 6, 3},
	{4, 7, 6, 3},
}

// SpectrumBanking implements the §4.2 Spectrum policy: window 0 is ROM
// (profile-selected), window 1 is fixed to RAM bank 5, window 2 fixed
// to bank 2, window 3 programmable 0-7 (or one of the plus3RAMModes
// quads when +3 special paging is active).
type SpectrumBanking struct {
	mmu *MMU

	roms    []*Page // ROM bank pool: 2 for 128K/+2, 4 for +3
	romSel  int
	ram3    int  // window-3 RAM bank when not in +3 special mode
	plus3   bool // +3 special paging active
	plus3M  int  // plus3RAMModes index
	trdos   bool // Betadisk ROM paged in over window 0
	trdosROM *Page
}

// NewSpectrumBanking wires a SpectrumBanking policy to mmu; roms holds
// the ROM bank pool (1 entry for 48K, 2 for 128K/+2, 4 for +3).
func NewSpectrumBanking(mmu *MMU, roms []*Page) *SpectrumBanking {
	b := &SpectrumBanking{mmu: mmu, roms: roms}
	b.apply()
	return b
}

// SelectROM programs the high-ROM selector (spec §4.2 MMU operation).
func (b *SpectrumBanking) SelectROM(id int) {
	b.romSel = id
	b.apply()
}

// SelectRAM programs window 3's RAM bank (0-7) for plain 128K paging.
func (b *SpectrumBanking) SelectRAM(bank int) {
	b.ram3 = bank & 7
	b.apply()
}

// SelectPlus3 programs the +3 alternate-RAM special mode: enabled
// picks one of the four plus3RAMModes quads (index 0-3); disabled
// reverts to plain 128K-style single-bank window 3 paging.
func (b *SpectrumBanking) SelectPlus3(enabled bool, modeIndex int) {
	b.plus3 = enabled
	b.plus3M = modeIndex & 3
	b.apply()
}

// SetTRDOSROMPaged pages the Betadisk ROM in over window 0 (TR-DOS
// trap firing when PC enters 0x3Dxx) or restores the normal ROM
// selection (PC leaving into non-ROM), per spec §4.2.
func (b *SpectrumBanking) SetTRDOSROMPaged(paged bool, trdosROM *Page) {
	b.trdos = paged
	b.trdosROM = trdosROM
	b.apply()
}

func (b *SpectrumBanking) apply() {
	// Window 1 and 2 are fixed: bank 5 and bank 2.
	b.mmu.MapRead(1, b.mmu.RAMPage(5))
	b.mmu.MapWrite(1, b.mmu.RAMPage(5))
	b.mmu.MapRead(2, b.mmu.RAMPage(2))
	b.mmu.MapWrite(2, b.mmu.RAMPage(2))

	if b.plus3 {
		cfg := plus3RAMModes[b.plus3M]
		for w := 0; w < WindowCount; w++ {
			page := b.mmu.RAMPage(cfg[w])
			b.mmu.MapRead(w, page)
			b.mmu.MapWrite(w, page)
		}
	} else {
		page := b.mmu.RAMPage(b.ram3)
		b.mmu.MapRead(3, page)
		b.mmu.MapWrite(3, page)
	}

	// Window 0: ROM, unless TR-DOS has paged its own ROM in, unless the
	// +3 special-paging quad above already claimed it as RAM.
	if !b.plus3 {
		rom := b.trdosROM
		if !b.trdos && b.romSel < len(b.roms) {
			rom = b.roms[b.romSel]
		}
		b.mmu.MapRead(0, rom)
		b.mmu.MapWrite(0, nil)
	}
}

// Contention reports whether RAM bank index is contended on this
// model: banks 5 and 7 always, banks 1 and 3 on 128K, banks 4 and 6 on
// +3 (spec §4.2).
func Contention(bank int, has128K, hasPlus3 bool) bool {
	switch bank {
	case 5, 7:
		return true
	case 1, 3:
		return has128K
	case 4, 6:
		return hasPlus3
	default:
		return false
	}
}
