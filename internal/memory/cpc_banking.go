package memory

// cpcRAMConfigs is the 8-entry table of 16K RAM page assignments to
// windows 0-3, selected by the low 3 bits of the Gate Array's RAM
// configuration byte (spec §4.2, CPC policy table).
var cpcRAMConfigs = [8][4]int{
	{0, 1, 2, 3},
	{0, 1, 2, 7},
	{4, 5, 6, 7},
	{0, 3, 2, 7},
	{0, 4, 2, 3},
	{0, 5, 2, 3},
	{0, 6, 2, 3},
	{0, 7, 2, 3},
}

// CPCBanking applies the spec §4.2 CPC RAM/ROM window policy to an
// MMU: the upper ROM window (window 3) maps firmware unless the
// caller's ROM-enable state says otherwise, and RAM windows follow
// cpcRAMConfigs; extraBank64K appends an additional 64K RAM chunk
// (four more 16K pages) selected by the high bits of the CPC 6128+
// extended memory register, for RAM sizes above 128K.
type CPCBanking struct {
	mmu *MMU

	lowROMEnabled  bool
	highROMEnabled bool
	lowROM         *Page
	highROM        *Page

	gateRAM   byte // last value written to the RAM configuration register
	extraBank int  // extra 64K chunk index (0 = base 128K, 1..7 = 6128+/+ expansion)
}

// NewCPCBanking wires a CPCBanking policy to mmu and resets it to
// config 0 (windows 0,1,2,3) with both ROMs enabled, the firmware
// cold-start state.
func NewCPCBanking(mmu *MMU, lowROM, highROM *Page) *CPCBanking {
	b := &CPCBanking{mmu: mmu, lowROMEnabled: true, highROMEnabled: true, lowROM: lowROM, highROM: highROM}
	b.apply()
	return b
}

// SelectRAM programs the RAM banking register: cfg selects one of the
// eight window assignments in cpcRAMConfigs, extraBits selects which
// additional 64K chunk extends the machine beyond the base 128K.
func (b *CPCBanking) SelectRAM(cfg byte, extraBits int) {
	b.gateRAM = cfg & 0x07
	b.extraBank = extraBits
	b.apply()
}

// SetROMEnable toggles the lower (0x0000-0x3FFF) and upper
// (0xC000-0xFFFF) ROM overlays independently, per the Gate Array's
// ROM enable bits.
func (b *CPCBanking) SetROMEnable(low, high bool) {
	b.lowROMEnabled = low
	b.highROMEnabled = high
	b.apply()
}

func (b *CPCBanking) apply() {
	cfg := cpcRAMConfigs[b.gateRAM]
	for w := 0; w < WindowCount; w++ {
		pageIdx := cfg[w] + b.extraBank*4
		page := b.mmu.RAMPage(pageIdx)
		b.mmu.MapWrite(w, page)
		b.mmu.MapRead(w, page)
	}
	if b.lowROMEnabled && b.lowROM != nil {
		b.mmu.MapRead(0, b.lowROM)
	}
	if b.highROMEnabled && b.highROM != nil {
		b.mmu.MapRead(3, b.highROM)
	}
}
