// Package memory implements the four-window MMU shared by the CPC and
// Spectrum machine models: a pool of 16K pages, four mutable read/write
// window pointers, and the per-T-cycle contention tables devices and
// the CPU consult through MREQDelay/IORQDelay (spec §3, §4.2).
package memory

const (
	// PageSize is the CPC/Spectrum unit of bank granularity: 16K.
	PageSize = 16384
	// WindowCount is the number of 16K windows the Z80's 64K address
	// space is divided into.
	WindowCount = 4
)

// Page is one 16K bank of RAM or ROM.
type Page [PageSize]byte

// nullWrite absorbs writes aimed at ROM; ones returns 0xFF for every
// read, modeling unpopulated RAM above a 16K Spectrum's fitted 16K.
var nullWrite Page
var onesPage Page

func init() {
	for i := range onesPage {
		onesPage[i] = 0xFF
	}
}

// WriteTrap lets a device (ULAplus, Plus ASIC, Dandanator) intercept a
// poke to a specific address range before it reaches the backing page.
// Returning true means the trap fully handled the write and the normal
// page write should be skipped.
type WriteTrap func(addr uint16, value byte) (handled bool)

// ReadTrap likewise intercepts a peek; ok=false falls through to the
// normal page read.
type ReadTrap func(addr uint16) (value byte, ok bool)

// MMU is the four-window memory controller described in spec §3/§4.2.
// It owns a pool of pages (RAM sized per model: 16K..2112K, plus ROM
// banks) and four (read, write) pointer pairs, one per 16K window.
type MMU struct {
	ramPages []Page
	romPages []Page

	rd [WindowCount]*Page
	wr [WindowCount]*Page

	// clash[0] is always zero (uncontended); clash[1] carries the
	// per-T-cycle wait-state penalty indexed by in-frame T counter.
	// windowClashMREQ/IORQ select which table applies per window,
	// collapsed to clash[0] uniformly under overclocking/Pentagon.
	clash            [2][65536]byte
	windowClashMREQ  [WindowCount]int
	windowClashIORQ  [WindowCount]int

	writeTraps []trapRange
	readTraps  []trapRange
}

type trapRange struct {
	start, end uint16
	write      WriteTrap
	read       ReadTrap
}

// New allocates an MMU with the given number of 16K RAM pages and ROM
// pages, and maps all four windows to RAM pages 0-3 (or the ones page
// for the windows beyond what ramPages supplies), matching the reset
// state a firmware cold-start expects.
func New(ramPages, romPages int) *MMU {
	m := &MMU{
		ramPages: make([]Page, ramPages),
		romPages: make([]Page, romPages),
	}
	for w := 0; w < WindowCount; w++ {
		if w < ramPages {
			m.rd[w] = &m.ramPages[w]
			m.wr[w] = &m.ramPages[w]
		} else {
			m.rd[w] = &onesPage
			m.wr[w] = &nullWrite
		}
	}
	return m
}

// RAMPage returns a pointer to RAM page index (0-based, 16K units), or
// nil if out of range - used by banking policies to program windows.
func (m *MMU) RAMPage(index int) *Page {
	if index < 0 || index >= len(m.ramPages) {
		return nil
	}
	return &m.ramPages[index]
}

// ROMPage returns a pointer to ROM page index.
func (m *MMU) ROMPage(index int) *Page {
	if index < 0 || index >= len(m.romPages) {
		return nil
	}
	return &m.romPages[index]
}

// LoadROM copies data into ROM page index, truncating/zero-padding to
// PageSize.
func (m *MMU) LoadROM(index int, data []byte) {
	p := m.ROMPage(index)
	if p == nil {
		return
	}
	n := copy(p[:], data)
	for i := n; i < PageSize; i++ {
		p[i] = 0
	}
}

// MapRead points window w's read pointer at page (nil maps the "ones"
// dummy page, matching unfitted RAM per spec §3).
func (m *MMU) MapRead(w int, page *Page) {
	if page == nil {
		page = &onesPage
	}
	m.rd[w] = page
}

// MapWrite points window w's write pointer at page (nil maps the
// null-write dummy page, absorbing writes to ROM windows).
func (m *MMU) MapWrite(w int, page *Page) {
	if page == nil {
		page = &nullWrite
	}
	m.wr[w] = page
}

func windowOf(addr uint16) (w int, off uint16) {
	return int(addr >> 14), addr & (PageSize - 1)
}

// Peek reads a byte with no trap/side-effect processing.
func (m *MMU) Peek(addr uint16) byte {
	w, off := windowOf(addr)
	return m.rd[w][off]
}

// Poke writes a byte with no trap/side-effect processing. Writes
// landing on the null-write page are silently absorbed, modeling a ROM
// window (spec §3 invariant).
func (m *MMU) Poke(addr uint16, v byte) {
	w, off := windowOf(addr)
	m.wr[w][off] = v
}

// AddWriteTrap registers a side-effecting write interceptor over
// [start,end], consulted by PokeTrap (ULAplus port-mapped regs, Plus
// ASIC register window, Dandanator command-sequence spy).
func (m *MMU) AddWriteTrap(start, end uint16, fn WriteTrap) {
	m.writeTraps = append(m.writeTraps, trapRange{start: start, end: end, write: fn})
}

// AddReadTrap registers a side-effecting read interceptor.
func (m *MMU) AddReadTrap(start, end uint16, fn ReadTrap) {
	m.readTraps = append(m.readTraps, trapRange{start: start, end: end, read: fn})
}

// PeekTrap reads through any registered ReadTrap first, falling back to
// the plain page read.
func (m *MMU) PeekTrap(addr uint16) byte {
	for _, t := range m.readTraps {
		if addr >= t.start && addr <= t.end {
			if v, ok := t.read(addr); ok {
				return v
			}
		}
	}
	return m.Peek(addr)
}

// PokeTrap writes through any registered WriteTrap first; if a trap
// reports handled, the underlying page is not touched (the trap owns
// the side effect entirely - e.g. a Plus ASIC register write that must
// not also land in RAM).
func (m *MMU) PokeTrap(addr uint16, v byte) {
	for _, t := range m.writeTraps {
		if addr >= t.start && addr <= t.end {
			if t.write(addr, v) {
				return
			}
		}
	}
	m.Poke(addr, v)
}

// SetWindowContention selects which clash table (0=none, 1=contended)
// applies to MREQ/IORQ accesses within window w. Overclocked or
// Pentagon-timed machines call this with mreq=0 for every window,
// collapsing all pointers to clash[0] per spec §3.
func (m *MMU) SetWindowContention(w int, mreqTable, iorqTable int) {
	m.windowClashMREQ[w] = mreqTable
	m.windowClashIORQ[w] = iorqTable
}

// LoadClashTable replaces clash[1] wholesale - the scheduler rebuilds
// it once per model/line-timing combination at setup (spec §3).
func (m *MMU) LoadClashTable(table [65536]byte) {
	m.clash[1] = table
}

// MREQDelay returns the contention penalty for a memory access to addr
// at in-frame T-cycle t, consulting the window the address currently
// maps into.
func (m *MMU) MREQDelay(addr uint16, t int) int {
	w, _ := windowOf(addr)
	return int(m.clash[m.windowClashMREQ[w]][uint16(t)])
}

// IORQDelay returns the contention penalty for an I/O access issued
// while the bus also touches a contended page (floating bus effects),
// at in-frame T-cycle t, using the IORQ table assigned to the given
// 16K window index.
func (m *MMU) IORQDelay(window int, t int) int {
	return int(m.clash[m.windowClashIORQ[window]][uint16(t)])
}
