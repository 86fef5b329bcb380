package machine

import (
	"log"
	"os"

	"github.com/retrocore/cpcec-go/internal/disk"
	"github.com/retrocore/cpcec-go/internal/fdc/fdc765"
	"github.com/retrocore/cpcec-go/internal/memory"
	"github.com/retrocore/cpcec-go/internal/psg"
	"github.com/retrocore/cpcec-go/internal/snapshot"
	"github.com/retrocore/cpcec-go/internal/tape"
	cpcvideo "github.com/retrocore/cpcec-go/internal/video/cpc"
	"github.com/retrocore/cpcec-go/internal/z80"
)

// cpcTicksPerFrame derives the Z80 T-cycle budget for one video frame:
// 4MHz CPC clock / 50Hz PAL refresh.
const cpcTicksPerFrame = 4_000_000 / 50

// cpcFrameWidth/cpcFrameHeight size the RGBA canvas Frame() returns:
// the worst case of any CRTC register program this core accepts
// (mode 2's 8 pixels/byte at a generous max displayed-character count,
// and the full PAL line count), so the compositor never needs to
// reallocate mid-run.
const (
	cpcFrameWidth  = 768
	cpcFrameHeight = 312
)

// CPC is the Amstrad CPC machine: Z80 + MMU + CRTC + Gate Array +
// (optionally) Plus ASIC + PSG + FDC765, assembled into one cooperative
// scheduler loop (spec §2 "Control flow", §9 "aggregates all of this
// into a single Machine struct").
type CPC struct {
	opts Options
	log  *log.Logger

	cpu     *z80.CPU
	mmu     *memory.MMU
	banking *memory.CPCBanking
	crtc    *cpcvideo.CRTC
	ga      *cpcvideo.GateArray
	asic    *cpcvideo.ASIC
	psg     *psg.Chip
	fdc     *fdc765.FDC765

	keyMatrix [8]byte // 8x8 CPC keyboard matrix, active low
	keyRowSel byte
	ppiPortA  byte // last byte latched on PPI port A (0xF4xx)

	tapePlayer *tape.Player

	tCounter int // in-frame T-cycle counter, reset at frame end (spec §3 invariant)
	clkAccum int // fractional 4MHz->1MHz divider for the CRTC/Gate Array/PSG character clock

	frameBuf       []byte // cpcFrameWidth*cpcFrameHeight*4 RGBA, filled by plotPixel
	pixelCol       int
	pixelRow       int
	vsyncWasActive bool

	pendingIRQ bool
}

// NewCPC builds a CPC machine from opts, loading lowerROM into the lower
// ROM slot (the OS firmware) and upperROM into the upper ROM slot (run
// passes BASIC there); both are required. No AMSDOS ROM is loaded.
func NewCPC(opts Options, lowerROM, upperROM []byte, img fdc765.ImageIO) *CPC {
	logger := log.New(os.Stderr, "cpc: ", log.LstdFlags)

	ramPages := opts.RAMSizeKB / 16
	if ramPages < 4 {
		ramPages = 4
	}
	mmu := memory.New(ramPages, 2)
	copy(mmu.ROMPage(0)[:], lowerROM)
	copy(mmu.ROMPage(1)[:], upperROM)

	banking := memory.NewCPCBanking(mmu, mmu.ROMPage(0), mmu.ROMPage(1))

	c := &CPC{
		opts:     opts,
		log:      logger,
		mmu:      mmu,
		banking:  banking,
		crtc:     cpcvideo.NewCRTC(),
		ga:       cpcvideo.NewGateArray(),
		asic:     cpcvideo.NewASIC(),
		psg:      psg.New(psg.ClockCPC, 44100),
		fdc:      fdc765.New(img),
		frameBuf: make([]byte, cpcFrameWidth*cpcFrameHeight*4),
	}
	c.asic.SetDMALinks(mmu, c.psg)
	c.cpu = z80.New(c)
	return c
}

// --- z80.Bus implementation ---

func (c *CPC) Read(addr uint16) byte  { return c.mmu.Peek(addr) }
func (c *CPC) Write(addr uint16, v byte) { c.mmu.Poke(addr, v) }

// cpcCharacterClockDivider is the ratio of the 4MHz Z80 clock to the
// CRTC/PSG's shared 1MHz character clock.
const cpcCharacterClockDivider = 4

func (c *CPC) Tick(cycles int) {
	c.clkAccum += cycles
	for c.clkAccum >= cpcCharacterClockDivider {
		c.clkAccum -= cpcCharacterClockDivider
		c.renderCharacter()
		hsyncFell := c.crtc.Tick()
		if hsyncFell {
			c.ga.OnHSyncFallingEdge(c.crtc.VSync())
			c.asic.OnScanline(int(c.crtc.RasterRow()))
			c.pixelRow++
			c.pixelCol = 0
		}
		vsync := c.crtc.VSync()
		if vsync && !c.vsyncWasActive {
			c.pixelRow = 0
		}
		c.vsyncWasActive = vsync
		c.psg.Tick()
	}
	c.tCounter += cycles
	if c.tCounter >= cpcTicksPerFrame {
		c.tCounter -= cpcTicksPerFrame
	}
	if c.tapePlayer != nil {
		c.tapePlayer.SyncT(cycles)
	}
	if c.ga.InterruptPending() || c.asic.InterruptPending() {
		c.pendingIRQ = true
	}
}

// renderCharacter fetches and decodes the byte the CRTC is currently
// addressing (if the beam is inside the displayed window) into the
// frame buffer, one character cell wide, mirroring the way the real
// Gate Array latches a byte off the bus every character clock and
// shifts it out pixel by pixel (spec §4.3 "Screen address").
func (c *CPC) renderCharacter() {
	if !c.crtc.DisplayEnabled() {
		return
	}
	b := c.mmu.Peek(c.crtc.MemoryAddress())
	for _, pen := range c.ga.PixelsForByte(b) {
		c.plotPixel(pen)
	}
}

// plotPixel resolves one decoded pen to RGB (through the Plus ASIC's
// 4096-color palette once unlocked, the Gate Array's 27-color hardware
// palette otherwise) and writes it into the frame buffer at the
// current beam position, then advances the column.
func (c *CPC) plotPixel(pen byte) {
	defer func() { c.pixelCol++ }()
	if c.pixelRow < 0 || c.pixelRow >= cpcFrameHeight || c.pixelCol < 0 || c.pixelCol >= cpcFrameWidth {
		return
	}
	var rgb [3]byte
	if c.asic.Unlocked() {
		rgb = c.asic.PaletteRGB(pen)
	} else {
		rgb = c.ga.PenRGB(pen)
	}
	idx := (c.pixelRow*cpcFrameWidth + c.pixelCol) * 4
	c.frameBuf[idx+0] = rgb[0]
	c.frameBuf[idx+1] = rgb[1]
	c.frameBuf[idx+2] = rgb[2]
	c.frameBuf[idx+3] = 0xFF
}

func (c *CPC) Contend(addr uint16, kind z80.AccessKind) int {
	// CPC memory contention is driven by the Gate Array's display-fetch
	// window, not a per-address table like the Spectrum's; a real
	// implementation samples c.crtc.DisplayEnabled() here. Unmodeled for
	// now: CPC contention only matters inside the 1MHz-synchronised
	// video RAM fetch window and is a smaller effect than the
	// Spectrum's, per spec §9's note that CPC's own emulation
	// approximation is itself imperfect in places.
	return 0
}

// In/Out decode the CPC's partial port address space: the Gate Array/
// ASIC claim 0x4000-0x7FFF, the CRTC 0xBCxx/0xBDxx, the PPI 0xF4xx
// (PSG data)/0xF6xx (PSG control + keyboard row select), and the FDC
// 0xFAxx/0xFBxx (spec §9 "configurable routing table keyed by the
// high byte").
func (c *CPC) In(port uint16) byte {
	switch {
	case port&0xFF00 == 0xF400: // PPI port A: PSG data
		return c.psg.Read()
	case port&0xFF00 == 0xF500: // PPI port B: keyboard matrix row, active low
		return c.readKeyboard()
	case port&0xFF00 == 0xFB00: // FDC main status / data
		if port&0x01 == 0 {
			return c.fdc.MainStatus()
		}
		return c.fdc.ReadData()
	case port&0xFF00 == 0xBD00:
		return c.crtc.ReadData()
	default:
		return 0xFF
	}
}

func (c *CPC) Out(port uint16, value byte) {
	switch {
	case port&0xC000 == 0x4000:
		// The lock sequence is snooped on every write to this port
		// family regardless of what the byte also means to the Gate
		// Array, matching how the real ASIC listens alongside it.
		c.asic.WriteLockSequence(value)
		switch {
		case c.asic.Unlocked():
			// once the Plus features are unlocked the ASIC takes over
			// the whole 0x4000-0x7FFF decode from the Gate Array.
			c.asic.WriteRegister(port-0x4000, value)
		case value>>6 == 3: // 6128 RAM expansion register
			c.banking.SelectRAM(value&0x07, int(value>>3)&0x07)
		default: // Gate Array ink/mode/ROM register
			c.ga.WriteControl(value)
			c.banking.SetROMEnable(c.ga.LowerROMEnabled(), c.ga.UpperROMEnabled())
		}
	case port&0xFF00 == 0xBC00:
		c.crtc.SelectRegister(value)
	case port&0xFF00 == 0xBD00:
		c.crtc.WriteData(value)
	case port&0xFF00 == 0xF400: // PPI port A: the byte the PSG function in port C will act on
		c.ppiPortA = value
	case port&0xFF00 == 0xF600: // PPI port C: PSG BDIR/BC1 function select + keyboard row select
		c.handlePPIControl(value)
	case port&0xFF00 == 0xFA00: // FDC motor control
	case port&0xFF00 == 0xFB00:
		c.fdc.WriteData(value)
	}
}

// handlePPIControl decodes the PPI's port C write: bits 7-6 carry the
// PSG's BDIR/BC1 control lines (00 inactive, 01 read, 10 write, 11
// latch register address), acting on whatever byte was last written to
// port A; bits 0-3 independently select the keyboard matrix row for
// the next port B read.
func (c *CPC) handlePPIControl(value byte) {
	switch value >> 6 {
	case 2:
		c.psg.Write(c.ppiPortA)
	case 3:
		c.psg.SelectRegister(c.ppiPortA & 0x0F)
	}
	c.keyRowSel = value & 0x0F
}

// readKeyboard returns the currently-selected matrix row, active low
// (a held key clears its bit).
func (c *CPC) readKeyboard() byte {
	if int(c.keyRowSel) >= len(c.keyMatrix) {
		return 0xFF
	}
	return ^c.keyMatrix[c.keyRowSel]
}

// SetKey sets or clears a key's matrix bit (row 0-7, bit 0-7), driven
// by the host's keyboard handling layer.
func (c *CPC) SetKey(row, bit int, down bool) {
	if down {
		c.keyMatrix[row] |= 1 << uint(bit)
	} else {
		c.keyMatrix[row] &^= 1 << uint(bit)
	}
}

// --- lifecycle ---

// Reset reinitializes every component to power-on state (spec §3
// "Lifecycles"), equivalent to the source's "all_reset".
func (c *CPC) Reset() {
	c.cpu.Reset()
	c.crtc.Reset()
	c.ga.Reset()
	c.asic.Reset()
	c.psg.Reset()
	c.fdc.Reset()
	c.tCounter = 0
	c.pendingIRQ = false
}

// RunFrame advances the machine by exactly one 50Hz video frame,
// servicing the Gate Array's line-52 interrupt at instruction
// boundaries the way real firmware observes it (spec §5 "Suspension
// points... the scheduler checks the signal word... at instruction
// boundaries").
func (c *CPC) RunFrame() {
	budget := cpcTicksPerFrame
	consumed := 0
	for consumed < budget {
		if c.pendingIRQ {
			c.cpu.SetIRQLine(true)
			c.pendingIRQ = false
		}
		step := budget - consumed
		if c.tapePlayer != nil {
			if pc, armed := c.tapePlayer.FeederTriggerPC(); armed {
				// Single-step while a fast-load feeder is armed so the
				// trigger PC is never missed between Run calls.
				step = 1
				if c.cpu.PC == pc {
					c.tapePlayer.FeedByte(c.cpu)
				}
			}
		}
		consumed += c.cpu.Run(step)
		c.cpu.SetIRQLine(false)
	}
}

// Frame returns the CRTC/Gate-Array-rendered RGBA framebuffer for the
// frame just completed, handed to the host's presenter (spec §6
// `run_one_frame() -> Frame`). Plus ASIC hardware sprites and the
// border outside the CRTC's displayed window are not drawn into it.
func (c *CPC) Frame() []byte { return c.frameBuf }

// FrameSize reports the fixed canvas Frame() is addressed against.
func (c *CPC) FrameSize() (w, h int) { return cpcFrameWidth, cpcFrameHeight }

// PSG exposes the AY-3-8912 so a host audio backend (internal/psg's
// OtoBackend) can pull samples from it.
func (c *CPC) PSG() *psg.Chip { return c.psg }

// LoadSNA applies a parsed CPC .SNA snapshot onto this machine.
func (c *CPC) LoadSNA(s *snapshot.CPCSNA) {
	snapshot.Apply(c.cpu, s.CPU)
	c.ga.WriteControl(0x80 | s.GAMode)
	for pen, ink := range s.GAInk {
		c.ga.WriteControl(byte(pen))
		c.ga.WriteControl(0x40 | ink)
	}
	c.crtc.SelectRegister(s.CRTCSel)
	for i, v := range s.CRTCRegs {
		c.crtc.SelectRegister(byte(i))
		c.crtc.WriteData(v)
	}
	for i, v := range s.PSGRegs {
		c.psg.WriteRegister(byte(i), v)
	}
	for b, bank := range s.RAMBanks {
		for p := 0; p < 4 && (p+1)*16384 <= len(bank); p++ {
			if page := c.mmu.RAMPage(b*4 + p); page != nil {
				copy(page[:], bank[p*16384:(p+1)*16384])
			}
		}
	}
}

// AttachDisk marks drive (0 or 1) as present and logs the image
// loaded into it. The backing ImageIO itself is bound once at
// construction (fdc765.New), matching the controller's real hardware
// model of one image per controller instance; swapping disks in this
// core means constructing a new CPC with the new image.
func (c *CPC) AttachDisk(drive int, d *disk.DSK) {
	c.fdc.Attach(drive, d.Sides() > 1)
	c.log.Printf("drive %d: %q, %d tracks", drive, d.Title(), d.NumTracks())
}

// InsertTape attaches a decoded pulse train and starts playback.
func (c *CPC) InsertTape(edges []tape.Edge) {
	c.tapePlayer = tape.NewPlayer(edges)
	c.tapePlayer.Play()
}

// ArmFastLoad tries to identify raw (the current block's undecoded
// bytes) against the known loader fingerprints and, if recognized and
// modeled, switches RunFrame to fast-feed it instead of cycle-stepping
// its pulses.
func (c *CPC) ArmFastLoad(raw []byte) {
	if c.tapePlayer != nil {
		c.tapePlayer.ArmFastLoad(raw)
	}
}

// Registers snapshots the Z80's architectural state for the debugger's
// register view (spec §11).
func (c *CPC) Registers() snapshot.CPUState { return snapshot.Capture(c.cpu) }

// SetRegisters restores a register snapshot, letting the debugger edit
// PC/SP/flags interactively between single steps.
func (c *CPC) SetRegisters(s snapshot.CPUState) { snapshot.Apply(c.cpu, s) }

// Step executes exactly one instruction and returns the T-cycles it
// consumed, the debugger's single-step primitive.
func (c *CPC) Step() int {
	if c.pendingIRQ {
		c.cpu.SetIRQLine(true)
		c.pendingIRQ = false
	}
	n := c.cpu.Run(1)
	c.cpu.SetIRQLine(false)
	return n
}
