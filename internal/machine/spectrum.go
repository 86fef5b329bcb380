package machine

import (
	"log"
	"os"

	"github.com/retrocore/cpcec-go/internal/disk"
	"github.com/retrocore/cpcec-go/internal/fdc/wd1793"
	"github.com/retrocore/cpcec-go/internal/memory"
	"github.com/retrocore/cpcec-go/internal/psg"
	"github.com/retrocore/cpcec-go/internal/snapshot"
	"github.com/retrocore/cpcec-go/internal/tape"
	"github.com/retrocore/cpcec-go/internal/video/spectrum"
	"github.com/retrocore/cpcec-go/internal/z80"
)

// spectrumTicksPerFrame derives the Z80 T-cycle budget for one video
// frame from the active timing model (spec §4.4's per-model tPerLine *
// lines product).
func spectrumTicksPerFrame(m spectrum.Model) int {
	switch m {
	case spectrum.Model48K:
		return 224 * 312
	case spectrum.ModelPentagon:
		return 224 * 320
	default: // 128K, +3
		return 228 * 311
	}
}

// Spectrum is the ZX Spectrum machine: Z80 + MMU + ULA + AY-3-8910 (on
// 128K/+2/+3 models, through the Betadisk-adjacent port) + WD1793
// Betadisk controller, assembled into the same RunFrame cooperative
// loop shape as CPC (spec §9).
type Spectrum struct {
	opts  Options
	model spectrum.Model
	log   *log.Logger

	cpu     *z80.CPU
	mmu     *memory.MMU
	banking *memory.SpectrumBanking
	ula     *spectrum.ULA
	ay      *psg.Chip // nil on plain 48K
	fdc     *wd1793.WD1793

	has128K, hasPlus3 bool

	keyMatrix [8]byte

	tapePlayer *tape.Player

	tCounter int
	clkAccum int // T-state accumulator for the AY's 2:1 clock divider (see Tick)

	pendingIRQ     bool
	irqCyclesLeft  int
}

// NewSpectrum builds a Spectrum machine. roms holds the ROM bank pool
// (1 entry for 48K, 2 for 128K/+2, 4 for +3); trdosROM may be nil if no
// Betadisk interface is fitted.
func NewSpectrum(opts Options, model spectrum.Model, roms [][]byte, trdosROM []byte, img wd1793.ImageIO) *Spectrum {
	logger := log.New(os.Stderr, "spectrum: ", log.LstdFlags)

	ramPages := opts.RAMSizeKB / 16
	if ramPages < 4 {
		ramPages = 4
	}
	mmu := memory.New(ramPages, len(roms))
	romPages := make([]*memory.Page, len(roms))
	for i, rom := range roms {
		p := mmu.ROMPage(i)
		copy(p[:], rom)
		romPages[i] = p
	}
	var trdosPage *memory.Page
	if trdosROM != nil {
		trdosPage = &memory.Page{}
		copy(trdosPage[:], trdosROM)
	}

	s := &Spectrum{
		opts:      opts,
		model:     model,
		log:       logger,
		mmu:       mmu,
		banking:   memory.NewSpectrumBanking(mmu, romPages),
		ula:       spectrum.New(model),
		has128K:   model != spectrum.Model48K,
		hasPlus3:  model == spectrum.ModelPlus3,
	}
	if s.has128K {
		s.ay = psg.New(psg.ClockSpectrum, 44100)
	}
	if img != nil {
		s.fdc = wd1793.New(img)
	}
	if trdosPage != nil {
		s.banking.SetTRDOSROMPaged(false, trdosPage)
	}

	// Mirror every CPU write into the screen (bank 5) address range into
	// the ULA's own VRAM buffer; the MMU's normal page write still
	// happens too (handled=false) so bank-5 reads stay consistent.
	vram := s.ula.VRAM()
	mmu.AddWriteTrap(0x4000, 0x5AFF, func(addr uint16, value byte) bool {
		vram[addr-0x4000] = value
		return false
	})

	s.cpu = z80.New(s)
	return s
}

// --- z80.Bus implementation ---

func (s *Spectrum) Read(addr uint16) byte     { return s.mmu.Peek(addr) }
func (s *Spectrum) Write(addr uint16, v byte) { s.mmu.PokeTrap(addr, v) }

func (s *Spectrum) Tick(cycles int) {
	s.ula.SyncT(cycles)
	s.tCounter += cycles
	budget := spectrumTicksPerFrame(s.model)
	if s.tCounter >= budget {
		s.tCounter -= budget
	}
	if s.ay != nil {
		// The AY runs at ~1.7734MHz against a ~3.5MHz Z80 clock on the
		// 128K/+2/+3 models: tick it half as often as the CPU's T-states.
		s.clkAccum += cycles
		for s.clkAccum >= 2 {
			s.clkAccum -= 2
			s.ay.Tick()
		}
	}
	if s.tapePlayer != nil {
		s.tapePlayer.SyncT(cycles)
	}
	if s.ula.IRQAsserted() {
		s.pendingIRQ = true
	}
}

func (s *Spectrum) Contend(addr uint16, kind z80.AccessKind) int {
	if addr < 0x4000 {
		return 0 // ROM window, never contended
	}
	return s.ula.Contention()
}

// In decodes the ULA keyboard/port-0xFE read and (on 128K+ models) the
// AY data port and Betadisk status/data registers (spec §4.4/§4.6
// "configurable routing table keyed by the high byte").
func (s *Spectrum) In(port uint16) byte {
	switch {
	case port&0x0001 == 0:
		return s.readKeyboard(port) | s.ula.FloatingBus()&0xE0
	case s.ay != nil && port&0xC002 == 0xC000:
		return s.ay.Read()
	case s.fdc != nil && port&0xFF == 0x1F:
		return s.fdc.ReadStatus()
	case s.fdc != nil && port&0xFF == 0x3F:
		return s.fdc.TrackReg()
	case s.fdc != nil && port&0xFF == 0x5F:
		return s.fdc.SectorReg()
	case s.fdc != nil && port&0xFF == 0x7F:
		return s.fdc.ReadData()
	default:
		return 0xFF
	}
}

func (s *Spectrum) readKeyboard(port uint16) byte {
	row := byte(0x1F)
	hi := byte(port >> 8)
	for r := 0; r < 8; r++ {
		if hi&(1<<uint(r)) == 0 {
			row &= ^s.keyMatrix[r] & 0x1F
		}
	}
	return row
}

func (s *Spectrum) Out(port uint16, value byte) {
	switch {
	case port&0x0001 == 0:
		s.ula.WritePort6(value)
	case s.ay != nil && port&0xC002 == 0xC000:
		s.ay.SelectRegister(value & 0x0F)
	case s.ay != nil && port&0x8002 == 0x8000:
		s.ay.Write(value)
	case s.has128K && port&0x8002 == 0x0000 && port&0x4000 == 0x4000:
		s.write128KPaging(value)
	case s.hasPlus3 && port&0xF002 == 0x1000:
		s.writePlus3Paging(value)
	case s.fdc != nil && port&0xFF == 0x1F:
		s.fdc.WriteCommand(value)
	case s.fdc != nil && port&0xFF == 0x3F:
		s.fdc.WriteTrackReg(value)
	case s.fdc != nil && port&0xFF == 0x5F:
		s.fdc.WriteSectorReg(value)
	case s.fdc != nil && port&0xFF == 0x7F:
		s.fdc.WriteData(value)
	}
}

// write128KPaging handles the 128K/+2 paging register (port 0x7FFD):
// bits 0-2 select window-3 RAM, bit 3 selects screen (shadow/normal —
// cosmetic, not modeled), bit 4 selects ROM. Bit 5, the paging lock,
// is not modeled: later writes still change the paging.
func (s *Spectrum) write128KPaging(value byte) {
	s.banking.SelectRAM(int(value & 0x07))
	s.banking.SelectROM(int((value >> 4) & 0x01))
}

// writePlus3Paging handles the +3's second paging register (port
// 0x1FFD): bit 0 special-mode enable, bits 1-2 select the alternate
// RAM quad. Bit 2 does not extend the ROM selector: the ROM choice
// comes from port 0x7FFD bit 4 alone.
func (s *Spectrum) writePlus3Paging(value byte) {
	special := value&0x01 != 0
	s.banking.SelectPlus3(special, int((value>>1)&0x03))
}

// --- lifecycle ---

// Reset reinitializes every component to power-on state.
func (s *Spectrum) Reset() {
	s.cpu.Reset()
	s.ula.Reset()
	if s.ay != nil {
		s.ay.Reset()
	}
	if s.fdc != nil {
		s.fdc.Reset()
	}
	s.tCounter = 0
	s.pendingIRQ = false
}

// RunFrame advances the machine by exactly one frame, raising the
// ULA's 50Hz interrupt at an instruction boundary the way the real
// chip asserts /INT for a fixed T-cycle window (spec §5).
func (s *Spectrum) RunFrame() {
	budget := spectrumTicksPerFrame(s.model)
	consumed := 0
	for consumed < budget {
		if s.pendingIRQ {
			s.cpu.SetIRQLine(true)
			s.pendingIRQ = false
		}
		step := budget - consumed
		if s.tapePlayer != nil {
			if pc, armed := s.tapePlayer.FeederTriggerPC(); armed {
				step = 1
				if s.cpu.PC == pc {
					s.tapePlayer.FeedByte(s.cpu)
				}
			}
		}
		consumed += s.cpu.Run(step)
		s.cpu.SetIRQLine(false)
	}
}

// FrameSize reports the fixed canvas Frame() is addressed against.
func (s *Spectrum) FrameSize() (w, h int) { return s.ula.FrameSize() }

// Frame returns the ULA-rendered RGBA framebuffer for the frame just
// completed.
func (s *Spectrum) Frame() []byte { return s.ula.Frame() }

// PSG exposes the AY-3-8910 so a host audio backend (internal/psg's
// OtoBackend) can pull samples from it; nil on plain 48K models which
// have no AY chip fitted.
func (s *Spectrum) PSG() *psg.Chip { return s.ay }

// LoadSNA applies a parsed Spectrum .SNA snapshot onto this machine.
func (s *Spectrum) LoadSNA(sna *snapshot.SpectrumSNA) {
	snapshot.Apply(s.cpu, sna.CPU)
	s.ula.WritePort6(sna.Border)
	copy(s.mmu.RAMPage(5)[:], sna.RAM48K[0:16384])
	copy(s.mmu.RAMPage(2)[:], sna.RAM48K[16384:32768])
	windowThreeBank := int(sna.PagingReg & 0x07)
	copy(s.mmu.RAMPage(windowThreeBank)[:], sna.RAM48K[32768:49152])
	if len(sna.Banks) > 0 {
		s.banking.SelectRAM(windowThreeBank)
		s.banking.SelectROM(int((sna.PagingReg >> 4) & 0x01))
		for bank, data := range sna.Banks {
			if page := s.mmu.RAMPage(bank); page != nil {
				copy(page[:], data)
			}
		}
	}
}

// AttachDisk logs the size of a parsed TRD image. The Betadisk
// controller keeps reading the image it was built with (NewSpectrum's
// img); d is not connected to it.
func (s *Spectrum) AttachDisk(d *disk.TRD) {
	if s.fdc == nil {
		s.log.Printf("no Betadisk interface fitted, ignoring disk attach")
		return
	}
	s.log.Printf("betadisk: image attached, %d bytes", len(d.Bytes()))
}

// InsertTape attaches a decoded pulse train and starts playback.
func (s *Spectrum) InsertTape(edges []tape.Edge) {
	s.tapePlayer = tape.NewPlayer(edges)
	s.tapePlayer.Play()
}

// ArmFastLoad tries to identify raw (the current block's undecoded
// bytes) against the known loader fingerprints and, if recognized and
// modeled, switches RunFrame to fast-feed it instead of cycle-stepping
// its pulses.
func (s *Spectrum) ArmFastLoad(raw []byte) {
	if s.tapePlayer != nil {
		s.tapePlayer.ArmFastLoad(raw)
	}
}

// SetKey sets or clears a key's matrix bit (row 0-7, bit 0-4), driven
// by the host's keyboard handling layer.
func (s *Spectrum) SetKey(row, bit int, down bool) {
	if down {
		s.keyMatrix[row] |= 1 << uint(bit)
	} else {
		s.keyMatrix[row] &^= 1 << uint(bit)
	}
}

// Registers snapshots the Z80's architectural state for the debugger's
// register view (spec §11).
func (s *Spectrum) Registers() snapshot.CPUState { return snapshot.Capture(s.cpu) }

// SetRegisters restores a register snapshot, letting the debugger edit
// PC/SP/flags interactively between single steps.
func (s *Spectrum) SetRegisters(st snapshot.CPUState) { snapshot.Apply(s.cpu, st) }

// Step executes exactly one instruction and returns the T-cycles it
// consumed, the debugger's single-step primitive.
func (s *Spectrum) Step() int {
	if s.pendingIRQ {
		s.cpu.SetIRQLine(true)
		s.pendingIRQ = false
	}
	n := s.cpu.Run(1)
	s.cpu.SetIRQLine(false)
	return n
}
