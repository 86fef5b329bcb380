// Package snapshot implements the machine-state snapshot containers
// both families use: the Spectrum/CPC SNA formats, Z80 (v1-v3, with
// ED-ED run-length page compression), and SZX (a chunked 4CC
// container, the Spectrum's modern replacement for Z80). Grounded on
// the teacher's `memory_bus.go` fixed-header-then-payload parsing
// idiom, already reused for internal/disk's container formats.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/retrocore/cpcec-go/internal/z80"
)

// CPUState is the subset of internal/z80.CPU a snapshot format
// captures; snapshot.Apply copies these fields onto a live CPU and
// snapshot.Capture reads them back off one, keeping every format
// decoupled from the CPU's internal layout.
type CPUState struct {
	A, F, B, C, D, E, H, L             byte
	A2, F2, B2, C2, D2, E2, H2, L2     byte
	IX, IY, SP, PC, WZ                 uint16
	I, R, IM                           byte
	IFF1, IFF2                         bool
}

// Capture reads a CPUState off a live CPU.
func Capture(c *z80.CPU) CPUState {
	return CPUState{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		A2: c.A2, F2: c.F2, B2: c.B2, C2: c.C2, D2: c.D2, E2: c.E2, H2: c.H2, L2: c.L2,
		IX: c.IX, IY: c.IY, SP: c.SP, PC: c.PC, WZ: c.WZ,
		I: c.I, R: c.R, IM: c.IM, IFF1: c.IFF1, IFF2: c.IFF2,
	}
}

// Apply copies a CPUState onto a live CPU.
func Apply(c *z80.CPU, s CPUState) {
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L
	c.A2, c.F2, c.B2, c.C2, c.D2, c.E2, c.H2, c.L2 = s.A2, s.F2, s.B2, s.C2, s.D2, s.E2, s.H2, s.L2
	c.IX, c.IY, c.SP, c.PC, c.WZ = s.IX, s.IY, s.SP, s.PC, s.WZ
	c.I, c.R, c.IM, c.IFF1, c.IFF2 = s.I, s.R, s.IM, s.IFF1, s.IFF2
}

// --- Spectrum .SNA (48K and extended 128K) ---

const (
	sna48Size  = 49179
	sna128ExtraHeader = 4 // PC (2 bytes), port 0x7FFD value, TR-DOS flag
)

// SpectrumSNA is a parsed Spectrum .SNA snapshot: a fixed 27-byte
// register header followed by either a flat 48K RAM dump, or (the
// "128K extension") a 49152-byte dump of the bank-5/2/current-window-3
// triplet plus the remaining RAM banks and the 128K paging register.
type SpectrumSNA struct {
	CPU       CPUState
	Border    byte
	RAM48K    []byte // always present: banks 5,2, and whichever was paged into window 3
	Banks     map[int][]byte // 128K extension only: the remaining RAM banks, keyed 0-7
	PagingReg byte           // 128K extension only: last write to 0x7FFD
}

// ParseSpectrumSNA reads a 48K (49179 bytes) or 128K-extended (49179 +
// 4 + up to 5*16384 bytes) Spectrum .SNA image.
func ParseSpectrumSNA(raw []byte) (*SpectrumSNA, error) {
	if len(raw) < sna48Size {
		return nil, fmt.Errorf("snapshot: SNA image too short (%d bytes)", len(raw))
	}
	s := &SpectrumSNA{Banks: map[int][]byte{}}
	s.CPU.I = raw[0]
	s.CPU.H2, s.CPU.L2 = raw[1], raw[2]
	s.CPU.D2, s.CPU.E2 = raw[3], raw[4]
	s.CPU.B2, s.CPU.C2 = raw[5], raw[6]
	s.CPU.A2, s.CPU.F2 = raw[7], raw[8]
	s.CPU.H, s.CPU.L = raw[9], raw[10]
	s.CPU.D, s.CPU.E = raw[11], raw[12]
	s.CPU.B, s.CPU.C = raw[13], raw[14]
	iy := binary.LittleEndian.Uint16(raw[15:17])
	ix := binary.LittleEndian.Uint16(raw[17:19])
	s.CPU.IY, s.CPU.IX = iy, ix
	iff2 := raw[19]
	s.CPU.IFF1 = iff2&0x04 != 0
	s.CPU.IFF2 = s.CPU.IFF1
	s.CPU.R = raw[20]
	s.CPU.F, s.CPU.A = raw[21], raw[22]
	sp := binary.LittleEndian.Uint16(raw[23:25])
	s.CPU.SP = sp
	s.CPU.IM = raw[25]
	s.Border = raw[26] & 0x07

	s.RAM48K = append([]byte(nil), raw[27:sna48Size]...)

	if len(raw) > sna48Size {
		ext := raw[sna48Size:]
		if len(ext) < sna128ExtraHeader {
			return s, nil // malformed tail, but the 48K payload is still usable
		}
		s.CPU.PC = binary.LittleEndian.Uint16(ext[0:2])
		s.PagingReg = ext[2]
		// ext[3] is the TR-DOS-paged flag; not modeled, TR-DOS ROM paging
		// is driven by the Betadisk trap instead (spec §4.2).
		cursor := sna128ExtraHeader
		for bank := 0; bank < 8 && cursor+16384 <= len(ext); bank++ {
			if bank == 5 || bank == 2 || bank == int(s.PagingReg&0x07) {
				continue // already present in RAM48K
			}
			s.Banks[bank] = append([]byte(nil), ext[cursor:cursor+16384]...)
			cursor += 16384
		}
	} else {
		// 48K .SNA stores PC on the emulated stack (RET address at (SP)):
		// the spec-mandated load sequence is POP PC, so the first two
		// bytes at the (pre-pop) SP give the resume address.
		spOffset := int(s.CPU.SP) - 0x4000
		if spOffset >= 0 && spOffset+2 <= len(s.RAM48K) {
			s.CPU.PC = binary.LittleEndian.Uint16(s.RAM48K[spOffset : spOffset+2])
			s.CPU.SP += 2
		}
	}
	return s, nil
}

// --- Amstrad CPC SNA (v1/v2/v3, 4CC "MV - SNA" header) ---

const cpcSNASignature = "MV - SNA"

// CPCSNA is a parsed Amstrad CPC .SNA snapshot: a 0x100-byte header
// (Z80 registers, CRTC/Gate Array/PSG shadow registers, memory
// configuration) followed by one or more contiguous 64K RAM dumps (one
// per 64K of installed RAM, per spec §4.9).
type CPCSNA struct {
	CPU        CPUState
	GAInk      [17]byte
	GAMode     byte
	RAMConfig  byte
	CRTCRegs   [18]byte
	CRTCSel    byte
	ROMConfig  byte
	PSGRegs    [16]byte
	PSGSel     byte
	RAMBanks   [][]byte // each 65536 bytes
}

// ParseCPCSNA reads a CPC .SNA image.
func ParseCPCSNA(raw []byte) (*CPCSNA, error) {
	if len(raw) < 0x100 || string(raw[:8]) != cpcSNASignature {
		return nil, errors.New("snapshot: not a CPC SNA image (bad signature)")
	}
	s := &CPCSNA{}
	s.CPU.F, s.CPU.A = raw[0x11], raw[0x12]
	s.CPU.C, s.CPU.B = raw[0x13], raw[0x14]
	s.CPU.E, s.CPU.D = raw[0x15], raw[0x16]
	s.CPU.L, s.CPU.H = raw[0x17], raw[0x18]
	s.CPU.R, s.CPU.I = raw[0x19], raw[0x1A]
	iff := raw[0x1B]
	s.CPU.IFF1 = iff&0x01 != 0
	s.CPU.IFF2 = iff&0x04 != 0
	s.CPU.F2, s.CPU.A2 = raw[0x1C], raw[0x1D]
	s.CPU.C2, s.CPU.B2 = raw[0x1E], raw[0x1F]
	s.CPU.E2, s.CPU.D2 = raw[0x20], raw[0x21]
	s.CPU.L2, s.CPU.H2 = raw[0x22], raw[0x23]
	s.CPU.IX = binary.LittleEndian.Uint16(raw[0x24:0x26])
	s.CPU.IY = binary.LittleEndian.Uint16(raw[0x26:0x28])
	s.CPU.SP = binary.LittleEndian.Uint16(raw[0x28:0x2A])
	s.CPU.PC = binary.LittleEndian.Uint16(raw[0x2A:0x2C])
	s.CPU.IM = raw[0x2C]

	copy(s.GAInk[:], raw[0x2F:0x40])
	s.GAMode = raw[0x40]
	s.RAMConfig = raw[0x41]
	copy(s.CRTCRegs[:], raw[0x43:0x55])
	s.CRTCSel = raw[0x42]
	s.ROMConfig = raw[0x55]
	copy(s.PSGRegs[:], raw[0x58:0x68])
	s.PSGSel = raw[0x57]

	ramSize := int(binary.LittleEndian.Uint16(raw[0x6B:0x6D])) // in KB
	if ramSize == 0 {
		ramSize = 64
	}
	numBanks := ramSize / 64
	if numBanks < 1 {
		numBanks = 1
	}
	offset := 0x100
	for b := 0; b < numBanks; b++ {
		end := offset + 65536
		if end > len(raw) {
			end = len(raw)
		}
		bank := make([]byte, 65536)
		copy(bank, raw[offset:end])
		s.RAMBanks = append(s.RAMBanks, bank)
		offset = end
	}
	return s, nil
}
