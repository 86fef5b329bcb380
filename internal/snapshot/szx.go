package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const szxMagic = "ZXST"

// SZXSnapshot is a parsed .SZX snapshot: a small fixed header
// identifying the target machine, followed by a sequence of 4CC-tagged
// chunks (spec §4.9). Unlike Z80's monolithic format, unrecognized
// chunks are simply skipped by their declared length, so this parser
// never breaks on a newer SZX extension it doesn't model.
type SZXSnapshot struct {
	MachineID byte // ZXSTMID_* constant identifying 48K/128K/+2/+3/Pentagon/etc
	CPU       CPUState
	Border    byte
	PagingReg byte
	Pages     map[int][]byte // RAM page index -> 16384 bytes (SZX's own numbering, not Z80's)
	AYRegs    [16]byte
	AYCurrent byte
}

const (
	chunkZ80R = "Z80R" // CPU registers
	chunkSPCR = "SPCR" // Spectrum hardware (border, port 0x7FFD)
	chunkRAMP = "RAMP" // one RAM page, optionally zlib-compressed
	chunkAY   = "AY\x00\x00"
)

// ParseSZX reads an .SZX snapshot.
func ParseSZX(raw []byte) (*SZXSnapshot, error) {
	if len(raw) < 8 || string(raw[:4]) != szxMagic {
		return nil, errors.New("snapshot: not an SZX file (bad ZXST signature)")
	}
	s := &SZXSnapshot{Pages: map[int][]byte{}}
	s.MachineID = raw[6]

	cursor := 8
	for cursor+8 <= len(raw) {
		tag := string(raw[cursor : cursor+4])
		size := binary.LittleEndian.Uint32(raw[cursor+4 : cursor+8])
		cursor += 8
		if cursor+int(size) > len(raw) {
			return nil, fmt.Errorf("snapshot: SZX chunk %q size %d exceeds file bounds", tag, size)
		}
		body := raw[cursor : cursor+int(size)]
		switch tag {
		case chunkZ80R:
			if err := parseSZXZ80R(s, body); err != nil {
				return nil, err
			}
		case chunkSPCR:
			if len(body) >= 2 {
				s.Border = body[0] & 0x07
				s.PagingReg = body[1]
			}
		case chunkRAMP:
			if err := parseSZXRAMP(s, body); err != nil {
				return nil, err
			}
		case chunkAY:
			parseSZXAY(s, body)
		}
		cursor += int(size)
	}
	return s, nil
}

func parseSZXZ80R(s *SZXSnapshot, body []byte) error {
	if len(body) < 37 {
		return errors.New("snapshot: SZX Z80R chunk too short")
	}
	s.CPU.F, s.CPU.A = body[0], body[1]
	s.CPU.C, s.CPU.B = body[2], body[3]
	s.CPU.L, s.CPU.H = body[4], body[5]
	s.CPU.E, s.CPU.D = body[6], body[7]
	s.CPU.F2, s.CPU.A2 = body[8], body[9]
	s.CPU.C2, s.CPU.B2 = body[10], body[11]
	s.CPU.L2, s.CPU.H2 = body[12], body[13]
	s.CPU.E2, s.CPU.D2 = body[14], body[15]
	s.CPU.IX = binary.LittleEndian.Uint16(body[16:18])
	s.CPU.IY = binary.LittleEndian.Uint16(body[18:20])
	s.CPU.SP = binary.LittleEndian.Uint16(body[20:22])
	s.CPU.PC = binary.LittleEndian.Uint16(body[22:24])
	s.CPU.I = body[24]
	s.CPU.R = body[25]
	iff1, iff2 := body[26], body[27]
	s.CPU.IFF1 = iff1 != 0
	s.CPU.IFF2 = iff2 != 0
	s.CPU.IM = body[28]
	return nil
}

func parseSZXRAMP(s *SZXSnapshot, body []byte) error {
	if len(body) < 3 {
		return errors.New("snapshot: SZX RAMP chunk too short")
	}
	flags := binary.LittleEndian.Uint16(body[0:2])
	page := int(body[2])
	data := body[3:]
	if flags&1 != 0 {
		decompressed, err := inflateZlib(data)
		if err != nil {
			return fmt.Errorf("snapshot: SZX RAMP page %d: %w", page, err)
		}
		data = decompressed
	}
	out := make([]byte, 16384)
	copy(out, data)
	s.Pages[page] = out
	return nil
}

func parseSZXAY(s *SZXSnapshot, body []byte) {
	if len(body) < 18 {
		return
	}
	s.AYCurrent = body[1]
	copy(s.AYRegs[:], body[2:18])
}

// inflateZlib is a tiny wrapper kept separate from the parse functions
// above so the zlib import is localized to one place, matching how
// internal/tape isolates its own zlib use to CSW2 decoding.
func inflateZlib(data []byte) ([]byte, error) {
	return zlibInflateAll(data)
}
