package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Z80Snapshot is a parsed Spectrum .Z80 file, versions 1-3. Versions 2
// and 3 append an extended header and store memory as a sequence of
// page blocks, each tagged with a 3-byte header (2-byte length, 1-byte
// page number) and either ED-ED compressed or stored raw, instead of one
// flat dump.
type Z80Snapshot struct {
	CPU       CPUState
	Border    byte
	Is128K    bool
	PagingReg byte
	Pages     map[int][]byte // page number -> 16384 bytes, decompressed
}

// ParseZ80 reads a .Z80 snapshot of any version, detected by the
// PC field at offset 6: zero means a v2/v3 extended header follows.
func ParseZ80(raw []byte) (*Z80Snapshot, error) {
	if len(raw) < 30 {
		return nil, fmt.Errorf("snapshot: Z80 image too short (%d bytes)", len(raw))
	}
	s := &Z80Snapshot{Pages: map[int][]byte{}}
	s.CPU.A, s.CPU.F = raw[0], raw[1]
	s.CPU.C, s.CPU.B = raw[2], raw[3]
	s.CPU.L, s.CPU.H = raw[4], raw[5]
	pc := binary.LittleEndian.Uint16(raw[6:8])
	s.CPU.SP = binary.LittleEndian.Uint16(raw[8:10])
	s.CPU.I = raw[10]
	rLow := raw[11]
	flags1 := raw[12]
	if flags1 == 0xFF {
		flags1 = 1
	}
	s.CPU.R = rLow&0x7F | (flags1&0x01)<<7
	s.Border = (flags1 >> 1) & 0x07
	compressed := flags1&0x20 != 0

	s.CPU.E, s.CPU.D = raw[13], raw[14]
	s.CPU.C2, s.CPU.B2 = raw[15], raw[16]
	s.CPU.E2, s.CPU.D2 = raw[17], raw[18]
	s.CPU.L2, s.CPU.H2 = raw[19], raw[20]
	s.CPU.A2, s.CPU.F2 = raw[21], raw[22]
	s.CPU.IY = binary.LittleEndian.Uint16(raw[23:25])
	s.CPU.IX = binary.LittleEndian.Uint16(raw[25:27])
	iff1 := raw[27]
	iff2 := raw[28]
	s.CPU.IFF1 = iff1 != 0
	s.CPU.IFF2 = iff2 != 0
	s.CPU.IM = raw[29] & 0x03

	if pc != 0 {
		// v1: flat 48K dump (optionally compressed) follows the 30-byte
		// header, terminated by the 4-byte 00 ED ED 00 end marker when
		// compressed.
		s.CPU.PC = pc
		body := raw[30:]
		flat, err := decodeV1Body(body, compressed)
		if err != nil {
			return nil, err
		}
		// The dump covers 0x4000-0xFFFF; 48K page numbering is 8 =
		// 0x4000, 4 = 0x8000, 5 = 0xC000.
		s.Pages[8] = flat[0:16384]
		s.Pages[4] = flat[16384:32768]
		s.Pages[5] = flat[32768:49152]
		return s, nil
	}

	extLen := int(binary.LittleEndian.Uint16(raw[30:32]))
	if 32+extLen > len(raw) {
		return nil, errors.New("snapshot: Z80 extended header length exceeds file size")
	}
	ext := raw[32 : 32+extLen]
	s.CPU.PC = binary.LittleEndian.Uint16(ext[0:2])
	hwMode := ext[2]
	s.Is128K = hwMode >= 3
	if len(ext) > 3 {
		s.PagingReg = ext[3]
	}

	cursor := 32 + extLen
	for cursor+3 <= len(raw) {
		blockLen := int(binary.LittleEndian.Uint16(raw[cursor : cursor+2]))
		pageNum := int(raw[cursor+2])
		cursor += 3
		if blockLen == 0xFFFF {
			// Uncompressed 16384-byte block.
			if cursor+16384 > len(raw) {
				return nil, errors.New("snapshot: Z80 page block truncated")
			}
			s.Pages[pageNum] = append([]byte(nil), raw[cursor:cursor+16384]...)
			cursor += 16384
			continue
		}
		if cursor+blockLen > len(raw) {
			return nil, errors.New("snapshot: Z80 page block truncated")
		}
		page, err := decompressEDED(raw[cursor:cursor+blockLen], 16384)
		if err != nil {
			return nil, err
		}
		s.Pages[pageNum] = page
		cursor += blockLen
	}
	return s, nil
}

// decodeV1Body handles the v1 format's single 48K region: either a
// flat 49152-byte dump, or an ED-ED-RLE-compressed stream terminated
// by 00 ED ED 00.
func decodeV1Body(body []byte, compressed bool) ([]byte, error) {
	if !compressed {
		if len(body) < 49152 {
			return nil, errors.New("snapshot: v1 Z80 uncompressed body too short")
		}
		return body[:49152], nil
	}
	return decompressEDED(body, 49152)
}

// decompressEDED inverts the Z80 format's simple RLE scheme: any run
// of 5+ identical bytes is encoded as ED ED <count:1> <byte:1>; any
// other byte (including a lone ED) is literal. Decoding stops once
// expectedLen bytes have been produced or the 00 ED ED 00 v1
// terminator is seen.
func decompressEDED(src []byte, expectedLen int) ([]byte, error) {
	out := make([]byte, 0, expectedLen)
	i := 0
	for i < len(src) && len(out) < expectedLen {
		if i+4 <= len(src) && src[i] == 0x00 && src[i+1] == 0xED && src[i+2] == 0xED && src[i+3] == 0x00 {
			break
		}
		if i+1 < len(src) && src[i] == 0xED && src[i+1] == 0xED {
			if i+3 >= len(src) {
				return nil, errors.New("snapshot: truncated ED-ED run in Z80 page block")
			}
			count := int(src[i+2])
			value := src[i+3]
			for n := 0; n < count; n++ {
				out = append(out, value)
			}
			i += 4
			continue
		}
		out = append(out, src[i])
		i++
	}
	if len(out) < expectedLen {
		// Pad with zeros: some tools omit the trailing run of zero
		// pages entirely rather than encoding it.
		out = append(out, make([]byte, expectedLen-len(out))...)
	}
	return out[:expectedLen], nil
}
