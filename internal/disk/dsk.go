// Package disk implements the on-disk container formats the CPC and
// Spectrum floppy interfaces read and write: the CPCEMU "MV - CPC" and
// "EXTENDED" DSK formats (spec §4.8), and the Spectrum TR-DOS TRD/SCL
// formats. Each type satisfies the corresponding FDC package's
// ImageIO interface so internal/fdc/fdc765 and internal/fdc/wd1793
// never need to know a container format. Grounded on the teacher's
// `memory_bus.go` style of reading a fixed binary header into typed
// fields before indexing into a flat byte buffer.
package disk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/retrocore/cpcec-go/internal/fdc/fdc765"
)

const (
	dskStdSignature = "MV - CPC"
	dskExtSignature = "EXTENDED"
	trackInfoMagic  = "Track-Info\r\n"
	dskHeaderSize   = 256
	trackInfoHeaderSize = 256
)

// ErrBadSignature is returned when a byte slice's magic string does
// not match any DSK variant this package understands.
var ErrBadSignature = errors.New("disk: unrecognized image signature")

type sectorInfo struct {
	track, side, id, sizeCode byte
	fdcStatus1, fdcStatus2    byte
	actualLength              int
	data                      []byte
}

type trackInfo struct {
	track, side   byte
	sectorSize    byte
	sectorCount   byte
	gap3, filler  byte
	sectors       []sectorInfo
}

// DSK is a parsed CPCEMU disk image (standard or extended), usable
// directly as an fdc765.ImageIO.
type DSK struct {
	extended bool
	tracks   []trackInfo // indexed by cylinder*sides+side
	sides    int
	title    string
}

var _ fdc765.ImageIO = (*DSK)(nil)

// ParseDSK reads a CPCEMU DSK image from raw bytes, auto-detecting the
// standard ("MV - CPC") and extended ("EXTENDED") variants: the
// extended variant stores each track's length explicitly instead of
// assuming a single fixed size, which is required to represent
// copy-protected or weak-sector tracks (spec §4.8).
func ParseDSK(raw []byte) (*DSK, error) {
	if len(raw) < dskHeaderSize {
		return nil, fmt.Errorf("disk: image too short for a DSK header (%d bytes)", len(raw))
	}
	sig := string(raw[:8])
	switch {
	case bytes.HasPrefix(raw, []byte(dskStdSignature)):
		return parseStandardDSK(raw)
	case bytes.HasPrefix(raw, []byte(dskExtSignature)):
		return parseExtendedDSK(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadSignature, sig)
	}
}

func parseStandardDSK(raw []byte) (*DSK, error) {
	numTracks := int(raw[0x30])
	numSides := int(raw[0x31])
	trackSize := int(binary.LittleEndian.Uint16(raw[0x32:0x34]))
	if numSides == 0 {
		numSides = 1
	}

	d := &DSK{sides: numSides, title: string(bytes.TrimRight(raw[0x22:0x30], "\x00 "))}
	offset := dskHeaderSize
	for t := 0; t < numTracks*numSides; t++ {
		if offset+trackInfoHeaderSize > len(raw) {
			break
		}
		ti, err := parseTrackInfo(raw[offset : offset+trackSize])
		if err != nil {
			return nil, fmt.Errorf("disk: track %d: %w", t, err)
		}
		d.tracks = append(d.tracks, ti)
		offset += trackSize
	}
	return d, nil
}

func parseExtendedDSK(raw []byte) (*DSK, error) {
	numTracks := int(raw[0x30])
	numSides := int(raw[0x31])
	if numSides == 0 {
		numSides = 1
	}
	sizeTable := raw[0x34:]

	d := &DSK{extended: true, sides: numSides, title: string(bytes.TrimRight(raw[0x22:0x30], "\x00 "))}
	offset := dskHeaderSize
	for t := 0; t < numTracks*numSides; t++ {
		highByte := sizeTable[t]
		trackSize := int(highByte) * 256
		if trackSize == 0 {
			d.tracks = append(d.tracks, trackInfo{})
			continue
		}
		if offset+trackSize > len(raw) {
			break
		}
		ti, err := parseTrackInfo(raw[offset : offset+trackSize])
		if err != nil {
			return nil, fmt.Errorf("disk: track %d: %w", t, err)
		}
		d.tracks = append(d.tracks, ti)
		offset += trackSize
	}
	return d, nil
}

func parseTrackInfo(buf []byte) (trackInfo, error) {
	if len(buf) < trackInfoHeaderSize || string(buf[:12]) != trackInfoMagic {
		return trackInfo{}, errors.New("bad Track-Info signature")
	}
	ti := trackInfo{
		track:       buf[0x10],
		side:        buf[0x11],
		sectorSize:  buf[0x14],
		sectorCount: buf[0x15],
		gap3:        buf[0x16],
		filler:      buf[0x17],
	}

	dataOffset := trackInfoHeaderSize
	for s := 0; s < int(ti.sectorCount); s++ {
		entryOff := 0x18 + s*8
		if entryOff+8 > len(buf) {
			break
		}
		entry := buf[entryOff : entryOff+8]
		actualLen := int(binary.LittleEndian.Uint16(entry[6:8]))
		if actualLen == 0 {
			actualLen = 128 << entry[3]
		}
		si := sectorInfo{
			track: entry[0], side: entry[1], id: entry[2], sizeCode: entry[3],
			fdcStatus1: entry[4], fdcStatus2: entry[5], actualLength: actualLen,
		}
		if dataOffset+actualLen <= len(buf) {
			si.data = append([]byte(nil), buf[dataOffset:dataOffset+actualLen]...)
		}
		dataOffset += actualLen
		ti.sectors = append(ti.sectors, si)
	}
	return ti, nil
}

func (d *DSK) trackIndex(cylinder, head int) int {
	return cylinder*d.sides + head
}

// Geometry implements fdc765.ImageIO.
func (d *DSK) Geometry(drive, cylinder, head int) (fdc765.Geometry, bool) {
	idx := d.trackIndex(cylinder, head)
	if idx < 0 || idx >= len(d.tracks) || len(d.tracks[idx].sectors) == 0 {
		return fdc765.Geometry{}, false
	}
	ti := d.tracks[idx]
	return fdc765.Geometry{
		SectorsPerTrack: len(ti.sectors),
		SectorSize:      128 << ti.sectorSize,
		FirstSectorID:   ti.sectors[0].id,
	}, true
}

// ReadSector implements fdc765.ImageIO.
func (d *DSK) ReadSector(drive, cylinder, head int, sectorID byte) ([]byte, bool) {
	idx := d.trackIndex(cylinder, head)
	if idx < 0 || idx >= len(d.tracks) {
		return nil, false
	}
	for _, s := range d.tracks[idx].sectors {
		if s.id == sectorID {
			return s.data, true
		}
	}
	return nil, false
}

// WriteSector implements fdc765.ImageIO, mutating the in-memory
// parsed image only; DSK has no method that serializes the image back
// to bytes, so changes are not saved to a file.
func (d *DSK) WriteSector(drive, cylinder, head int, sectorID byte, data []byte) bool {
	idx := d.trackIndex(cylinder, head)
	if idx < 0 || idx >= len(d.tracks) {
		return false
	}
	for i, s := range d.tracks[idx].sectors {
		if s.id == sectorID {
			cp := make([]byte, len(s.data))
			n := copy(cp, data)
			_ = n
			d.tracks[idx].sectors[i].data = cp
			return true
		}
	}
	return false
}

// Title returns the disk image's embedded creator/title string, if
// any (offset 0x22, 14 bytes, space/NUL padded).
func (d *DSK) Title() string { return d.title }

// Sides reports whether the image describes one or two recording
// sides, for the FDC's two-sided-drive flag.
func (d *DSK) Sides() int { return d.sides }

// NumTracks reports how many physical cylinders the image describes.
func (d *DSK) NumTracks() int {
	if d.sides == 0 {
		return 0
	}
	return len(d.tracks) / d.sides
}
