package disk

import (
	"errors"
	"fmt"

	"github.com/retrocore/cpcec-go/internal/fdc/wd1793"
)

const (
	trdSectorSize    = 256
	trdSectorsPerTrk = 16
	trdSides         = 2
	trdCatalogTrack  = 0
)

// TRD is a parsed Beta Disk Interface ("TR-DOS") raw sector-dump
// image: no container header at all, just sides*tracks*16 sectors of
// 256 bytes each laid out side-interleaved (all of track N side 0,
// then all of track N side 1). Usable directly as a wd1793.ImageIO.
type TRD struct {
	tracks int
	data   []byte
}

var _ wd1793.ImageIO = (*TRD)(nil)

// ParseTRD wraps a raw TRD image. The track count is inferred from the
// buffer length, which must be a whole number of double-sided
// cylinders; every image is treated as double-sided.
func ParseTRD(raw []byte) (*TRD, error) {
	trackBytes := trdSectorSize * trdSectorsPerTrk * trdSides
	if len(raw)%trackBytes != 0 || len(raw) == 0 {
		return nil, fmt.Errorf("disk: TRD image length %d is not a whole number of cylinders", len(raw))
	}
	return &TRD{tracks: len(raw) / trackBytes, data: raw}, nil
}

func (t *TRD) offset(track, side, sector int) (int, bool) {
	if track < 0 || track >= t.tracks || side < 0 || side >= trdSides {
		return 0, false
	}
	if sector < 1 || sector > trdSectorsPerTrk {
		return 0, false
	}
	trackBytes := trdSectorSize * trdSectorsPerTrk
	base := (track*trdSides+side)*trackBytes + (sector-1)*trdSectorSize
	return base, true
}

// ReadSector implements wd1793.ImageIO.
func (t *TRD) ReadSector(track, side, sector int) ([]byte, bool) {
	off, ok := t.offset(track, side, sector)
	if !ok || off+trdSectorSize > len(t.data) {
		return nil, false
	}
	return t.data[off : off+trdSectorSize], true
}

// WriteSector implements wd1793.ImageIO.
func (t *TRD) WriteSector(track, side, sector int, data []byte) bool {
	off, ok := t.offset(track, side, sector)
	if !ok || off+trdSectorSize > len(t.data) {
		return false
	}
	copy(t.data[off:off+trdSectorSize], data)
	return true
}

// SectorsPerTrack implements wd1793.ImageIO.
func (t *TRD) SectorsPerTrack() int { return trdSectorsPerTrk }

// Bytes returns the full raw image, for writing back to a file.
func (t *TRD) Bytes() []byte { return t.data }

// sclHeaderMagic is the 8-byte "SINCLAIR" signature every SCL archive
// begins with.
const sclHeaderMagic = "SINCLAIR"

// sclEntry is one 14-byte catalog record: 8-byte filename, 1-byte
// type, 2-byte start address, 2-byte length, 1-byte sector count.
type sclEntry struct {
	name       [8]byte
	fileType   byte
	start      uint16
	length     uint16
	sectors    byte
}

// ConvertSCLToTRD materializes an SCL archive (a directory-only
// listing plus concatenated file bodies, used to distribute TR-DOS
// software without a full disk image) into a blank double-sided
// 80-track TRD image (spec §4.8 names SCL as a supplementary TR-DOS
// container). The file bodies are copied in archive order onto side 0
// from track 0 sector 9, and the system sector records the file count
// and first free track/sector. No catalog entries are written: sectors
// 1-8 of track 0 stay blank.
func ConvertSCLToTRD(raw []byte) (*TRD, error) {
	if len(raw) < 9 || string(raw[:8]) != sclHeaderMagic {
		return nil, errors.New("disk: not an SCL archive (bad signature)")
	}
	fileCount := int(raw[8])
	entries := make([]sclEntry, 0, fileCount)
	cursor := 9
	for i := 0; i < fileCount; i++ {
		if cursor+14 > len(raw) {
			return nil, fmt.Errorf("disk: SCL catalog truncated at entry %d", i)
		}
		e := sclEntry{}
		copy(e.name[:], raw[cursor:cursor+8])
		e.fileType = raw[cursor+8]
		e.start = uint16(raw[cursor+9]) | uint16(raw[cursor+10])<<8
		e.length = uint16(raw[cursor+11]) | uint16(raw[cursor+12])<<8
		e.sectors = raw[cursor+13]
		entries = append(entries, e)
		cursor += 14
	}

	trackBytes := trdSectorSize * trdSectorsPerTrk
	image := make([]byte, 80*trdSides*trackBytes)
	trd := &TRD{tracks: 80, data: image}

	// Sectors 1-8 of track 0, side 0 are the TR-DOS catalog area (16-byte
	// entries, up to 128 files); it is left blank here. File bodies start
	// at sector 9.
	sector, track := 9, 0

	for _, e := range entries {
		if sector > trdSectorsPerTrk {
			sector = 1
			track++
		}
		body := raw[cursor : cursor+int(e.sectors)*trdSectorSize]
		cursor += int(e.sectors) * trdSectorSize
		for i := 0; i < int(e.sectors); i++ {
			if sector > trdSectorsPerTrk {
				sector = 1
				track++
			}
			off, ok := trd.offset(track, 0, sector)
			if ok {
				start := i * trdSectorSize
				end := start + trdSectorSize
				if end > len(body) {
					end = len(body)
				}
				copy(image[off:off+trdSectorSize], body[start:end])
			}
			sector++
		}
	}

	writeTRDSystemSector(image, fileCount, track, sector)
	return trd, nil
}

// writeTRDSystemSector fills in track 0 sector 9's TR-DOS system
// record: first free sector and track, disk type and file count
// (bytes 0xE1-0xE4). The free-sector count is not written. Real TR-DOS
// reads this record to render `cat`.
func writeTRDSystemSector(image []byte, fileCount, freeTrack, freeSector int) {
	const sysOffset = 8 * trdSectorSize // sector 9 (0-indexed 8) of track 0
	image[sysOffset+0xE1] = byte(freeSector)
	image[sysOffset+0xE2] = byte(freeTrack)
	image[sysOffset+0xE3] = 0x16 // disk type: double-sided, 80 tracks
	image[sysOffset+0xE4] = byte(fileCount)
}
