package disk

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildStandardDSK constructs a minimal one-track, one-sector standard
// DSK image in memory for round-trip testing, mirroring the on-disk
// layout ParseDSK expects.
func buildStandardDSK(t *testing.T, payload []byte) []byte {
	t.Helper()
	const trackSize = 256 + 256 // track header + one 256-byte sector
	buf := make([]byte, dskHeaderSize+trackSize)
	copy(buf, dskStdSignature)
	buf[0x30] = 1 // one track
	buf[0x31] = 1 // one side
	binary.LittleEndian.PutUint16(buf[0x32:], uint16(trackSize))

	trackOff := dskHeaderSize
	copy(buf[trackOff:], trackInfoMagic)
	buf[trackOff+0x10] = 0 // track
	buf[trackOff+0x11] = 0 // side
	buf[trackOff+0x14] = 1 // sector size code (256 bytes)
	buf[trackOff+0x15] = 1 // sector count

	entryOff := trackOff + 0x18
	buf[entryOff+0] = 0    // track
	buf[entryOff+1] = 0    // side
	buf[entryOff+2] = 0xC1 // sector ID
	buf[entryOff+3] = 1    // size code
	binary.LittleEndian.PutUint16(buf[entryOff+6:], 256)

	dataOff := trackOff + trackInfoHeaderSize
	copy(buf[dataOff:], payload)
	return buf
}

func TestParseDSKRejectsUnknownSignature(t *testing.T) {
	_, err := ParseDSK(bytes.Repeat([]byte{0}, 512))
	if err == nil {
		t.Fatal("expected an error for an unrecognized signature")
	}
}

func TestParseStandardDSKReadsSectorData(t *testing.T) {
	payload := make([]byte, 256)
	payload[0] = 0x42
	raw := buildStandardDSK(t, payload)

	d, err := ParseDSK(raw)
	if err != nil {
		t.Fatalf("ParseDSK: %v", err)
	}
	geom, ok := d.Geometry(0, 0, 0)
	if !ok || geom.SectorsPerTrack != 1 || geom.SectorSize != 256 {
		t.Fatalf("Geometry = %+v ok=%v", geom, ok)
	}
	data, ok := d.ReadSector(0, 0, 0, 0xC1)
	if !ok || data[0] != 0x42 {
		t.Fatalf("ReadSector ok=%v data[0]=%v", ok, data[0])
	}
}

func TestWriteSectorUpdatesInMemoryImage(t *testing.T) {
	raw := buildStandardDSK(t, make([]byte, 256))
	d, err := ParseDSK(raw)
	if err != nil {
		t.Fatalf("ParseDSK: %v", err)
	}
	newData := make([]byte, 256)
	newData[1] = 0x99
	if !d.WriteSector(0, 0, 0, 0xC1, newData) {
		t.Fatal("WriteSector should succeed for an existing sector ID")
	}
	data, _ := d.ReadSector(0, 0, 0, 0xC1)
	if data[1] != 0x99 {
		t.Fatalf("written byte not reflected, got %v", data[1])
	}
}
