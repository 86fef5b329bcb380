package disk

import "testing"

func blankTRDImage(tracks int) []byte {
	return make([]byte, tracks*trdSides*trdSectorsPerTrk*trdSectorSize)
}

func TestParseTRDRejectsNonWholeCylinderLength(t *testing.T) {
	_, err := ParseTRD(make([]byte, 100))
	if err == nil {
		t.Fatal("expected an error for a length that isn't a whole number of cylinders")
	}
}

func TestTRDReadWriteRoundTrip(t *testing.T) {
	trd, err := ParseTRD(blankTRDImage(80))
	if err != nil {
		t.Fatalf("ParseTRD: %v", err)
	}
	payload := make([]byte, trdSectorSize)
	payload[3] = 0x7A
	if !trd.WriteSector(5, 1, 10, payload) {
		t.Fatal("WriteSector should succeed within range")
	}
	got, ok := trd.ReadSector(5, 1, 10)
	if !ok || got[3] != 0x7A {
		t.Fatalf("ReadSector ok=%v byte3=%v", ok, got[3])
	}
}

func TestTRDOutOfRangeSectorRejected(t *testing.T) {
	trd, _ := ParseTRD(blankTRDImage(80))
	if _, ok := trd.ReadSector(5, 0, 17); ok {
		t.Fatal("sector 17 is out of range for a 16-sector track")
	}
	if _, ok := trd.ReadSector(80, 0, 1); ok {
		t.Fatal("track 80 is out of range for an 80-track image")
	}
}

func TestConvertSCLToTRDRejectsBadSignature(t *testing.T) {
	_, err := ConvertSCLToTRD([]byte("not an scl archive"))
	if err == nil {
		t.Fatal("expected an error for a missing SINCLAIR signature")
	}
}

func TestConvertSCLToTRDPlacesFileBody(t *testing.T) {
	var raw []byte
	raw = append(raw, []byte(sclHeaderMagic)...)
	raw = append(raw, 1) // one file

	entry := make([]byte, 14)
	copy(entry[0:8], "HELLO   ")
	entry[8] = 'B'   // type byte
	entry[9] = 0x00  // start lo
	entry[10] = 0x60 // start hi
	entry[11] = 0x01 // length lo
	entry[12] = 0x00 // length hi
	entry[13] = 1    // sector count
	raw = append(raw, entry...)

	body := make([]byte, trdSectorSize)
	body[0] = 0xEE
	raw = append(raw, body...)

	trd, err := ConvertSCLToTRD(raw)
	if err != nil {
		t.Fatalf("ConvertSCLToTRD: %v", err)
	}
	got, ok := trd.ReadSector(0, 0, 9)
	if !ok || got[0] != 0xEE {
		t.Fatalf("file body not placed at sector 9: ok=%v byte0=%v", ok, got[0])
	}
}
