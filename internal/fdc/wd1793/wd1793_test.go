package wd1793

import "testing"

type fakeImage struct {
	tracks map[[3]int][]byte
}

func newFakeImage() *fakeImage {
	return &fakeImage{tracks: map[[3]int][]byte{}}
}

func (f *fakeImage) ReadSector(track, side, sector int) ([]byte, bool) {
	d, ok := f.tracks[[3]int{track, side, sector}]
	return d, ok
}

func (f *fakeImage) WriteSector(track, side, sector int, data []byte) bool {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.tracks[[3]int{track, side, sector}] = cp
	return true
}

func (f *fakeImage) SectorsPerTrack() int { return 16 }

func TestRestoreGoesToTrackZero(t *testing.T) {
	w := New(newFakeImage())
	w.WriteCommand(0x00)
	if w.TrackReg() != 0 {
		t.Fatalf("track = %d, want 0", w.TrackReg())
	}
	if w.ReadStatus()&StatusTrack00 == 0 {
		t.Fatal("status should report track 0 after restore")
	}
}

func TestSeekMovesToDataRegisterTarget(t *testing.T) {
	w := New(newFakeImage())
	w.WriteDataReg(12)
	w.WriteCommand(0x10)
	if w.TrackReg() != 12 {
		t.Fatalf("track = %d, want 12", w.TrackReg())
	}
}

func TestReadSectorDrainsBufferAndAssertsThenClearsDRQ(t *testing.T) {
	img := newFakeImage()
	img.tracks[[3]int{0, 0, 1}] = append([]byte{0xAB}, make([]byte, sectorSize-1)...)
	w := New(img)
	w.WriteSectorReg(1)
	w.WriteCommand(0x80)
	if !w.DRQ() {
		t.Fatal("DRQ should assert once a read command has data ready")
	}
	first := w.ReadData()
	if first != 0xAB {
		t.Fatalf("first byte = %#x, want 0xAB", first)
	}
	for i := 1; i < sectorSize; i++ {
		w.ReadData()
	}
	if w.DRQ() {
		t.Fatal("DRQ should clear once the sector buffer is drained")
	}
	if !w.INTRQ() {
		t.Fatal("INTRQ should assert on command completion")
	}
}

func TestWriteSectorCommitsToImage(t *testing.T) {
	img := newFakeImage()
	w := New(img)
	w.WriteSectorReg(3)
	w.WriteCommand(0xA0)
	for i := 0; i < sectorSize; i++ {
		w.WriteData(byte(i))
	}
	stored, ok := img.ReadSector(0, 0, 3)
	if !ok || stored[10] != 10 {
		t.Fatalf("written sector not committed correctly: ok=%v byte10=%v", ok, stored[10])
	}
}

func TestForceInterruptClearsBusy(t *testing.T) {
	w := New(newFakeImage())
	w.WriteSectorReg(1)
	w.WriteCommand(0x80) // read, no data present -> record not found
	w.WriteCommand(0xD0) // force interrupt
	if w.busy {
		t.Fatal("force interrupt should clear busy")
	}
	if !w.INTRQ() {
		t.Fatal("force interrupt should assert INTRQ")
	}
}
