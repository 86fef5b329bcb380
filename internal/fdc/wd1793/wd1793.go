// Package wd1793 implements the Western Digital WD1793 floppy disk
// controller as wired into the ZX Spectrum Betadisk ("TR-DOS")
// interface (spec §4.6). Unlike the CPC's byte-stream uPD765 protocol,
// the WD1793 exposes a flat 4-register interface (command/status,
// track, sector, data) and drives a command-class state machine
// (Type I seek commands, Type II/III read/write, Type IV force
// interrupt). Grounded on the same register-latch dispatch idiom used
// for the CPC chips in internal/video/cpc, adapted to the WD1793's
// flat register file instead of an indexed one.
package wd1793

// Status register bits, shared across command types with different
// meanings per the WD1793 datasheet.
const (
	StatusBusy        = 1 << 0
	StatusIndex        = 1 << 1 // Type I
	StatusDRQ          = 1 << 1 // Type II/III (aliases Index's bit)
	StatusTrack00       = 1 << 2 // Type I
	StatusLostData      = 1 << 2 // Type II/III
	StatusCRCError      = 1 << 3
	StatusSeekError     = 1 << 4 // Type I
	StatusRecordNotFound = 1 << 4 // Type II/III
	StatusHeadLoaded    = 1 << 5 // Type I
	StatusRecordType    = 1 << 5 // Type II (deleted data mark)
	StatusWriteProtect  = 1 << 6
	StatusNotReady      = 1 << 7
)

// ImageIO is the callback surface the disk image layer implements,
// mirroring fdc765.ImageIO but keyed by physical sector number instead
// of a sector-ID byte (TR-DOS images are always 256-byte/16-sector).
type ImageIO interface {
	ReadSector(track, side, sector int) ([]byte, bool)
	WriteSector(track, side int, sector int, data []byte) bool
	SectorsPerTrack() int
}

const sectorSize = 256

// WD1793 is the controller. Its four registers are addressed by the
// machine package's port decoder (TR-DOS claims ports 0x1F/0x3F/0x5F/
// 0x7F on the Spectrum's partial decoding).
type WD1793 struct {
	image ImageIO

	commandReg byte
	statusReg  byte
	trackReg   byte
	sectorReg  byte
	dataReg    byte

	track    int
	side     int
	stepDir  int

	busy    bool
	drq     bool
	intrq   bool

	buf    []byte
	bufPos int
	writing bool
}

// New returns a controller with heads unloaded at track 0.
func New(image ImageIO) *WD1793 {
	return &WD1793{image: image}
}

// SetSide selects which side of the disk subsequent read/write
// commands address (driven by a separate system port on real
// Betadisk interfaces, not a WD1793 register).
func (w *WD1793) SetSide(side int) { w.side = side }

// WriteCommand issues a new command (write to the command/status
// register address). The top nibble selects the command class.
func (w *WD1793) WriteCommand(cmd byte) {
	w.commandReg = cmd
	w.intrq = false
	switch {
	case cmd&0xF0 == 0x00: // Restore
		w.track = 0
		w.trackReg = 0
		w.statusReg = StatusTrack00
		w.intrq = true
	case cmd&0xF0 == 0x10: // Seek: target track is already in dataReg
		w.track = int(w.dataReg)
		w.trackReg = w.dataReg
		w.statusReg = 0
		if w.track == 0 {
			w.statusReg |= StatusTrack00
		}
		w.intrq = true
	case cmd&0xE0 == 0x20: // Step (no update, dir from last step)
		w.step(w.stepDir, cmd&0x10 != 0)
	case cmd&0xE0 == 0x40: // Step-in
		w.step(1, cmd&0x10 != 0)
	case cmd&0xE0 == 0x60: // Step-out
		w.step(-1, cmd&0x10 != 0)
	case cmd&0xE0 == 0x80: // Read sector(s)
		w.startRead(cmd&0x10 != 0)
	case cmd&0xE0 == 0xA0: // Write sector(s)
		w.startWrite(cmd&0x10 != 0)
	case cmd&0xF0 == 0xC0: // Read address
		w.readAddress()
	case cmd&0xF0 == 0xD0: // Force interrupt
		w.forceInterrupt()
	case cmd&0xF0 == 0xE0: // Read track
		w.statusReg = 0
		w.intrq = true
	case cmd&0xF0 == 0xF0: // Write track (format)
		w.statusReg = 0
		w.intrq = true
	}
}

func (w *WD1793) step(dir int, updateTrack bool) {
	w.stepDir = dir
	if updateTrack {
		w.track += dir
		if w.track < 0 {
			w.track = 0
		}
		w.trackReg = byte(w.track)
	}
	w.statusReg = 0
	if w.track == 0 {
		w.statusReg |= StatusTrack00
	}
	w.intrq = true
}

func (w *WD1793) startRead(multiple bool) {
	data, ok := w.image.ReadSector(w.track, w.side, int(w.sectorReg))
	if !ok {
		w.statusReg = StatusRecordNotFound
		w.intrq = true
		return
	}
	w.buf = data
	w.bufPos = 0
	w.writing = false
	w.busy = true
	w.drq = true
	w.statusReg = StatusBusy | StatusDRQ
	_ = multiple
}

func (w *WD1793) startWrite(multiple bool) {
	w.buf = make([]byte, sectorSize)
	w.bufPos = 0
	w.writing = true
	w.busy = true
	w.drq = true
	w.statusReg = StatusBusy | StatusDRQ
	_ = multiple
}

func (w *WD1793) readAddress() {
	w.trackReg = byte(w.track)
	w.sectorReg = 1
	w.statusReg = 0
	w.intrq = true
}

func (w *WD1793) forceInterrupt() {
	w.busy = false
	w.drq = false
	w.statusReg = 0
	w.intrq = true
}

// ReadData reads the data register; for read commands this drains the
// sector buffer one byte per access, asserting DRQ until exhausted.
func (w *WD1793) ReadData() byte {
	if !w.busy || w.writing {
		return w.dataReg
	}
	if w.bufPos >= len(w.buf) {
		w.busy = false
		w.drq = false
		w.statusReg = 0
		w.intrq = true
		return w.dataReg
	}
	b := w.buf[w.bufPos]
	w.bufPos++
	if w.bufPos == len(w.buf) {
		w.busy = false
		w.drq = false
		w.statusReg = 0
		w.intrq = true
	}
	w.dataReg = b
	return b
}

// WriteData writes the data register; for write commands this fills
// the sector buffer and commits it to the image once full.
func (w *WD1793) WriteData(b byte) {
	w.dataReg = b
	if !w.busy || !w.writing {
		return
	}
	if w.bufPos < len(w.buf) {
		w.buf[w.bufPos] = b
		w.bufPos++
	}
	if w.bufPos == len(w.buf) {
		ok := w.image.WriteSector(w.track, w.side, int(w.sectorReg), w.buf)
		w.busy = false
		w.drq = false
		if !ok {
			w.statusReg = StatusWriteProtect
		} else {
			w.statusReg = 0
		}
		w.intrq = true
	}
}

// ReadStatus reads the status register, clearing any pending INTRQ
// flag the way real Betadisk firmware expects after polling it.
func (w *WD1793) ReadStatus() byte {
	s := w.statusReg
	if w.busy {
		s |= StatusBusy
	}
	w.intrq = false
	return s
}

// WriteTrackReg / WriteSectorReg program the track/sector registers
// ahead of a Type II/III command.
func (w *WD1793) WriteTrackReg(v byte)  { w.trackReg = v }
func (w *WD1793) WriteSectorReg(v byte) { w.sectorReg = v }
func (w *WD1793) WriteDataReg(v byte)   { w.dataReg = v }

func (w *WD1793) TrackReg() byte  { return w.trackReg }
func (w *WD1793) SectorReg() byte { return w.sectorReg }

// DRQ and INTRQ expose the two interrupt-ish lines the Betadisk
// interface ORs into the Spectrum's floating-bus/NMI wiring.
func (w *WD1793) DRQ() bool   { return w.drq }
func (w *WD1793) INTRQ() bool { return w.intrq }

// Reset restores power-on idle state.
func (w *WD1793) Reset() {
	w.busy, w.drq, w.intrq = false, false, false
	w.statusReg = 0
	w.buf = nil
}
