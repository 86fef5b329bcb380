// Package fdc765 implements the NEC uPD765/Intel 8272-compatible
// floppy disk controller used by the Amstrad CPC's 3" drive interface
// (spec §4.6). The phase state machine (Idle -> Command -> Execution
// -> Result) and status-register bit layout are grounded on the
// teacher's memory-mapped-device dispatch idiom in `memory_bus.go`,
// generalized here to the FDC's byte-stream command protocol.
package fdc765

// Phase is the controller's current protocol phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCommand
	PhaseExecution
	PhaseResult
)

// Command opcodes the spec requires (§4.6): READ_DATA, WRITE_DATA,
// FORMAT_TRACK, READ_ID, SEEK, RECALIBRATE, SENSE_INTERRUPT_STATUS,
// SENSE_DRIVE_STATUS, SPECIFY.
const (
	CmdReadData       = 0x06
	CmdWriteData      = 0x05
	CmdFormatTrack    = 0x0D
	CmdReadID         = 0x0A
	CmdSeek           = 0x0F
	CmdRecalibrate    = 0x07
	CmdSenseInterrupt = 0x08
	CmdSenseDrive     = 0x04
	CmdSpecify        = 0x03
)

// Main status register bits.
const (
	msrDriveBusy0 = 1 << 0
	msrCommandBusy = 1 << 4
	msrExecution   = 1 << 5
	msrDIO         = 1 << 6 // 1 = controller->CPU
	msrRQM         = 1 << 7 // 1 = data register ready
)

// Status register 0 bits.
const (
	st0SeekEnd    = 0x20
	st0EquipCheck = 0x10
	st0NotReady   = 0x08
	st0AbnormalTerm = 0x40
)

// Drive models one of up to 4 attached 3" drives' head-position state;
// the actual sector data lives in the disk image the machine package
// attaches via ReadSector/WriteSector callbacks.
type Drive struct {
	Cylinder   int
	MotorOn    bool
	TwoSided   bool
	Present    bool
}

// Geometry describes the sector layout the image behind a drive
// reports for the currently-seeked track, used to validate READ_ID/
// READ_DATA/WRITE_DATA sector arguments.
type Geometry struct {
	SectorsPerTrack int
	SectorSize      int // bytes, 128<<N
	FirstSectorID   byte
}

// ImageIO is the callback surface the internal/disk image readers
// implement so the FDC never needs to know the on-disk container
// format (DSK/EXTENDED DSK per spec §4.8).
type ImageIO interface {
	Geometry(drive, cylinder, head int) (Geometry, bool)
	ReadSector(drive, cylinder, head int, sectorID byte) ([]byte, bool)
	WriteSector(drive, cylinder, head int, sectorID byte, data []byte) bool
}

// FDC765 is the controller. Commands are fed byte-by-byte via
// WriteData and results drained byte-by-byte via ReadData, matching
// real CPU<->FDC handshaking over the main status register.
type FDC765 struct {
	phase Phase

	drives [4]Drive
	image  ImageIO

	cmdBuf    []byte
	cmdLen    int
	cmdCursor int

	resultBuf []byte
	resultPos int

	execBuf []byte
	execPos int
	execDrive, execCyl, execHead int
	execSector byte
	execWrite  bool

	st0, st1, st2, st3 byte

	specifySRT, specifyHUT, specifyHLT byte
	nonDMA bool

	interruptPending bool
	seekInterrupt    [4]bool
}

// commandLength maps a command opcode to its total byte count
// (opcode+parameters), per the uPD765 datasheet command table.
var commandLength = map[byte]int{
	CmdReadData: 9, CmdWriteData: 9, CmdFormatTrack: 6, CmdReadID: 2,
	CmdSeek: 3, CmdRecalibrate: 2, CmdSenseInterrupt: 1, CmdSenseDrive: 2,
	CmdSpecify: 3,
}

// New returns a controller with drive slots 0 and 1 present and slots
// 2 and 3 absent (Attach can add them), all with their motors off,
// matching the CPC's always-wired FDC.
func New(image ImageIO) *FDC765 {
	f := &FDC765{image: image, phase: PhaseIdle}
	for i := range f.drives {
		f.drives[i].Present = i < 2
	}
	return f
}

// MainStatus returns the main status register the CPU polls before
// every WriteData/ReadData.
func (f *FDC765) MainStatus() byte {
	msr := byte(msrRQM)
	switch f.phase {
	case PhaseCommand:
		msr |= msrCommandBusy
	case PhaseExecution:
		msr |= msrCommandBusy | msrExecution
		if f.execWrite {
			// RQM stays set; DIO=0 means CPU->FDC (write direction)
		} else {
			msr |= msrDIO
		}
	case PhaseResult:
		msr |= msrCommandBusy | msrDIO
	}
	return msr
}

// WriteData feeds one command or execution-phase byte to the FDC (I/O
// write to the data register port).
func (f *FDC765) WriteData(b byte) {
	switch f.phase {
	case PhaseIdle:
		f.startCommand(b)
	case PhaseCommand:
		f.cmdBuf = append(f.cmdBuf, b)
		f.cmdCursor++
		if f.cmdCursor >= f.cmdLen {
			f.dispatch()
		}
	case PhaseExecution:
		if f.execWrite && f.execPos < len(f.execBuf) {
			f.execBuf[f.execPos] = b
			f.execPos++
			if f.execPos == len(f.execBuf) {
				f.finishWrite()
			}
		}
	}
}

// ReadData drains one execution- or result-phase byte from the FDC (I/O
// read of the data register port).
func (f *FDC765) ReadData() byte {
	switch f.phase {
	case PhaseExecution:
		if !f.execWrite && f.execPos < len(f.execBuf) {
			b := f.execBuf[f.execPos]
			f.execPos++
			if f.execPos == len(f.execBuf) {
				f.phase = PhaseResult
				f.buildReadResult()
			}
			return b
		}
	case PhaseResult:
		if f.resultPos < len(f.resultBuf) {
			b := f.resultBuf[f.resultPos]
			f.resultPos++
			if f.resultPos == len(f.resultBuf) {
				f.phase = PhaseIdle
			}
			return b
		}
	}
	return 0xFF
}

func (f *FDC765) startCommand(opcode byte) {
	length, ok := commandLength[opcode&0x1F]
	if opcode == CmdSenseInterrupt || opcode == CmdSenseDrive || opcode == CmdRecalibrate {
		length, ok = commandLength[opcode]
	}
	if !ok {
		length = 1 // unsupported opcode: swallow it and fall back to idle
	}
	f.cmdBuf = []byte{opcode}
	f.cmdLen = length
	f.cmdCursor = 1
	if f.cmdLen <= 1 {
		f.dispatch()
		return
	}
	f.phase = PhaseCommand
}

func (f *FDC765) dispatch() {
	opcode := f.cmdBuf[0] & 0x1F
	switch opcode {
	case CmdSpecify:
		f.specifySRT = f.cmdBuf[1] >> 4
		f.specifyHUT = f.cmdBuf[1] & 0x0F
		f.specifyHLT = f.cmdBuf[2] >> 1
		f.nonDMA = f.cmdBuf[2]&1 != 0
		f.phase = PhaseIdle
	case CmdSenseDrive:
		f.senseDrive()
	case CmdRecalibrate:
		f.recalibrate()
	case CmdSeek:
		f.seek()
	case CmdSenseInterrupt:
		f.senseInterrupt()
	case CmdReadID:
		f.readID()
	case CmdReadData:
		f.startReadWrite(false)
	case CmdWriteData:
		f.startReadWrite(true)
	default:
		f.phase = PhaseIdle
	}
}

func driveHeadByte(b byte) (drive, head int) {
	return int(b & 0x03), int((b >> 2) & 1)
}

func (f *FDC765) senseDrive() {
	drive, head := driveHeadByte(f.cmdBuf[1])
	st3 := byte(drive & 0x03)
	if head == 1 {
		st3 |= 0x04
	}
	if f.drives[drive].TwoSided {
		st3 |= 0x08
	}
	if f.drives[drive].Present {
		st3 |= 0x20 // ready
	}
	if f.drives[drive].Cylinder == 0 {
		st3 |= 0x10 // track 0
	}
	f.resultBuf = []byte{st3}
	f.resultPos = 0
	f.phase = PhaseResult
}

func (f *FDC765) recalibrate() {
	drive := int(f.cmdBuf[1] & 0x03)
	f.drives[drive].Cylinder = 0
	f.st0 = byte(drive) | st0SeekEnd
	f.seekInterrupt[drive] = true
	f.phase = PhaseIdle
}

func (f *FDC765) seek() {
	drive := int(f.cmdBuf[1] & 0x03)
	target := int(f.cmdBuf[2])
	f.drives[drive].Cylinder = target
	f.st0 = byte(drive) | st0SeekEnd
	f.seekInterrupt[drive] = true
	f.phase = PhaseIdle
}

func (f *FDC765) senseInterrupt() {
	for d := range f.seekInterrupt {
		if f.seekInterrupt[d] {
			f.seekInterrupt[d] = false
			f.resultBuf = []byte{byte(d) | st0SeekEnd, byte(f.drives[d].Cylinder)}
			f.resultPos = 0
			f.phase = PhaseResult
			return
		}
	}
	// No pending seek interrupt: invalid command status (st0=0x80).
	f.resultBuf = []byte{0x80}
	f.resultPos = 0
	f.phase = PhaseResult
}

func (f *FDC765) readID() {
	drive, head := driveHeadByte(f.cmdBuf[1])
	geom, ok := f.image.Geometry(drive, f.drives[drive].Cylinder, head)
	if !ok {
		f.abnormalTerminate(byte(drive))
		return
	}
	f.resultBuf = []byte{
		f.st0WithDrive(byte(drive)), 0, 0,
		byte(f.drives[drive].Cylinder), byte(head), geom.FirstSectorID, sizeCode(geom.SectorSize),
	}
	f.resultPos = 0
	f.phase = PhaseResult
}

func sizeCode(size int) byte {
	code := byte(0)
	for s := 128; s < size; s <<= 1 {
		code++
	}
	return code
}

func (f *FDC765) st0WithDrive(drive byte) byte { return drive }

func (f *FDC765) startReadWrite(write bool) {
	drive, head := driveHeadByte(f.cmdBuf[1])
	cyl := int(f.cmdBuf[2])
	sector := f.cmdBuf[4]
	geom, ok := f.image.Geometry(drive, cyl, head)
	if !ok {
		f.abnormalTerminate(byte(drive))
		return
	}
	f.execDrive, f.execCyl, f.execHead = drive, cyl, head
	f.execSector = sector
	f.execWrite = write

	if write {
		f.execBuf = make([]byte, geom.SectorSize)
		f.execPos = 0
		f.phase = PhaseExecution
		return
	}

	data, ok := f.image.ReadSector(drive, cyl, head, sector)
	if !ok {
		f.abnormalTerminate(byte(drive))
		return
	}
	f.execBuf = data
	f.execPos = 0
	f.phase = PhaseExecution
}

func (f *FDC765) finishWrite() {
	ok := f.image.WriteSector(f.execDrive, f.execCyl, f.execHead, f.execSector, f.execBuf)
	if !ok {
		f.abnormalTerminate(byte(f.execDrive))
		return
	}
	f.buildReadResult()
	f.phase = PhaseResult
}

func (f *FDC765) abnormalTerminate(drive byte) {
	f.resultBuf = []byte{drive | st0AbnormalTerm, 0x01, 0, byte(f.drives[drive&0x03].Cylinder), 0, f.execSector, 0}
	f.resultPos = 0
	f.phase = PhaseResult
}

func (f *FDC765) buildReadResult() {
	f.resultBuf = []byte{
		byte(f.execDrive), 0, 0,
		byte(f.execCyl), byte(f.execHead), f.execSector, 0,
	}
	f.resultPos = 0
}

// Attach registers drive index (0-3) as present/two-sided, called by
// the machine package from its CLI-selected disk image options.
func (f *FDC765) Attach(drive int, twoSided bool) {
	if drive < 0 || drive >= len(f.drives) {
		return
	}
	f.drives[drive].Present = true
	f.drives[drive].TwoSided = twoSided
}

// Reset returns the controller to its post-power-on idle phase with
// all drives recalibrated to cylinder 0.
func (f *FDC765) Reset() {
	f.phase = PhaseIdle
	for i := range f.drives {
		f.drives[i].Cylinder = 0
	}
	f.cmdBuf, f.resultBuf, f.execBuf = nil, nil, nil
}
