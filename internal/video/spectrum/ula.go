// Package spectrum implements the ZX Spectrum ULA video generator: the
// scanline-driven bitmap+attribute renderer, border, ULAplus palette,
// floating bus and the 48K/128K/+3/Pentagon timing variants (spec
// §4.4). The non-linear bitmap addressing and attribute/flash/bright
// color model are grounded directly on the teacher's ULAEngine
// (video_ula.go), generalized from a single fixed timing profile to
// the model table below.
package spectrum

const (
	displayWidth  = 256
	displayHeight = 192
	borderMax     = 32
	frameWidth    = displayWidth + borderMax*2
	frameHeight   = displayHeight + borderMax*2

	vramBitmapSize = 6144
	vramAttrSize   = 768
	vramSize       = vramBitmapSize + vramAttrSize
)

// Model selects the timing profile named in spec §4.4.
type Model int

const (
	Model48K Model = iota
	Model128K
	ModelPlus3
	ModelPentagon
)

// timing holds the per-model T-cycle geometry from spec §4.4.
type timing struct {
	tPerLine    int
	lines       int
	irqLength   int // T-cycles the frame IRQ line stays asserted
	contention  [8]byte
}

var timings = map[Model]timing{
	Model48K:      {tPerLine: 224, lines: 312, irqLength: 32, contention: [8]byte{6, 5, 4, 3, 2, 1, 0, 0}},
	Model128K:     {tPerLine: 228, lines: 311, irqLength: 36, contention: [8]byte{6, 5, 4, 3, 2, 1, 0, 0}},
	ModelPlus3:    {tPerLine: 228, lines: 311, irqLength: 32, contention: [8]byte{1, 0, 7, 6, 5, 4, 3, 2}},
	ModelPentagon: {tPerLine: 224, lines: 320, irqLength: 32, contention: [8]byte{0, 0, 0, 0, 0, 0, 0, 0}},
}

// standardInkRGB are the 8 base Spectrum colors (bright bit off); the
// bright set raises each non-zero channel component from 215 to 255.
var standardInkRGB = [8][3]byte{
	{0, 0, 0}, {0, 0, 215}, {215, 0, 0}, {215, 0, 215},
	{0, 215, 0}, {0, 215, 215}, {215, 215, 0}, {215, 215, 215},
}

var brightInkRGB = [8][3]byte{
	{0, 0, 0}, {0, 0, 255}, {255, 0, 0}, {255, 0, 255},
	{0, 255, 0}, {0, 255, 255}, {255, 255, 0}, {255, 255, 255},
}

// ULA is the ZX Spectrum video/beeper/keyboard-adjacent chip. Only the
// video half lives here; keyboard matrix and beeper bit are read/set by
// the machine package through the same I/O port the ULA claims.
type ULA struct {
	model  Model
	timing timing

	vram   [vramSize]byte
	border byte

	// ULAplus: 64-entry palette plus the mode-enable byte (spec §4.4,
	// §4.9 PLTT chunk).
	ulaPlusEnabled bool
	ulaPlusPalette [64]byte // packed 3R3G2B per entry

	flashPhase bool
	frameCount int

	// Per-scanline beam position within the current frame, advanced by
	// the scheduler's sync() calls (spec §9).
	lineT int
	line  int

	floatingBusByte byte
	lastULAFetch    byte

	frame [frameWidth * frameHeight * 4]byte
}

// New creates a ULA for the given timing model.
func New(model Model) *ULA {
	u := &ULA{model: model, timing: timings[model]}
	return u
}

// VRAM exposes the 6912-byte video RAM region for direct CPU-side
// access by the MMU (bank 5 on 128K, the fixed screen on 48K).
func (u *ULA) VRAM() *[vramSize]byte { return &u.vram }

// WritePort6 handles OUT to port 0xFE: bits 0-2 border color, bit 3 MIC,
// bit 4 beeper (caller's concern, not modeled here).
func (u *ULA) WritePort6(value byte) {
	u.border = value & 0x07
}

// WriteULAplusControl handles OUT 0xBF3B (register select) /
// OUT 0xFF3B (data/mode), matching the two-port ULAplus protocol in
// spec §4.4 scenario 5.
func (u *ULA) WriteULAplusControl(selected byte, isData bool, value byte) {
	if !isData {
		return
	}
	if selected&0x40 != 0 {
		u.ulaPlusEnabled = value&1 != 0
		return
	}
	u.ulaPlusPalette[selected&0x3F] = value
}

// SyncT advances the ULA by delta T-cycles, called by the scheduler
// before any CPU access that could race the raster (spec §9).
func (u *ULA) SyncT(delta int) {
	for i := 0; i < delta; i++ {
		u.tick()
	}
}

func (u *ULA) tick() {
	u.lineT++
	if u.lineT >= u.timing.tPerLine {
		u.lineT = 0
		u.line++
		if u.line >= u.timing.lines {
			u.line = 0
			u.endFrame()
		}
	}
	u.renderPixel()
}

func (u *ULA) endFrame() {
	u.frameCount++
	if u.frameCount%16 == 0 {
		u.flashPhase = !u.flashPhase
	}
}

// IRQAsserted reports whether the frame interrupt line should be high
// at the current beam position: exactly timing.irqLength T-cycles at
// the top of the frame (spec §4.4).
func (u *ULA) IRQAsserted() bool {
	return u.line == 0 && u.lineT < u.timing.irqLength
}

func (u *ULA) renderPixel() {
	// Visible area starts after the top border's worth of lines; this
	// mapping matches the teacher's rowStartAddr precomputation idea,
	// generalized to run per-tick instead of a whole-frame blit.
	screenLine := u.line - (u.timing.lines-frameHeight)/2
	col := u.lineT - (u.timing.tPerLine-frameWidth)/2
	if screenLine < 0 || screenLine >= frameHeight || col < 0 || col >= frameWidth {
		return
	}

	x, y := col, screenLine
	var rgb [3]byte
	bx, by := x-borderMax, y-borderMax
	if bx >= 0 && bx < displayWidth && by >= 0 && by < displayHeight {
		rgb = u.pixelColor(bx, by)
	} else {
		rgb = u.borderColor()
	}
	idx := (y*frameWidth + x) * 4
	u.frame[idx+0] = rgb[0]
	u.frame[idx+1] = rgb[1]
	u.frame[idx+2] = rgb[2]
	u.frame[idx+3] = 0xFF
}

func (u *ULA) borderColor() [3]byte {
	return standardInkRGB[u.border]
}

// bitmapAddr implements the famous non-linear ZX Spectrum screen
// addressing: line = 0bPPPLLLSSS encoded as Y7Y6,Y2Y1Y0,Y5Y4Y3 across
// the 6144-byte bitmap.
func bitmapAddr(x, y int) int {
	charCol := x / 8
	third := y / 64
	within := y % 64
	charRow := within / 8
	scan := within % 8
	return third*2048 + scan*256 + charRow*32 + charCol
}

func attrAddr(x, y int) int {
	return vramBitmapSize + (y/8)*32 + (x / 8)
}

func (u *ULA) pixelColor(x, y int) [3]byte {
	byteIdx := bitmapAddr(x, y)
	bitmapByte := u.vram[byteIdx]
	bit := 7 - (x % 8)
	pixelSet := bitmapByte&(1<<uint(bit)) != 0
	u.lastULAFetch = bitmapByte

	attr := u.vram[attrAddr(x, y)]
	ink := attr & 0x07
	paper := (attr >> 3) & 0x07
	bright := attr&0x40 != 0
	flash := attr&0x80 != 0

	if flash && u.flashPhase {
		ink, paper = paper, ink
	}

	if u.ulaPlusEnabled {
		return u.ulaPlusColor(ink, paper, bright, pixelSet)
	}

	table := &standardInkRGB
	if bright {
		table = &brightInkRGB
	}
	if pixelSet {
		return table[ink]
	}
	return table[paper]
}

// ulaPlusColor maps an ink/paper/bright combination to one of the 64
// freely selectable ULAplus entries, packed 3R3G2B per spec §4.4/§4.9.
func (u *ULA) ulaPlusColor(ink, paper byte, bright bool, pixelSet bool) [3]byte {
	group := byte(0)
	if bright {
		group = 8
	}
	var idx byte
	if pixelSet {
		idx = group + ink
	} else {
		idx = group + 32 + paper
	}
	packed := u.ulaPlusPalette[idx]
	r := (packed >> 5) & 0x07
	g := (packed >> 2) & 0x07
	b := packed & 0x03
	return [3]byte{
		byte(int(r) * 255 / 7),
		byte(int(g) * 255 / 7),
		byte(int(b) * 255 / 3),
	}
}

// FloatingBus returns the byte a CPU read of an unassigned even I/O
// port would observe during the bitmap region: the last value the ULA
// fetched from VRAM, or 0xFF outside it (spec §4.4).
func (u *ULA) FloatingBus() byte {
	screenLine := u.line - (u.timing.lines-frameHeight)/2 - borderMax
	if screenLine < 0 || screenLine >= displayHeight {
		return 0xFF
	}
	col := u.lineT - (u.timing.tPerLine-frameWidth)/2 - borderMax
	if col < 0 || col >= displayWidth {
		return 0xFF
	}
	return u.lastULAFetch
}

// Frame returns the RGBA framebuffer rendered so far this frame; the
// scheduler copies it out at VSYNC to hand to the host (spec §6).
func (u *ULA) Frame() []byte { return u.frame[:] }

func (u *ULA) FrameSize() (w, h int) { return frameWidth, frameHeight }

// Reset restores power-on state: black border, ULAplus disabled, flash
// phase reset.
func (u *ULA) Reset() {
	u.border = 0
	u.ulaPlusEnabled = false
	u.flashPhase = false
	u.frameCount = 0
	u.line, u.lineT = 0, 0
	for i := range u.vram {
		u.vram[i] = 0
	}
}

// Contention returns the per-T-cycle wait state for a memory access at
// the current beam position, following the {6,5,4,3,2,1,0,0} (or
// {1,0,7,6,5,4,3,2} on +3) pattern from spec §4.4, applied only while
// the beam is inside the bitmap's horizontal window.
func (u *ULA) Contention() int {
	screenLine := u.line - (u.timing.lines-frameHeight)/2 - borderMax
	if screenLine < 0 || screenLine >= displayHeight {
		return 0
	}
	col := u.lineT - (u.timing.tPerLine-frameWidth)/2 - borderMax
	if col < 0 || col >= displayWidth {
		return 0
	}
	return int(u.timing.contention[col%8])
}
