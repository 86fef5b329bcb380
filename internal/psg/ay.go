// Package psg implements the AY-3-8910/YM2149 programmable sound
// generator used by the CPC (and, via the Betadisk/128K AY port, the
// Spectrum): three tone/noise channels, an envelope generator, and
// stereo mixing (spec §4.5).
package psg

// Clock frequencies for the machines that host this chip, mirroring
// the teacher's psg_constants.go naming.
const (
	ClockCPC       = 1000000
	ClockSpectrum  = 1773400
	ClockAtariST   = 2000000
)

// Register indices, in the conventional AY-3-8910 order.
const (
	RegTonePeriodALo = iota
	RegTonePeriodAHi
	RegTonePeriodBLo
	RegTonePeriodBHi
	RegTonePeriodCLo
	RegTonePeriodCHi
	RegNoisePeriod
	RegMixer
	RegAmplitudeA
	RegAmplitudeB
	RegAmplitudeC
	RegEnvPeriodLo
	RegEnvPeriodHi
	RegEnvShape
	RegIOPortA
	RegIOPortB
	RegCount
)

// Mixer register bits: 0-2 disable tone on A/B/C, 3-5 disable noise.
const (
	MixerToneA  = 1 << 0
	MixerToneB  = 1 << 1
	MixerToneC  = 1 << 2
	MixerNoiseA = 1 << 3
	MixerNoiseB = 1 << 4
	MixerNoiseC = 1 << 5
)

// Stereo surround modes (spec §4.5).
const (
	StereoMono = iota
	StereoABC
	StereoACB
	StereoBAC
)

// amplitudeTable is the 16-step logarithmic volume taper matching the
// published YM2149 datasheet curve (each step ~3dB, full scale at
// index 15), precomputed once at init per the teacher's audio_lut.go
// precomputed-table convention.
var amplitudeTable [16]float64

func init() {
	// YM2149 15-step logarithmic DAC, normalized to [0,1].
	amplitudeTable = [16]float64{
		0, 0.00999, 0.01428, 0.02032, 0.02932, 0.04178, 0.06040, 0.08562,
		0.12385, 0.17462, 0.25005, 0.35015, 0.50000, 0.70703, 1.0, 1.0,
	}
}

type channel struct {
	period  uint16 // 12-bit tone period
	counter uint16
	output  bool

	amplitude   byte // 0-15, or envelope-controlled when the M bit is set
	useEnvelope bool
}

// Chip is one AY-3-8910/YM2149 instance. Registers are written through
// Write(value) after SelectRegister, matching the real chip's
// BC1/BDIR latch-then-write protocol as exposed over CPC/Spectrum I/O
// ports.
type Chip struct {
	regs     [RegCount]byte
	selected byte

	tone  [3]channel
	noise struct {
		period  byte
		counter byte
		lfsr    uint32 // 17-bit LFSR (feedback into bit 16); a 23-bit register is not modeled
		output  bool
	}

	env struct {
		period  uint16
		counter uint16
		shape   byte
		step    int
		dir     int
		level   byte
		holding bool
	}

	clockHz    int
	sampleRate int
	clockAccum int

	stereo   int
	second   *Chip // optional PlayCity/TurboSound companion chip
}

// New creates a Chip clocked at clockHz, producing samples at
// sampleRate; noise LFSR seeds to all-ones per the real part's
// power-on behavior.
func New(clockHz, sampleRate int) *Chip {
	c := &Chip{clockHz: clockHz, sampleRate: sampleRate}
	c.noise.lfsr = 0x1FFFF
	return c
}

// SetSecondChip wires a companion chip (PlayCity/TurboSound), mixed at
// reduced intensity in Sample to avoid clipping against the primary
// chip's output (spec §4.5).
func (c *Chip) SetSecondChip(second *Chip) { c.second = second }

// SetStereoMode selects the per-voice L/R weighting (spec §4.5).
func (c *Chip) SetStereoMode(mode int) { c.stereo = mode }

// SelectRegister latches the register index for the next Write/Read,
// mirroring the real chip's address-latch cycle (BDIR+BC1 high).
func (c *Chip) SelectRegister(index byte) { c.selected = index & 0x0F }

// Write stores value into the latched register and updates any derived
// state (tone/noise periods, envelope shape reset).
func (c *Chip) Write(value byte) {
	c.WriteRegister(c.selected, value)
}

// Read returns the latched register's current value.
func (c *Chip) Read() byte {
	if c.selected >= RegCount {
		return 0xFF
	}
	return c.regs[c.selected]
}

// WriteRegister writes reg directly, bypassing the select latch -
// convenient for snapshot restore and the Plus ASIC DMA's "LOAD r,dd"
// command (spec §4.3).
func (c *Chip) WriteRegister(reg, value byte) {
	if reg >= RegCount {
		return
	}
	c.regs[reg] = value
	switch reg {
	case RegTonePeriodALo, RegTonePeriodAHi:
		c.tone[0].period = periodOf(c.regs[RegTonePeriodALo], c.regs[RegTonePeriodAHi])
	case RegTonePeriodBLo, RegTonePeriodBHi:
		c.tone[1].period = periodOf(c.regs[RegTonePeriodBLo], c.regs[RegTonePeriodBHi])
	case RegTonePeriodCLo, RegTonePeriodCHi:
		c.tone[2].period = periodOf(c.regs[RegTonePeriodCLo], c.regs[RegTonePeriodCHi])
	case RegNoisePeriod:
		c.noise.period = value & 0x1F
	case RegAmplitudeA:
		c.tone[0].amplitude = value & 0x0F
		c.tone[0].useEnvelope = value&0x10 != 0
	case RegAmplitudeB:
		c.tone[1].amplitude = value & 0x0F
		c.tone[1].useEnvelope = value&0x10 != 0
	case RegAmplitudeC:
		c.tone[2].amplitude = value & 0x0F
		c.tone[2].useEnvelope = value&0x10 != 0
	case RegEnvPeriodLo, RegEnvPeriodHi:
		c.env.period = uint16(c.regs[RegEnvPeriodLo]) | uint16(c.regs[RegEnvPeriodHi])<<8
		if c.env.period == 0 {
			c.env.period = 1
		}
	case RegEnvShape:
		c.resetEnvelope(value)
	}
}

func periodOf(lo, hi byte) uint16 {
	p := uint16(lo) | uint16(hi&0x0F)<<8
	if p == 0 {
		p = 1
	}
	return p
}

// shapeContinue/Attack/Alternate/Hold bits of register 13.
const (
	shapeHold      = 0x01
	shapeAlternate = 0x02
	shapeAttack    = 0x04
	shapeContinue  = 0x08
)

func (c *Chip) resetEnvelope(shape byte) {
	c.env.shape = shape
	c.env.counter = 0
	c.env.holding = false
	if shape&shapeAttack != 0 {
		c.env.level = 0
		c.env.dir = 1
	} else {
		c.env.level = 15
		c.env.dir = -1
	}
	c.env.step = 0
}

func (c *Chip) tickEnvelope() {
	if c.env.holding {
		return
	}
	c.env.counter++
	if c.env.counter < c.env.period {
		return
	}
	c.env.counter = 0

	shape := c.env.shape
	if shape&shapeContinue == 0 {
		// Single-shot shapes 0-7 (continue bit clear): ramp once then hold at 0.
		c.env.level = byte(int(c.env.level) + c.env.dir)
		if c.env.dir > 0 && c.env.level >= 15 || c.env.dir < 0 && c.env.level <= 0 {
			c.env.level = 0
			c.env.holding = true
		}
		return
	}

	c.env.level = byte(int(c.env.level) + c.env.dir)
	if c.env.dir > 0 && int(c.env.level) > 15 {
		if shape&shapeAlternate != 0 {
			c.env.dir = -1
			c.env.level = 15
		} else if shape&shapeHold != 0 {
			c.env.level = 15
			c.env.holding = true
		} else {
			c.env.level = 0
		}
	} else if c.env.dir < 0 && int(c.env.level) < 0 {
		if shape&shapeAlternate != 0 {
			c.env.dir = 1
			c.env.level = 0
		} else if shape&shapeHold != 0 {
			c.env.level = 0
			c.env.holding = true
		} else {
			c.env.level = 15
		}
	}
}

func (c *Chip) tickTone(ch int) {
	t := &c.tone[ch]
	t.counter++
	// Ultrasound filter: collapse periods at/below the sample quantum
	// to a fixed latch instead of toggling every sample, so PSG-driven
	// beeper tricks relying on very short periods still produce a
	// stable DC-ish impulse rather than aliasing noise (spec §4.5).
	minPeriod := uint16(c.clockHz / c.sampleRate / 16)
	if minPeriod < 1 {
		minPeriod = 1
	}
	if t.period <= minPeriod {
		t.output = true
		return
	}
	if t.counter >= t.period {
		t.counter = 0
		t.output = !t.output
	}
}

func (c *Chip) tickNoise() {
	c.noise.counter++
	period := c.noise.period
	if period == 0 {
		period = 1
	}
	if c.noise.counter < period {
		return
	}
	c.noise.counter = 0
	bit := (c.noise.lfsr ^ (c.noise.lfsr >> 3)) & 1
	c.noise.lfsr = (c.noise.lfsr >> 1) | (bit << 16)
	c.noise.output = c.noise.lfsr&1 != 0
}

// Tick advances the chip by one internal clock cycle (the caller is
// responsible for dividing the Z80 T-cycle clock down to the AY's own
// clock, typically /16 relative to a 1MHz AY clock from a 3.5MHz host).
func (c *Chip) Tick() {
	for ch := 0; ch < 3; ch++ {
		c.tickTone(ch)
	}
	c.tickNoise()
	c.tickEnvelope()
}

// Sample renders the current mixed output for the three channels as
// left/right float64 samples in [-1,1], applying the configured stereo
// weighting and the companion chip's attenuated contribution if any.
func (c *Chip) Sample() (left, right float64) {
	l, r := c.sampleMono()
	if c.second != nil {
		sl, sr := c.second.sampleMono()
		const secondaryAttenuation = 0.6
		l += sl * secondaryAttenuation
		r += sr * secondaryAttenuation
	}
	return clamp(l), clamp(r)
}

func (c *Chip) sampleMono() (left, right float64) {
	mixer := c.regs[RegMixer]
	weights := stereoWeights[c.stereo]
	for ch := 0; ch < 3; ch++ {
		t := &c.tone[ch]
		toneOn := mixer&(1<<uint(ch)) == 0 || t.output
		noiseOn := mixer&(1<<uint(ch+3)) == 0 || c.noise.output
		if !toneOn && !noiseOn {
			continue
		}
		level := t.amplitude
		if t.useEnvelope {
			level = c.env.level
		}
		v := amplitudeTable[level&0x0F]
		lw, rw := weights[ch][0], weights[ch][1]
		left += v * lw
		right += v * rw
	}
	return left / 3, right / 3
}

// stereoWeights[mode][channel] = {leftWeight, rightWeight}.
var stereoWeights = [4][3][2]float64{
	StereoMono: {{1, 1}, {1, 1}, {1, 1}},
	StereoABC:  {{1, 0}, {0.5, 0.5}, {0, 1}},
	StereoACB:  {{1, 0}, {0, 1}, {0.5, 0.5}},
	StereoBAC:  {{0.5, 0.5}, {1, 0}, {0, 1}},
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Reset restores power-on state: all registers zero, envelope idle,
// noise LFSR reseeded.
func (c *Chip) Reset() {
	for i := range c.regs {
		c.regs[i] = 0
	}
	c.tone = [3]channel{}
	c.noise.period = 0
	c.noise.counter = 0
	c.noise.lfsr = 0x1FFFF
	c.noise.output = false
	c.env = struct {
		period  uint16
		counter uint16
		shape   byte
		step    int
		dir     int
		level   byte
		holding bool
	}{period: 1}
}

// Registers returns a copy of all 16 registers (including the two I/O
// port registers), for
// snapshot save (spec §4.9 AY chunk).
func (c *Chip) Registers() [RegCount]byte { return c.regs }

// RestoreRegisters reloads all 16 registers from a snapshot, routing
// each through WriteRegister so derived state (periods, envelope) is
// rebuilt consistently.
func (c *Chip) RestoreRegisters(regs [RegCount]byte) {
	for i, v := range regs {
		c.WriteRegister(byte(i), v)
	}
}
