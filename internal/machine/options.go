// Package machine aggregates the per-chip packages (internal/z80,
// internal/memory, internal/video/cpc, internal/video/spectrum,
// internal/psg, internal/fdc/..., internal/tape, internal/snapshot,
// internal/disk) into the two concrete machines the spec names — CPC
// and Spectrum — behind a single cooperative-scheduler RunFrame loop
// (spec §5, §9 "Global mutable state: ... aggregates all of this into
// a single Machine struct passed by mutable reference"). Grounded on
// the teacher's top-level wiring in `machine.go`/`system.go`-equivalent
// files, which construct one struct holding every chip and drive it
// from a single run loop rather than scattering package-level globals.
package machine

import "log"

// Family selects which 8-bit computer line a Machine emulates.
type Family int

const (
	FamilyCPC Family = iota
	FamilySpectrum
)

// Options mirrors the configuration surface named in spec §6: every
// field a host (CLI or otherwise) can set before or after Setup.
type Options struct {
	Family Family

	ModelID   int // CPC: 0=464,1=664,2=6128,3=Plus/GX4000; Spectrum: 0=48K,1=128K,2=+2,3=+2A,4=+3,5=Pentagon
	RAMSizeKB int

	CRTCVariant    int // 0..4, CPC only
	JoystickVariant int // 0..4
	LightgunVariant int // 0..3

	TapeFastload bool
	TapeSkipload bool
	TapeRewind   bool

	PaletteType  int // 0..4
	ScanlineMode int // 0..3
	AudioStereo  int // 0..3: 0=mono,1=ABC,2=ACB,3=BAC

	PlayCityEnabled bool
	CovoxEnabled    bool

	StrictSnapshots      bool
	DiscReadOnlyDefault  bool
	ULAplusEnabled       bool
	PentagonTiming       bool

	FrameSkip     int
	RealtimeSync  bool
	AudioEnabled  bool
	Fullscreen    bool
	StartInDebugger bool
}

// DefaultOptions returns the spec's baseline configuration: CPC 6128
// with 128K RAM, realtime sync and audio on, everything else off.
func DefaultOptions() Options {
	return Options{
		Family:       FamilyCPC,
		ModelID:      2,
		RAMSizeKB:    128,
		RealtimeSync: true,
		AudioEnabled: true,
	}
}

// Logger is the narrow logging seam every component writes through,
// matching the teacher's direct use of the standard `log` package
// (audio_chip.go) rather than a structured logging library — nothing
// in the example pack pulls in a structured/leveled logger, so there
// is no ecosystem precedent to prefer over the one the teacher itself
// uses.
type Logger = *log.Logger
