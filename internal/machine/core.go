package machine

import "github.com/retrocore/cpcec-go/internal/snapshot"

// Core is the host-facing surface both CPC and Spectrum implement,
// letting a single CLI/frontend/debugger work against whichever family
// Options.Family selected without a type switch at every call site
// (spec §6's setup/run_one_frame/load_media host interface, generalized
// across both concrete machines the way the teacher's multi-CPU
// adapters share one DebuggableCPU-style interface in debug_monitor.go).
type Core interface {
	Reset()
	RunFrame()
	Frame() []byte
	FrameSize() (w, h int)
	SetKey(row, bit int, down bool)

	Registers() snapshot.CPUState
	SetRegisters(snapshot.CPUState)
	Step() int

	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

var (
	_ Core = (*CPC)(nil)
	_ Core = (*Spectrum)(nil)
)
