//go:build !headless

package psg

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

// StereoSource is anything that can render one mixed stereo sample
// pair per call; Chip.Sample satisfies it directly, and a PlayCity/
// TurboSound pairing (spec §4.5) can be exposed the same way.
type StereoSource interface {
	Sample() (left, right float64)
}

// OtoBackend pulls StereoSource frames out through the host audio
// device via oto, the same Read-driven pull model as the teacher's
// OtoPlayer (audio_backend_oto.go) but stereo float32LE, matching
// Chip.Sample's own (left, right) shape instead of a mono ring buffer.
type OtoBackend struct {
	ctx    *oto.Context
	player *oto.Player

	source atomic.Pointer[StereoSource]

	mutex   sync.Mutex
	started bool
}

// NewOtoBackend opens an oto context at sampleRate, 2 channels,
// float32LE - the chip's own sampleRate, so no resampling stage is
// needed between Sample() and the host device.
func NewOtoBackend(sampleRate int) (*OtoBackend, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	ob := &OtoBackend{ctx: ctx}
	ob.player = ctx.NewPlayer(ob)
	return ob, nil
}

// SetSource swaps in the chip this backend pulls samples from; safe
// to call while the player is running (atomic.Pointer, no lock needed
// on the Read hot path).
func (ob *OtoBackend) SetSource(source StereoSource) {
	ob.source.Store(&source)
}

// Read implements io.Reader, invoked by oto's internal player
// goroutine to pull interleaved L/R float32LE frames on demand.
func (ob *OtoBackend) Read(p []byte) (n int, err error) {
	const frameBytes = 8 // 2 channels * 4 bytes (float32)
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	srcPtr := ob.source.Load()
	if srcPtr == nil {
		for i := 0; i < frames*frameBytes; i++ {
			p[i] = 0
		}
		return frames * frameBytes, nil
	}
	src := *srcPtr

	buf := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		l, r := src.Sample()
		buf[i*2] = float32(l)
		buf[i*2+1] = float32(r)
	}
	n = copy(p, (*[1 << 30]byte)(unsafe.Pointer(&buf[0]))[:frames*frameBytes])
	return n, nil
}

// Start begins playback; a no-op if already started.
func (ob *OtoBackend) Start() {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	if !ob.started {
		ob.player.Play()
		ob.started = true
	}
}

// Stop pauses playback without releasing the underlying player.
func (ob *OtoBackend) Stop() {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	if ob.started {
		ob.player.Pause()
		ob.started = false
	}
}

// Close stops playback and releases the oto player.
func (ob *OtoBackend) Close() error {
	ob.Stop()
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	return ob.player.Close()
}
