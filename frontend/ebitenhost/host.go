// Package ebitenhost is the thin presentation layer the core's §1
// Non-goals deliberately exclude from internal/: a Game that blits
// machine.Core's generated RGBA frame each draw and forwards keyboard
// state into SetKey, grounded on the teacher's video_backend_ebiten.go
// (EbitenOutput.Draw/Update/Layout, its keyboard-scan loop) reduced
// from IntuitionEngine's general-purpose terminal-over-video model
// down to a fixed key matrix, since §6 specifies keyboard input as an
// 8x8/9x5 matrix rather than a text stream.
package ebitenhost

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/retrocore/cpcec-go/internal/machine"
)

// Binding maps one host key to a machine keyboard-matrix coordinate.
type Binding struct {
	Key      ebiten.Key
	Row, Bit int
}

// Game drives a machine.Core through ebiten's run loop: Update polls
// the host keyboard into SetKey and advances one frame, Draw blits the
// core's last Frame() into the window.
type Game struct {
	core    machine.Core
	keymap  []Binding
	window  *ebiten.Image
	scale   int
	fullscr bool
}

// New builds a Game for core, using keymap to translate host key
// presses into SetKey calls (CPCKeymap/SpectrumKeymap cover the common
// alpha/control keys; callers may pass a custom table).
func New(core machine.Core, keymap []Binding, scale int) *Game {
	if scale < 1 {
		scale = 1
	}
	return &Game{core: core, keymap: keymap, scale: scale}
}

// Update polls every bound key and forwards its state, then runs
// exactly one emulated frame (spec §6 run_one_frame, called once per
// ebiten tick at the host's refresh rate).
func (g *Game) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		g.fullscr = !g.fullscr
		ebiten.SetFullscreen(g.fullscr)
	}
	for _, b := range g.keymap {
		g.core.SetKey(b.Row, b.Bit, ebiten.IsKeyPressed(b.Key))
	}
	g.core.RunFrame()
	return nil
}

// Draw blits the core's current frame into an ebiten.Image sized to
// match, recreating it only when the core's reported size changes
// (e.g. a model switch after Reset).
func (g *Game) Draw(screen *ebiten.Image) {
	w, h := g.core.FrameSize()
	if g.window == nil || g.window.Bounds().Dx() != w || g.window.Bounds().Dy() != h {
		g.window = ebiten.NewImage(w, h)
	}
	frame := g.core.Frame()
	if len(frame) == w*h*4 {
		g.window.WritePixels(frame)
	}
	screen.DrawImage(g.window, nil)
}

// Layout reports the core's native resolution scaled by the window
// scale factor chosen at New.
func (g *Game) Layout(_, _ int) (int, int) {
	w, h := g.core.FrameSize()
	return w * g.scale, h * g.scale
}

// Run opens a window titled title and drives core until the window is
// closed, the teacher's EbitenOutput.Start()+ebiten.RunGame pairing
// collapsed into a single blocking call since this host has no
// separate async audio/video startup handshake to coordinate.
func Run(core machine.Core, keymap []Binding, scale int, title string) error {
	g := New(core, keymap, scale)
	w, h := core.FrameSize()
	ebiten.SetWindowSize(w*scale, h*scale)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("ebitenhost: run: %w", err)
	}
	return nil
}
