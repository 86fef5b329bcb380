package ebitenhost

import "github.com/hajimehoshi/ebiten/v2"

// CPCKeymap binds a practical subset of the CPC's 8x8 matrix (the full
// 80-odd key layout, copy/delete/joystick-shared keys included, is a
// straightforward but mechanical extension of this table - letters,
// digits, Enter/Space/Shift/Control and the cursor keys are enough to
// drive software through a loading screen and into gameplay).
var CPCKeymap = []Binding{
	{ebiten.KeyEnter, 2, 2},
	{ebiten.KeySpace, 5, 7},
	{ebiten.KeyShiftLeft, 2, 5},
	{ebiten.KeyShiftRight, 2, 5},
	{ebiten.KeyControlLeft, 2, 7},
	{ebiten.KeyControlRight, 2, 7},
	{ebiten.KeyBackspace, 9, 0},
	{ebiten.KeyEscape, 8, 2},
	{ebiten.KeyArrowUp, 0, 0},
	{ebiten.KeyArrowDown, 0, 1},
	{ebiten.KeyArrowLeft, 0, 2},
	{ebiten.KeyArrowRight, 0, 3},

	{ebiten.KeyA, 1, 6}, {ebiten.KeyB, 4, 2}, {ebiten.KeyC, 3, 6},
	{ebiten.KeyD, 2, 6}, {ebiten.KeyE, 2, 1}, {ebiten.KeyF, 3, 5},
	{ebiten.KeyG, 3, 4}, {ebiten.KeyH, 4, 4}, {ebiten.KeyI, 4, 0},
	{ebiten.KeyJ, 4, 3}, {ebiten.KeyK, 5, 1}, {ebiten.KeyL, 5, 3},
	{ebiten.KeyM, 4, 6}, {ebiten.KeyN, 4, 5}, {ebiten.KeyO, 5, 0},
	{ebiten.KeyP, 5, 4}, {ebiten.KeyQ, 1, 1}, {ebiten.KeyR, 2, 0},
	{ebiten.KeyS, 2, 7}, {ebiten.KeyT, 3, 0}, {ebiten.KeyU, 4, 1},
	{ebiten.KeyV, 3, 7}, {ebiten.KeyW, 1, 0}, {ebiten.KeyX, 2, 3},
	{ebiten.KeyY, 3, 1}, {ebiten.KeyZ, 1, 7},

	{ebiten.Key0, 8, 5}, {ebiten.Key1, 8, 0}, {ebiten.Key2, 8, 1},
	{ebiten.Key3, 7, 3}, {ebiten.Key4, 7, 2}, {ebiten.Key5, 7, 1},
	{ebiten.Key6, 6, 1}, {ebiten.Key7, 6, 0}, {ebiten.Key8, 7, 0},
	{ebiten.Key9, 7, 4},
}

// SpectrumKeymap binds the Spectrum's 8-row by 5-column half-row
// matrix (the real hardware is 8x5, spec §6's "9x5" accounts for the
// extra Kempston joystick port the host doesn't model here).
var SpectrumKeymap = []Binding{
	{ebiten.KeyEnter, 6, 0},
	{ebiten.KeySpace, 7, 0},
	{ebiten.KeyShiftLeft, 0, 0},
	{ebiten.KeyShiftRight, 0, 0},
	{ebiten.KeyControlLeft, 7, 1}, // Symbol Shift
	{ebiten.KeyControlRight, 7, 1},

	{ebiten.KeyA, 1, 0}, {ebiten.KeyB, 7, 4}, {ebiten.KeyC, 0, 3},
	{ebiten.KeyD, 1, 2}, {ebiten.KeyE, 2, 2}, {ebiten.KeyF, 1, 3},
	{ebiten.KeyG, 1, 4}, {ebiten.KeyH, 6, 4}, {ebiten.KeyI, 5, 2},
	{ebiten.KeyJ, 6, 3}, {ebiten.KeyK, 6, 2}, {ebiten.KeyL, 6, 1},
	{ebiten.KeyM, 7, 2}, {ebiten.KeyN, 7, 3}, {ebiten.KeyO, 5, 1},
	{ebiten.KeyP, 5, 0}, {ebiten.KeyQ, 2, 0}, {ebiten.KeyR, 2, 3},
	{ebiten.KeyS, 1, 1}, {ebiten.KeyT, 2, 4}, {ebiten.KeyU, 5, 3},
	{ebiten.KeyV, 0, 4}, {ebiten.KeyW, 2, 1}, {ebiten.KeyX, 0, 2},
	{ebiten.KeyY, 5, 4}, {ebiten.KeyZ, 0, 1},

	{ebiten.Key0, 4, 0}, {ebiten.Key1, 3, 0}, {ebiten.Key2, 3, 1},
	{ebiten.Key3, 3, 2}, {ebiten.Key4, 3, 3}, {ebiten.Key5, 3, 4},
	{ebiten.Key6, 4, 4}, {ebiten.Key7, 4, 3}, {ebiten.Key8, 4, 2},
	{ebiten.Key9, 4, 1},
}
