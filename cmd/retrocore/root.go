package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/retrocore/cpcec-go/internal/machine"
)

// stereoMode is a pflag.Value so --stereo accepts the named mixing
// modes instead of a bare integer (spec §6's AudioStereo 0..3 enum).
type stereoMode int

func (m *stereoMode) String() string {
	return [...]string{"mono", "abc", "acb", "bac"}[*m]
}

func (m *stereoMode) Set(s string) error {
	switch s {
	case "mono":
		*m = 0
	case "abc":
		*m = 1
	case "acb":
		*m = 2
	case "bac":
		*m = 3
	default:
		return fmt.Errorf("stereo mode must be one of mono, abc, acb, bac (got %q)", s)
	}
	return nil
}

func (m *stereoMode) Type() string { return "stereoMode" }

// cliFlags holds the §6 CLI surface (-m/-k/-g/-r/-R/-s/-S/-W/-d),
// registered on the "run" subcommand by bindCLIFlags.
type cliFlags struct {
	spectrum bool // family selector: CPC (default) or Spectrum (-Z)
	model    int  // -m
	ramKB    int  // -k
	crtc     int  // -g (CRTC variant on CPC, joystick variant on Spectrum)
	romDir   string

	frameSkip    int  // -r
	noRealtime   bool // -R
	audioOn      bool // -s
	audioOff     bool // -S
	fullscreen   bool // -W
	debugger     bool // -d
	scale        int
	stereo       stereoMode
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "retrocore",
		Short: "Cycle-accurate Amstrad CPC / ZX Spectrum emulator core",
	}
	root.AddCommand(runCmd())
	root.AddCommand(disasmCmd())
	root.AddCommand(convertCmd())
	return root
}

// bindCLIFlags registers the §6-mirroring flag set on cmd and returns
// the struct cobra will have populated by the time RunE runs.
func bindCLIFlags(cmd *cobra.Command) *cliFlags {
	f := &cliFlags{}
	cmd.Flags().BoolVarP(&f.spectrum, "spectrum", "Z", false, "emulate a ZX Spectrum instead of a CPC")
	cmd.Flags().IntVarP(&f.model, "model", "m", 2, "model ID (CPC: 0=464 1=664 2=6128 3=Plus; Spectrum: 0=48K 1=128K 2=+2 3=+2A 4=+3 5=Pentagon)")
	cmd.Flags().IntVarP(&f.ramKB, "ram", "k", 128, "RAM size in KB")
	cmd.Flags().IntVarP(&f.crtc, "crtc", "g", 1, "CRTC variant (CPC) or joystick variant (Spectrum)")
	cmd.Flags().StringVar(&f.romDir, "rom-dir", "roms", "directory holding the firmware ROM images")
	cmd.Flags().IntVarP(&f.frameSkip, "frameskip", "r", 0, "frames to skip between rendered frames")
	cmd.Flags().BoolVarP(&f.noRealtime, "no-realtime", "R", false, "disable real-time pacing (run as fast as possible)")
	cmd.Flags().BoolVarP(&f.audioOn, "audio-on", "s", true, "enable audio output")
	cmd.Flags().BoolVarP(&f.audioOff, "audio-off", "S", false, "disable audio output")
	cmd.Flags().BoolVarP(&f.fullscreen, "fullscreen", "W", false, "start in fullscreen")
	cmd.Flags().BoolVarP(&f.debugger, "debugger", "d", false, "start in the machine monitor instead of the video frontend")
	cmd.Flags().IntVar(&f.scale, "scale", 2, "window scale factor")
	cmd.Flags().VarP(&f.stereo, "stereo", "A", "PSG stereo mixing mode: mono, abc, acb, bac")
	return f
}

var _ pflag.Value = (*stereoMode)(nil)

// toOptions turns the parsed flags into a machine.Options. -S turns
// audio off whenever it is given, whatever -s says and in either order.
func (f *cliFlags) toOptions() machine.Options {
	opts := machine.DefaultOptions()
	if f.spectrum {
		opts.Family = machine.FamilySpectrum
	}
	opts.ModelID = f.model
	opts.RAMSizeKB = f.ramKB
	opts.CRTCVariant = f.crtc
	opts.JoystickVariant = f.crtc
	opts.FrameSkip = f.frameSkip
	opts.RealtimeSync = !f.noRealtime
	opts.AudioEnabled = f.audioOn && !f.audioOff
	opts.Fullscreen = f.fullscreen
	opts.StartInDebugger = f.debugger
	opts.AudioStereo = int(f.stereo)
	return opts
}
