package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retrocore/cpcec-go/internal/debugger"
	"github.com/retrocore/cpcec-go/internal/disk"
	"github.com/retrocore/cpcec-go/internal/fdc/fdc765"
	"github.com/retrocore/cpcec-go/internal/fdc/wd1793"
	"github.com/retrocore/cpcec-go/internal/machine"
	"github.com/retrocore/cpcec-go/internal/psg"
	"github.com/retrocore/cpcec-go/internal/snapshot"
	"github.com/retrocore/cpcec-go/internal/tape"
	spectrumvideo "github.com/retrocore/cpcec-go/internal/video/spectrum"
	"github.com/retrocore/cpcec-go/frontend/ebitenhost"
)

func runCmd() *cobra.Command {
	var f *cliFlags
	cmd := &cobra.Command{
		Use:   "run [media...]",
		Short: "Run the emulator, optionally loading disc/tape/snapshot files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRun(f, args)
		},
	}
	f = bindCLIFlags(cmd)
	return cmd
}

// classifyMedia buckets a path by extension into the loader it needs
// (spec §6's load_media(path), which infers kind from the file itself
// rather than a flag per file).
func classifyMedia(path string) machine.MediaKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dsk", ".trd", ".scl":
		return machine.MediaDisk
	case ".sna", ".z80", ".szx":
		return machine.MediaSnapshot
	default:
		return machine.MediaTape
	}
}

func doRun(f *cliFlags, mediaPaths []string) error {
	opts := f.toOptions()

	specs := make([]machine.MediaSpec, len(mediaPaths))
	for i, p := range mediaPaths {
		specs[i] = machine.MediaSpec{Path: p, Kind: classifyMedia(p)}
	}
	blobs, err := machine.LoadMediaFiles(specs)
	if err != nil {
		return err
	}

	var core machine.Core
	var audioSource psg.StereoSource

	if opts.Family == machine.FamilySpectrum {
		s, err := buildSpectrum(opts, f.romDir, specs, blobs)
		if err != nil {
			return err
		}
		core = s
		if ay := s.PSG(); ay != nil {
			ay.SetStereoMode(opts.AudioStereo)
			audioSource = ay
		}
	} else {
		c, err := buildCPC(opts, f.romDir, specs, blobs)
		if err != nil {
			return err
		}
		core = c
		c.PSG().SetStereoMode(opts.AudioStereo)
		audioSource = c.PSG()
	}

	if opts.AudioEnabled && audioSource != nil {
		if backend, err := psg.NewOtoBackend(44100); err == nil {
			backend.SetSource(audioSource)
			backend.Start()
			defer backend.Close()
		} else {
			fmt.Fprintln(os.Stderr, "retrocore: audio disabled:", err)
		}
	}

	if opts.StartInDebugger {
		return runDebugger(core)
	}
	keymap := ebitenhost.CPCKeymap
	if opts.Family == machine.FamilySpectrum {
		keymap = ebitenhost.SpectrumKeymap
	}
	return ebitenhost.Run(core, keymap, f.scale, "retrocore")
}

func runDebugger(core machine.Core) error {
	repl := debugger.New(os.Stdin, os.Stdout, core.Read, core.Write,
		func() string { return debugger.FormatRegisters(core.Registers()) },
		core.Step,
		func(pc uint16) { s := core.Registers(); s.PC = pc; core.SetRegisters(s) })
	return repl.Run(int(os.Stdin.Fd()))
}

func buildCPC(opts machine.Options, romDir string, specs []machine.MediaSpec, blobs [][]byte) (*machine.CPC, error) {
	lowerROM, err := os.ReadFile(filepath.Join(romDir, "os.rom"))
	if err != nil {
		return nil, fmt.Errorf("retrocore: load lower ROM: %w", err)
	}
	upperROM, err := os.ReadFile(filepath.Join(romDir, "basic.rom"))
	if err != nil {
		return nil, fmt.Errorf("retrocore: load upper ROM: %w", err)
	}

	var img fdc765.ImageIO
	var firstDisk *disk.DSK
	for i, spec := range specs {
		if spec.Kind == machine.MediaDisk {
			d, err := disk.ParseDSK(blobs[i])
			if err != nil {
				return nil, fmt.Errorf("retrocore: parse %s: %w", spec.Path, err)
			}
			img, firstDisk = d, d
			break
		}
	}

	c := machine.NewCPC(opts, lowerROM, upperROM, img)
	if firstDisk != nil {
		c.AttachDisk(0, firstDisk)
	}

	for i, spec := range specs {
		switch spec.Kind {
		case machine.MediaDisk:
			// handled above: the image is bound at construction time
		case machine.MediaTape:
			if err := loadTapeInto(blobs[i], spec.Path, c.InsertTape); err != nil {
				return nil, err
			}
		case machine.MediaSnapshot:
			if err := loadCPCSnapshot(c, blobs[i], spec.Path); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func buildSpectrum(opts machine.Options, romDir string, specs []machine.MediaSpec, blobs [][]byte) (*machine.Spectrum, error) {
	model, romNames := spectrumModel(opts.ModelID)
	roms := make([][]byte, len(romNames))
	for i, name := range romNames {
		data, err := os.ReadFile(filepath.Join(romDir, name))
		if err != nil {
			return nil, fmt.Errorf("retrocore: load ROM %s: %w", name, err)
		}
		roms[i] = data
	}
	trdosROM, _ := os.ReadFile(filepath.Join(romDir, "trdos.rom"))

	var img wd1793.ImageIO
	var firstDisk *disk.TRD
	for i, spec := range specs {
		if spec.Kind != machine.MediaDisk {
			continue
		}
		var t *disk.TRD
		var err error
		if strings.EqualFold(filepath.Ext(spec.Path), ".scl") {
			t, err = disk.ConvertSCLToTRD(blobs[i])
		} else {
			t, err = disk.ParseTRD(blobs[i])
		}
		if err != nil {
			return nil, fmt.Errorf("retrocore: parse %s: %w", spec.Path, err)
		}
		img, firstDisk = t, t
		break
	}

	s := machine.NewSpectrum(opts, model, roms, trdosROM, img)
	if firstDisk != nil {
		s.AttachDisk(firstDisk)
	}

	for i, spec := range specs {
		switch spec.Kind {
		case machine.MediaDisk:
			// handled above: the image is bound at construction time
		case machine.MediaTape:
			if err := loadTapeInto(blobs[i], spec.Path, s.InsertTape); err != nil {
				return nil, err
			}
		case machine.MediaSnapshot:
			if err := loadSpectrumSnapshot(s, blobs[i], spec.Path); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func spectrumModel(id int) (spectrumvideo.Model, []string) {
	switch id {
	case 1:
		return spectrumvideo.Model128K, []string{"128-0.rom", "128-1.rom"}
	case 2, 3:
		return spectrumvideo.Model128K, []string{"plus2-0.rom", "plus2-1.rom"}
	case 4:
		return spectrumvideo.ModelPlus3, []string{"plus3-0.rom", "plus3-1.rom", "plus3-2.rom", "plus3-3.rom"}
	case 5:
		return spectrumvideo.ModelPentagon, []string{"48.rom"}
	default:
		return spectrumvideo.Model48K, []string{"48.rom"}
	}
}

// loadTapeInto decodes raw into a pulse-edge train by the format its
// file extension implies (any other extension is decoded as TAP) and
// hands it to insert (machine.CPC or
// machine.Spectrum's InsertTape), spec §6 load_media for tape media.
func loadTapeInto(raw []byte, path string, insert func([]tape.Edge)) error {
	var edges []tape.Edge
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		edges, err = tape.DecodeWAV(bytes.NewReader(raw), 4_000_000)
	case ".csw":
		edges, err = tape.DecodeCSW(bytes.NewReader(raw), 4_000_000)
	case ".tzx":
		edges, err = tape.DecodeTZX(bytes.NewReader(raw))
	case ".pzx":
		edges, err = tape.DecodePZX(bytes.NewReader(raw))
	default:
		edges, err = tape.DecodeTAP(bytes.NewReader(raw))
	}
	if err != nil {
		return fmt.Errorf("retrocore: decode tape %s: %w", path, err)
	}
	insert(edges)
	return nil
}

func loadCPCSnapshot(c *machine.CPC, raw []byte, path string) error {
	sna, err := snapshot.ParseCPCSNA(raw)
	if err != nil {
		return fmt.Errorf("retrocore: parse snapshot %s: %w", path, err)
	}
	c.LoadSNA(sna)
	return nil
}

func loadSpectrumSnapshot(s *machine.Spectrum, raw []byte, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sna":
		sna, err := snapshot.ParseSpectrumSNA(raw)
		if err != nil {
			return fmt.Errorf("retrocore: parse snapshot %s: %w", path, err)
		}
		s.LoadSNA(sna)
	default:
		return fmt.Errorf("retrocore: snapshot format %s is not supported by run", filepath.Ext(path))
	}
	return nil
}
