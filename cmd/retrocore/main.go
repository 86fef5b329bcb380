// Command retrocore is the CLI entry point for the CPC/Spectrum core:
// a cobra root command wrapping the "run" (emulate), "disasm"
// (standalone Z80 disassembly) and "convert" (SCL archive to TRD disk
// image conversion) subcommands, mirroring the teacher's single-binary
// main.go but split across cobra commands instead of a flag.Parse
// switch (grounded on oisee-z80-optimizer/cmd/z80opt's root-plus-
// subcommands layout).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "retrocore:", err)
		os.Exit(1)
	}
}
