package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/retrocore/cpcec-go/internal/debugger"
)

// fileMemory lets internal/debugger.Disassemble walk a flat binary
// file as if it were addressable memory starting at an origin offset.
type fileMemory struct {
	data   []byte
	origin uint16
}

func (m fileMemory) Read(addr uint16) byte {
	i := int(addr - m.origin)
	if i < 0 || i >= len(m.data) {
		return 0
	}
	return m.data[i]
}

func disasmCmd() *cobra.Command {
	var origin int
	var count int
	cmd := &cobra.Command{
		Use:   "disasm <file>",
		Short: "Disassemble a flat Z80 binary without running a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("retrocore: %w", err)
			}
			mem := fileMemory{data: data, origin: uint16(origin)}
			for _, line := range debugger.Disassemble(mem, uint16(origin), count) {
				fmt.Println(line.String())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&origin, "origin", 0, "address the first byte of the file is loaded at")
	cmd.Flags().IntVar(&count, "count", 20, "number of instructions to disassemble")
	return cmd
}
