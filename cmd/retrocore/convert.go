package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retrocore/cpcec-go/internal/disk"
)

// convertCmd wires internal/disk's SCL->TRD conversion (the only
// format pair the core can losslessly round-trip without a live
// machine to drive the rest of the snapshot/disk formats through).
func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert between disc image formats (currently .scl -> .trd)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			if strings.ToLower(filepath.Ext(in)) != ".scl" || strings.ToLower(filepath.Ext(out)) != ".trd" {
				return fmt.Errorf("retrocore: convert only supports .scl -> .trd today")
			}
			raw, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("retrocore: %w", err)
			}
			trd, err := disk.ConvertSCLToTRD(raw)
			if err != nil {
				return fmt.Errorf("retrocore: convert %s: %w", in, err)
			}
			if err := os.WriteFile(out, trd.Bytes(), 0o644); err != nil {
				return fmt.Errorf("retrocore: write %s: %w", out, err)
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(trd.Bytes()))
			return nil
		},
	}
	return cmd
}
