package debugger

import (
	"fmt"
	"strings"

	"github.com/retrocore/cpcec-go/internal/snapshot"
)

// FormatRegisters renders a register dump in the teacher monitor's
// flag-letter style (debug_monitor.go's showRegisters), one line of
// 8/16-bit register pairs followed by a decoded flag line.
func FormatRegisters(s snapshot.CPUState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "AF=%02X%02X BC=%02X%02X DE=%02X%02X HL=%02X%02X\n",
		s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L)
	fmt.Fprintf(&b, "IX=%04X IY=%04X SP=%04X PC=%04X\n", s.IX, s.IY, s.SP, s.PC)
	fmt.Fprintf(&b, "AF'=%02X%02X BC'=%02X%02X DE'=%02X%02X HL'=%02X%02X\n",
		s.A2, s.F2, s.B2, s.C2, s.D2, s.E2, s.H2, s.L2)
	fmt.Fprintf(&b, "I=%02X R=%02X IM=%d IFF1=%t IFF2=%t\n", s.I, s.R, s.IM, s.IFF1, s.IFF2)
	fmt.Fprintf(&b, "flags: %s\n", formatFlags(s.F))
	return b.String()
}

// formatFlags renders F's bits as the conventional SZ5H3PNC letters,
// dotted out when clear (matches the monitor's register-change display
// convention of always showing all 8 positions).
func formatFlags(f byte) string {
	letters := "SZ5H3PNC"
	var b strings.Builder
	for i := 0; i < 8; i++ {
		bit := byte(1) << uint(7-i)
		if f&bit != 0 {
			b.WriteByte(letters[i])
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// FormatMemory renders a hex+ASCII dump of rows*16 bytes starting at
// addr, the classic monitor "m" command layout.
func FormatMemory(mem Memory, addr uint16, rows int) string {
	var b strings.Builder
	for r := 0; r < rows; r++ {
		rowAddr := addr + uint16(r*16)
		fmt.Fprintf(&b, "%04X  ", rowAddr)
		var ascii strings.Builder
		for c := 0; c < 16; c++ {
			v := mem.Read(rowAddr + uint16(c))
			fmt.Fprintf(&b, "%02X ", v)
			if v >= 0x20 && v < 0x7F {
				ascii.WriteByte(v)
			} else {
				ascii.WriteByte('.')
			}
		}
		fmt.Fprintf(&b, " %s\n", ascii.String())
	}
	return b.String()
}

// FormatDisassembly renders count instructions from addr as one line
// per instruction, the monitor's "u"/unassemble command.
func FormatDisassembly(mem Memory, addr uint16, count int) string {
	var b strings.Builder
	for _, line := range Disassemble(mem, addr, count) {
		b.WriteString(line.String())
		b.WriteByte('\n')
	}
	return b.String()
}
