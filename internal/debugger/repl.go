package debugger

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// REPL is the interactive monitor reached via the CLI's -d flag
// (spec §11), grounded on debug_monitor.go's Activate/ExecuteCommand
// loop but reduced to a single focused CPU and a plain line-oriented
// golang.org/x/term session instead of an Ebiten-rendered overlay.
type REPL struct {
	rw          io.ReadWriter
	term        *term.Terminal
	breakpoints *Breakpoints

	read      func(addr uint16) byte
	write     func(addr uint16, v byte)
	regsText  func() string
	step      func() int
	setPC     func(pc uint16)
	lastDumpA uint16
}

// stdIO adapts separate stdin/stdout streams into the io.ReadWriter
// term.NewTerminal requires.
type stdIO struct {
	io.Reader
	io.Writer
}

// New builds a REPL wired to in/out (typically os.Stdin/os.Stdout) and
// the accessor closures a concrete machine.CPC/machine.Spectrum
// provides. Accessors are plain funcs rather than an interface so the
// caller isn't forced to satisfy a go-wide Machine shape just to get a
// debugger - every machine wires its own three-liner at the call site.
func New(in io.Reader, out io.Writer, read func(uint16) byte, write func(uint16, byte), regsText func() string, step func() int, setPC func(uint16)) *REPL {
	rw := stdIO{in, out}
	return &REPL{
		rw:          rw,
		term:        term.NewTerminal(rw, "(dbg) "),
		breakpoints: NewBreakpoints(),
		read:        read,
		write:       write,
		regsText:    regsText,
		step:        step,
		setPC:       setPC,
	}
}

// Breakpoints exposes the REPL's breakpoint set so the machine's run
// loop can check Hit(pc) between Step calls and drop into the REPL
// when it fires.
func (r *REPL) Breakpoints() *Breakpoints { return r.breakpoints }

// Run reads commands until "q"/EOF. fd is the raw terminal file
// descriptor (int(os.Stdin.Fd())) to switch into raw mode for the
// duration, restored on return - the same MakeRaw/Restore bracket any
// x/term-based line editor uses.
func (r *REPL) Run(fd int) error {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("debugger: enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Fprintln(r.rw, "retrocore machine monitor - ? for help")
	fmt.Fprint(r.rw, r.regsText())

	for {
		line, err := r.term.ReadLine()
		if err != nil {
			return nil
		}
		if !r.execute(strings.TrimSpace(line)) {
			return nil
		}
	}
}

// execute runs one command line, returning false when the session
// should end.
func (r *REPL) execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "r":
		fmt.Fprint(r.rw, r.regsText())
	case "s":
		n := r.step()
		fmt.Fprintf(r.rw, "stepped %d T-states\n", n)
		fmt.Fprint(r.rw, r.regsText())
	case "g":
		if len(args) > 0 {
			if addr, ok := parseHex(args[0]); ok {
				r.setPC(addr)
			}
		}
	case "b":
		if len(args) > 0 {
			if addr, ok := parseHex(args[0]); ok {
				r.breakpoints.Set(addr)
				fmt.Fprintf(r.rw, "breakpoint set at $%04X\n", addr)
			}
		}
	case "bc":
		if len(args) > 0 {
			if addr, ok := parseHex(args[0]); ok {
				r.breakpoints.Clear(addr)
			}
		} else {
			r.breakpoints.ClearAll()
		}
	case "bl":
		for _, addr := range r.breakpoints.List() {
			fmt.Fprintf(r.rw, "$%04X\n", addr)
		}
	case "u":
		addr := r.lastDumpA
		if len(args) > 0 {
			if a, ok := parseHex(args[0]); ok {
				addr = a
			}
		}
		fmt.Fprint(r.rw, FormatDisassembly(readerFunc(r.read), addr, 10))
		if lines := Disassemble(readerFunc(r.read), addr, 10); len(lines) > 0 {
			last := lines[len(lines)-1]
			r.lastDumpA = last.Address + uint16(len(last.Bytes))
		}
	case "m":
		addr := r.lastDumpA
		if len(args) > 0 {
			if a, ok := parseHex(args[0]); ok {
				addr = a
			}
		}
		fmt.Fprint(r.rw, FormatMemory(readerFunc(r.read), addr, 8))
		r.lastDumpA = addr + 128
	case "w":
		if len(args) == 2 {
			addr, ok1 := parseHex(args[0])
			val, ok2 := parseHex(args[1])
			if ok1 && ok2 {
				r.write(addr, byte(val))
			}
		}
	case "?", "help":
		fmt.Fprint(r.rw, helpText)
	case "q", "quit":
		return false
	default:
		fmt.Fprintf(r.rw, "unknown command %q, try ?\n", cmd)
	}
	return true
}

const helpText = `r            show registers
s            single-step one instruction
g <addr>     set PC to addr
b <addr>     set breakpoint
bc [addr]    clear one breakpoint, or all if omitted
bl           list breakpoints
u [addr]     disassemble from addr (or continue from last)
m [addr]     hex-dump memory from addr (or continue from last)
w <addr> <v> write byte v to addr
q            leave the monitor
`

func parseHex(s string) (uint16, bool) {
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

// readerFunc adapts a bare read closure to the Memory interface.
type readerFunc func(addr uint16) byte

func (f readerFunc) Read(addr uint16) byte { return f(addr) }
