// tty.go - Conventional BIOS TTY-sniff detection and terminal output

/*
tty.go - TTY Sniffer

spec.md §6 describes a host-side convention, not a core operation: when
the CPU's PC equals 0x000000A0 with register 9 holding 0x3C, or PC equals
0x000000B0 with register 9 holding 0x3D, the BIOS is about to perform a
character-output syscall and register 4 holds the character. The core
itself never interprets this; it is purely an external collaborator's
observation, so it lives here as a driver-side helper rather than inside
cpu.go or system.go (see DESIGN.md).

Grounded on the teacher's terminal_io.go/terminal_output.go: a small
buffered line-oriented console, gated on whether stdout is an actual
terminal via golang.org/x/term: redirected output gets a "[tty] " prefix
on each line, terminal output is written as is.
*/

package main

import (
	"bufio"
	"io"

	"golang.org/x/term"
)

const (
	ttySyscallA0 = 0x000000A0
	ttySyscallB0 = 0x000000B0

	ttyFuncA0CharOut = 0x3C
	ttyFuncB0CharOut = 0x3D
)

// TTYSniffer watches CPU state after every Step and, on the conventional
// BIOS character-output call, extracts the character from register 4 and
// feeds it to a buffered line writer.
type TTYSniffer struct {
	out        *bufio.Writer
	isTerminal bool
	line       []byte
}

// NewTTYSniffer wraps w (normally os.Stdout) for conventional BIOS TTY
// output. fd is the file descriptor backing w, used only to detect
// whether it is an interactive terminal; pass a negative value (or any fd
// that fails term.IsTerminal) to always treat output as non-interactive.
func NewTTYSniffer(w io.Writer, fd int) *TTYSniffer {
	return &TTYSniffer{
		out:        bufio.NewWriter(w),
		isTerminal: fd >= 0 && term.IsTerminal(fd),
	}
}

// Observe inspects cpu's current PC and registers after a Step call and
// emits a character if the conventional BIOS output call is in progress.
// It must be called after every System.Step for the sniff to be reliable,
// since the convention is only visible for the single tick PC holds the
// syscall entry address.
func (t *TTYSniffer) Observe(cpu *CPU) {
	var isCall bool
	switch cpu.PC {
	case ttySyscallA0:
		isCall = cpu.GPR[9] == ttyFuncA0CharOut
	case ttySyscallB0:
		isCall = cpu.GPR[9] == ttyFuncB0CharOut
	}
	if !isCall {
		return
	}

	ch := byte(cpu.GPR[4])
	t.line = append(t.line, ch)
	if ch == '\n' {
		t.flushLine()
	}
}

func (t *TTYSniffer) flushLine() {
	if !t.isTerminal {
		// Redirected output (a log file, a pipe) gets a fixed prefix so
		// the BIOS's TTY stream is distinguishable from anything else a
		// script might be writing to the same file.
		t.out.WriteString("[tty] ")
	}
	t.out.Write(t.line)
	t.line = t.line[:0]
	t.out.Flush()
}

// Flush writes out any partial (no trailing newline) line still buffered.
func (t *TTYSniffer) Flush() {
	if len(t.line) > 0 {
		t.flushLine()
	}
}
