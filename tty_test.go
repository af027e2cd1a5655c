package main

import (
	"bytes"
	"testing"
)

func TestTTYSnifferCharOutA0(t *testing.T) {
	var buf bytes.Buffer
	s := NewTTYSniffer(&buf, -1)

	cpu := &CPU{}
	cpu.PC = ttySyscallA0
	cpu.GPR[9] = ttyFuncA0CharOut
	cpu.GPR[4] = 'A'

	s.Observe(cpu)
	s.Observe(cpu) // second call with same state still emits the char

	s.Flush()

	want := "[tty] AA"
	if got := buf.String(); got != want {
		t.Fatalf("buf = %q, want %q", got, want)
	}
}

func TestTTYSnifferIgnoresUnrelatedPC(t *testing.T) {
	var buf bytes.Buffer
	s := NewTTYSniffer(&buf, -1)

	cpu := &CPU{}
	cpu.PC = 0x1000
	cpu.GPR[9] = ttyFuncA0CharOut
	cpu.GPR[4] = 'X'

	s.Observe(cpu)
	s.Flush()

	if got := buf.String(); got != "" {
		t.Fatalf("buf = %q, want empty", got)
	}
}

func TestTTYSnifferFlushesOnNewline(t *testing.T) {
	var buf bytes.Buffer
	s := NewTTYSniffer(&buf, -1)

	cpu := &CPU{}
	cpu.PC = ttySyscallB0
	cpu.GPR[9] = ttyFuncB0CharOut

	for _, ch := range []byte("hi\n") {
		cpu.GPR[4] = uint32(ch)
		s.Observe(cpu)
	}

	want := "[tty] hi\n"
	if got := buf.String(); got != want {
		t.Fatalf("buf = %q, want %q", got, want)
	}
}
