// system.go - Top-level console wiring and the external driver interface

/*
system.go - System

This module is the single entry point a host embedder uses: it wires a
CPU, a SystemBus, and the BIOS image together, exposes the coarse-grained
Step/Reset/Vblank operations spec.md's External Interfaces section
describes, and lets a host attach a CD-ROM sector-read callback.

Core Features:
  - Create wraps a host-owned BIOS image (never copied or mutated) and
    returns a ready-to-run System; it never touches the filesystem
    itself; loading bytes is the host's job (see main.go).
  - Step advances the whole machine by one CPU instruction, stepping the
    bus twice before the CPU once, matching spec.md §5's tick model:
    the bus (and by extension, DMA and the CD-ROM's own cycle-based
    state) runs at twice the rate the CPU retires instructions, which is
    close enough to the real console's clock ratio for this emulator's
    purposes without modeling a full cycle-accurate scheduler.
  - Vblank lets the host signal the start of a display refresh once per
    rendered frame, the only way the vblank interrupt bit is ever set.
*/

package main

import "fmt"

// System is the fully wired machine: CPU, bus, and the BIOS it boots
// from.
type System struct {
	CPU *CPU
	Bus *SystemBus
}

// Create constructs a System booting from bios. bios must be non-empty
// and at most 512KB; an image shorter than the full ROM is accepted and
// zero-padded conceptually by the bus's bounds-checked BIOS loads.
func Create(bios []byte) (*System, error) {
	if len(bios) == 0 {
		return nil, fmt.Errorf("system: empty BIOS image")
	}
	if len(bios) > biosSize {
		return nil, fmt.Errorf("system: BIOS image too large: %d bytes (max %d)", len(bios), biosSize)
	}

	bus := NewSystemBus(bios)
	cpu := NewCPU(bus)

	s := &System{CPU: cpu, Bus: bus}
	s.Reset()
	return s, nil
}

// Reset restores the CPU and bus (and, transitively, the GPU and
// CD-ROM) to their post-power-on state.
func (s *System) Reset() {
	s.Bus.Reset()
	s.CPU.Reset()
}

// Step advances the machine by exactly one CPU instruction, stepping the
// bus (DMA + CD-ROM) twice beforehand per spec.md §5.
func (s *System) Step() {
	s.Bus.Step()
	s.Bus.Step()
	s.syncInterruptLine()
	s.CPU.Step()
}

// syncInterruptLine reflects the bus's masked interrupt status into the
// CPU's Cause.IP0 bit: the bus has no direct reference to the CPU's COP0
// state, so the system wiring is responsible for connecting the two,
// the same role the reference core's top-level driver loop plays.
func (s *System) syncInterruptLine() {
	if s.Bus.iStat&s.Bus.iMask != 0 {
		s.CPU.COP0[COP0_Cause] |= CAUSE_INT0
	} else {
		s.CPU.COP0[COP0_Cause] &^= CAUSE_INT0
	}
}

// Vblank raises the vertical-blank interrupt bit, called once per frame
// by the host's display loop.
func (s *System) Vblank() {
	s.Bus.Vblank()
}

// SetCDROM attaches a sector-read callback (absolute byte offset,
// 2352-byte destination) -> ok, marking a disc as inserted. Passing nil
// ejects the disc.
func (s *System) SetCDROM(readSector func(address uint32, dest []byte) bool) bool {
	s.Bus.CDROM().SetReadCallback(readSector)
	return true
}

// GPU exposes the GPU for host-side VRAM presentation.
func (s *System) GPU() *GPU { return s.Bus.GPU() }
