package main

import "testing"

// fakeBus is a flat-memory Bus stub for CPU unit tests, addressed starting
// at zero rather than through the real region decode in bus.go.
type fakeBus struct {
	mem [0x10000]byte
}

func (b *fakeBus) LoadByte(addr uint32) uint8 {
	return b.mem[addr&0xFFFF]
}

func (b *fakeBus) LoadHalfword(addr uint32) uint16 {
	a := addr & 0xFFFF
	return uint16(b.mem[a]) | uint16(b.mem[a+1])<<8
}

func (b *fakeBus) LoadWord(addr uint32) uint32 {
	a := addr & 0xFFFF
	return uint32(b.mem[a]) | uint32(b.mem[a+1])<<8 |
		uint32(b.mem[a+2])<<16 | uint32(b.mem[a+3])<<24
}

func (b *fakeBus) StoreByte(addr uint32, v uint8) {
	b.mem[addr&0xFFFF] = v
}

func (b *fakeBus) StoreHalfword(addr uint32, v uint16) {
	a := addr & 0xFFFF
	b.mem[a] = byte(v)
	b.mem[a+1] = byte(v >> 8)
}

func (b *fakeBus) StoreWord(addr uint32, v uint32) {
	a := addr & 0xFFFF
	b.mem[a] = byte(v)
	b.mem[a+1] = byte(v >> 8)
	b.mem[a+2] = byte(v >> 16)
	b.mem[a+3] = byte(v >> 24)
}

func (b *fakeBus) writeWordAt(addr uint32, v uint32) {
	b.StoreWord(addr, v)
}

func newTestCPU() (*CPU, *fakeBus) {
	bus := &fakeBus{}
	cpu := NewCPU(bus)
	cpu.PC = 0
	cpu.NextPC = 0
	cpu.Instruction = decode(bus.LoadWord(0))
	return cpu, bus
}

func encodeR(op, rs, rt, rd, shamt, funct uint32) uint32 {
	return (op << 26) | (rs << 21) | (rt << 16) | (rd << 11) | (shamt << 6) | funct
}

func encodeI(op, rs, rt, imm uint32) uint32 {
	return (op << 26) | (rs << 21) | (rt << 16) | (imm & 0xFFFF)
}

// TestRegisterZeroAlwaysZero verifies that writes to $zero never stick.
func TestRegisterZeroAlwaysZero(t *testing.T) {
	cpu, bus := newTestCPU()

	// addiu $zero, $zero, 5
	bus.writeWordAt(0, encodeI(opADDIU, 0, 0, 5))
	cpu.Instruction = decode(bus.LoadWord(0))

	cpu.Step()

	if cpu.GPR[0] != 0 {
		t.Fatalf("GPR[0] = %d, want 0", cpu.GPR[0])
	}
}

// TestDivByZeroSigned verifies DIV's documented division-by-zero
// quotient/remainder convention.
func TestDivByZeroSigned(t *testing.T) {
	cpu, bus := newTestCPU()

	cpu.GPR[4] = 0xFFFFFFFB // rs = -5
	cpu.GPR[5] = 0                 // rt = 0

	bus.writeWordAt(0, encodeR(opSPECIAL, 4, 5, 0, 0, fnDIV))
	cpu.Instruction = decode(bus.LoadWord(0))

	cpu.Step()

	if cpu.LO != 1 {
		t.Fatalf("LO = %#x, want 1 (negative dividend / 0)", cpu.LO)
	}
	if cpu.HI != 0xFFFFFFFB {
		t.Fatalf("HI = %#x, want dividend -5", cpu.HI)
	}
}

// TestDivByZeroSignedPositiveDividend covers the non-negative dividend
// branch of the same convention.
func TestDivByZeroSignedPositiveDividend(t *testing.T) {
	cpu, bus := newTestCPU()

	cpu.GPR[4] = 7
	cpu.GPR[5] = 0

	bus.writeWordAt(0, encodeR(opSPECIAL, 4, 5, 0, 0, fnDIV))
	cpu.Instruction = decode(bus.LoadWord(0))

	cpu.Step()

	if cpu.LO != 0xFFFFFFFF {
		t.Fatalf("LO = %#x, want 0xFFFFFFFF", cpu.LO)
	}
	if cpu.HI != 7 {
		t.Fatalf("HI = %#x, want 7", cpu.HI)
	}
}

// TestDivIntMinByNegOne verifies the INT_MIN / -1 special case that would
// otherwise overflow a 32-bit signed division on the host.
func TestDivIntMinByNegOne(t *testing.T) {
	cpu, bus := newTestCPU()

	cpu.GPR[4] = 0x80000000
	cpu.GPR[5] = 0xFFFFFFFF

	bus.writeWordAt(0, encodeR(opSPECIAL, 4, 5, 0, 0, fnDIV))
	cpu.Instruction = decode(bus.LoadWord(0))

	cpu.Step()

	if cpu.LO != 0x80000000 {
		t.Fatalf("LO = %#x, want 0x80000000", cpu.LO)
	}
	if cpu.HI != 0 {
		t.Fatalf("HI = %#x, want 0", cpu.HI)
	}
}

// TestAddOverflowRaisesOv verifies that signed add overflow raises Ov with
// EPC pointing at the add itself and the destination register unchanged.
func TestAddOverflowRaisesOv(t *testing.T) {
	cpu, bus := newTestCPU()

	cpu.GPR[4] = 0x7FFFFFFF
	cpu.GPR[5] = 1
	cpu.GPR[6] = 0xDEADBEEF // destination register, must stay unchanged

	bus.writeWordAt(0, encodeR(opSPECIAL, 4, 5, 6, 0, fnADD))
	cpu.Instruction = decode(bus.LoadWord(0))

	cpu.Step()

	if cpu.GPR[6] != 0xDEADBEEF {
		t.Fatalf("GPR[6] = %#x, want unchanged 0xDEADBEEF", cpu.GPR[6])
	}
	if cpu.COP0[COP0_EPC] != 0 {
		t.Fatalf("EPC = %#x, want 0 (the add's own PC)", cpu.COP0[COP0_EPC])
	}
	gotCause := (cpu.COP0[COP0_Cause] >> 2) & 0x1F
	if gotCause != EXC_Ov {
		t.Fatalf("Cause exc code = %d, want Ov (%d)", gotCause, EXC_Ov)
	}
}

// TestUnalignedLoadWordRaisesAdEL verifies that an unaligned LW raises an
// address error with BadA set to the offending address.
func TestUnalignedLoadWordRaisesAdEL(t *testing.T) {
	cpu, bus := newTestCPU()

	cpu.GPR[4] = 0 // base register

	// lw $5, 1($4) -- address 1 is not word-aligned
	bus.writeWordAt(0, encodeI(opLW, 4, 5, 1))
	cpu.Instruction = decode(bus.LoadWord(0))

	cpu.Step()

	if cpu.COP0[COP0_BadA] != 1 {
		t.Fatalf("BadA = %#x, want 1", cpu.COP0[COP0_BadA])
	}
	gotCause := (cpu.COP0[COP0_Cause] >> 2) & 0x1F
	if gotCause != EXC_AdEL {
		t.Fatalf("Cause exc code = %d, want AdEL (%d)", gotCause, EXC_AdEL)
	}
}

// TestBranchDelaySlotExecutesExactlyOnce verifies that after a taken
// branch, the single instruction at the branch's own next_pc executes
// before control reaches the branch target.
func TestBranchDelaySlotExecutesExactlyOnce(t *testing.T) {
	cpu, bus := newTestCPU()

	// At 0:  beq $0, $0, 2     (branch taken, target = delay slot(4) + (2<<2) = 12)
	// At 4:  addiu $1, $1, 1   (delay slot instruction, must execute)
	// At 8:  nop               (skipped by the branch)
	// At 12: addiu $2, $2, 1   (branch target)
	bus.writeWordAt(0, encodeI(opBEQ, 0, 0, 2))
	bus.writeWordAt(4, encodeI(opADDIU, 1, 1, 1))
	bus.writeWordAt(12, encodeI(opADDIU, 2, 2, 1))
	cpu.Instruction = decode(bus.LoadWord(0))

	cpu.Step() // executes the branch
	cpu.Step() // executes the delay slot instruction at 4
	cpu.Step() // executes the target instruction at 12

	if cpu.GPR[1] != 1 {
		t.Fatalf("GPR[1] = %d, want 1 (delay slot instruction must run)", cpu.GPR[1])
	}
	if cpu.GPR[2] != 1 {
		t.Fatalf("GPR[2] = %d, want 1 (target instruction must run)", cpu.GPR[2])
	}
}

// TestLoadWordLeftMerge verifies the LWL unaligned-access merge against a
// known word value at byte offset 2.
func TestLoadWordLeftMerge(t *testing.T) {
	cpu, bus := newTestCPU()

	bus.writeWordAt(0x100, 0xAABBCCDD)

	// lwl $1, 2($3) from base address 0x100 (addr 0x102, low bits = 2)
	cpu.GPR[3] = 0x100
	bus.writeWordAt(0, encodeI(opLWL, 3, 1, 2))
	cpu.Instruction = decode(bus.LoadWord(0))
	cpu.Step()

	// case 2: (rt & 0x000000FF) | (data << 8) = 0xBBCCDD00 (rt started 0)
	if cpu.GPR[1] != 0xBBCCDD00 {
		t.Fatalf("LWL result = %#x, want 0xBBCCDD00", cpu.GPR[1])
	}
}
