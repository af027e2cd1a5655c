// script.go - Lua-scriptable test harness

/*
script.go - Scripted Test Harness

Grounded on the teacher's debug_monitor.go scripting support: a Lua
script, loaded with gopher-lua, can drive and inspect a running System
without a native Go test binary per scenario. This is the headless
equivalent of the teacher's interactive machine monitor - instead of a
human typing commands at a prompt, a script lists them up front. Used by
the root driver's "-script" flag (see main.go) to run spec.md §8's
end-to-end scenarios (BIOS boot, TTY sniff, quad fill, DMA OTC, CD-ROM
GetID, overflow) as data rather than as compiled Go test functions.

The script's global surface:
  step()                 -- advance the system one CPU instruction
  vblank()                -- raise the vblank interrupt bit
  pc()                    -- current PC
  reg(n)                  -- read GPR[n]
  setreg(n, v)            -- write GPR[n] (a register 0 write is kept
                             until the next step(), whose instruction
                             sees it; Step then clears register 0)
  peek8/peek16/peek32(addr) -- bus load at a virtual address
  poke8/poke16/poke32(addr, v) -- bus store at a virtual address
  vram(x, y)              -- read one VRAM pixel (15-bit BGR + mask bit)
  assert_eq(got, want, msg) -- fail the script (and the harness run) if
                             got ~= want
  fail(msg)               -- fail the script unconditionally
  log(msg)                -- print a line tagged with the script name
*/

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// RunScript loads and executes the Lua file at path against sys. The
// script runs to completion (or until it calls fail()/assert_eq()
// failure) and any runtime or load error is returned to the caller.
func RunScript(path string, sys *System) error {
	h := &scriptHarness{sys: sys}

	L := lua.NewState()
	defer L.Close()

	L.SetGlobal("step", L.NewFunction(h.luaStep))
	L.SetGlobal("vblank", L.NewFunction(h.luaVblank))
	L.SetGlobal("pc", L.NewFunction(h.luaPC))
	L.SetGlobal("reg", L.NewFunction(h.luaReg))
	L.SetGlobal("setreg", L.NewFunction(h.luaSetReg))
	L.SetGlobal("peek8", L.NewFunction(h.luaPeek8))
	L.SetGlobal("peek16", L.NewFunction(h.luaPeek16))
	L.SetGlobal("peek32", L.NewFunction(h.luaPeek32))
	L.SetGlobal("poke8", L.NewFunction(h.luaPoke8))
	L.SetGlobal("poke16", L.NewFunction(h.luaPoke16))
	L.SetGlobal("poke32", L.NewFunction(h.luaPoke32))
	L.SetGlobal("vram", L.NewFunction(h.luaVRAM))
	L.SetGlobal("assert_eq", L.NewFunction(h.luaAssertEq))
	L.SetGlobal("fail", L.NewFunction(h.luaFail))
	L.SetGlobal("log", L.NewFunction(h.luaLog))

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script: %s: %w", path, err)
	}
	return nil
}

// scriptHarness closes over the System a running script drives. Every
// luaXxx method follows gopher-lua's (L *lua.LState) int calling
// convention: read arguments off the Lua stack, push results, return the
// result count.
type scriptHarness struct {
	sys *System
}

func (h *scriptHarness) luaStep(L *lua.LState) int {
	h.sys.Step()
	return 0
}

func (h *scriptHarness) luaVblank(L *lua.LState) int {
	h.sys.Vblank()
	return 0
}

func (h *scriptHarness) luaPC(L *lua.LState) int {
	L.Push(lua.LNumber(h.sys.CPU.PC))
	return 1
}

func (h *scriptHarness) luaReg(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 || n > 31 {
		L.RaiseError("reg: index %d out of range 0-31", n)
		return 0
	}
	L.Push(lua.LNumber(h.sys.CPU.GPR[n]))
	return 1
}

func (h *scriptHarness) luaSetReg(L *lua.LState) int {
	n := L.CheckInt(1)
	v := L.CheckInt(2)
	if n < 0 || n > 31 {
		L.RaiseError("setreg: index %d out of range 0-31", n)
		return 0
	}
	h.sys.CPU.GPR[n] = uint32(v)
	return 0
}

func (h *scriptHarness) luaPeek8(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	L.Push(lua.LNumber(h.sys.Bus.LoadByte(addr)))
	return 1
}

func (h *scriptHarness) luaPeek16(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	L.Push(lua.LNumber(h.sys.Bus.LoadHalfword(addr)))
	return 1
}

func (h *scriptHarness) luaPeek32(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	L.Push(lua.LNumber(h.sys.Bus.LoadWord(addr)))
	return 1
}

func (h *scriptHarness) luaPoke8(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	v := uint8(L.CheckInt(2))
	h.sys.Bus.StoreByte(addr, v)
	return 0
}

func (h *scriptHarness) luaPoke16(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	v := uint16(L.CheckInt(2))
	h.sys.Bus.StoreHalfword(addr, v)
	return 0
}

func (h *scriptHarness) luaPoke32(L *lua.LState) int {
	addr := uint32(L.CheckInt64(1))
	v := uint32(L.CheckInt64(2))
	h.sys.Bus.StoreWord(addr, v)
	return 0
}

func (h *scriptHarness) luaVRAM(L *lua.LState) int {
	x := L.CheckInt(1)
	y := L.CheckInt(2)
	if x < 0 || x >= vramWidth || y < 0 || y >= vramHeight {
		L.RaiseError("vram: (%d,%d) out of bounds", x, y)
		return 0
	}
	gpu := h.sys.GPU()
	L.Push(lua.LNumber(gpu.vram[y*vramWidth+x]))
	return 1
}

func (h *scriptHarness) luaAssertEq(L *lua.LState) int {
	got := L.CheckAny(1)
	want := L.CheckAny(2)
	msg := L.OptString(3, "")
	if got.String() != want.String() {
		if msg != "" {
			L.RaiseError("assert_eq failed: %s (got %s, want %s)", msg, got.String(), want.String())
		} else {
			L.RaiseError("assert_eq failed: got %s, want %s", got.String(), want.String())
		}
	}
	return 0
}

func (h *scriptHarness) luaFail(L *lua.LState) int {
	msg := L.OptString(1, "script failed")
	L.RaiseError("%s", msg)
	return 0
}

func (h *scriptHarness) luaLog(L *lua.LState) int {
	fmt.Println("[script]", L.CheckString(1))
	return 0
}
