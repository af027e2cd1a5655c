package main

import "testing"

// TestQuadFillRedChannel exercises spec.md §8 scenario 3: with the
// drawing area set to (0,0)-(10,10), a mono opaque quad (GP0 0x28) with
// color 0x0000FF (R=0xFF, G=0x00, B=0x00 in the command word's packed
// order) and vertices (0,0)(10,0)(0,10)(10,10) must leave every VRAM
// pixel inside that rectangle with a red channel of 31 once packed down
// to BGR555 (0xFF >> 3).
func TestQuadFillRedChannel(t *testing.T) {
	g := NewGPU()

	g.GP0(0xE3 << 24) // drawing area top-left (0,0)
	g.GP0(0xE4<<24 | 10 | 10<<10) // drawing area bottom-right (10,10)

	g.GP0(0x28<<24 | 0x0000FF) // quad, mono, opaque, color 0x0000FF
	g.GP0(vertexWord(0, 0))
	g.GP0(vertexWord(10, 0))
	g.GP0(vertexWord(0, 10))
	g.GP0(vertexWord(10, 10))

	points := [][2]int32{{0, 0}, {10, 0}, {0, 10}, {10, 10}, {5, 5}, {3, 7}, {7, 3}}
	for _, p := range points {
		px := g.vram[p[1]*vramWidth+p[0]]
		red := px & 0x1F
		if red != 31 {
			t.Fatalf("pixel (%d,%d) red channel = %d, want 31 (px=%#04x)", p[0], p[1], red, px)
		}
	}
}

func vertexWord(x, y int32) uint32 {
	return uint32(uint16(x)) | uint32(uint16(y))<<16
}

// TestGP0VRAMWriteMultiWord regresses the dispatchPending bug where
// state was unconditionally reset to gpuAwaitingCommand after every
// command, clobbering the gpuTransferringData state beginVRAMWrite sets:
// a 2x2 GP0(0xA0) transfer must accept both of its data words as pixel
// payload, not treat the second word as a fresh command.
func TestGP0VRAMWriteMultiWord(t *testing.T) {
	g := NewGPU()

	g.GP0(0xA0 << 24)
	g.GP0(0)                    // x=0, y=0
	g.GP0(vertexWord(2, 2))     // w=2, h=2
	if g.state != gpuTransferringData {
		t.Fatalf("state after A0 header = %d, want gpuTransferringData", g.state)
	}

	g.GP0(0x1111_2222)
	if g.state != gpuTransferringData {
		t.Fatal("state dropped out of gpuTransferringData after first data word")
	}
	g.GP0(0x3333_4444)
	if g.state != gpuAwaitingCommand {
		t.Fatal("state did not return to gpuAwaitingCommand once the 2x2 block filled")
	}

	if g.vram[0] != 0x2222 || g.vram[1] != 0x1111 {
		t.Fatalf("row 0 = %#04x,%#04x, want 0x2222,0x1111", g.vram[0], g.vram[1])
	}
	if g.vram[vramWidth] != 0x4444 || g.vram[vramWidth+1] != 0x3333 {
		t.Fatalf("row 1 = %#04x,%#04x, want 0x4444,0x3333", g.vram[vramWidth], g.vram[vramWidth+1])
	}
}

// TestGP0VRAMReadMultiWord regresses the GP0(0xC0) state-machine bug:
// the parameter words alone must only latch the transfer window without
// producing a pixel pair, and each subsequent GP0(0) poke must advance
// through the whole block rather than stopping after one word.
func TestGP0VRAMReadMultiWord(t *testing.T) {
	g := NewGPU()

	g.GP0(0xA0 << 24)
	g.GP0(0)
	g.GP0(vertexWord(2, 2))
	g.GP0(0x1111_2222)
	g.GP0(0x3333_4444)

	g.GP0(0xC0 << 24)
	g.GP0(0)
	g.GP0(vertexWord(2, 2))
	if g.state != gpuTransferringData {
		t.Fatalf("state after C0 header = %d, want gpuTransferringData", g.state)
	}

	g.GP0(0)
	if got := g.GPURead; got != 0x1111_2222 {
		t.Fatalf("GPURead after first poke = %#x, want 0x11112222", got)
	}
	if g.state != gpuTransferringData {
		t.Fatal("state dropped out of gpuTransferringData after first read word")
	}

	g.GP0(0)
	if got := g.GPURead; got != 0x3333_4444 {
		t.Fatalf("GPURead after second poke = %#x, want 0x33334444", got)
	}
	if g.state != gpuAwaitingCommand {
		t.Fatal("state did not return to gpuAwaitingCommand once the 2x2 block drained")
	}
}

// TestGP1ResetRestoresDefaults checks GP1(0x00) cascades into the same
// state Reset produces: command state idle, drawing area cleared.
func TestGP1ResetRestoresDefaults(t *testing.T) {
	g := NewGPU()
	g.GP0(0xE3 << 24 | 5)
	g.GP1(0x00)

	if g.state != gpuAwaitingCommand {
		t.Fatalf("state after GP1(0x00) = %d, want gpuAwaitingCommand", g.state)
	}
	if g.drawingArea.x1 != 0 {
		t.Fatalf("drawingArea.x1 = %d, want 0 after reset", g.drawingArea.x1)
	}
}
