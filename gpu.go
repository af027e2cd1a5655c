// gpu.go - GP0/GP1 command processor and VRAM owner

/*
gpu.go - Graphics Processing Unit

This module implements the GPU's command front-end: the GP0 (data) and
GP1 (control) ports the bus forwards writes to, the packet state machine
that accumulates a variable-length command's words before dispatching it,
and the VRAM the command set ultimately draws into. The rasterizer itself
(polygon fill, rectangle fill, texel sampling) lives in gpu_raster.go;
this file owns command recognition and GPU-wide state.

Core Features:
  - A four-state packet machine (idle, collecting a command's fixed-size
    parameter words, collecting a polygon's variable vertex words,
    streaming a CPU<->VRAM rectangle transfer) mirroring the reference
    GPU's state field.
  - An opcode table recording each fixed-size GP0 command's total word
    count, so the dispatcher can tell whether it has accumulated enough
    words without hardcoding a switch per opcode for that bookkeeping.
    Polygon and rectangle lengths are computed from the opcode's own
    flag bits instead.
  - GP1 control commands, including the 0x10 "get GPU info" subfunction
    dispatch the BIOS and several homebrew programs rely on.

Data:
  - VRAM is 1024x512 16-bit pixels, packed 1-G5-B5-R5 (bit 15 is the mask
    bit, not alpha - spec.md's Data Model is explicit that this is NOT
    ARGB1555 despite superficially resembling it).
  - The drawing offset (ox, oy) is stored as sign-extended 11-bit values
    and is applied to every vertex before rasterization and clipping
    (gpu_raster.go's dispatchPolygon/dispatchRect), per spec.md §3's explicit
    "signed (ox, oy) drawing offset applied before clipping" - both
    original_source C references (libps and psemu) store this offset but
    never apply it anywhere in their rendering path. We follow the
    written spec, not that shared omission.
*/

package main

const (
	vramWidth  = 1024
	vramHeight = 512
)

// GPU packet states, named after the reference implementation's enum.
const (
	gpuAwaitingCommand = iota
	gpuReceivingCommandParameters
	gpuReceivingCommandData
	gpuTransferringData
)

// drawing-mode flag bits for gpuOpcodeInfo.flags (texture mapping,
// semi-transparency, raw texture, etc). No gp0Opcodes entry sets flags or
// variable; the polygon and rectangle handlers read these properties
// straight from the opcode byte.
const (
	flagTextured = 1 << iota
	flagSemiTransparent
	flagRawTexture
	flagShaded
	flagQuad
)

type gpuOpcodeInfo struct {
	wordCount uint32 // including the command word itself
	flags     uint32
	variable  bool // true for polygons/lines whose length depends on flags
}

type rect struct {
	x1, y1, x2, y2 int32
}

// GPU owns VRAM and the command front-end that writes to it.
type GPU struct {
	vram [vramWidth * vramHeight]uint16

	GPURead uint32
	gpustat uint32

	state int

	cmdFIFO    *FIFO
	pendingCmd uint32
	pendingLen uint32

	drawingArea     rect
	drawOffsetX     int32
	drawOffsetY     int32
	texWindowMaskX  uint32
	texWindowMaskY  uint32
	texWindowOffX   uint32
	texWindowOffY   uint32
	displayDisabled bool

	// CPU<->VRAM transfer-in-progress state (GP0 0xA0/0xC0), replacing
	// the reference implementation's file-scope static locals with
	// struct fields per spec.md's Design Notes on avoiding hidden global
	// state.
	xferX, xferY         int32
	xferW, xferH         int32
	xferRow, xferCol     int32
	xferIsRead           bool
	xferHalfwordPending  bool
	xferPendingHalfword  uint16
}

// NewGPU constructs a GPU with VRAM zeroed and the command FIFO ready.
func NewGPU() *GPU {
	g := &GPU{
		cmdFIFO: NewFIFO(16),
	}
	g.Reset()
	return g
}

// Reset clears VRAM, drawing state, and the command FIFO.
func (g *GPU) Reset() {
	g.vram = [vramWidth * vramHeight]uint16{}
	g.GPURead = 0
	g.gpustat = gpuStatusConstant
	g.state = gpuAwaitingCommand
	g.cmdFIFO.Reset()
	g.pendingCmd = 0
	g.pendingLen = 0
	g.drawingArea = rect{}
	g.drawOffsetX = 0
	g.drawOffsetY = 0
	g.texWindowMaskX = 0
	g.texWindowMaskY = 0
	g.texWindowOffX = 0
	g.texWindowOffY = 0
	g.displayDisabled = true
	g.xferIsRead = false
	g.xferHalfwordPending = false
}

func opcodeOf(word uint32) uint32 { return word >> 24 }

// gp0Opcodes maps a GP0 command byte to its total word count (including
// the command word) for the fixed-size commands. Polygon/line opcodes
// (0x20-0x3F) are handled separately since their length depends on the
// shaded/textured/quad flags encoded in the opcode itself.
var gp0Opcodes = map[uint32]gpuOpcodeInfo{
	0x00: {wordCount: 1},
	0x01: {wordCount: 1}, // clear cache
	0x02: {wordCount: 3}, // fill rectangle in VRAM
	0xE1: {wordCount: 1}, // draw mode setting
	0xE2: {wordCount: 1}, // texture window setting
	0xE3: {wordCount: 1}, // drawing area top-left
	0xE4: {wordCount: 1}, // drawing area bottom-right
	0xE5: {wordCount: 1}, // drawing offset
	0xE6: {wordCount: 1}, // mask bit setting
}

// GP0 feeds one 32-bit word into the command/data port.
func (g *GPU) GP0(word uint32) {
	switch g.state {
	case gpuAwaitingCommand:
		g.beginCommand(word)

	case gpuReceivingCommandParameters:
		g.cmdFIFO.Enqueue(word)
		if g.cmdFIFO.Len() >= g.pendingLen-1 {
			g.dispatchPending()
		}

	case gpuReceivingCommandData:
		g.cmdFIFO.Enqueue(word)
		if g.polygonComplete() {
			g.dispatchPending()
		}

	case gpuTransferringData:
		if g.xferIsRead {
			g.produceVRAMReadWord()
			if g.xferRow >= g.xferH {
				g.state = gpuAwaitingCommand
			}
		} else {
			g.feedVRAMWrite(word)
		}
	}
}

func (g *GPU) beginCommand(word uint32) {
	op := opcodeOf(word)
	g.pendingCmd = word
	g.cmdFIFO.Reset()

	switch {
	case op >= 0x20 && op <= 0x3F:
		// Polygon/line draw: word count depends on shaded/textured/quad
		// bits encoded directly in the opcode byte.
		g.pendingLen = polygonWordCount(op)
		if g.pendingLen <= 1 {
			g.dispatchPolygon(op, nil)
			return
		}
		g.state = gpuReceivingCommandData

	case op == 0x65 || op == 0x64 || op == 0x66 || op == 0x67 ||
		(op >= 0x60 && op <= 0x7F):
		g.pendingLen = rectWordCount(op)
		if g.pendingLen <= 1 {
			g.dispatchRect(op, nil)
			return
		}
		g.state = gpuReceivingCommandData

	case op == 0xA0:
		g.pendingLen = 3
		g.state = gpuReceivingCommandParameters

	case op == 0xC0:
		g.pendingLen = 3
		g.state = gpuReceivingCommandParameters

	default:
		info, ok := gp0Opcodes[op]
		if !ok || info.wordCount <= 1 {
			g.dispatchFixed(op, nil)
			return
		}
		g.pendingLen = info.wordCount
		g.state = gpuReceivingCommandParameters
	}
}

// polygonComplete reports whether enough words have been queued for the
// in-flight polygon/rect command (whose length was fixed at dispatch
// time in pendingLen).
func (g *GPU) polygonComplete() bool {
	return g.cmdFIFO.Len() >= g.pendingLen-1
}

// dispatchPending hands a fully-collected command its parameters. Most
// commands complete synchronously and fall back to gpuAwaitingCommand;
// beginVRAMWrite/beginVRAMRead instead lock the state to
// gpuTransferringData themselves, so their cases must not be clobbered
// here - each subsequent GP0 poke advances that transfer until it
// drains.
func (g *GPU) dispatchPending() {
	op := opcodeOf(g.pendingCmd)
	params := g.drainFIFO()

	switch {
	case op >= 0x20 && op <= 0x3F:
		g.dispatchPolygon(op, params)
		g.state = gpuAwaitingCommand
	case op >= 0x60 && op <= 0x7F:
		g.dispatchRect(op, params)
		g.state = gpuAwaitingCommand
	case op == 0xA0:
		g.beginVRAMWrite(params)
	case op == 0xC0:
		g.beginVRAMRead(params)
	default:
		g.dispatchFixed(op, params)
		g.state = gpuAwaitingCommand
	}
}

func (g *GPU) drainFIFO() []uint32 {
	n := g.cmdFIFO.Len()
	out := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		out[i] = g.cmdFIFO.Dequeue()
	}
	return out
}

func (g *GPU) dispatchFixed(op uint32, params []uint32) {
	switch op {
	case 0x01:
		// clear cache: no-op, there is no texture cache model here.
	case 0x02:
		g.fillRectangleVRAM(params)
	case 0xE1:
		// draw mode (texture page, transparency mode): accepted, not tracked.
	case 0xE2:
		word := g.pendingCmd
		g.texWindowMaskX = word & 0x1F
		g.texWindowMaskY = (word >> 5) & 0x1F
		g.texWindowOffX = (word >> 10) & 0x1F
		g.texWindowOffY = (word >> 15) & 0x1F
	case 0xE3:
		word := g.pendingCmd
		g.drawingArea.x1 = int32(word & 0x3FF)
		g.drawingArea.y1 = int32((word >> 10) & 0x3FF)
	case 0xE4:
		word := g.pendingCmd
		g.drawingArea.x2 = int32(word & 0x3FF)
		g.drawingArea.y2 = int32((word >> 10) & 0x3FF)
	case 0xE5:
		// Drawing offset (ox, oy); applied to every vertex in
		// gpu_raster.go before rasterization and clipping.
		word := g.pendingCmd
		g.drawOffsetX = signExtend11(word & 0x7FF)
		g.drawOffsetY = signExtend11((word >> 11) & 0x7FF)
	case 0xE6:
		// mask bit setting: tracked by caller if needed; not modeled
		// further since nothing in this spec reads it back.
	}
}

func signExtend11(v uint32) int32 {
	v &= 0x7FF
	if v&0x400 != 0 {
		return int32(v) - 0x800
	}
	return int32(v)
}

// --- GP1 control port ---

// GP1 handles the control port: reset, display toggling, DMA direction,
// and the 0x10 info-subfunction family.
func (g *GPU) GP1(word uint32) {
	op := opcodeOf(word)

	switch op {
	case 0x00:
		g.Reset()

	case 0x01:
		g.cmdFIFO.Reset()
		g.state = gpuAwaitingCommand

	case 0x02:
		// acknowledge GPU IRQ: no dedicated GPU IRQ flag modeled here.

	case 0x03:
		g.displayDisabled = word&1 != 0

	case 0x04:
		// DMA direction; not separately tracked, GPURead reflects the
		// last value produced regardless of configured direction.

	case 0x05:
		// start of display area in VRAM; not modeled, no host display.

	case 0x08:
		// display mode; not modeled.

	case 0x10:
		g.gp1Info(word & 0xFF)
	}
}

// gp1Info answers the "get GPU info" subfunctions the BIOS and common
// homebrew query for, writing the reply into GPURead per spec.md §D.
func (g *GPU) gp1Info(sub uint32) {
	switch sub {
	case 0x00, 0x01:
		g.GPURead = 0
	case 0x02:
		g.GPURead = g.texWindowMaskX | (g.texWindowMaskY << 5) |
			(g.texWindowOffX << 10) | (g.texWindowOffY << 15)
	case 0x03:
		g.GPURead = uint32(uint16(g.drawingArea.x1)) |
			uint32(uint16(g.drawingArea.y1))<<10
	case 0x04:
		g.GPURead = uint32(uint16(g.drawingArea.x2)) |
			uint32(uint16(g.drawingArea.y2))<<10
	case 0x05:
		g.GPURead = uint32(uint16(g.drawOffsetX)&0x7FF) |
			uint32(uint16(g.drawOffsetY)&0x7FF)<<11
	case 0x07:
		g.GPURead = 2 // GPU type
	default:
		g.GPURead = 0
	}
}

// --- VRAM transfer packets (GP0 0xA0/0xC0) ---

func (g *GPU) beginVRAMWrite(params []uint32) {
	g.xferX = int32(params[0] & 0x3FF)
	g.xferY = int32((params[0] >> 16) & 0x1FF)
	g.xferW = int32(params[1] & 0x3FF)
	g.xferH = int32((params[1] >> 16) & 0x1FF)
	if g.xferW == 0 {
		g.xferW = 1024
	}
	if g.xferH == 0 {
		g.xferH = 512
	}
	g.xferRow = 0
	g.xferCol = 0
	g.xferIsRead = false
	g.xferHalfwordPending = false
	g.state = gpuTransferringData
}

func (g *GPU) feedVRAMWrite(word uint32) {
	g.writeVRAMHalfword(uint16(word))
	g.writeVRAMHalfword(uint16(word >> 16))
}

func (g *GPU) writeVRAMHalfword(px uint16) {
	if g.xferRow >= g.xferH {
		return
	}

	x := (g.xferX + g.xferCol) & (vramWidth - 1)
	y := (g.xferY + g.xferRow) & (vramHeight - 1)
	g.vram[y*vramWidth+x] = px

	g.xferCol++
	if g.xferCol >= g.xferW {
		g.xferCol = 0
		g.xferRow++
		if g.xferRow >= g.xferH {
			g.state = gpuAwaitingCommand
		}
	}
}

func (g *GPU) beginVRAMRead(params []uint32) {
	g.xferX = int32(params[0] & 0x3FF)
	g.xferY = int32((params[0] >> 16) & 0x1FF)
	g.xferW = int32(params[1] & 0x3FF)
	g.xferH = int32((params[1] >> 16) & 0x1FF)
	if g.xferW == 0 {
		g.xferW = 1024
	}
	if g.xferH == 0 {
		g.xferH = 512
	}
	g.xferRow = 0
	g.xferCol = 0
	g.xferIsRead = true
	g.state = gpuTransferringData
}

// produceVRAMReadWord packs the next two pixels of an in-progress VRAM
// read into GPURead; called once per GP0(0) poke during a 0xC0 transfer
// (driven by the bus's DMA-read loop), mirroring the reference
// implementation's copy_rect_to_cpu: the parameter words alone only
// latch the transfer window, and the first pixel pair is produced by
// the very next GP0 poke rather than by beginVRAMRead itself.
func (g *GPU) produceVRAMReadWord() {
	lo := g.nextReadPixel()
	hi := g.nextReadPixel()
	g.GPURead = uint32(lo) | uint32(hi)<<16
}

func (g *GPU) nextReadPixel() uint16 {
	if g.xferRow >= g.xferH {
		return 0
	}
	x := (g.xferX + g.xferCol) & (vramWidth - 1)
	y := (g.xferY + g.xferRow) & (vramHeight - 1)
	px := g.vram[y*vramWidth+x]

	g.xferCol++
	if g.xferCol >= g.xferW {
		g.xferCol = 0
		g.xferRow++
	}
	return px
}

func (g *GPU) fillRectangleVRAM(params []uint32) {
	if len(params) < 2 {
		return
	}
	color := g.pendingCmd & 0x00FFFFFF
	px := rgb24to15(color)

	x0 := int32(params[0] & 0x3FF)
	y0 := int32((params[0] >> 16) & 0x1FF)
	w := int32(params[1] & 0x3FF)
	h := int32((params[1] >> 16) & 0x1FF)

	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			vy := (y0 + y) & (vramHeight - 1)
			vx := (x0 + x) & (vramWidth - 1)
			g.vram[vy*vramWidth+vx] = px
		}
	}
}

func rgb24to15(c uint32) uint16 {
	r := uint16(c&0xFF) >> 3
	gr := uint16((c>>8)&0xFF) >> 3
	b := uint16((c>>16)&0xFF) >> 3
	return r | gr<<5 | b<<10
}

// polygonWordCount returns the total word count (command word included)
// for a GP0 0x20-0x3F polygon opcode, derived from its shaded (bit 4),
// textured (bit 2), and quad (bit 3) flag bits, matching libps's table.
// The command word itself supplies vertex 0's color (and, for flat
// polygons, that single color applies to every vertex); every vertex
// contributes one coordinate word and (if textured) one UV word, and each
// vertex after vertex 0 contributes (if shaded) one additional color word.
func polygonWordCount(op uint32) uint32 {
	shaded := op&0x10 != 0
	textured := op&0x04 != 0
	quad := op&0x08 != 0

	vertices := uint32(3)
	if quad {
		vertices = 4
	}

	total := uint32(1) // command word
	total += vertices   // one coordinate word per vertex
	if textured {
		total += vertices // one UV word per vertex
	}
	if shaded {
		total += vertices - 1 // vertex 0's color comes from the command word
	}

	return total
}

// rectWordCount returns the total word count for a GP0 0x60-0x7F
// rectangle opcode.
func rectWordCount(op uint32) uint32 {
	textured := op&0x04 != 0
	sizeMode := (op >> 3) & 0x3 // 0=variable, 1=1x1, 2=8x8, 3=16x16

	total := uint32(2) // command word + vertex word
	if textured {
		total++ // UV word
	}
	if sizeMode == 0 {
		total++ // explicit width/height word
	}
	return total
}
