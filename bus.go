// bus.go - Memory-mapped system bus: RAM/scratchpad/IO/BIOS decode and DMA

/*
bus.go - System Bus

This module implements the memory bus that forms the backbone of the
console's address space: a unified byte/halfword/word interface over main
RAM, scratchpad, the I/O register window, BIOS ROM, and the three DMA
channels that move data between RAM and the GPU/CD-ROM without CPU
involvement.

Core Features:
  - 2MB of main memory plus 1KB of scratchpad, both byte-addressed and
    little-endian.
  - Region decode keyed on the top bits of the masked physical address,
    mirroring the reference bus's nested switch (region, then sub-region,
    then exact offset).
  - A DMA engine that drains every enabled channel synchronously within a
    single Step call: channel 2 (GPU, three sync modes), channel 3
    (CD-ROM to RAM), channel 6 (OTC reverse-clear).
  - i_stat/i_mask interrupt registers with acknowledge-on-write semantics
    for i_stat.

Technical Details:
  - Every incoming virtual address is masked with 0x1FFFFFFF before
    region decode, so mirrored addresses above the KSEG boundaries resolve
    identically (spec.md §8's "load(v) == load(v | 0xE0000000)" property).
  - The GPU list-DMA walk is bounded (see dmaListMaxNodes) so a missing
    end-of-list marker cannot spin the bus forever.
*/

package main

import "encoding/binary"

const (
	ramSize        = 2 * 1024 * 1024
	scratchpadSize = 1024
	biosSize       = 512 * 1024

	dmaListMaxNodes = 0x10000
)

// dmaChannel is one of the three register triples described in spec.md
// §3: base address, block control, channel control.
type dmaChannel struct {
	madr uint32
	bcr  uint32
	chcr uint32
}

func (d *dmaChannel) busy() bool {
	return d.chcr&(1<<24) != 0
}

func (d *dmaChannel) clearBusy() {
	d.chcr &^= 1 << 24
}

func (d *dmaChannel) blockCount() uint16 {
	return uint16(d.bcr >> 16)
}

func (d *dmaChannel) blockSize() uint16 {
	return uint16(d.bcr)
}

// SystemBus owns RAM, scratchpad, the GPU, and the CD-ROM drive, and
// decodes every CPU load/store into one of those targets or the BIOS ROM
// the host supplies at construction.
type SystemBus struct {
	ram        [ramSize]byte
	scratchpad [scratchpadSize]byte
	bios       []byte // read-only, owned by the host

	gpu   *GPU
	cdrom *CDROM

	iStat uint32
	iMask uint32

	dpcr uint32
	dicr uint32

	dmaGPU   dmaChannel
	dmaCDROM dmaChannel
	dmaOTC   dmaChannel
}

// NewSystemBus constructs a bus wired to bios. bios must stay valid for
// the bus's lifetime; the bus never copies or mutates it.
func NewSystemBus(bios []byte) *SystemBus {
	b := &SystemBus{
		bios:  bios,
		gpu:   NewGPU(),
		cdrom: NewCDROM(),
	}
	b.Reset()
	return b
}

// Reset clears RAM, scratchpad, DMA/interrupt registers, and cascades
// into the GPU and CD-ROM's own resets, per spec.md §3's ownership
// paragraph (the bus owns both exclusively).
func (b *SystemBus) Reset() {
	b.ram = [ramSize]byte{}
	b.scratchpad = [scratchpadSize]byte{}

	b.iStat = 0
	b.iMask = 0

	b.dpcr = 0x07654321
	b.dicr = 0

	b.dmaGPU = dmaChannel{}
	b.dmaCDROM = dmaChannel{}
	b.dmaOTC = dmaChannel{}

	b.gpu.Reset()
	b.cdrom.Reset()
}

// GPU exposes the bus-owned GPU for host inspection (VRAM snapshot,
// gpuread) without granting write access to bus-internal state.
func (b *SystemBus) GPU() *GPU { return b.gpu }

// CDROM exposes the bus-owned CD-ROM drive so the host can attach or
// detach a read callback.
func (b *SystemBus) CDROM() *CDROM { return b.cdrom }

// Vblank sets the vblank bit in i_stat. Called once per rendered frame by
// the host driver, per spec.md §5's outer loop.
func (b *SystemBus) Vblank() {
	b.iStat |= irqVBlank
}

func physicalAddr(vaddr uint32) uint32 {
	return vaddr & 0x1FFFFFFF
}

// LoadByte, LoadHalfword, and LoadWord implement the CPU's Bus interface.

func (b *SystemBus) LoadByte(vaddr uint32) uint8 {
	paddr := physicalAddr(vaddr)

	switch {
	case paddr <= 0x001FFFFF:
		return b.ram[paddr]

	case paddr&0xFFFFF000 == 0x1F800000:
		return b.scratchpad[paddr&0x3FF]

	case paddr&0xFFFFF000 == 0x1F801000:
		return b.ioLoadByte(paddr & 0xFFF)

	case paddr >= 0x1FC00000 && paddr <= 0x1FC7FFFF:
		return b.loadBIOSByte(paddr & 0x000FFFFF)

	default:
		return 0
	}
}

func (b *SystemBus) LoadHalfword(vaddr uint32) uint16 {
	paddr := physicalAddr(vaddr)

	switch {
	case paddr <= 0x001FFFFF:
		return binary.LittleEndian.Uint16(b.ram[paddr:])

	case paddr&0xFFFFF000 == 0x1F800000:
		return binary.LittleEndian.Uint16(b.scratchpad[paddr&0x3FF:])

	case paddr&0xFFFFF000 == 0x1F801000:
		return b.ioLoadHalfword(paddr & 0xFFF)

	case paddr >= 0x1FC00000 && paddr <= 0x1FC7FFFF:
		off := paddr & 0x000FFFFF
		return uint16(b.loadBIOSByte(off)) | uint16(b.loadBIOSByte(off+1))<<8

	default:
		return 0
	}
}

func (b *SystemBus) LoadWord(vaddr uint32) uint32 {
	paddr := physicalAddr(vaddr)

	switch {
	case paddr <= 0x001FFFFF:
		return binary.LittleEndian.Uint32(b.ram[paddr:])

	case paddr&0xFFFFF000 == 0x1F800000:
		return binary.LittleEndian.Uint32(b.scratchpad[paddr&0x3FF:])

	case paddr&0xFFFFF000 == 0x1F801000:
		return b.ioLoadWord(paddr & 0xFFF)

	case paddr >= 0x1FC00000 && paddr <= 0x1FC7FFFF:
		off := paddr & 0x000FFFFF
		if int(off)+4 > len(b.bios) {
			return 0
		}
		return binary.LittleEndian.Uint32(b.bios[off:])

	default:
		return 0
	}
}

func (b *SystemBus) loadBIOSByte(off uint32) uint8 {
	if int(off) >= len(b.bios) {
		return 0
	}
	return b.bios[off]
}

func (b *SystemBus) StoreByte(vaddr uint32, v uint8) {
	paddr := physicalAddr(vaddr)

	switch {
	case paddr <= 0x001FFFFF:
		b.ram[paddr] = v

	case paddr&0xFFFFF000 == 0x1F800000:
		b.scratchpad[paddr&0x3FF] = v

	case paddr&0xFFFFF000 == 0x1F801000:
		b.ioStoreByte(paddr&0xFFF, v)

	default:
		// BIOS is read-only; all other regions silently drop writes.
	}
}

func (b *SystemBus) StoreHalfword(vaddr uint32, v uint16) {
	paddr := physicalAddr(vaddr)

	switch {
	case paddr <= 0x001FFFFF:
		binary.LittleEndian.PutUint16(b.ram[paddr:], v)

	case paddr&0xFFFFF000 == 0x1F800000:
		binary.LittleEndian.PutUint16(b.scratchpad[paddr&0x3FF:], v)

	case paddr&0xFFFFF000 == 0x1F801000:
		b.ioStoreHalfword(paddr&0xFFF, v)
	}
}

func (b *SystemBus) StoreWord(vaddr uint32, v uint32) {
	paddr := physicalAddr(vaddr)

	switch {
	case paddr <= 0x001FFFFF:
		binary.LittleEndian.PutUint32(b.ram[paddr:], v)

	case paddr&0xFFFFF000 == 0x1F800000:
		binary.LittleEndian.PutUint32(b.scratchpad[paddr&0x3FF:], v)

	case paddr&0xFFFFF000 == 0x1F801000:
		b.ioStoreWord(paddr&0xFFF, v)
	}
}

// --- I/O port window (0x1F801000-0x1F801FFF) ---

func (b *SystemBus) ioLoadByte(off uint32) uint8 {
	switch off {
	case offCDStatus:
		return b.cdrom.StatusByte()
	case offCDReg1:
		return b.cdrom.RegisterLoad(1)
	case offCDReg3:
		return b.cdrom.RegisterLoad(3)
	default:
		return 0
	}
}

func (b *SystemBus) ioLoadHalfword(off uint32) uint16 {
	switch off {
	case offIStat:
		return uint16(b.iStat)
	case offIMask:
		return uint16(b.iMask)
	default:
		return 0
	}
}

func (b *SystemBus) ioLoadWord(off uint32) uint32 {
	switch off {
	case offIStat:
		return b.iStat
	case offIMask:
		return b.iMask
	case offDMA2CHCR:
		return b.dmaGPU.chcr
	case offDMA3CHCR:
		return b.dmaCDROM.chcr
	case offDMA6CHCR:
		return b.dmaOTC.chcr
	case offDPCR:
		return b.dpcr
	case offDICR:
		return b.dicr
	case offGP0:
		return b.gpu.GPURead
	case offGP1:
		return gpuStatusConstant
	default:
		return 0
	}
}

func (b *SystemBus) ioStoreByte(off uint32, v uint8) {
	switch off {
	case offCDStatus:
		b.cdrom.SetStatusIndex(v)
	case offCDReg1:
		b.cdrom.RegisterStore(1, v)
	case offCDReg2:
		b.cdrom.RegisterStore(2, v)
	case offCDReg3:
		b.cdrom.RegisterStore(3, v)
	}
}

func (b *SystemBus) ioStoreHalfword(off uint32, v uint16) {
	switch off {
	case offIStat:
		b.iStat &= uint32(v)
	case offIMask:
		b.iMask = uint32(v)
	}
}

func (b *SystemBus) ioStoreWord(off uint32, v uint32) {
	switch off {
	case offIStat:
		// Writes acknowledge: bits written as 0 clear the pending bit.
		b.iStat &= v

	case offIMask:
		b.iMask = v

	case offDMA2MADR:
		b.dmaGPU.madr = v & 0x00FFFFFF
	case offDMA2BCR:
		b.dmaGPU.bcr = v
	case offDMA2CHCR:
		b.dmaGPU.chcr = v

	case offDMA3MADR:
		b.dmaCDROM.madr = v & 0x00FFFFFF
	case offDMA3BCR:
		b.dmaCDROM.bcr = v
	case offDMA3CHCR:
		b.dmaCDROM.chcr = v

	case offDMA6MADR:
		b.dmaOTC.madr = v & 0x00FFFFFF
	case offDMA6BCR:
		b.dmaOTC.bcr = v
	case offDMA6CHCR:
		b.dmaOTC.chcr = v

	case offDPCR:
		b.dpcr = v
	case offDICR:
		b.dicr = v

	case offGP0:
		b.gpu.GP0(v)
	case offGP1:
		b.gpu.GP1(v)
	}
}

// ramWord/setRAMWord read and write a RAM word at a physical address
// already known to lie within main memory, used internally by the DMA
// engine which always addresses RAM directly.
func (b *SystemBus) ramWord(addr uint32) uint32 {
	return binary.LittleEndian.Uint32(b.ram[addr&0x1FFFFC:])
}

func (b *SystemBus) setRAMWord(addr uint32, v uint32) {
	binary.LittleEndian.PutUint32(b.ram[addr&0x1FFFFC:], v)
}

// Step advances DMA and CD-ROM state by one unit, per spec.md §4.3/§5:
// the bus runs entirely synchronously within a single call, and any
// CD-ROM interrupt raised here is visible to the CPU's very next
// interrupt check.
func (b *SystemBus) Step() {
	dpcr := b.dpcr & 0x08888888

	for dpcr != 0 {
		bit := leastSignificantBit(dpcr)
		dpcr &= dpcr - 1

		switch bit {
		case 4*dmaChanGPU + 3:
			b.runDMAGPU()
			b.dmaGPU.clearBusy()

		case 4*dmaChanCDROM + 3:
			b.runDMACDROM()
			b.dmaCDROM.clearBusy()

		case 4*dmaChanOTC + 3:
			b.runDMAOTC()
			b.dmaOTC.clearBusy()
		}
	}

	b.cdrom.Step()

	if b.cdrom.FireInterrupt {
		b.iStat |= irqCDROM
		b.cdrom.FireInterrupt = false
	}
}

func leastSignificantBit(v uint32) uint32 {
	for i := uint32(0); i < 32; i++ {
		if v&(1<<i) != 0 {
			return i
		}
	}
	return 0
}

// runDMAGPU dispatches channel 2 by its recognized channel-control
// values: VRAM write (RAM to GPU), VRAM read (GPU to RAM), and linked
// list (GPU display lists).
func (b *SystemBus) runDMAGPU() {
	switch b.dmaGPU.chcr {
	case 0x01000201:
		b.dmaGPUVRAMWrite()
	case 0x01000200:
		b.dmaGPUVRAMRead()
	case 0x01000401:
		b.dmaGPUList()
	}
}

func (b *SystemBus) dmaGPUVRAMWrite() {
	count := uint32(b.dmaGPU.blockCount()) * uint32(b.dmaGPU.blockSize())
	for i := uint32(0); i < count; i++ {
		word := b.ramWord(b.dmaGPU.madr)
		b.gpu.GP0(word)
		b.dmaGPU.madr += 4
	}
}

func (b *SystemBus) dmaGPUVRAMRead() {
	count := uint32(b.dmaGPU.blockCount()) * uint32(b.dmaGPU.blockSize())
	for i := uint32(0); i < count; i++ {
		b.gpu.GP0(0)
		b.setRAMWord(b.dmaGPU.madr, b.gpu.GPURead)
		b.dmaGPU.madr += 4
	}
}

// dmaGPUList walks the RAM-resident display list: each node's header
// word packs the node's payload word count into bits 31-24 and the next
// node's address into bits 23-0 with bit 23 marking end-of-list. The
// walk is capped at dmaListMaxNodes so a malformed or missing terminator
// cannot spin the bus forever (spec.md §9's redesign flag).
func (b *SystemBus) dmaGPUList() {
	addr := b.dmaGPU.madr

	for node := 0; node < dmaListMaxNodes; node++ {
		header := b.ramWord(addr)
		packetSize := header >> 24

		for packetSize != 0 {
			addr = (addr + 4) & 0x001FFFFC
			b.gpu.GP0(b.ramWord(addr))
			packetSize--
		}

		if header&0x00800000 != 0 {
			b.dmaGPU.madr = addr
			return
		}
		addr = header & 0x001FFFFC
	}

	b.dmaGPU.madr = addr
}

// runDMACDROM copies bcr_low*4 bytes out of the CD-ROM's data FIFO into
// RAM, one byte at a time.
func (b *SystemBus) runDMACDROM() {
	numBytes := (b.dmaCDROM.bcr & 0xFFFF) * 4
	addr := b.dmaCDROM.madr

	for i := uint32(0); i < numBytes; i++ {
		b.ram[(addr+i)&0x1FFFFF] = b.cdrom.PopDataByte()
	}
}

// runDMAOTC writes the descending ordering-table terminator chain: bcr
// link words starting at madr, each holding the previous address (masked
// to 24 bits), followed by the end-of-table marker 0x00FFFFFF one word
// further down, at madr - bcr*4.
func (b *SystemBus) runDMAOTC() {
	count := b.dmaOTC.bcr
	addr := b.dmaOTC.madr

	for i := uint32(0); i < count; i++ {
		b.setRAMWord(addr, (addr-4)&0x00FFFFFF)
		addr -= 4
	}

	b.setRAMWord(addr, 0x00FFFFFF)
}
