// cdrom.go - CD-ROM command/response/interrupt engine

/*
cdrom.go - CD-ROM Drive

This module implements the CD-ROM controller's register file, its
command dispatcher, and the delayed-interrupt/sector-streaming machinery
that drives asynchronous command completion and ReadN sector delivery
(ReadS is not recognised and gets the same INT5 error reply as any
unknown command).

Core Features:
  - The indexed register window: status byte bits 0-1 select which of
    four register banks RegisterLoad/RegisterStore offsets 1-3 address,
    matching the hardware's actual addressing scheme.
  - Three bounded FIFOs (reused from fifo.go): parameter (16), response
    (16), and data (4096, read out a byte at a time by DMA channel 3).
  - A fixed-capacity queue of four pending interrupts, replacing the
    original implementation's pointer-linked interrupt chain (spec.md's
    Design Notes ask for a bounded value-typed structure here, since the
    hardware itself only ever has a handful of interrupts in flight).
    Each queued interrupt carries its own response payload; per spec.md
    §4.5's literal sequencing, that payload is moved into the response
    FIFO only when the interrupt's cycle countdown reaches zero, not at
    the moment the command was dispatched (the original C's
    push_response does the latter; we follow the written spec instead).
    Delivery is ack-gated: only the head of the queue counts down, and it
    does not deliver (or let the next interrupt begin counting) until
    software has acknowledged the previous one.

Data:
  - Position (minute, second, sector) is tracked in BCD, as Setloc
    receives it, and converted to binary only when a sector's byte
    address is computed (cdAbsoluteByteAddress).
*/

package main

const (
	cdCyclesPerSectorDouble = cpuClockHz / 150
	cdCyclesPerSectorSingle = cpuClockHz / 75

	cpuClockHz = 33868800

	cdInterruptQueueCap = 4
)

// Interrupt cause codes, matching INT1-INT5 in cdrom_drive.h.
const (
	cdINT1 = 1
	cdINT2 = 2
	cdINT3 = 3
	cdINT5 = 5
)

// Status register bit positions.
const (
	cdStatusIndexMask = 0x03
	cdStatusXAFIFO    = 1 << 2
	cdStatusParmEmpty = 1 << 3
	cdStatusParmWrite = 1 << 4
	cdStatusResultRdy = 1 << 5
	cdStatusDataRdy    = 1 << 6
	cdStatusBusy       = 1 << 7
)

type cdPendingInterrupt struct {
	cause           uint32
	cyclesRemaining uint32
	payload         []uint32
}

// CDROM owns the drive's register file, command state, and (optionally)
// a callback into host-provided disc image bytes.
type CDROM struct {
	statusIndex uint8

	interruptEnable uint8
	interruptFlag   uint8

	paramFIFO    *FIFO
	responseFIFO *FIFO
	dataFIFO     *FIFO

	mode uint8

	positionMin, positionSec, positionSector uint8
	seekMin, seekSec, seekSector             uint8

	reading   bool
	sectorCountdown uint32

	pending [cdInterruptQueueCap]cdPendingInterrupt
	pendingCount int

	hasDisc bool

	// FireInterrupt is raised for one bus.Step call whenever an
	// interrupt transitions from pending to delivered; the bus ORs it
	// into i_stat and clears it.
	FireInterrupt bool

	readSector func(address uint32, dest []byte) bool
}

// NewCDROM constructs a CD-ROM drive with its FIFOs allocated and no
// disc attached.
func NewCDROM() *CDROM {
	c := &CDROM{
		paramFIFO:    NewFIFO(16),
		responseFIFO: NewFIFO(16),
		dataFIFO:     NewFIFO(4096),
	}
	c.Reset()
	return c
}

// Reset clears all register and FIFO state. A previously attached
// readSector callback and hasDisc flag survive reset, matching real
// hardware where a soft reset does not eject the disc.
func (c *CDROM) Reset() {
	c.statusIndex = 0
	c.interruptEnable = 0
	c.interruptFlag = 0
	c.paramFIFO.Reset()
	c.responseFIFO.Reset()
	c.dataFIFO.Reset()
	c.mode = 0
	c.positionMin, c.positionSec, c.positionSector = 0, 0, 0
	c.seekMin, c.seekSec, c.seekSector = 0, 0, 0
	c.reading = false
	c.sectorCountdown = 0
	c.pendingCount = 0
	c.FireInterrupt = false
}

// SetReadCallback attaches the host's sector-read function and marks a
// disc as present. Passing nil clears the callback and the disc. fn
// receives an absolute byte offset (not an LBA), 24 bytes past the start
// of the sector, and a 2352-byte destination buffer, matching
// System.SetCDROM's contract.
func (c *CDROM) SetReadCallback(fn func(address uint32, dest []byte) bool) {
	c.readSector = fn
	c.hasDisc = fn != nil
}

// StatusByte returns the value loads of register 0 (offset 0x800)
// observe: the current bank index in bits 0-1, plus FIFO-state flags.
func (c *CDROM) StatusByte() uint8 {
	status := c.statusIndex & cdStatusIndexMask

	if c.paramFIFO.IsEmpty() {
		status |= cdStatusParmEmpty
	}
	if !c.paramFIFO.IsFull() {
		status |= cdStatusParmWrite
	}
	if !c.responseFIFO.IsEmpty() {
		status |= cdStatusResultRdy
	}
	if !c.dataFIFO.IsEmpty() {
		status |= cdStatusDataRdy
	}
	return status
}

// SetStatusIndex handles a store to register 0: only the low 2 bits
// (the bank index) are writable.
func (c *CDROM) SetStatusIndex(v uint8) {
	c.statusIndex = v & cdStatusIndexMask
}

// RegisterLoad reads register reg (1-3), whose meaning depends on the
// current bank index, matching the hardware's indexed addressing.
func (c *CDROM) RegisterLoad(reg int) uint8 {
	switch reg {
	case 1:
		return uint8(c.responseFIFO.Dequeue())
	case 2:
		return uint8(c.dataFIFO.Dequeue())
	case 3:
		switch c.statusIndex & cdStatusIndexMask {
		case 0, 2:
			return c.interruptEnable
		default:
			return c.interruptFlag | 0xE0
		}
	}
	return 0xFF
}

// RegisterStore writes register reg (1-3); the command register (1,
// bank 0) dispatches a new command.
func (c *CDROM) RegisterStore(reg int, data uint8) {
	bank := c.statusIndex & cdStatusIndexMask

	switch {
	case reg == 1 && bank == 0:
		c.execCommand(data)

	case reg == 2 && bank == 0:
		c.paramFIFO.Enqueue(uint32(data))

	case reg == 2 && bank == 1:
		c.interruptEnable = data

	case reg == 3 && bank == 1:
		// acknowledge: writing 1 bits clears the matching flag bits.
		c.interruptFlag &^= data
		if data&0x40 != 0 {
			c.paramFIFO.Reset()
		}

	case reg == 3 && bank == 0:
		c.interruptEnable = data
	}
}

// PopDataByte removes and returns one byte from the data FIFO for DMA
// channel 3's consumption.
func (c *CDROM) PopDataByte() uint8 {
	return uint8(c.dataFIFO.Dequeue())
}

func (c *CDROM) drainParams() []uint8 {
	var out []uint8
	for !c.paramFIFO.IsEmpty() {
		out = append(out, uint8(c.paramFIFO.Dequeue()))
	}
	return out
}

// queueInterrupt appends a pending interrupt if the queue has room,
// silently dropping it otherwise (spec.md's bounded-queue redesign: real
// hardware never actually has more than a couple in flight at once).
func (c *CDROM) queueInterrupt(cause uint32, delayCycles uint32, payload []uint32) {
	if c.pendingCount >= cdInterruptQueueCap {
		return
	}
	c.pending[c.pendingCount] = cdPendingInterrupt{
		cause:           cause,
		cyclesRemaining: delayCycles,
		payload:         payload,
	}
	c.pendingCount++
}

const cdCommandDelayCycles = 20000

// execCommand dispatches a command byte, consuming any queued
// parameters and scheduling the response/interrupt the command
// produces.
func (c *CDROM) execCommand(cmd uint8) {
	params := c.drainParams()

	switch cmd {
	case 0x01: // Getstat
		c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})

	case 0x02: // Setloc
		if len(params) >= 3 {
			c.seekMin = params[0]
			c.seekSec = params[1]
			c.seekSector = params[2]
		}
		c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})

	case 0x06: // ReadN
		c.positionMin, c.positionSec, c.positionSector = c.seekMin, c.seekSec, c.seekSector
		c.reading = true
		c.sectorCountdown = c.cyclesPerSector()
		c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})

	case 0x09: // Pause
		c.reading = false
		c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})
		c.queueInterrupt(cdINT2, cdCommandDelayCycles*2, []uint32{uint32(c.statstat())})

	case 0x0A: // Init
		c.mode = 0
		c.reading = false
		c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})
		c.queueInterrupt(cdINT2, cdCommandDelayCycles*2, []uint32{uint32(c.statstat())})

	case 0x0E: // Setmode
		if len(params) >= 1 {
			c.mode = params[0]
		}
		c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})

	case 0x15: // SeekL
		c.positionMin, c.positionSec, c.positionSector = c.seekMin, c.seekSec, c.seekSector
		c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})
		c.queueInterrupt(cdINT2, cdCommandDelayCycles*2, []uint32{uint32(c.statstat())})

	case 0x19: // Test
		if len(params) >= 1 && params[0] == 0x20 {
			// SCEx firmware date/version, arbitrary but stable values.
			c.queueInterrupt(cdINT3, cdCommandDelayCycles,
				[]uint32{0x94, 0x09, 0x19, 0xC0})
		} else {
			c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})
		}

	case 0x1A: // GetID
		c.queueInterrupt(cdINT3, cdCommandDelayCycles, []uint32{uint32(c.statstat())})
		if c.hasDisc {
			c.queueInterrupt(cdINT2, cdCommandDelayCycles*2,
				[]uint32{0x02, 0x00, 0x20, 0x00, 'S', 'C', 'E', 'A'})
		} else {
			c.queueInterrupt(cdINT5, cdCommandDelayCycles*2,
				[]uint32{0x08, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
		}

	default:
		c.queueInterrupt(cdINT5, cdCommandDelayCycles, []uint32{uint32(c.statstat()) | 0x01})
	}
}

func (c *CDROM) statstat() uint8 {
	s := uint8(0x02) // motor on
	if c.reading {
		s |= 0x20
	}
	return s
}

func (c *CDROM) cyclesPerSector() uint32 {
	if c.mode&0x80 != 0 {
		return cdCyclesPerSectorDouble
	}
	return cdCyclesPerSectorSingle
}

// Step advances pending-interrupt countdowns and, while a ReadN is in
// progress, the sector-delivery countdown. Called once per bus.Step.
func (c *CDROM) Step() {
	c.stepInterrupts()
	c.stepSectorRead()
}

// stepInterrupts advances only the head of the pending queue, matching
// the original's single current_interrupt pointer: a queued interrupt's
// countdown does not even start while interruptFlag is still set, so
// software must acknowledge the interrupt in flight (register 3, bank 1)
// before the next one in the chain can begin delivering, per spec.md
// §4.5's ack-gated interrupt chain. Once the head's countdown reaches
// zero, its payload moves into the response FIFO, interruptFlag is
// raised (gated by interruptEnable for FireInterrupt), and it is popped.
func (c *CDROM) stepInterrupts() {
	if c.pendingCount == 0 || c.interruptFlag != 0 {
		return
	}

	head := &c.pending[0]
	if head.cyclesRemaining > 0 {
		head.cyclesRemaining--
		return
	}

	for _, w := range head.payload {
		c.responseFIFO.Enqueue(w)
	}
	c.interruptFlag = uint8(head.cause)
	if c.interruptEnable&c.interruptFlag != 0 {
		c.FireInterrupt = true
	}

	copy(c.pending[:c.pendingCount-1], c.pending[1:c.pendingCount])
	c.pendingCount--
}

const cdSectorDataBytes = 2352
const cdSectorUserDataBytes = 2048

// stepSectorRead delivers one sector's worth of data into the data FIFO
// each time the per-sector cycle countdown reaches zero, advancing the
// BCD position and re-raising an INT1 completion interrupt per sector.
//
// The host callback receives the absolute byte address of the sector
// plus 24 (skipping the sync pattern, header, and XA subheader) and a
// full 2352-byte scratch buffer, exactly as psemu's read_cb contract
// does; only the 2048-byte user-data payload at the front of that buffer
// is actually enqueued, since that is all ReadN ever delivers here.
func (c *CDROM) stepSectorRead() {
	if !c.reading {
		return
	}

	if c.sectorCountdown > 0 {
		c.sectorCountdown--
		return
	}
	c.sectorCountdown = c.cyclesPerSector()

	if c.readSector != nil {
		address := cdAbsoluteByteAddress(c.positionMin, c.positionSec, c.positionSector)
		buf := make([]byte, cdSectorDataBytes)
		c.readSector(address+24, buf)
		for _, b := range buf[:cdSectorUserDataBytes] {
			c.dataFIFO.Enqueue(uint32(b))
		}
	}

	c.queueInterrupt(cdINT1, 1, []uint32{uint32(c.statstat())})

	advanceBCDPosition(&c.positionMin, &c.positionSec, &c.positionSector)
}

// cdAbsoluteByteAddress converts a BCD (minute, second, sector) drive
// position into the absolute byte offset of that sector within a raw CD
// image: 150 sectors of lead-in precede logical sector zero.
func cdAbsoluteByteAddress(min, sec, sector uint8) uint32 {
	m := uint32(bcdToBin(min))
	s := uint32(bcdToBin(sec))
	f := uint32(bcdToBin(sector))
	return (f + s*75 + m*60*75 - 150) * cdSectorDataBytes
}

func bcdToBin(v uint8) uint8 {
	return (v>>4)*10 + (v & 0xF)
}

func binToBCD(v uint8) uint8 {
	return ((v / 10) << 4) | (v % 10)
}

func advanceBCDPosition(min, sec, sector *uint8) {
	s := bcdToBin(*sector) + 1
	ss := bcdToBin(*sec)
	mm := bcdToBin(*min)
	if s >= 75 {
		s = 0
		ss++
		if ss >= 60 {
			ss = 0
			mm++
		}
	}
	*sector = binToBCD(s)
	*sec = binToBCD(ss)
	*min = binToBCD(mm)
}
