// fifo.go - Bounded ring buffer shared by the GPU and CD-ROM front-end.

/*
fifo.go - Fixed-Size FIFO

Every queue in the system - the GPU's command parameter queue, and the
CD-ROM's parameter/response/data queues - is a bounded ring buffer holding
32-bit words. This file implements that single primitive once rather than
inlining a ring buffer in each owner.

Enqueuing onto a full FIFO is a silent no-op and dequeuing from an empty one
returns zero; neither condition is treated as an error; callers that care
check IsFull/IsEmpty before acting.
*/

package main

// FIFO is a fixed-capacity ring buffer of 32-bit words.
type FIFO struct {
	entries []uint32

	currentSize uint32
	maxSize     uint32

	head uint32
	tail uint32
}

// NewFIFO allocates a FIFO holding at most size words.
func NewFIFO(size uint32) *FIFO {
	f := &FIFO{
		entries: make([]uint32, size),
		maxSize: size,
	}
	f.Reset()
	return f
}

// Reset clears the FIFO's contents without reallocating its backing array.
func (f *FIFO) Reset() {
	f.currentSize = 0
	f.head = 0
	f.tail = f.maxSize - 1

	for i := range f.entries {
		f.entries[i] = 0
	}
}

// IsEmpty reports whether the FIFO holds no entries.
func (f *FIFO) IsEmpty() bool {
	return f.currentSize == 0
}

// IsFull reports whether the FIFO has reached its capacity.
func (f *FIFO) IsFull() bool {
	return f.currentSize == f.maxSize
}

// Len returns the number of entries currently queued.
func (f *FIFO) Len() uint32 {
	return f.currentSize
}

// Enqueue appends entry to the tail of the FIFO. No-op if already full.
func (f *FIFO) Enqueue(entry uint32) {
	if f.IsFull() {
		return
	}

	f.tail = (f.tail + 1) % f.maxSize
	f.currentSize++

	f.entries[f.tail] = entry
}

// Dequeue removes and returns the entry at the head of the FIFO, or zero
// if the FIFO is empty.
func (f *FIFO) Dequeue() uint32 {
	if f.IsEmpty() {
		return 0
	}

	entry := f.entries[f.head]

	f.head = (f.head + 1) % f.maxSize
	f.currentSize--

	return entry
}
