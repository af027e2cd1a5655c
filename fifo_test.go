package main

import "testing"

// TestFIFOEmptyDequeueReturnsZero verifies that dequeuing from an empty
// FIFO returns zero rather than panicking or blocking.
func TestFIFOEmptyDequeueReturnsZero(t *testing.T) {
	f := NewFIFO(4)

	if !f.IsEmpty() {
		t.Fatal("new FIFO should be empty")
	}
	if got := f.Dequeue(); got != 0 {
		t.Fatalf("Dequeue() on empty FIFO = %d, want 0", got)
	}
}

// TestFIFOFullEnqueueIsNoOp verifies that enqueuing onto a full FIFO
// silently drops the entry instead of overwriting existing data.
func TestFIFOFullEnqueueIsNoOp(t *testing.T) {
	f := NewFIFO(2)

	f.Enqueue(1)
	f.Enqueue(2)

	if !f.IsFull() {
		t.Fatal("FIFO should be full after filling to capacity")
	}

	f.Enqueue(3)

	if got := f.Dequeue(); got != 1 {
		t.Fatalf("Dequeue() = %d, want 1 (enqueue onto full FIFO must be dropped)", got)
	}
	if got := f.Dequeue(); got != 2 {
		t.Fatalf("Dequeue() = %d, want 2", got)
	}
}

// TestFIFOOrderPreserved verifies FIFO (not LIFO) ordering across a wrap.
func TestFIFOOrderPreserved(t *testing.T) {
	f := NewFIFO(3)

	f.Enqueue(10)
	f.Enqueue(20)
	f.Dequeue()
	f.Enqueue(30)
	f.Enqueue(40)

	want := []uint32{20, 30, 40}
	for i, w := range want {
		if got := f.Dequeue(); got != w {
			t.Fatalf("entry %d: Dequeue() = %d, want %d", i, got, w)
		}
	}
	if !f.IsEmpty() {
		t.Fatal("FIFO should be empty after draining all entries")
	}
}

// TestFIFOReset verifies Reset clears size and contents without changing
// capacity.
func TestFIFOReset(t *testing.T) {
	f := NewFIFO(4)
	f.Enqueue(1)
	f.Enqueue(2)

	f.Reset()

	if !f.IsEmpty() {
		t.Fatal("FIFO should be empty after Reset")
	}
	if f.maxSize != 4 {
		t.Fatalf("Reset changed capacity: maxSize = %d, want 4", f.maxSize)
	}
}
