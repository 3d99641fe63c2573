// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "testing"

func TestReadyQueueEnqueueDequeueFIFO(t *testing.T) {
	q := NewReadyQueue()
	if err := q.Grow(3); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	for _, v := range []int{1, 2, 3} {
		if err := q.Enqueue(v); err != nil {
			t.Fatalf("Enqueue(%d): %v", v, err)
		}
	}
	for _, want := range []int{1, 2, 3} {
		if got := q.Dequeue(); got != want {
			t.Fatalf("Dequeue() = %d, want %d", got, want)
		}
	}
	if q.Peek() != -1 {
		t.Fatalf("expected empty queue, Peek() = %d", q.Peek())
	}
}

func TestReadyQueueOverflow(t *testing.T) {
	q := NewReadyQueue()
	if err := q.Grow(1); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if err := q.Enqueue(0); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(1); err == nil {
		t.Fatalf("expected overflow error enqueuing into a full ring buffer")
	}
}

func TestReadyQueueGrowPreservesWrappedOrder(t *testing.T) {
	q := NewReadyQueue()
	if err := q.Grow(3); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	// Fill and drain twice to force head/tail to wrap around the ring.
	for _, v := range []int{10, 11, 12} {
		if err := q.Enqueue(v); err != nil {
			t.Fatalf("Enqueue(%d): %v", v, err)
		}
	}
	if got := q.Dequeue(); got != 10 {
		t.Fatalf("Dequeue() = %d, want 10", got)
	}
	if got := q.Dequeue(); got != 11 {
		t.Fatalf("Dequeue() = %d, want 11", got)
	}
	// head=2, tail=0 (12 still queued); enqueue two more so tail wraps
	// round to meet head.
	if err := q.Enqueue(20); err != nil {
		t.Fatalf("Enqueue(20): %v", err)
	}
	if err := q.Enqueue(21); err != nil {
		t.Fatalf("Enqueue(21): %v", err)
	}
	// Now buffer holds [20, 21, 12] with head=2, tail=2 (full):
	// contents in FIFO order should be 12, 20, 21.
	if err := q.Grow(6); err != nil {
		t.Fatalf("Grow(6): %v", err)
	}
	var got []int
	for i := 0; i < 3; i++ {
		got = append(got, q.Dequeue())
	}
	want := []int{12, 20, 21}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("FIFO order broken after grow: got %v, want %v", got, want)
		}
	}
}

func TestReadyQueueGrowIsMonotonic(t *testing.T) {
	q := NewReadyQueue()
	if err := q.Grow(4); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if err := q.Grow(2); err != nil {
		t.Fatalf("Grow(2): %v", err)
	}
	if q.Cap() != 4 {
		t.Fatalf("shrinking via Grow should be a no-op, got cap %d", q.Cap())
	}
}
