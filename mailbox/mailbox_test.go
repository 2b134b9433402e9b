package mailbox

import (
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int]()
	if _, ok := q.TryDequeue(); ok {
		t.Fatal("empty queue returned an item")
	}

	q.Enqueue(1)
	q.EnqueueAll([]int{2, 3, 4})
	q.Enqueue(5)
	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}

	v, ok := q.TryDequeue()
	if !ok || v != 1 {
		t.Fatalf("TryDequeue() = %d,%v want 1,true", v, ok)
	}
	got := q.DrainAll()
	want := []int{2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("DrainAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DrainAll() = %v, want %v", got, want)
		}
	}
	if q.DrainAll() != nil {
		t.Error("second DrainAll should be empty")
	}
}

func TestQueueEnqueueAllEmpty(t *testing.T) {
	q := NewQueue[string]()
	q.EnqueueAll(nil)
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueueConcurrentProducerConsumer(t *testing.T) {
	const n = 10000
	q := NewQueue[int]()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i += 2 {
			q.EnqueueAll([]int{i, i + 1})
		}
	}()

	next := 0
	for next < n {
		for _, v := range q.DrainAll() {
			if v != next {
				t.Fatalf("out of order: got %d, want %d", v, next)
			}
			next++
		}
	}
	wg.Wait()
}

func TestMailboxQueuesAreIndependent(t *testing.T) {
	m := New[string, int, bool]()
	m.Inbound.Enqueue("hi")
	m.Outbound.Enqueue(7)
	m.Events.Enqueue(true)

	if m.Inbound.Len() != 1 || m.Outbound.Len() != 1 || m.Events.Len() != 1 {
		t.Fatal("expected one item per queue")
	}
	if v, _ := m.Outbound.TryDequeue(); v != 7 {
		t.Errorf("Outbound = %d, want 7", v)
	}
	if m.Inbound.Len() != 1 {
		t.Error("dequeue from one queue touched another")
	}
}
