package signal

import "testing"

func TestRollingBufferEvictsOldest(t *testing.T) {
	buf := NewRollingBuffer[float64](3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		buf.Push(v)
		if buf.Len() > buf.Capacity() {
			t.Fatalf("len %d exceeded capacity %d", buf.Len(), buf.Capacity())
		}
	}

	want := []float64{3, 4, 5}
	got := buf.Values()
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRollingBufferLast(t *testing.T) {
	buf := NewRollingBuffer[int](2)
	if _, ok := buf.Last(); ok {
		t.Fatal("empty buffer should report no last value")
	}
	buf.Push(7)
	buf.Push(9)
	last, ok := buf.Last()
	if !ok || last != 9 {
		t.Fatalf("last = %d, %v; want 9, true", last, ok)
	}
}

func TestRollingBufferTail(t *testing.T) {
	buf := NewRollingBuffer[float64](5)
	for _, v := range []float64{1, 2, 3, 4} {
		buf.Push(v)
	}
	tail := buf.Tail(2)
	if len(tail) != 2 || tail[0] != 3 || tail[1] != 4 {
		t.Fatalf("tail = %v, want [3 4]", tail)
	}
	if got := buf.Tail(10); len(got) != 4 {
		t.Fatalf("oversized tail should return everything, got %d values", len(got))
	}
}

func TestRollingBufferReset(t *testing.T) {
	buf := NewRollingBuffer[float64](4)
	buf.Push(1)
	buf.Push(2)
	buf.Reset()
	if buf.Len() != 0 {
		t.Fatalf("len after reset = %d, want 0", buf.Len())
	}
}
