package acquisition

import (
	"sync"
	"testing"
)

func TestBuffer_StageGated(t *testing.T) {
	b := NewBuffer[int]()

	// before the window opens
	for i := 0; i < 5; i++ {
		b.Append(-1)
	}
	b.Open()
	for i := 1; i <= 10; i++ {
		if !b.Append(i) {
			t.Fatalf("append %d rejected while open", i)
		}
	}
	got := b.Close()
	// after the window closes
	for i := 0; i < 5; i++ {
		if b.Append(99) {
			t.Fatalf("append accepted after Close")
		}
	}

	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("got[%d] = %d", i, v)
		}
	}
	if b.Len() != 0 {
		t.Fatalf("buffer not detached, len %d", b.Len())
	}
	if b.Rejected() != 10 {
		t.Fatalf("rejected = %d, want 10", b.Rejected())
	}
}

func TestBuffer_CloseRacesAppends(t *testing.T) {
	b := NewBuffer[int]()
	b.Open()

	var wg sync.WaitGroup
	var accepted [4]int
	start := make(chan struct{})
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			<-start
			for i := 0; i < 1000; i++ {
				if b.Append(i) {
					accepted[w]++
				}
			}
		}(w)
	}
	close(start)
	detached := b.Close()
	wg.Wait()

	total := 0
	for _, n := range accepted {
		total += n
	}
	if total != len(detached) {
		t.Fatalf("accepted %d appends but detached %d", total, len(detached))
	}
	if b.Len() != 0 {
		t.Fatalf("append landed after Close: len %d", b.Len())
	}
}

func TestBuffer_OpenClearsAndRestore(t *testing.T) {
	b := NewBuffer[string]()
	b.Open()
	b.Append("a")
	items := b.Close()

	b.Restore(items)
	if b.Len() != 1 || b.IsOpen() {
		t.Fatalf("restore should refill without reopening")
	}
	if got := b.Take(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Take = %v", got)
	}

	b.Restore([]string{"x", "y"})
	b.Open()
	if b.Len() != 0 {
		t.Fatalf("Open should clear, len %d", b.Len())
	}
	if !b.Replace([]string{"p", "q", "r"}) || b.Len() != 3 {
		t.Fatalf("Replace while open failed")
	}
	b.Reset()
	if b.Replace([]string{"z"}) {
		t.Fatalf("Replace accepted on closed buffer")
	}
}

func TestCountdown(t *testing.T) {
	var c Countdown
	if c.Take() {
		t.Fatalf("zero countdown should refuse")
	}
	c.Reset(3)
	for i := 0; i < 3; i++ {
		if !c.Take() {
			t.Fatalf("take %d refused", i)
		}
	}
	if c.Take() || c.Remaining() != 0 {
		t.Fatalf("countdown overran")
	}
}
