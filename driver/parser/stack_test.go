package parser

import (
	"testing"
)

func TestStack(t *testing.T) {
	t.Run("a fixed stack refuses frames beyond its maximum depth", func(t *testing.T) {
		s := newStack(3)
		for i := 0; i < 3; i++ {
			if !s.push(i, i, nil) {
				t.Fatalf("failed to push a frame: %v", i)
			}
		}
		if s.push(3, 3, nil) {
			t.Fatal("a full stack must refuse a frame")
		}
		if s.ensureHeadroom() {
			t.Fatal("a full stack has no headroom")
		}
		if s.depth() != 3 || s.peak != 3 {
			t.Fatalf("unexpected depth; depth: %v, peak: %v", s.depth(), s.peak)
		}

		f := s.pop()
		if f.state != 2 {
			t.Fatalf("unexpected frame: %+v", f)
		}
		if !s.push(4, 4, nil) {
			t.Fatal("a frame must fit after a pop")
		}
	})

	t.Run("a growable stack grows by doubling plus 100", func(t *testing.T) {
		var caps []int
		s := newStack(0)
		s.onGrow = func(capacity int) {
			caps = append(caps, capacity)
		}
		for i := 0; i < 301; i++ {
			s.push(i, i, nil)
		}
		want := []int{100, 300, 700}
		if len(caps) != len(want) {
			t.Fatalf("unexpected capacities: %v", caps)
		}
		for i := range want {
			if caps[i] != want[i] {
				t.Fatalf("unexpected capacities: %v", caps)
			}
		}
	})

	t.Run("topN returns the frames bottommost first", func(t *testing.T) {
		s := newStack(0)
		for i := 0; i < 5; i++ {
			s.push(i, i*10, i*100)
		}
		fs := s.topN(3)
		for i, f := range fs {
			if f.state != i+2 || f.major != (i+2)*10 || f.minor != (i+2)*100 {
				t.Fatalf("unexpected frame #%v: %+v", i, f)
			}
		}
		s.popN(3)
		if s.depth() != 2 || s.top().state != 1 {
			t.Fatalf("unexpected stack; depth: %v, top: %+v", s.depth(), s.top())
		}
		if s.peak != 5 {
			t.Fatalf("unexpected peak: %v", s.peak)
		}
	})
}
