package display

import (
	"errors"
	"image/color"
	"math/rand/v2"
	"testing"
)

type recordingSurface struct {
	clears int
	pixels []Cursor
	colors []color.RGBA
	err    error
}

func (s *recordingSurface) Clear() error {
	s.clears++
	return nil
}

func (s *recordingSurface) SetPixel(x, y int, c color.RGBA) error {
	if s.err != nil {
		return s.err
	}
	s.pixels = append(s.pixels, Cursor{X: x, Y: y})
	s.colors = append(s.colors, c)
	return nil
}

func newTestAnimator(s Surface) *Animator {
	return NewAnimator(s, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestAnimator_VisitsEveryCellOnce(t *testing.T) {
	s := &recordingSurface{}
	a := newTestAnimator(s)

	cells := Width * Height
	for i := 0; i < 2*cells; i++ {
		if err := a.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	seen := make(map[Cursor]int)
	for _, c := range s.pixels[:cells] {
		if c.X < 0 || c.X >= Width || c.Y < 0 || c.Y >= Height {
			t.Fatalf("cursor out of bounds: %+v", c)
		}
		seen[c]++
	}
	if len(seen) != cells {
		t.Errorf("expected %d distinct cells, got %d", cells, len(seen))
	}
	for c, n := range seen {
		if n != 1 {
			t.Errorf("cell %+v visited %d times", c, n)
		}
	}

	for i := 0; i < cells; i++ {
		if s.pixels[i] != s.pixels[i+cells] {
			t.Errorf("step %d: second cycle visited %+v, first visited %+v", i, s.pixels[i+cells], s.pixels[i])
		}
	}
}

func TestAnimator_RowMajorOrder(t *testing.T) {
	s := &recordingSurface{}
	a := newTestAnimator(s)

	for i := 0; i < Width+1; i++ {
		_ = a.Advance()
	}

	expected := []Cursor{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 0}, {0, 1}}
	for i, want := range expected {
		if s.pixels[i] != want {
			t.Errorf("step %d: expected %+v, got %+v", i, want, s.pixels[i])
		}
	}
}

func TestAnimator_ClearsBeforeEachPixel(t *testing.T) {
	s := &recordingSurface{}
	a := newTestAnimator(s)

	for i := 0; i < 5; i++ {
		_ = a.Advance()
	}
	if s.clears != 5 {
		t.Errorf("expected 5 clears, got %d", s.clears)
	}
	for i, c := range s.colors {
		if c.A != 0xff {
			t.Errorf("pixel %d: expected opaque color, got %+v", i, c)
		}
	}
}

func TestAnimator_FailureKeepsCursor(t *testing.T) {
	s := &recordingSurface{err: errors.New("framebuffer gone")}
	a := newTestAnimator(s)

	if err := a.Advance(); err == nil {
		t.Fatal("expected error")
	}
	if a.Cursor() != (Cursor{}) {
		t.Errorf("cursor moved on failure: %+v", a.Cursor())
	}
}
