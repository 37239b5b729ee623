package display

import (
	"fmt"
	"image/color"
	"math/rand/v2"
	"time"
)

const (
	// Width is the number of LED columns.
	Width = 8

	// Height is the number of LED rows.
	Height = 8
)

// Surface is an LED matrix that can be cleared and lit pixel by pixel.
type Surface interface {
	Clear() error
	SetPixel(x, y int, c color.RGBA) error
}

// Cursor is a cell position on the matrix.
type Cursor struct {
	X int // Column, 0..Width-1
	Y int // Row, 0..Height-1
}

// next returns the following cell in row-major order, wrapping to the
// origin after the last cell.
func (c Cursor) next() Cursor {
	c.X++
	if c.X >= Width {
		c.X = 0
		c.Y++
	}
	if c.Y >= Height {
		c.Y = 0
	}
	return c
}

// WithRand sets the random source used to pick pixel colors.
func WithRand(r *rand.Rand) func(*Animator) {
	return func(a *Animator) {
		a.rand = r
	}
}

// Animator walks a single lit pixel across the matrix, one cell per Advance.
type Animator struct {
	surface Surface
	cursor  Cursor
	rand    *rand.Rand
}

// NewAnimator creates an Animator drawing on surface, starting at the origin.
func NewAnimator(surface Surface, options ...func(*Animator)) *Animator {
	seed := uint64(time.Now().UnixNano())

	a := Animator{
		surface: surface,
		rand:    rand.New(rand.NewPCG(seed, seed>>1)),
	}

	for _, option := range options {
		option(&a)
	}

	return &a
}

// Advance clears the matrix, lights the cursor cell with a random color and
// moves the cursor forward. The cursor does not move if drawing fails.
func (a *Animator) Advance() error {
	if err := a.surface.Clear(); err != nil {
		return fmt.Errorf("clearing display: %w", err)
	}

	if err := a.surface.SetPixel(a.cursor.X, a.cursor.Y, a.randomColor()); err != nil {
		return fmt.Errorf("setting pixel (%d, %d): %w", a.cursor.X, a.cursor.Y, err)
	}

	a.cursor = a.cursor.next()
	return nil
}

// Cursor returns the cell lit by the next Advance.
func (a *Animator) Cursor() Cursor {
	return a.cursor
}

// randomColor picks each channel in [0, 255).
func (a *Animator) randomColor() color.RGBA {
	return color.RGBA{
		R: uint8(a.rand.IntN(255)),
		G: uint8(a.rand.IntN(255)),
		B: uint8(a.rand.IntN(255)),
		A: 0xff,
	}
}
