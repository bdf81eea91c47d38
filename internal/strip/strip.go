package strip

import (
	"fmt"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"
)

// Strip is an N-pixel frame buffer flushed to a display.Drawer as a
// single-row image.
type Strip struct {
	drawer   display.Drawer
	limiter  *Limiter
	reversed bool

	frame *image.NRGBA // what callers draw into
	out   *image.NRGBA // post-limiter copy sent to the drawer
}

func New(d display.Drawer, n int) *Strip {
	return &Strip{
		drawer: d,
		frame:  blank(n),
		out:    blank(n),
	}
}

func blank(n int) *image.NRGBA {
	im := image.NewNRGBA(image.Rect(0, 0, n, 1))
	for x := 0; x < n; x++ {
		im.SetNRGBA(x, 0, color.NRGBA{A: 255})
	}
	return im
}

func (s *Strip) Len() int { return s.frame.Rect.Dx() }

// SetLimiter installs a power limiter applied on every Flush. nil disables it.
func (s *Strip) SetLimiter(l *Limiter) { s.limiter = l }

// SetReversed flips the index order, for strips fed from the far end.
func (s *Strip) SetReversed(v bool) { s.reversed = v }

// SetPixel writes logical position i. Positions outside the strip are ignored.
func (s *Strip) SetPixel(i int, r, g, b uint8) {
	if i < 0 || i >= s.Len() {
		return
	}
	if s.reversed {
		i = s.Len() - 1 - i
	}
	s.frame.SetNRGBA(i, 0, color.NRGBA{R: r, G: g, B: b, A: 255})
}

func (s *Strip) Clear() {
	for x := 0; x < s.Len(); x++ {
		s.frame.SetNRGBA(x, 0, color.NRGBA{A: 255})
	}
}

// Flush pushes the current frame to the drawer.
func (s *Strip) Flush() error {
	copy(s.out.Pix, s.frame.Pix)
	if s.limiter != nil {
		s.limiter.Apply(s.out)
	}
	if err := s.drawer.Draw(s.drawer.Bounds(), s.out, image.Point{}); err != nil {
		return fmt.Errorf("strip flush: %w", err)
	}
	return nil
}

// RGB returns the last flushed frame as packed RGB triples.
func (s *Strip) RGB() []byte {
	n := s.Len()
	rgb := make([]byte, n*3)
	for i := 0; i < n; i++ {
		o := s.out.PixOffset(i, 0)
		copy(rgb[i*3:i*3+3], s.out.Pix[o:o+3])
	}
	return rgb
}

// Halt blanks the strip and releases the drawer.
func (s *Strip) Halt() error {
	s.Clear()
	if err := s.Flush(); err != nil {
		return err
	}
	return s.drawer.Halt()
}

func (s *Strip) String() string {
	return fmt.Sprintf("strip{%d, %s}", s.Len(), s.drawer)
}
