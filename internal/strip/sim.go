package strip

import (
	"fmt"
	"image"
	"image/color"
	"sync"
)

// Sim is a headless drawer that keeps the last frame it was handed.
type Sim struct {
	mu     sync.Mutex
	n      int
	frames int
	last   []byte
	halted bool
}

func NewSim(n int) *Sim {
	return &Sim{n: n, last: make([]byte, n*3)}
}

func (s *Sim) String() string { return fmt.Sprintf("sim{%d}", s.n) }

func (s *Sim) ColorModel() color.Model { return color.NRGBAModel }

func (s *Sim) Bounds() image.Rectangle { return image.Rect(0, 0, s.n, 1) }

func (s *Sim) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r = r.Intersect(s.Bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		c := color.NRGBAModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y)).(color.NRGBA)
		s.last[x*3+0], s.last[x*3+1], s.last[x*3+2] = c.R, c.G, c.B
	}
	s.frames++
	s.halted = false
	return nil
}

func (s *Sim) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = true
	return nil
}

// Frames is the number of successful Draw calls.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns a copy of the most recent frame as RGB triples.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}

func (s *Sim) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}
