package twinkle

import (
	"errors"
	"fmt"
)

// Unassigned marks a selection entry freed during a reclaim pass. It never
// survives past the end of the pass.
const Unassigned = -1

// ErrInvariant is wrapped by every slot table contract violation.
var ErrInvariant = errors.New("twinkle: invariant violation")

var (
	ErrOutOfRange    = fmt.Errorf("%w: position out of range", ErrInvariant)
	ErrAlreadyActive = fmt.Errorf("%w: position already active", ErrInvariant)
	ErrInactive      = fmt.Errorf("%w: position not active", ErrInvariant)
	ErrTableFull     = fmt.Errorf("%w: every position is active", ErrInvariant)
)

// SlotTable tracks which strip positions are lit and owns their fade state.
// The selection table keeps active positions in activation order.
type SlotTable struct {
	pixels []Pixel
	active []bool
	order  []int
	count  int

	sweeping bool
}

func NewSlotTable(n int) *SlotTable {
	return &SlotTable{
		pixels: make([]Pixel, n),
		active: make([]bool, n),
		order:  make([]int, 0, n),
	}
}

// Len is the strip length N.
func (s *SlotTable) Len() int { return len(s.active) }

func (s *SlotTable) IsActive(pos int) bool {
	return pos >= 0 && pos < len(s.active) && s.active[pos]
}

func (s *SlotTable) CountActive() int { return s.count }

// Pixel returns the fade state of pos, if active.
func (s *SlotTable) Pixel(pos int) (Pixel, bool) {
	if !s.IsActive(pos) {
		return Pixel{}, false
	}
	return s.pixels[pos], true
}

// Positions returns a copy of the selection table in activation order.
func (s *SlotTable) Positions() []int {
	out := make([]int, 0, s.count)
	for _, p := range s.order {
		if p != Unassigned {
			out = append(out, p)
		}
	}
	return out
}

// Activate lights pos with color c, holding it for debounce ticks before
// fading starts.
func (s *SlotTable) Activate(pos int, c Color, debounce int) error {
	if pos < 0 || pos >= len(s.active) {
		return fmt.Errorf("activate %d: %w", pos, ErrOutOfRange)
	}
	if s.active[pos] {
		return fmt.Errorf("activate %d: %w", pos, ErrAlreadyActive)
	}
	s.active[pos] = true
	s.pixels[pos] = Pixel{Color: c, Debounce: debounce}
	s.order = append(s.order, pos)
	s.count++
	return nil
}

// Deactivate clears pos. The position is selectable again immediately.
func (s *SlotTable) Deactivate(pos int) error {
	if !s.IsActive(pos) {
		return fmt.Errorf("deactivate %d: %w", pos, ErrInactive)
	}
	s.active[pos] = false
	s.pixels[pos] = Pixel{}
	s.count--
	for i, p := range s.order {
		if p == pos {
			s.order[i] = Unassigned
			break
		}
	}
	if !s.sweeping {
		s.compact()
	}
	return nil
}

// PickUnused draws uniformly from [0, N) until it hits an inactive position.
// Expected draws are N/(N-active); callers must not invoke it on a full table.
func (s *SlotTable) PickUnused(rng Source) (int, error) {
	n := len(s.active)
	if s.count >= n {
		return Unassigned, ErrTableFull
	}
	for {
		pos := int(rng.Uint32() % uint32(n))
		if !s.active[pos] {
			return pos, nil
		}
	}
}

// Advance fades every active pixel by one tick, in selection order, and
// reclaims the ones that reached black. It returns the number reclaimed.
func (s *SlotTable) Advance(rate uint8) int {
	s.sweeping = true
	reclaimed := 0
	for _, pos := range s.order {
		if pos == Unassigned {
			continue
		}
		if s.pixels[pos].Fade(rate) {
			must(s.Deactivate(pos))
			reclaimed++
		}
	}
	s.sweeping = false
	s.compact()
	return reclaimed
}

func (s *SlotTable) compact() {
	out := s.order[:0]
	for _, p := range s.order {
		if p != Unassigned {
			out = append(out, p)
		}
	}
	s.order = out
}
