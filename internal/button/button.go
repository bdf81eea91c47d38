// Package button resolves the two count buttons into twinkle.Input.
package button

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/coreman2200/funtimes-twinkle/internal/twinkle"
)

var ErrNoPin = errors.New("button: pin not available")

// GPIO reads two active-low momentary buttons wired to pull-up inputs.
type GPIO struct {
	Left, Right gpio.PinIn
}

// Open looks both pins up by name and configures them as pull-up inputs.
func Open(left, right string) (*GPIO, error) {
	l := gpioreg.ByName(left)
	if l == nil {
		return nil, fmt.Errorf("left %q: %w", left, ErrNoPin)
	}
	r := gpioreg.ByName(right)
	if r == nil {
		return nil, fmt.Errorf("right %q: %w", right, ErrNoPin)
	}
	g := &GPIO{Left: l, Right: r}
	if err := g.configure(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GPIO) configure() error {
	if err := g.Left.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("left %s: %w", g.Left, err)
	}
	if err := g.Right.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("right %s: %w", g.Right, err)
	}
	return nil
}

// Read reports pressed for each pin pulled low.
func (g *GPIO) Read() (twinkle.Input, error) {
	if g == nil || g.Left == nil || g.Right == nil {
		return twinkle.Input{}, ErrNoPin
	}
	return twinkle.Input{
		Left:  g.Left.Read() == gpio.Low,
		Right: g.Right.Read() == gpio.Low,
	}, nil
}

// Virtual latches presses coming from outside the tick goroutine (the
// monitor control socket). Each press is seen by exactly one Read.
type Virtual struct {
	mu      sync.Mutex
	pending twinkle.Input
}

func (v *Virtual) PressLeft() {
	v.mu.Lock()
	v.pending.Left = true
	v.mu.Unlock()
}

func (v *Virtual) PressRight() {
	v.mu.Lock()
	v.pending.Right = true
	v.mu.Unlock()
}

func (v *Virtual) Read() (twinkle.Input, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	in := v.pending
	v.pending = twinkle.Input{}
	return in, nil
}

// Merge ORs several sources. A failing source contributes nothing. When some
// sources read cleanly the first error is returned wrapped in
// twinkle.ErrPartialInput so their presses still count.
func Merge(srcs ...twinkle.Buttons) twinkle.Buttons {
	return merged(srcs)
}

type merged []twinkle.Buttons

func (m merged) Read() (twinkle.Input, error) {
	var out twinkle.Input
	var first error
	ok := 0
	for _, s := range m {
		if s == nil {
			continue
		}
		in, err := s.Read()
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		ok++
		out.Left = out.Left || in.Left
		out.Right = out.Right || in.Right
	}
	if first != nil && ok > 0 {
		return out, fmt.Errorf("%w: %w", twinkle.ErrPartialInput, first)
	}
	return out, first
}
