// Package selftest drives fixed patterns across the strip to check wiring
// and color order before (or instead of) the animation.
package selftest

import "github.com/coreman2200/funtimes-twinkle/internal/twinkle"

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep"
	RGBTest    Kind = "rgb_channels"
)

// Parse maps a name from the control socket or the command line to a Kind.
func Parse(name string) (Kind, bool) {
	switch Kind(name) {
	case IndexSweep, RGBTest:
		return Kind(name), true
	}
	return None, false
}

type Plan struct {
	Kind Kind
	// Hold is how many ticks each step stays on the strip.
	Hold  int
	Level uint8
}

type Runner struct {
	plan Plan
	step int
	held int
}

func NewRunner(plan Plan) *Runner {
	if plan.Hold <= 0 {
		plan.Hold = 1
	}
	if plan.Level == 0 {
		plan.Level = 150
	}
	return &Runner{plan: plan}
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Step draws the current pattern step into dst; returns false when complete.
func (r *Runner) Step(n int, dst twinkle.Canvas) bool {
	dst.Clear()
	v := r.plan.Level

	switch r.plan.Kind {
	case IndexSweep:
		if r.step >= n {
			return false
		}
		dst.SetPixel(r.step, v, v, v)
	case RGBTest:
		if r.step >= 3 {
			return false
		}
		for i := 0; i < n; i++ {
			switch r.step {
			case 0:
				dst.SetPixel(i, v, 0, 0)
			case 1:
				dst.SetPixel(i, 0, v, 0)
			case 2:
				dst.SetPixel(i, 0, 0, v)
			}
		}
	default:
		return false
	}

	r.held++
	if r.held >= r.plan.Hold {
		r.held = 0
		r.step++
	}
	return true
}
