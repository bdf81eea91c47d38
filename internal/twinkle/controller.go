package twinkle

import "errors"

// Mode is the state of the target-count controller.
type Mode int

const (
	Idle Mode = iota
	Cooldown
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Input is one tick's resolved button state; true means pressed.
type Input struct{ Left, Right bool }

// Buttons reads the two count buttons.
type Buttons interface {
	Read() (Input, error)
}

// ErrPartialInput is wrapped by a Read that failed for some of its sources
// but still returned a usable Input from the rest.
var ErrPartialInput = errors.New("twinkle: partial button read")

// Controller debounces the count buttons and owns the target count.
//
//	Idle     --(exactly one pressed)--> Cooldown (counter = cooldown)
//	Cooldown --(counter > 0 after dec)--> Cooldown
//	Cooldown --(counter hits 0)--> Idle, twinkle resumes on the same tick
type Controller struct {
	target    int
	max       int
	cooldown  int
	remaining int
}

func NewController(target, max, cooldown int) *Controller {
	c := &Controller{max: max, cooldown: cooldown}
	c.SetTarget(target)
	return c
}

func (c *Controller) Target() int    { return c.target }
func (c *Controller) Remaining() int { return c.remaining }

func (c *Controller) Mode() Mode {
	if c.remaining > 0 {
		return Cooldown
	}
	return Idle
}

// SetTarget clamps n into [0, max].
func (c *Controller) SetTarget(n int) {
	if n < 0 {
		n = 0
	}
	if n > c.max {
		n = c.max
	}
	c.target = n
}

// Update evaluates one tick and reports whether the count indicator owns
// the strip this tick.
func (c *Controller) Update(in Input) bool {
	if c.remaining > 0 {
		c.remaining--
		return c.remaining > 0
	}
	if in.Left == in.Right {
		return false
	}
	if in.Left {
		c.SetTarget(c.target - 1)
	} else {
		c.SetTarget(c.target + 1)
	}
	c.remaining = c.cooldown
	return c.remaining > 0
}
