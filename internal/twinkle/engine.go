package twinkle

import "errors"

// Canvas is the pixel buffer the engine draws into. It is flushed by the
// caller after each step.
type Canvas interface {
	Clear()
	SetPixel(i int, r, g, b uint8)
}

// Result describes what a single Step did.
type Result struct {
	Tick          uint64
	Indicator     bool
	TargetChanged bool
	Reclaimed     int
	Spawned       int
}

// Snapshot is a copy of the engine state safe to hand to other goroutines.
type Snapshot struct {
	Tick      uint64 `json:"tick"`
	Length    int    `json:"length"`
	Active    int    `json:"active"`
	Target    int    `json:"target"`
	Mode      string `json:"mode"`
	Remaining int    `json:"remaining"`
}

// Engine is the twinkle animation. It is not safe for concurrent use; one
// goroutine owns it and calls Step once per tick.
type Engine struct {
	cfg       Config
	rng       Source
	slots     *SlotTable
	ctl       *Controller
	tick      uint64
	indicator bool
}

func New(cfg Config, rng Source) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewSource(0)
	}
	return &Engine{
		cfg:   cfg,
		rng:   rng,
		slots: NewSlotTable(cfg.Length),
		ctl:   NewController(cfg.DefaultTarget, cfg.Length, cfg.Cooldown),
	}, nil
}

func (e *Engine) Config() Config          { return e.cfg }
func (e *Engine) Slots() *SlotTable       { return e.slots }
func (e *Engine) Controller() *Controller { return e.ctl }
func (e *Engine) Target() int             { return e.ctl.Target() }

// Tick reads b and steps once. A read failure counts as no press unless it
// wraps ErrPartialInput; the error is returned for the caller to report and
// the step still happens.
func (e *Engine) Tick(b Buttons) (Result, error) {
	var in Input
	var rerr error
	if b != nil {
		in, rerr = b.Read()
		if rerr != nil && !errors.Is(rerr, ErrPartialInput) {
			in = Input{}
		}
	}
	return e.Step(in), rerr
}

// Step runs one animation tick. While the controller is cooling down the
// twinkle pixels are frozen and the count indicator is shown instead.
func (e *Engine) Step(in Input) Result {
	e.tick++
	res := Result{Tick: e.tick}

	if e.cfg.Adjustable {
		before := e.ctl.Target()
		e.indicator = e.ctl.Update(in)
		res.TargetChanged = e.ctl.Target() != before
	}
	res.Indicator = e.indicator
	if e.indicator {
		return res
	}

	res.Reclaimed = e.slots.Advance(e.cfg.FadeRate)
	res.Spawned = e.replenish()
	return res
}

func (e *Engine) replenish() int {
	deficit := e.ctl.Target() - e.slots.CountActive()
	for i := 0; i < deficit; i++ {
		pos, err := e.slots.PickUnused(e.rng)
		must(err)
		must(e.slots.Activate(pos, RandomColor(e.rng, e.cfg.ChannelMax), i*e.cfg.Stagger))
	}
	if deficit < 0 {
		return 0
	}
	return deficit
}

// Render draws the current frame: the count bar during cooldown, the lit
// twinkle pixels otherwise.
func (e *Engine) Render(dst Canvas) {
	dst.Clear()
	if e.indicator {
		c := e.cfg.Indicator
		for i := 0; i < e.ctl.Target(); i++ {
			dst.SetPixel(i, c.R, c.G, c.B)
		}
		return
	}
	for _, pos := range e.slots.order {
		p := e.slots.pixels[pos]
		dst.SetPixel(pos, p.R, p.G, p.B)
	}
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Tick:      e.tick,
		Length:    e.cfg.Length,
		Active:    e.slots.CountActive(),
		Target:    e.ctl.Target(),
		Mode:      e.ctl.Mode().String(),
		Remaining: e.ctl.Remaining(),
	}
}

// must turns a broken slot table contract into a panic.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
