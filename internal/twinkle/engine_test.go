package twinkle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type canvas struct{ px []Color }

func newCanvas(n int) *canvas { return &canvas{px: make([]Color, n)} }

func (c *canvas) Clear() {
	for i := range c.px {
		c.px[i] = Color{}
	}
}

func (c *canvas) SetPixel(i int, r, g, b uint8) { c.px[i] = Color{r, g, b} }

type stubButtons struct {
	in  Input
	err error
}

func (b stubButtons) Read() (Input, error) { return b.in, b.err }

func newEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := New(cfg, NewSource(7))
	require.NoError(t, err)
	return e
}

func TestFirstTickLightsTarget(t *testing.T) {
	e := newEngine(t)

	res := e.Step(Input{})
	assert.False(t, res.Indicator)
	assert.Equal(t, 8, res.Spawned)

	pos := e.Slots().Positions()
	require.Len(t, pos, 8)
	seen := map[int]bool{}
	for i, p := range pos {
		assert.False(t, seen[p], "position %d lit twice", p)
		seen[p] = true
		assert.GreaterOrEqual(t, p, 0)
		assert.Less(t, p, 25)

		px, ok := e.Slots().Pixel(p)
		require.True(t, ok)
		assert.Equal(t, i*30, px.Debounce)
		assert.Less(t, px.R, uint8(150))
		assert.Less(t, px.G, uint8(150))
		assert.Less(t, px.B, uint8(150))
	}
}

func TestLeftHeldShowsCountBar(t *testing.T) {
	e := newEngine(t)
	c := newCanvas(25)

	for tick := 1; tick <= 30; tick++ {
		res := e.Step(Input{Left: true})
		require.True(t, res.Indicator, "tick %d", tick)
		assert.Equal(t, tick == 1, res.TargetChanged, "tick %d", tick)
		assert.Equal(t, 7, e.Target())
		assert.Equal(t, Cooldown, e.Controller().Mode())

		e.Render(c)
		for i, px := range c.px {
			if i < 7 {
				assert.Equal(t, Color{R: 150}, px, "tick %d pixel %d", tick, i)
			} else {
				assert.Equal(t, Color{}, px, "tick %d pixel %d", tick, i)
			}
		}
	}

	// cooldown expires: twinkle resumes on the same tick, count unchanged
	res := e.Step(Input{Left: true})
	assert.False(t, res.Indicator)
	assert.Equal(t, Idle, e.Controller().Mode())
	assert.Equal(t, 7, e.Target())
	assert.Equal(t, 7, e.Slots().CountActive())

	res = e.Step(Input{Left: true})
	assert.True(t, res.Indicator)
	assert.Equal(t, 6, e.Target())
}

func TestCooldownFreezesTwinkle(t *testing.T) {
	e := newEngine(t)
	e.Step(Input{})
	e.Step(Input{})

	frozen := map[int]Pixel{}
	for _, p := range e.Slots().Positions() {
		frozen[p], _ = e.Slots().Pixel(p)
	}

	require.True(t, e.Step(Input{Right: true}).Indicator)
	for i := 0; i < 28; i++ {
		res := e.Step(Input{Right: true})
		require.True(t, res.Indicator)
		assert.False(t, res.TargetChanged, "press during cooldown must be ignored")
	}
	assert.Equal(t, 9, e.Target())
	for p, px := range frozen {
		cur, ok := e.Slots().Pixel(p)
		require.True(t, ok)
		assert.Equal(t, px, cur)
	}
}

func TestBothOrNeitherPressedIsNoop(t *testing.T) {
	e := newEngine(t)
	for _, in := range []Input{{}, {Left: true, Right: true}} {
		res := e.Step(in)
		assert.False(t, res.Indicator)
		assert.Equal(t, 8, e.Target())
		assert.Equal(t, Idle, e.Controller().Mode())
	}
}

func TestTargetClamped(t *testing.T) {
	low := newEngine(t, func(c *Config) { c.DefaultTarget = 0; c.Cooldown = 1 })
	res := low.Step(Input{Left: true})
	assert.Equal(t, 0, low.Target())
	assert.False(t, res.TargetChanged)

	high := newEngine(t, func(c *Config) { c.DefaultTarget = 25; c.Cooldown = 1 })
	high.Step(Input{Right: true})
	assert.Equal(t, 25, high.Target())

	for i := 0; i < 500; i++ {
		high.Step(Input{})
		require.LessOrEqual(t, high.Slots().CountActive(), 25)
	}
	assert.Equal(t, 25, high.Slots().CountActive())
}

func TestReadErrorCountsAsNoPress(t *testing.T) {
	e := newEngine(t)
	fault := errors.New("gpio: read failed")

	res, err := e.Tick(stubButtons{in: Input{Left: true}, err: fault})
	assert.ErrorIs(t, err, fault)
	assert.False(t, res.Indicator)
	assert.Equal(t, 8, e.Target())
	assert.Equal(t, 8, e.Slots().CountActive())

	res, err = e.Tick(stubButtons{in: Input{Right: true}})
	assert.NoError(t, err)
	assert.True(t, res.Indicator)
	assert.Equal(t, 9, e.Target())
}

func TestPartialReadKeepsPresses(t *testing.T) {
	e := newEngine(t)
	fault := fmt.Errorf("%w: gpio: read failed", ErrPartialInput)

	res, err := e.Tick(stubButtons{in: Input{Left: true}, err: fault})
	assert.ErrorIs(t, err, ErrPartialInput)
	assert.True(t, res.Indicator)
	assert.Equal(t, 7, e.Target())
}

func TestFixedVariantIgnoresButtons(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Adjustable = false })
	for i := 0; i < 100; i++ {
		res := e.Step(Input{Left: true})
		require.False(t, res.Indicator)
	}
	assert.Equal(t, 8, e.Target())
	assert.Equal(t, 8, e.Slots().CountActive())
}

func TestRenderDrawsLitPixels(t *testing.T) {
	e := newEngine(t)
	e.Step(Input{})
	c := newCanvas(25)
	c.px[0] = Color{R: 99}
	e.Render(c)

	lit := 0
	for i, px := range c.px {
		want, ok := e.Slots().Pixel(i)
		if !ok {
			assert.Equal(t, Color{}, px, "pixel %d", i)
			continue
		}
		lit++
		assert.Equal(t, want.Color, px)
	}
	assert.Equal(t, 8, lit)
}

func TestConfigValidate(t *testing.T) {
	for name, m := range map[string]func(*Config){
		"length":      func(c *Config) { c.Length = 0 },
		"target":      func(c *Config) { c.DefaultTarget = 26 },
		"negative":    func(c *Config) { c.DefaultTarget = -1 },
		"cooldown":    func(c *Config) { c.Cooldown = -1 },
		"fade":        func(c *Config) { c.FadeRate = 0 },
		"channel max": func(c *Config) { c.ChannelMax = 300 },
	} {
		cfg := DefaultConfig()
		m(&cfg)
		_, err := New(cfg, nil)
		assert.Error(t, err, name)
	}
}

func TestEngineInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := DefaultConfig()
		cfg.Length = rapid.IntRange(1, 40).Draw(t, "length")
		cfg.DefaultTarget = rapid.IntRange(0, cfg.Length).Draw(t, "target")
		cfg.Cooldown = rapid.IntRange(0, 5).Draw(t, "cooldown")
		cfg.Stagger = rapid.IntRange(0, 3).Draw(t, "stagger")
		cfg.ChannelMax = rapid.IntRange(1, 12).Draw(t, "channelMax")
		e, err := New(cfg, NewSource(rapid.Uint64().Draw(t, "seed")))
		if err != nil {
			t.Fatalf("new: %v", err)
		}

		presses := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 300).Draw(t, "presses")
		for _, b := range presses {
			in := Input{Left: b&1 != 0, Right: b&2 != 0}
			prevMode := e.Controller().Mode()
			prevTarget := e.Target()
			prevCount := e.Slots().CountActive()
			prev := map[int]Pixel{}
			for _, p := range e.Slots().Positions() {
				prev[p], _ = e.Slots().Pixel(p)
			}

			res := e.Step(in)

			pos := e.Slots().Positions()
			if len(pos) != e.Slots().CountActive() || len(pos) > cfg.Length {
				t.Fatalf("capacity: %d positions, count %d, length %d", len(pos), e.Slots().CountActive(), cfg.Length)
			}
			seen := map[int]bool{}
			for _, p := range pos {
				if seen[p] {
					t.Fatalf("position %d lit twice", p)
				}
				seen[p] = true
			}
			if prevMode == Cooldown && e.Target() != prevTarget {
				t.Fatalf("target changed during cooldown: %d -> %d", prevTarget, e.Target())
			}
			if e.Target() < 0 || e.Target() > cfg.Length {
				t.Fatalf("target %d escaped [0,%d]", e.Target(), cfg.Length)
			}

			if res.Indicator {
				for p, px := range prev {
					if cur, ok := e.Slots().Pixel(p); !ok || cur != px {
						t.Fatalf("pixel %d advanced during cooldown", p)
					}
				}
				continue
			}

			n := e.Slots().CountActive()
			if n < e.Target() || n > max(prevCount, e.Target()) {
				t.Fatalf("count %d not reconciled (prev %d, target %d)", n, prevCount, e.Target())
			}
			for p, px := range prev {
				cur, ok := e.Slots().Pixel(p)
				if px.Debounce > 0 {
					if !ok || cur.Color != px.Color {
						t.Fatalf("pixel %d faded inside its stagger window", p)
					}
					continue
				}
				want := Color{floorSub(px.R, cfg.FadeRate), floorSub(px.G, cfg.FadeRate), floorSub(px.B, cfg.FadeRate)}
				if want.Black() {
					// reclaimed; the position may already host a new pixel
					continue
				}
				if !ok || cur.Color != want {
					t.Fatalf("pixel %d: want %+v, got %+v", p, want, cur.Color)
				}
			}
		}
	})
}

// recovered runs f and returns the panic value as an error, or nil.
func recovered(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				e = errors.New("non-error panic")
			}
			err = e
		}
	}()
	f()
	return nil
}

func TestMustPanicsWithInvariantError(t *testing.T) {
	assert.NotPanics(t, func() { must(nil) })

	s := NewSlotTable(4)
	require.NoError(t, s.Activate(2, Color{R: 1}, 0))
	err := recovered(func() { must(s.Activate(2, Color{G: 1}, 0)) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.ErrorIs(t, err, ErrAlreadyActive)

	_, full := NewSlotTable(0).PickUnused(NewSource(1))
	err = recovered(func() { must(full) })
	assert.ErrorIs(t, err, ErrTableFull)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestStepPanicsOnCorruptTable(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.DefaultTarget = 0 })

	// position 3 is listed as selected but was never activated
	e.slots.order = append(e.slots.order, 3)
	e.slots.pixels[3] = Pixel{Color: Color{R: 1}}

	err := recovered(func() { e.Step(Input{}) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInactive)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestReplenishNeverHitsFullTable(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Length = 4; c.DefaultTarget = 3; c.Cooldown = 1 })
	for pos := 0; pos < 4; pos++ {
		require.NoError(t, e.Slots().Activate(pos, Color{R: 9}, 1000))
	}

	// a full table with a raised target has a negative deficit: nothing to pick
	e.Step(Input{Right: true})
	assert.Equal(t, 4, e.Target())
	assert.NotPanics(t, func() {
		for i := 0; i < 10; i++ {
			e.Step(Input{})
		}
	})
	assert.Equal(t, 4, e.Slots().CountActive())
}
