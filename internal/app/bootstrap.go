package app

import (
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-twinkle/internal/button"
	"github.com/coreman2200/funtimes-twinkle/internal/config"
	"github.com/coreman2200/funtimes-twinkle/internal/strip"
	"github.com/coreman2200/funtimes-twinkle/internal/twinkle"
	"github.com/coreman2200/funtimes-twinkle/internal/ws"
)

// Core is the assembled runtime: one engine, its strip and buttons, the
// runner that ticks them and the monitor hub.
type Core struct {
	Runner  *Runner
	Hub     *ws.Hub
	Virtual *button.Virtual
	Driver  string // the driver actually in use after fallbacks
	Seed    uint64

	closer io.Closer
}

func applyPower(s *strip.Strip, p config.PowerCfg) {
	if p.BudgetmA <= 0 && (p.WhiteCap <= 0 || p.WhiteCap >= 1) {
		return
	}
	l := strip.NewLimiter(p.BudgetmA)
	l.WhiteCap = p.WhiteCap
	s.SetLimiter(l)
}

// InitCore builds everything from cfg. Hardware that cannot be opened is
// replaced by a software stand-in and logged; only an invalid animation
// config is fatal.
func InitCore(cfg *config.Config, logger zerolog.Logger) (*Core, error) {
	// 1) Engine
	ecfg := cfg.Engine()
	seed := cfg.Animation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	eng, err := twinkle.New(ecfg, twinkle.NewSource(seed))
	if err != nil {
		return nil, err
	}
	n := ecfg.Length

	// 2) Strip
	drawer, closer, selected := openDriver(cfg, n, logger)
	out := strip.New(drawer, n)
	out.SetReversed(cfg.Reversed)
	applyPower(out, cfg.Power)

	// 3) Buttons: GPIO when available, always the virtual pair
	virtual := &button.Virtual{}
	var buttons twinkle.Buttons = virtual
	if ecfg.Adjustable {
		g, err := button.Open(cfg.Buttons.Left, cfg.Buttons.Right)
		if err != nil {
			logger.Warn().Err(err).
				Str("left", cfg.Buttons.Left).
				Str("right", cfg.Buttons.Right).
				Msg("GPIO buttons unavailable; monitor control only")
		} else {
			buttons = button.Merge(g, virtual)
		}
	}

	// 4) Runner & monitor
	r := NewRunner(eng, out, buttons, logger.With().Str("component", "runner").Logger())
	if cfg.TickMs > 0 {
		r.Tick = time.Duration(cfg.TickMs) * time.Millisecond
	}
	hub := ws.NewHub(ws.Hooks{
		PressLeft:  virtual.PressLeft,
		PressRight: virtual.PressRight,
		RunTest:    r.RunTest,
	}, logger.With().Str("component", "monitor").Logger())
	r.Monitor = hub

	logger.Info().
		Str("driver", selected).
		Int("length", n).
		Int("target", ecfg.DefaultTarget).
		Bool("adjustable", ecfg.Adjustable).
		Uint64("seed", seed).
		Msg("core ready")

	return &Core{Runner: r, Hub: hub, Virtual: virtual, Driver: selected, Seed: seed, closer: closer}, nil
}

// Close blanks the strip and releases the output port.
func (c *Core) Close() error {
	err := c.Runner.Strip.Halt()
	if c.closer != nil {
		err = errors.Join(err, c.closer.Close())
	}
	return err
}

// openDriver builds the drawer named by cfg.Driver, falling back to the
// console when the SPI port cannot be opened.
func openDriver(cfg *config.Config, n int, logger zerolog.Logger) (display.Drawer, io.Closer, string) {
	switch cfg.Driver {
	case "sim":
		return strip.NewSim(n), nil, "sim"

	case "console":
		return strip.NewConsole(n), nil, "console"

	case "spi":
		freq := strip.DefaultFreq
		if cfg.SPI.FreqKHz > 0 {
			freq = physic.Frequency(cfg.SPI.FreqKHz) * physic.KiloHertz
		}
		dev, port, err := strip.OpenSPI(cfg.SPI.Port, n, freq)
		if err != nil {
			logger.Warn().Err(err).
				Str("driver", "spi").
				Str("port", cfg.SPI.Port).
				Str("freq", freq.String()).
				Msg("SPI init failed; falling back to console")
			return strip.NewConsole(n), nil, "console"
		}
		return dev, port, "spi"

	default:
		logger.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using sim")
		return strip.NewSim(n), nil, "sim"
	}
}
