package twinkle

import "fmt"

const (
	DefaultLength     = 25
	DefaultTarget     = 8
	DefaultCooldown   = 30
	DefaultStagger    = 30
	DefaultFadeRate   = 1
	DefaultChannelMax = 150
)

// Config holds the engine constants. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	Length        int
	DefaultTarget int
	Cooldown      int
	Stagger       int
	FadeRate      uint8
	ChannelMax    int
	Indicator     Color

	// Adjustable enables the two count buttons. When false the engine runs
	// the fixed-count program and ignores input.
	Adjustable bool
}

func DefaultConfig() Config {
	return Config{
		Length:        DefaultLength,
		DefaultTarget: DefaultTarget,
		Cooldown:      DefaultCooldown,
		Stagger:       DefaultStagger,
		FadeRate:      DefaultFadeRate,
		ChannelMax:    DefaultChannelMax,
		Indicator:     Color{R: DefaultChannelMax},
		Adjustable:    true,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Length <= 0:
		return fmt.Errorf("invalid strip length: %d", c.Length)
	case c.DefaultTarget < 0 || c.DefaultTarget > c.Length:
		return fmt.Errorf("default target %d outside [0,%d]", c.DefaultTarget, c.Length)
	case c.Cooldown < 0:
		return fmt.Errorf("invalid cooldown: %d", c.Cooldown)
	case c.Stagger < 0:
		return fmt.Errorf("invalid stagger: %d", c.Stagger)
	case c.FadeRate == 0:
		return fmt.Errorf("fade rate must be positive")
	case c.ChannelMax < 1 || c.ChannelMax > 256:
		return fmt.Errorf("channel max %d outside [1,256]", c.ChannelMax)
	}
	return nil
}
