package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-twinkle/internal/twinkle"
)

type Animation struct {
	Length        int    `yaml:"length"`
	DefaultTarget int    `yaml:"default_target"`
	CooldownTicks int    `yaml:"cooldown_ticks"`
	StaggerTicks  int    `yaml:"stagger_ticks"`
	FadeRate      int    `yaml:"fade_rate"`
	ChannelMax    int    `yaml:"channel_max"`
	Adjustable    bool   `yaml:"adjustable"`
	Seed          uint64 `yaml:"seed,omitempty"` // 0 picks a time-based seed
}

type Buttons struct {
	Left  string `yaml:"left"`  // e.g. GPIO17
	Right string `yaml:"right"` // e.g. GPIO27
}

type SPI struct {
	Port    string `yaml:"port"`     // spireg name; "" picks the first
	FreqKHz int    `yaml:"freq_khz"` // e.g. 2500
}

type PowerCfg struct {
	BudgetmA float64 `yaml:"budget_ma"`
	WhiteCap float64 `yaml:"white_cap"`
}

type Config struct {
	Driver   string `yaml:"driver"` // "spi" | "console" | "sim"
	TickMs   int    `yaml:"tick_ms"`
	Addr     string `yaml:"addr,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
	Reversed bool   `yaml:"reversed,omitempty"` // position 0 is the far end

	Animation Animation `yaml:"animation"`
	Buttons   Buttons   `yaml:"buttons"`
	SPI       SPI       `yaml:"spi,omitempty"`
	Power     PowerCfg  `yaml:"power"`
}

// Default mirrors the reference hardware: 25 pixels, 8 lit, 10ms tick.
func Default() *Config {
	return &Config{
		Driver: "spi",
		TickMs: 10,
		Animation: Animation{
			Length:        twinkle.DefaultLength,
			DefaultTarget: twinkle.DefaultTarget,
			CooldownTicks: twinkle.DefaultCooldown,
			StaggerTicks:  twinkle.DefaultStagger,
			FadeRate:      twinkle.DefaultFadeRate,
			ChannelMax:    twinkle.DefaultChannelMax,
			Adjustable:    true,
		},
		Buttons: Buttons{Left: "GPIO17", Right: "GPIO27"},
		SPI:     SPI{FreqKHz: 2500},
		Power:   PowerCfg{BudgetmA: 2000, WhiteCap: 1},
	}
}

// Load reads path over Default, so a partial file only overrides what it sets.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Engine converts the animation section into an engine config.
func (c *Config) Engine() twinkle.Config {
	e := twinkle.DefaultConfig()
	a := c.Animation
	e.Length = a.Length
	e.DefaultTarget = a.DefaultTarget
	e.Cooldown = a.CooldownTicks
	e.Stagger = a.StaggerTicks
	if a.FadeRate > 0 && a.FadeRate < 256 {
		e.FadeRate = uint8(a.FadeRate)
	} else {
		e.FadeRate = 0
	}
	e.ChannelMax = a.ChannelMax
	e.Indicator = twinkle.Color{R: uint8(min(a.ChannelMax, 255))}
	e.Adjustable = a.Adjustable
	return e
}
