package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-twinkle/internal/twinkle"
)

func TestDefaultMatchesEngineDefaults(t *testing.T) {
	e := Default().Engine()
	assert.Equal(t, twinkle.DefaultConfig(), e)
	assert.NoError(t, e.Validate())
}

func TestLoadPartialOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: console
animation:
  default_target: 3
  adjustable: false
buttons:
  left: GPIO5
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "console", c.Driver)
	assert.Equal(t, 10, c.TickMs)
	assert.Equal(t, 25, c.Animation.Length)
	assert.Equal(t, 3, c.Animation.DefaultTarget)
	assert.Equal(t, "GPIO5", c.Buttons.Left)
	assert.Equal(t, "GPIO27", c.Buttons.Right)

	e := c.Engine()
	assert.False(t, e.Adjustable)
	assert.Equal(t, 3, e.DefaultTarget)
}

func TestEngineRejectsBadFadeRate(t *testing.T) {
	c := Default()
	c.Animation.FadeRate = 300
	assert.Error(t, c.Engine().Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("animation: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Animation.Seed = 99
	c.Power.BudgetmA = 500
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
