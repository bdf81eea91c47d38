package strip

import (
	"periph.io/x/conn/v3/display"
	"periph.io/x/extra/devices/screen"
)

// NewConsole returns a drawer that paints the strip as ANSI blocks on the
// terminal, for running without hardware.
func NewConsole(n int) display.Drawer {
	return screen.New(n)
}
