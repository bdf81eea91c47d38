package twinkle

// Color is a simple integer RGB triple. No gamma or color-space handling.
type Color struct{ R, G, B uint8 }

// Black reports whether every channel is zero.
func (c Color) Black() bool { return c.R == 0 && c.G == 0 && c.B == 0 }

// Pixel is the fade state owned by an active strip position.
type Pixel struct {
	Color
	// Debounce holds the pixel at full brightness until it counts down to 0.
	Debounce int
}

// Fade advances the pixel by one tick and reports whether it has fully
// decayed. A pixel still inside its stagger window never reports decay.
func (p *Pixel) Fade(rate uint8) bool {
	if p.Debounce > 0 {
		p.Debounce--
		return false
	}
	p.R = floorSub(p.R, rate)
	p.G = floorSub(p.G, rate)
	p.B = floorSub(p.B, rate)
	return p.Black()
}

func floorSub(v, d uint8) uint8 {
	if v <= d {
		return 0
	}
	return v - d
}
