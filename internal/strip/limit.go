package strip

import (
	"image"
	"math"
)

// Limiter keeps a frame inside a power envelope before it reaches the LEDs.
// Two stages:
//  1. Per-LED white cap: scales (R,G,B) so R+G+B <= WhiteCap*3*255.
//  2. Global budget: estimates the strip current and scales the whole frame
//     to stay under BudgetmA, easing in above Knee*BudgetmA.
//
// Zero fields disable the matching stage.
type Limiter struct {
	WhiteCap float64 // fraction of full white, (0,1]
	ChanmA   float64 // mA per channel at 255; WS2812 is about 20
	BudgetmA float64
	Knee     float64 // fraction of budget where soft limiting begins
}

func NewLimiter(budgetmA float64) *Limiter {
	return &Limiter{WhiteCap: 1, ChanmA: 20, BudgetmA: budgetmA, Knee: 0.9}
}

// Current estimates the draw of img in mA.
func (l *Limiter) Current(img *image.NRGBA) float64 {
	chanmA := l.ChanmA
	if chanmA <= 0 {
		chanmA = 20
	}
	var sum float64
	for i := 0; i+3 < len(img.Pix); i += 4 {
		sum += float64(img.Pix[i]) + float64(img.Pix[i+1]) + float64(img.Pix[i+2])
	}
	return sum / 255.0 * chanmA
}

func (l *Limiter) Apply(img *image.NRGBA) {
	if l.WhiteCap > 0 && l.WhiteCap < 1 {
		limit := l.WhiteCap * 3 * 255
		for i := 0; i+3 < len(img.Pix); i += 4 {
			s := float64(img.Pix[i]) + float64(img.Pix[i+1]) + float64(img.Pix[i+2])
			if s > limit {
				scalePixel(img.Pix[i:i+3], limit/s)
			}
		}
	}

	if l.BudgetmA <= 0 {
		return
	}
	total := l.Current(img)
	if total <= 0 {
		return
	}
	knee := l.Knee
	if knee <= 0 || knee >= 1 {
		knee = 0.9
	}
	ratio := total / l.BudgetmA
	switch {
	case ratio <= knee:
		return
	case ratio <= 1:
		// map ratio in [knee,1] to scale in [1, budget/total]
		minS := l.BudgetmA / total
		t := (ratio - knee) / (1 - knee)
		scaleFrame(img, 1-t*(1-minS))
	default:
		scaleFrame(img, l.BudgetmA/total)
	}
}

func scaleFrame(img *image.NRGBA, s float64) {
	if s >= 1 {
		return
	}
	for i := 0; i+3 < len(img.Pix); i += 4 {
		scalePixel(img.Pix[i:i+3], s)
	}
}

func scalePixel(px []uint8, s float64) {
	for c := range px {
		px[c] = uint8(math.Floor(float64(px[c]) * s))
	}
}
