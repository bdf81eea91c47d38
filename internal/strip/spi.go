package strip

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
)

// DefaultFreq is the SPI clock for an 800kHz WS281x strip encoded 3 bits
// per data bit.
const DefaultFreq = (800*3 + 100) * physic.KiloHertz

// NewSPI wraps an already opened port in an nrzled encoder for n RGB pixels.
func NewSPI(p spi.Port, n int, freq physic.Frequency) (*nrzled.Dev, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", n)
	}
	if freq <= 0 {
		freq = DefaultFreq
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: n, Channels: 3, Freq: freq})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return d, nil
}

// OpenSPI opens the named port ("" picks the first one registered) and
// returns the encoder plus the port so the caller can close it.
func OpenSPI(name string, n int, freq physic.Frequency) (*nrzled.Dev, spi.PortCloser, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	d, err := NewSPI(p, n, freq)
	if err != nil {
		_ = p.Close()
		return nil, nil, err
	}
	return d, p, nil
}
