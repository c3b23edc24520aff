package pin

import "sync"

// Mode is a pin configuration.
type Mode uint8

const (
	ModeInput Mode = iota
	ModeInputPullUp
	ModeInputPullDown
	ModeOutput
)

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeInputPullUp:
		return "input_pullup"
	case ModeInputPullDown:
		return "input_pulldown"
	case ModeOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Driver is the GPIO backend.
type Driver interface {
	SetMode(pin uint8, mode Mode)
	Read(pin uint8) bool
	Write(pin uint8, high bool)
	// WriteAnalog sets the PWM duty cycle in [0, 1].
	WriteAnalog(pin uint8, duty float32)
}

// SimDriver is an in-memory Driver. Inputs are driven with Set; outputs can
// be inspected with Level and Duty. It is safe for concurrent use so a host
// goroutine can feed inputs while the machine runs.
type SimDriver struct {
	modes  map[uint8]Mode
	levels map[uint8]bool
	duty   map[uint8]float32
	mu     sync.Mutex
}

// NewSimDriver creates a driver with every pin low.
func NewSimDriver() *SimDriver {
	return &SimDriver{
		modes:  make(map[uint8]Mode),
		levels: make(map[uint8]bool),
		duty:   make(map[uint8]float32),
	}
}

func (d *SimDriver) SetMode(pin uint8, mode Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes[pin] = mode
	if _, ok := d.levels[pin]; !ok && mode == ModeInputPullUp {
		d.levels[pin] = true
	}
}

func (d *SimDriver) Read(pin uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levels[pin]
}

func (d *SimDriver) Write(pin uint8, high bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[pin] = high
}

func (d *SimDriver) WriteAnalog(pin uint8, duty float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duty[pin] = duty
}

// Set drives an input pin.
func (d *SimDriver) Set(pin uint8, high bool) {
	d.Write(pin, high)
}

// Level returns the current level of pin.
func (d *SimDriver) Level(pin uint8) bool {
	return d.Read(pin)
}

// Duty returns the last analog duty written to pin.
func (d *SimDriver) Duty(pin uint8) float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duty[pin]
}

// Mode returns the configured mode of pin.
func (d *SimDriver) Mode(pin uint8) Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modes[pin]
}
