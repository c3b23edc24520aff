package machine

import (
	"context"

	"github.com/ruediste/micro-blocks/errors"
)

// Module contributes native functions to a machine.
type Module interface {
	Name() string
	Setup(m *Machine) error
}

// Resetter is implemented by modules with per-image state. Reset runs on
// every image load before any thread executes.
type Resetter interface {
	Reset()
}

// Looper is implemented by modules that poll readiness sources. Loop runs
// once per tick and may resume threads through Machine.RunThread.
type Looper interface {
	Loop(ctx context.Context)
}

// Use sets up modules in order. Setup errors abort at the failing module.
func (m *Machine) Use(mods ...Module) error {
	for _, mod := range mods {
		if err := mod.Setup(m); err != nil {
			return errors.Registration(mod.Name(), "setup", err)
		}
		m.modules = append(m.modules, mod)
		if r, ok := mod.(Resetter); ok {
			m.resetters = append(m.resetters, r)
		}
		if l, ok := mod.(Looper); ok {
			m.loopers = append(m.loopers, l)
		}
	}
	return nil
}

// Modules returns the modules installed with Use.
func (m *Machine) Modules() []Module {
	return m.modules
}
