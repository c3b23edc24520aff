package machine

import (
	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/errors"
)

// TableSize is the number of native function ids.
const TableSize = 256

// Native is a host-implemented function invoked by a call instruction. It
// pops its own operands from t and pushes its own results.
type Native func(t *Thread) StepResult

// Table maps native function ids to their implementations.
type Table struct {
	fns   [TableSize]Native
	names [TableSize]string
}

// Register installs fn under id, replacing any previous registration.
func (tb *Table) Register(id int, name string, fn Native) error {
	if id < 0 || id >= TableSize {
		return errors.Registration("table", name,
			errors.OutOfBounds(errors.PhaseHost, []string{"id"}, id, TableSize))
	}
	if fn == nil {
		return errors.Registration("table", name, errors.InvalidInput(errors.PhaseHost, "nil function"))
	}
	if prev := tb.names[id]; tb.fns[id] != nil {
		Logger().Debug("native function replaced",
			zap.Int("function", id), zap.String("previous", prev), zap.String("name", name))
	}
	tb.fns[id] = fn
	tb.names[id] = name
	return nil
}

// Lookup returns the function registered under id.
func (tb *Table) Lookup(id int32) (Native, bool) {
	if id < 0 || id >= TableSize {
		return nil, false
	}
	fn := tb.fns[id]
	return fn, fn != nil
}

// Name returns the registered name of id, or "" if unregistered.
func (tb *Table) Name(id int) string {
	if id < 0 || id >= TableSize {
		return ""
	}
	return tb.names[id]
}

// Registered returns all registered ids in ascending order.
func (tb *Table) Registered() []int {
	var ids []int
	for id, fn := range tb.fns {
		if fn != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Entry describes one native function for RegisterAll.
type Entry struct {
	Fn   Native
	Name string
	ID   int
}

// RegisterAll registers every entry, stopping at the first error.
func (m *Machine) RegisterAll(entries ...Entry) error {
	for _, e := range entries {
		if err := m.table.Register(e.ID, e.Name, e.Fn); err != nil {
			return err
		}
	}
	return nil
}
