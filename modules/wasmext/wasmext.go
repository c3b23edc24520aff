// Package wasmext loads native functions from WebAssembly modules.
//
// Every export named native_<id> with id in 0..255 becomes the native
// function <id>. Parameters and results may be i32 or f32. Parameters are
// popped from the thread stack last first, so the call sees them in push
// order; results are pushed in order.
package wasmext

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
)

// ExportPrefix marks exports that are native functions.
const ExportPrefix = "native_"

// Config holds engine options.
type Config struct {
	// MemoryLimitPages caps guest memory in 64 KiB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
}

// Engine compiles and instantiates extension modules on one wazero runtime.
type Engine struct {
	runtime wazero.Runtime
}

// NewEngine creates an engine.
func NewEngine(ctx context.Context, cfg Config) *Engine {
	rc := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, rc)}
}

// Close releases the runtime and every extension instantiated on it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

type native struct {
	fn      api.Function
	export  string
	params  []api.ValueType
	results []api.ValueType
	id      int
}

// Extension is an instantiated module. It is a machine.Module registering
// its natives on Setup.
type Extension struct {
	ctx     context.Context
	mod     api.Module
	name    string
	natives []native
}

// Load compiles and instantiates wasm under name. ctx is used for the
// instantiation and every later call into the module.
func (e *Engine) Load(ctx context.Context, name string, wasm []byte) (*Extension, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Registration(name, "compile", err)
	}

	defs := compiled.ExportedFunctions()
	var natives []native
	for _, export := range slices.Sorted(maps.Keys(defs)) {
		id, ok := nativeID(export)
		if !ok {
			continue
		}
		def := defs[export]
		if err := checkTypes(def); err != nil {
			_ = compiled.Close(ctx)
			return nil, errors.Registration(name, export, err)
		}
		natives = append(natives, native{
			id:      id,
			export:  export,
			params:  def.ParamTypes(),
			results: def.ResultTypes(),
		})
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Registration(name, "instantiate", err)
	}
	for i := range natives {
		natives[i].fn = mod.ExportedFunction(natives[i].export)
	}

	machine.Logger().Info("wasm extension loaded", zap.String("name", name), zap.Int("natives", len(natives)))
	return &Extension{ctx: ctx, mod: mod, name: name, natives: natives}, nil
}

// nativeID parses an export name of the form native_<id>.
func nativeID(export string) (int, bool) {
	s, ok := strings.CutPrefix(export, ExportPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 || id >= machine.TableSize {
		return 0, false
	}
	return id, true
}

func checkTypes(def api.FunctionDefinition) error {
	for _, list := range [][]api.ValueType{def.ParamTypes(), def.ResultTypes()} {
		for _, vt := range list {
			if vt != api.ValueTypeI32 && vt != api.ValueTypeF32 {
				return errors.Unsupported(errors.PhaseHost,
					fmt.Sprintf("value type %s (only i32 and f32)", api.ValueTypeName(vt)))
			}
		}
	}
	return nil
}

func (x *Extension) Name() string { return x.name }

// IDs returns the native ids the extension provides, ascending.
func (x *Extension) IDs() []int {
	ids := make([]int, len(x.natives))
	for i, n := range x.natives {
		ids[i] = n.id
	}
	slices.Sort(ids)
	return ids
}

func (x *Extension) Setup(m *machine.Machine) error {
	for _, n := range x.natives {
		if err := m.Register(n.id, x.name+"."+n.export, x.call(n)); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the module instance.
func (x *Extension) Close(ctx context.Context) error {
	return x.mod.Close(ctx)
}

func (x *Extension) call(n native) machine.Native {
	return func(t *machine.Thread) machine.StepResult {
		args := make([]uint64, len(n.params))
		for i := len(n.params) - 1; i >= 0; i-- {
			if n.params[i] == api.ValueTypeF32 {
				args[i] = api.EncodeF32(t.PopFloat())
			} else {
				args[i] = api.EncodeU32(t.PopU32())
			}
		}
		if t.Failed() {
			return machine.Continue
		}

		results, err := n.fn.Call(x.ctx, args...)
		if err != nil {
			t.Fail(errors.Wrap(errors.PhaseDispatch, errors.KindInvalidInput, err,
				fmt.Sprintf("wasm %s.%s", x.name, n.export)))
			return machine.Continue
		}
		for i, r := range results {
			if n.results[i] == api.ValueTypeF32 {
				t.PushFloat(api.DecodeF32(r))
			} else {
				t.PushU32(api.DecodeU32(r))
			}
		}
		return machine.Continue
	}
}
