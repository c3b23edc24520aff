package machine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/image"
	"github.com/ruediste/micro-blocks/memory"
	"github.com/ruediste/micro-blocks/resource"
)

// FaultPolicy selects how thread faults are reported. Faults always stay
// local to the faulting thread.
type FaultPolicy uint8

const (
	FaultSilent FaultPolicy = iota // halt the thread, debug log only
	FaultReport                    // halt the thread, warn log and OnFault
)

func (p FaultPolicy) String() string {
	switch p {
	case FaultSilent:
		return "silent"
	case FaultReport:
		return "report"
	default:
		return fmt.Sprintf("FaultPolicy(%d)", uint8(p))
	}
}

// ParseFaultPolicy parses "silent" or "report".
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch s {
	case "", "silent":
		return FaultSilent, nil
	case "report":
		return FaultReport, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown fault policy %q", s))
	}
}

const (
	DefaultTimeSlice = 50 * time.Millisecond
	DefaultTick      = time.Millisecond
)

// Config configures a Machine. Zero fields take their defaults.
type Config struct {
	Clock       Clock
	Pool        *resource.Pool
	OnFault     func(thread uint16, err error)
	TimeSlice   time.Duration
	Tick        time.Duration
	MaxMemory   int
	FaultPolicy FaultPolicy
}

// Machine loads code images and runs their threads cooperatively.
// It is not safe for concurrent use; the host drives it from one goroutine.
type Machine struct {
	cfg        Config
	clock      Clock
	pool       *resource.Pool
	sched      *scheduler
	img        *image.Image
	mem        *memory.Arena
	current    *Thread
	modules    []Module
	resetters  []Resetter
	loopers    []Looper
	threads    []*Thread
	table      Table
	generation uint64
}

// New creates a machine with an empty dispatch table and no image.
func New(cfg Config) *Machine {
	if cfg.TimeSlice <= 0 {
		cfg.TimeSlice = DefaultTimeSlice
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Pool == nil {
		cfg.Pool = resource.NewPool()
	}
	m := &Machine{
		cfg:   cfg,
		clock: cfg.Clock,
		pool:  cfg.Pool,
	}
	m.sched = newScheduler(m)
	return m
}

// Register installs a native function under id, replacing any previous one.
func (m *Machine) Register(id int, name string, fn Native) error {
	return m.table.Register(id, name, fn)
}

// Table returns the dispatch table.
func (m *Machine) Table() *Table { return &m.table }

// Pool returns the resource pool.
func (m *Machine) Pool() *resource.Pool { return m.pool }

// Clock returns the machine clock.
func (m *Machine) Clock() Clock { return m.clock }

// Image returns the loaded image, or nil.
func (m *Machine) Image() *image.Image { return m.img }

// Memory returns the working memory of the loaded image, or nil.
func (m *Machine) Memory() *memory.Arena { return m.mem }

// Generation counts successful loads.
func (m *Machine) Generation() uint64 { return m.generation }

// Threads returns the threads of the loaded image.
func (m *Machine) Threads() []*Thread { return m.threads }

// Thread returns thread id, or nil.
func (m *Machine) Thread(id uint16) *Thread {
	if int(id) >= len(m.threads) {
		return nil
	}
	return m.threads[id]
}

// Load replaces the running image with data. The image is fully validated
// and memory allocated before anything is replaced, so a failed load leaves
// the previous image running. On success all pending waits and delays are
// discarded, modules are reset, remaining resources are destroyed, and every
// thread runs once in order.
func (m *Machine) Load(data []byte) error {
	im, err := image.Parse(data)
	if err != nil {
		return err
	}
	mem, err := memory.NewArena(int(im.Header.MemorySize), m.cfg.MaxMemory)
	if err != nil {
		return err
	}

	gen := m.generation + 1
	threads := make([]*Thread, len(im.Threads))
	for i, e := range im.Threads {
		base, limit := im.StackRegion(i)
		threads[i] = &Thread{
			m:     m,
			id:    uint16(i),
			pc:    uint32(e.CodeOffset),
			stack: memory.NewStack(mem, base, limit),
			gen:   gen,
		}
	}

	m.generation = gen
	m.img = im
	m.mem = mem
	m.threads = threads
	m.sched.reset()
	for _, r := range m.resetters {
		r.Reset()
	}
	m.pool.Clear()

	Logger().Info("image loaded",
		zap.Uint64("generation", gen),
		zap.Int("threads", len(threads)),
		zap.Uint16("memory", im.Header.MemorySize),
		zap.Int("size", im.Len()))

	for i := range threads {
		if m.generation != gen {
			break
		}
		m.RunThread(uint16(i))
	}
	return nil
}

// Reset discards the loaded image and all per-image state.
func (m *Machine) Reset() {
	m.generation++
	m.img = nil
	m.mem = nil
	m.threads = nil
	m.sched.reset()
	for _, r := range m.resetters {
		r.Reset()
	}
	m.pool.Clear()
	Logger().Info("machine reset")
}

// TriggerCallback marks thread id triggered. It resumes on a tick where it
// is also ready, whichever of the two happened first.
func (m *Machine) TriggerCallback(id uint16) {
	m.sched.trigger(id)
}

// Tick performs one scheduler round: due delays, module loops, callback
// pairs, then one yielded thread.
func (m *Machine) Tick(ctx context.Context) {
	if m.img == nil {
		return
	}
	gen := m.generation
	m.sched.pollDelays(gen)
	for _, l := range m.loopers {
		if m.generation != gen {
			return
		}
		l.Loop(ctx)
	}
	if m.generation != gen {
		return
	}
	m.sched.pollCallbacks(gen)
	if m.generation != gen {
		return
	}
	m.sched.pollYield()
}

// Run ticks at the configured interval until ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Tick)
	defer ticker.Stop()
	for {
		m.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Yielded returns the yield queue, oldest first.
func (m *Machine) Yielded() []uint16 {
	return append([]uint16(nil), m.sched.yielded...)
}

// Delayed returns the threads with pending delay entries in registration order.
func (m *Machine) Delayed() []uint16 {
	ids := make([]uint16, len(m.sched.delays))
	for i, e := range m.sched.delays {
		ids[i] = e.thread
	}
	return ids
}
