package resource

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/errors"
)

// MaxSlots is the number of slots addressable by a handle.
const MaxSlots = 1<<slotBits - 1

// Pool is a refcounted registry of boxed values addressed by generational
// handles. A slot's generation advances every time its value is destroyed,
// so handles from before a DecRef to zero or a Clear never resolve again.
type Pool struct {
	entries   []entry
	freeList  []int
	observers []Observer
	live      int
	mu        sync.Mutex
}

type entry struct {
	value    any
	refCount uint32
	gen      uint16
	valid    bool
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		entries:  make([]entry, 0, 64),
		freeList: make([]int, 0, 16),
	}
}

// Create boxes value with a reference count of one.
func (p *Pool) Create(value any) (Handle, error) {
	p.mu.Lock()
	var slot int
	if n := len(p.freeList); n > 0 {
		slot = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
	} else {
		if len(p.entries) >= MaxSlots {
			p.mu.Unlock()
			return 0, errors.AllocationFailed(errors.PhaseResource, len(p.entries)+1, MaxSlots)
		}
		p.entries = append(p.entries, entry{gen: 1})
		slot = len(p.entries) - 1
	}

	e := &p.entries[slot]
	e.value = value
	e.refCount = 1
	e.valid = true
	p.live++
	h := makeHandle(slot, e.gen)
	p.mu.Unlock()

	p.notify(Event{Type: EventCreated, Handle: h, Value: value})
	return h, nil
}

// lookup returns the live entry for h. Caller holds mu.
func (p *Pool) lookup(h Handle) *entry {
	slot := h.Slot()
	if slot < 0 || slot >= len(p.entries) {
		return nil
	}
	e := &p.entries[slot]
	if !e.valid || e.gen != h.Generation() {
		return nil
	}
	return e
}

// Get returns the value boxed by h.
func (p *Pool) Get(h Handle) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.lookup(h)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// Value returns the value boxed by h if it has type T.
func Value[T any](p *Pool, h Handle) (T, bool) {
	v, ok := p.Get(h)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// RefCount returns the current reference count of h.
func (p *Pool) RefCount(h Handle) (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.lookup(h)
	if e == nil {
		return 0, false
	}
	return e.refCount, true
}

// IncRef adds a reference to h.
func (p *Pool) IncRef(h Handle) error {
	p.mu.Lock()
	e := p.lookup(h)
	if e == nil {
		p.mu.Unlock()
		return p.misuse(h, "incRef of stale or invalid handle")
	}
	e.refCount++
	p.mu.Unlock()
	return nil
}

// DecRef drops a reference to h. The last reference destroys the value.
func (p *Pool) DecRef(h Handle) error {
	p.mu.Lock()
	e := p.lookup(h)
	if e == nil {
		p.mu.Unlock()
		return p.misuse(h, "decRef of stale or invalid handle")
	}
	e.refCount--
	if e.refCount > 0 {
		p.mu.Unlock()
		return nil
	}
	value := p.release(h.Slot())
	p.mu.Unlock()

	p.destroy(h, value)
	return nil
}

// release frees slot and returns its value. Caller holds mu.
func (p *Pool) release(slot int) any {
	e := &p.entries[slot]
	value := e.value
	e.value = nil
	e.refCount = 0
	e.valid = false
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	p.freeList = append(p.freeList, slot)
	p.live--
	return value
}

func (p *Pool) destroy(h Handle, value any) {
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	p.notify(Event{Type: EventDropped, Handle: h, Value: value})
}

func (p *Pool) misuse(h Handle, detail string) error {
	Logger().Warn("resource misuse", zap.Uint32("handle", uint32(h)), zap.String("detail", detail))
	return errors.ResourceMisuse(uint32(h), detail)
}

// Len returns the number of live values.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Live returns the handles of all live values in slot order.
func (p *Pool) Live() []Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Handle, 0, p.live)
	for i, e := range p.entries {
		if e.valid {
			out = append(out, makeHandle(i, e.gen))
		}
	}
	return out
}

// Clear destroys every live value regardless of its reference count and
// returns how many were destroyed.
func (p *Pool) Clear() int {
	type dropped struct {
		h     Handle
		value any
	}

	p.mu.Lock()
	var all []dropped
	for i := range p.entries {
		if e := &p.entries[i]; e.valid {
			h := makeHandle(i, e.gen)
			all = append(all, dropped{h: h, value: p.release(i)})
		}
	}
	p.mu.Unlock()

	for _, d := range all {
		p.destroy(d.h, d.value)
	}
	if len(all) > 0 {
		Logger().Debug("resource pool cleared", zap.Int("destroyed", len(all)))
	}
	return len(all)
}

// Reset clears the pool. It is invoked on every image load.
func (p *Pool) Reset() {
	p.Clear()
}

// Subscribe adds an observer for lifecycle events.
func (p *Pool) Subscribe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// Unsubscribe removes an observer.
func (p *Pool) Unsubscribe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, obs := range p.observers {
		if obs == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

func (p *Pool) notify(e Event) {
	p.mu.Lock()
	observers := append([]Observer(nil), p.observers...)
	p.mu.Unlock()
	for _, o := range observers {
		o.OnResourceEvent(e)
	}
}
