package resource

import (
	stderrors "errors"
	"testing"

	"github.com/ruediste/micro-blocks/errors"
)

type dropCounter struct {
	drops *int
}

func (d dropCounter) Drop() { *d.drops++ }

func TestPool_Basic(t *testing.T) {
	p := NewPool()

	h, err := p.Create("test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := p.Get(h)
	if !ok || val != "test value" {
		t.Fatalf("Get = %v, %v", val, ok)
	}
	if s, ok := Value[string](p, h); !ok || s != "test value" {
		t.Fatalf("Value[string] = %q, %v", s, ok)
	}
	if _, ok := Value[int](p, h); ok {
		t.Fatal("Value[int] should fail for a string")
	}
	if rc, _ := p.RefCount(h); rc != 1 {
		t.Fatalf("Expected refcount 1, got %d", rc)
	}
}

func TestPool_RefCounting(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		drops := 0
		p := NewPool()
		h, _ := p.Create(dropCounter{&drops})

		for i := 0; i < n; i++ {
			if err := p.IncRef(h); err != nil {
				t.Fatalf("IncRef: %v", err)
			}
		}
		if rc, _ := p.RefCount(h); rc != uint32(n+1) {
			t.Fatalf("n=%d: refcount %d", n, rc)
		}

		for i := 0; i < n; i++ {
			if err := p.DecRef(h); err != nil {
				t.Fatalf("DecRef: %v", err)
			}
			if drops != 0 {
				t.Fatalf("n=%d: destroyed after %d decRefs", n, i+1)
			}
		}
		if err := p.DecRef(h); err != nil {
			t.Fatalf("final DecRef: %v", err)
		}
		if drops != 1 {
			t.Fatalf("n=%d: dropped %d times", n, drops)
		}
		if _, ok := p.Get(h); ok {
			t.Fatal("handle still reachable after destruction")
		}
		if p.Len() != 0 || len(p.Live()) != 0 {
			t.Fatal("live set not empty")
		}

		// One more decRef is misuse, not a second destruction.
		if err := p.DecRef(h); !stderrors.Is(err, errors.ErrResourceMisuse) {
			t.Fatalf("expected misuse, got %v", err)
		}
		if drops != 1 {
			t.Fatal("destroyed twice")
		}
	}
}

func TestPool_StaleHandle(t *testing.T) {
	p := NewPool()
	h1, _ := p.Create("a")
	p.DecRef(h1)

	h2, _ := p.Create("b")
	if h2.Slot() != h1.Slot() {
		t.Fatalf("expected slot reuse, got %d and %d", h1.Slot(), h2.Slot())
	}
	if h2 == h1 {
		t.Fatal("reused slot returned identical handle")
	}
	if _, ok := p.Get(h1); ok {
		t.Fatal("stale handle resolved")
	}
	if err := p.IncRef(h1); !stderrors.Is(err, errors.ErrResourceMisuse) {
		t.Fatalf("expected misuse, got %v", err)
	}
	if v, _ := p.Get(h2); v != "b" {
		t.Fatalf("Get(h2) = %v", v)
	}
}

func TestPool_InvalidHandles(t *testing.T) {
	p := NewPool()
	for _, h := range []Handle{0, 0x00010005, 0xffffffff} {
		if _, ok := p.Get(h); ok {
			t.Errorf("Get(%#x) succeeded", h)
		}
		if err := p.DecRef(h); err == nil {
			t.Errorf("DecRef(%#x) succeeded", h)
		}
	}
}

func TestPool_Clear(t *testing.T) {
	drops := 0
	p := NewPool()
	a, _ := p.Create(dropCounter{&drops})
	b, _ := p.Create(dropCounter{&drops})
	p.IncRef(a)
	p.IncRef(a)
	p.IncRef(b)

	if n := p.Clear(); n != 2 {
		t.Fatalf("Clear destroyed %d", n)
	}
	if drops != 2 {
		t.Fatalf("dropped %d", drops)
	}
	if p.Len() != 0 {
		t.Fatalf("Len = %d", p.Len())
	}
	for _, h := range []Handle{a, b} {
		if _, ok := p.Get(h); ok {
			t.Errorf("handle %#x survived Clear", h)
		}
	}

	c, _ := p.Create("c")
	if c == a || c == b {
		t.Fatal("handle reissued after Clear")
	}
}

func TestPool_Observers(t *testing.T) {
	p := NewPool()
	var events []Event
	obs := ObserverFunc(func(e Event) { events = append(events, e) })
	p.Subscribe(&obs)

	h, _ := p.Create("x")
	p.DecRef(h)

	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Type != EventCreated || events[1].Type != EventDropped {
		t.Errorf("events = %v", events)
	}
	if events[1].Handle != h || events[1].Value != "x" {
		t.Errorf("drop event = %+v", events[1])
	}

	p.Unsubscribe(&obs)
	p.Create("y")
	if len(events) != 2 {
		t.Error("observer notified after Unsubscribe")
	}
}

func TestHandle_Encoding(t *testing.T) {
	h := makeHandle(4, 3)
	if uint32(h) != 0x00030005 {
		t.Fatalf("handle = %#x", uint32(h))
	}
	if h.Slot() != 4 || h.Generation() != 3 {
		t.Errorf("slot %d gen %d", h.Slot(), h.Generation())
	}
	if Handle(0).Slot() != -1 {
		t.Error("zero handle has a slot")
	}
}
