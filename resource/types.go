package resource

// Handle is an opaque reference to a pooled value. The high 16 bits hold the
// slot generation, the low 16 bits hold slot+1. Handle 0 is always invalid.
type Handle uint32

const slotBits = 16

func makeHandle(slot int, gen uint16) Handle {
	return Handle(uint32(gen)<<slotBits | uint32(slot+1))
}

// Slot returns the slot index encoded in h, or -1 for the zero handle.
func (h Handle) Slot() int {
	return int(uint32(h)&(1<<slotBits-1)) - 1
}

// Generation returns the slot generation encoded in h.
func (h Handle) Generation() uint16 {
	return uint16(uint32(h) >> slotBits)
}

// EventType identifies a resource lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup when their
// last reference goes away or the pool is cleared.
type Dropper interface {
	Drop()
}
