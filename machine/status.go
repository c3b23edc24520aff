package machine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("machine: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Status is a point-in-time view of the machine for hosts and tooling.
type Status struct {
	Threads    []ThreadStatus `cbor:"1,keyasint"`
	Yielded    []uint16       `cbor:"2,keyasint,omitempty"`
	Delays     []DelayStatus  `cbor:"3,keyasint,omitempty"`
	Ready      []uint16       `cbor:"4,keyasint,omitempty"`
	Triggered  []uint16       `cbor:"5,keyasint,omitempty"`
	Generation uint64         `cbor:"6,keyasint"`
	Resources  int            `cbor:"7,keyasint"`
	MemorySize uint16         `cbor:"8,keyasint"`
}

// ThreadStatus describes one thread.
type ThreadStatus struct {
	State string `cbor:"1,keyasint"`
	Fault string `cbor:"2,keyasint,omitempty"`
	PC    uint32 `cbor:"3,keyasint"`
	SP    uint32 `cbor:"4,keyasint"`
	Base  uint32 `cbor:"5,keyasint"`
	Limit uint32 `cbor:"6,keyasint"`
	ID    uint16 `cbor:"7,keyasint"`
}

// DelayStatus describes a pending delay entry.
type DelayStatus struct {
	RemainingMillis int64  `cbor:"1,keyasint"`
	Thread          uint16 `cbor:"2,keyasint"`
}

// Status captures the current machine state.
func (m *Machine) Status() *Status {
	s := &Status{
		Generation: m.generation,
		Resources:  m.pool.Len(),
		Yielded:    m.Yielded(),
		Ready:      slices.Sorted(maps.Keys(m.sched.ready)),
		Triggered:  slices.Sorted(maps.Keys(m.sched.triggered)),
	}
	if m.img != nil {
		s.MemorySize = m.img.Header.MemorySize
	}
	for _, t := range m.threads {
		base, limit := t.StackBounds()
		ts := ThreadStatus{
			ID:    t.id,
			State: t.state.String(),
			PC:    t.pc,
			SP:    t.SP(),
			Base:  base,
			Limit: limit,
		}
		if t.fault != nil {
			ts.Fault = t.fault.Error()
		}
		s.Threads = append(s.Threads, ts)
	}
	if len(m.sched.delays) > 0 {
		now := m.clock.Now()
		for _, e := range m.sched.delays {
			s.Delays = append(s.Delays, DelayStatus{
				Thread:          e.thread,
				RemainingMillis: (e.delay - now.Sub(e.start)).Milliseconds(),
			})
		}
	}
	return s
}

// EncodeStatus serializes s to canonical CBOR.
func EncodeStatus(s *Status) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// DecodeStatus deserializes a status snapshot.
func DecodeStatus(data []byte) (*Status, error) {
	var s Status
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("machine: unmarshal status: %w", err)
	}
	return &s, nil
}
