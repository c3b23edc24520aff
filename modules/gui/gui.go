// Package gui maintains the remote user interface: a grid of elements that
// the host renders and whose events trigger thread callbacks.
package gui

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ruediste/micro-blocks/machine"
	"github.com/ruediste/micro-blocks/modules/text"
	"github.com/ruediste/micro-blocks/resource"
)

// ShowButton is the native function id of the button block.
const ShowButton = 30

// SnapshotInterval is the minimum time between published snapshots.
const SnapshotInterval = 100 * time.Millisecond

// ElementType identifies the kind of element in a snapshot.
type ElementType uint8

const (
	TypeButton ElementType = iota
)

// EventKind is a user interaction with an element.
type EventKind uint8

const (
	Click EventKind = iota
	Press
	Release
)

// Element is one grid element. Threads are callback thread ids.
type Element struct {
	Text      resource.Handle
	OnClick   uint16
	OnPress   uint16
	OnRelease uint16
	Type      ElementType
	X, Y      uint8
	ColSpan   uint8
	RowSpan   uint8
}

// Overlaps reports whether the cells covered by e and o intersect.
func (e Element) Overlaps(o Element) bool {
	return int(e.X) < int(o.X)+int(o.ColSpan) && int(o.X) < int(e.X)+int(e.ColSpan) &&
		int(e.Y) < int(o.Y)+int(o.RowSpan) && int(o.Y) < int(e.Y)+int(e.RowSpan)
}

// Thread returns the callback thread for kind.
func (e Element) Thread(kind EventKind) uint16 {
	switch kind {
	case Press:
		return e.OnPress
	case Release:
		return e.OnRelease
	default:
		return e.OnClick
	}
}

// Module holds the elements of the loaded image. Elements own one
// reference to their text.
type Module struct {
	m          *machine.Machine
	onSnapshot func([]byte)
	lastSent   time.Time
	elements   []Element
	modified   bool
	mu         sync.Mutex
}

// New creates the module. onSnapshot, if not nil, receives encoded
// snapshots from Loop whenever the elements changed.
func New(onSnapshot func([]byte)) *Module {
	return &Module{onSnapshot: onSnapshot, modified: true}
}

func (*Module) Name() string { return "gui" }

func (g *Module) Setup(m *machine.Machine) error {
	g.m = m
	return m.Register(ShowButton, "guiShowButton", g.showButton)
}

// Reset releases all elements.
func (g *Module) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.elements {
		g.release(e)
	}
	g.elements = nil
	g.modified = true
}

func (g *Module) release(e Element) {
	if err := g.m.Pool().DecRef(e.Text); err != nil {
		machine.Logger().Warn("gui element text", zap.Uint32("handle", uint32(e.Text)), zap.Error(err))
	}
}

// Elements returns a copy of the current elements in display order.
func (g *Module) Elements() []Element {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Element(nil), g.elements...)
}

func (g *Module) showButton(t *machine.Thread) machine.StepResult {
	h := t.PopHandle()
	e := Element{Type: TypeButton, Text: h}
	e.OnRelease = t.PopU16()
	e.OnPress = t.PopU16()
	e.OnClick = t.PopU16()
	e.RowSpan = t.PopU8()
	e.ColSpan = t.PopU8()
	e.Y = t.PopU8()
	e.X = t.PopU8()
	if t.Failed() {
		t.Discard(h)
		return machine.Continue
	}
	if _, err := text.String(t.Pool(), h); err != nil {
		t.Fail(err)
		t.Discard(h)
		return machine.Continue
	}
	g.add(e)
	return machine.Continue
}

// add places e, removing every element it overlaps.
func (g *Module) add(e Element) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.elements[:0]
	for _, o := range g.elements {
		if o.Overlaps(e) {
			g.release(o)
			continue
		}
		kept = append(kept, o)
	}
	g.elements = append(kept, e)
	g.modified = true
}

// Event delivers a user interaction with element index to its callback
// thread. It reports false for an unknown index.
func (g *Module) Event(index int, kind EventKind) bool {
	g.mu.Lock()
	if index < 0 || index >= len(g.elements) {
		g.mu.Unlock()
		return false
	}
	id := g.elements[index].Thread(kind)
	g.mu.Unlock()
	g.m.TriggerCallback(id)
	return true
}

// Snapshot encodes the elements: a count byte, then per element its type,
// x, y, colSpan, rowSpan, the onClick, onPress and onRelease thread ids as
// little-endian u16, and the text prefixed with its length byte.
func (g *Module) Snapshot() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot()
}

func (g *Module) snapshot() []byte {
	buf := []byte{byte(len(g.elements))}
	for _, e := range g.elements {
		buf = append(buf, byte(e.Type), e.X, e.Y, e.ColSpan, e.RowSpan)
		buf = binary.LittleEndian.AppendUint16(buf, e.OnClick)
		buf = binary.LittleEndian.AppendUint16(buf, e.OnPress)
		buf = binary.LittleEndian.AppendUint16(buf, e.OnRelease)

		s, _ := text.String(g.m.Pool(), e.Text)
		if len(s) > 255 {
			s = s[:255]
		}
		buf = append(buf, byte(len(s)))
		buf = append(buf, s...)
	}
	return buf
}

// Loop publishes a snapshot when the elements changed and the last one is
// older than SnapshotInterval.
func (g *Module) Loop(context.Context) {
	if g.onSnapshot == nil {
		return
	}
	now := g.m.Clock().Now()
	g.mu.Lock()
	if !g.modified || now.Sub(g.lastSent) <= SnapshotInterval {
		g.mu.Unlock()
		return
	}
	g.modified = false
	g.lastSent = now
	data := g.snapshot()
	g.mu.Unlock()
	g.onSnapshot(data)
}
