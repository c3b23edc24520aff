// Package resource manages heap-boxed values referenced from machine memory.
//
// Bytecode cannot hold Go values directly, so values such as strings are
// boxed in a Pool and the 32-bit handle is stored on a thread stack or in a
// global variable instead.
//
// # Reference Counting
//
// A value starts with one reference:
//
//	pool := resource.NewPool()
//	h, err := pool.Create("hello")
//
//	pool.IncRef(h) // a second slot now holds h
//	pool.DecRef(h)
//	pool.DecRef(h) // destroyed, h no longer resolves
//
// A native function that receives a handle as an operand owns one reference
// and must DecRef it, or store it and thereby pass the reference on.
//
// # Handles
//
// Handles are generational: the high 16 bits carry the slot generation and
// the low 16 bits the slot number plus one. Destroying a value advances the
// generation, so stale handles are reported as misuse instead of resolving
// to whatever value reuses the slot. Misuse is logged and returned as an
// error wrapping errors.ErrResourceMisuse.
//
// # Clearing
//
// Clear destroys every live value regardless of reference count. The machine
// calls it on every image load. Values implementing Dropper are notified.
package resource
