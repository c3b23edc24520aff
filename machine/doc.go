// Package machine implements the micro-blocks virtual machine: the image
// loader, the stack interpreter, the native-function dispatch table and the
// cooperative scheduler.
//
// # Threads
//
// An image declares a fixed set of threads. Each has a program counter into
// the image and a stack region in the shared working memory. Exactly one
// thread executes at a time. A thread runs until a native function suspends
// it, it faults, or it exceeds the time slice (50ms by default), in which
// case it is put on the yield queue as if it had yielded.
//
// # Scheduling
//
// Every Tick services readiness sources in a fixed order:
//
//  1. delays whose duration has elapsed
//  2. module loops (pin edges, sensor updates)
//  3. callback threads both ready and triggered
//  4. the oldest thread on the yield queue
//
// Voluntary yields therefore make progress only after timed and event
// driven resumptions.
//
// # Native Functions
//
// Modules register natives by id in Setup:
//
//	m.Register(9, "basicDelay", func(t *machine.Thread) machine.StepResult {
//	    ms := t.PopFloat()
//	    return t.Delay(time.Duration(ms * float32(time.Millisecond)))
//	})
//
// A native pops its own operands and pushes its own results. Stack access
// failures are recorded on the thread and halt it after the native returns.
//
// # Faults
//
// Undecodable instructions, unregistered function ids and memory faults
// halt only the offending thread. With FaultReport the fault is logged at
// warn level and passed to Config.OnFault.
package machine
