// Package microblocks runs compiled block programs on a small stack-based
// virtual machine.
//
// A compiler elsewhere emits a code image: a header, a thread table, and
// one code sequence per thread. Threads share a flat working memory that
// holds global variables and every thread stack. They run cooperatively,
// suspending only at yields, waits, delays, or when a thread exceeds its
// time slice. Native functions provided by modules extend the instruction
// set through a 256-entry dispatch table.
//
// # Packages
//
//	microblocks/        Root package with the Memory interface
//	├── bytecode/       Instruction encoding, assembler and disassembler
//	├── image/          Code image parsing, validation and building
//	├── memory/         Bounds-checked working memory and thread stacks
//	├── resource/       Refcounted pool of heap values with generational handles
//	├── machine/        Loader, interpreter, scheduler and dispatch table
//	├── modules/        Native function modules (pin, text, gui, ...)
//	├── config/         TOML host configuration
//	├── errors/         Structured error types
//	└── cmd/run/        Command line host
//
// # Quick Start
//
//	set := modules.Standard(modules.Options{Out: os.Stdout})
//	m := machine.New(machine.Config{})
//	if err := m.Use(set.Modules()...); err != nil {
//		return err
//	}
//	if err := m.Load(image); err != nil {
//		return err
//	}
//	return m.Run(ctx)
package microblocks
