// Package errors provides structured error types for the micro-blocks machine.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a location path, an optional code or memory offset,
// a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindInvalidImage).
//		Path("header", "magic").
//		At(0).
//		Detail("got %q", magic).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownFunction(pc, id)
//	err := errors.OutOfBounds(errors.PhaseRuntime, path, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels (ErrInvalidImage, ErrUnknownInstruction, ...)
// match any Error with the same Phase and Kind:
//
//	if errors.Is(err, mberrors.ErrInvalidImage) { ... }
package errors
