package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // image parsing and installation
	PhaseDecode   Phase = "decode"   // instruction decoding
	PhaseRuntime  Phase = "runtime"  // thread execution
	PhaseDispatch Phase = "dispatch" // native function lookup and invocation
	PhaseResource Phase = "resource" // resource pool operations
	PhaseConfig   Phase = "config"   // host configuration
	PhaseHost     Phase = "host"     // module registration
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidImage       Kind = "invalid_image"
	KindUnknownInstruction Kind = "unknown_instruction"
	KindUnknownFunction    Kind = "unknown_function"
	KindAllocation         Kind = "allocation"
	KindResourceMisuse     Kind = "resource_misuse"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindRegistration       Kind = "registration"
	KindUnsupported        Kind = "unsupported"
)

// Sentinels for errors.Is. Matching compares Phase and Kind only.
var (
	ErrInvalidImage       = &Error{Phase: PhaseLoad, Kind: KindInvalidImage}
	ErrAllocation         = &Error{Phase: PhaseLoad, Kind: KindAllocation}
	ErrUnknownInstruction = &Error{Phase: PhaseDecode, Kind: KindUnknownInstruction}
	ErrUnknownFunction    = &Error{Phase: PhaseDispatch, Kind: KindUnknownFunction}
	ErrResourceMisuse     = &Error{Phase: PhaseResource, Kind: KindResourceMisuse}
	ErrOutOfBounds        = &Error{Phase: PhaseRuntime, Kind: KindOutOfBounds}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Detail    string
	Path      []string
	Offset    uint32
	HasOffset bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.HasOffset {
		fmt.Fprintf(&b, " @0x%04x", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the location path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// At sets the byte offset (code or memory) the error refers to
func (b *Builder) At(offset uint32) *Builder {
	b.err.Offset = offset
	b.err.HasOffset = true
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidImage creates a malformed code image error
func InvalidImage(path []string, detail string, args ...any) *Error {
	return New(PhaseLoad, KindInvalidImage).Path(path...).Detail(detail, args...).Build()
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (limit %d)", size, limit),
		Value:  size,
	}
}

// UnknownInstruction creates an undecodable opcode error
func UnknownInstruction(pc uint32, opcode byte) *Error {
	return &Error{
		Phase:     PhaseDecode,
		Kind:      KindUnknownInstruction,
		Offset:    pc,
		HasOffset: true,
		Detail:    fmt.Sprintf("opcode 0x%02x", opcode),
		Value:     opcode,
	}
}

// UnknownFunction creates an unregistered native function error
func UnknownFunction(pc uint32, id int32) *Error {
	return &Error{
		Phase:     PhaseDispatch,
		Kind:      KindUnknownFunction,
		Offset:    pc,
		HasOffset: true,
		Detail:    fmt.Sprintf("no native function registered for id %d", id),
		Value:     id,
	}
}

// ResourceMisuse creates a refcount or stale handle error
func ResourceMisuse(handle uint32, detail string) *Error {
	return &Error{
		Phase:  PhaseResource,
		Kind:   KindResourceMisuse,
		Detail: fmt.Sprintf("handle 0x%08x: %s", handle, detail),
		Value:  handle,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(module, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", module, name),
		Cause:  cause,
	}
}

// Load creates an image loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidImage,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a configuration parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
