package oski

import "fmt"

// Code identifies the kind of failure an oski operation reports. Unlike the
// teacher's sentinel package-level errors (matrix.ErrRowAccess, ...), which
// the programmer-error paths here still use via panic, Code is for outcomes
// a caller is expected to branch on and recover from.
type Code int

const (
	// BadArg means a parameter violated a documented precondition.
	BadArg Code = iota
	// FalseAssertedProperty means the property checker found the input
	// inconsistent with its asserted flags.
	FalseAssertedProperty
	// LogicalZeroNotStored means a Set targeted a position with no storage slot.
	LogicalZeroNotStored
	// OutOfMemory means an allocation failed; callers should treat the
	// target object as unmodified.
	OutOfMemory
	// NotImplemented means the requested conversion or method has no
	// implementation for the source representation.
	NotImplemented
	// TuneNotApplicable is internal: a heuristic declined to run. The tuner
	// treats it as "skip"; it never escapes Tune.
	TuneNotApplicable
	// Syntax means a transformation recipe failed to parse or evaluate.
	Syntax
	// Runtime means a kernel call or executor task failed during SpMV.
	Runtime
)

func (c Code) String() string {
	switch c {
	case BadArg:
		return "bad argument"
	case FalseAssertedProperty:
		return "false asserted property"
	case LogicalZeroNotStored:
		return "logical zero not stored"
	case OutOfMemory:
		return "out of memory"
	case NotImplemented:
		return "not implemented"
	case TuneNotApplicable:
		return "tune not applicable"
	case Syntax:
		return "syntax error"
	case Runtime:
		return "runtime error"
	default:
		return "unknown"
	}
}

// Error is the error type returned by oski operations that can fail without
// panicking. Op names the failing operation (e.g. "oski.NewCSR",
// "oski.CSR.Set") for easier triage in logs.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oski: %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("oski: %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code, so
// errors.Is(err, &Error{Code: BadArg}) matches any BadArg error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(op string, code Code, format string, args ...interface{}) *Error {
	var err error
	if format != "" {
		err = fmt.Errorf(format, args...)
	}
	return &Error{Code: code, Op: op, Err: err}
}
