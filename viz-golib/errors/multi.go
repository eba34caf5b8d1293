package errors

import (
	"bytes"
	"fmt"
)

// Errors is a non-empty list of errors. The invariant that any non-nil
// Errors value contains at least one error lets callers compare against
// nil to check for the absence of errors.
type Errors interface {
	error
	// Slice returns a copy of the underlying (non-nil) errors.
	Slice() []error
	// Len is always > 0 for a non-nil Errors.
	Len() int

	raw() []error
}

type errList []error

func (l errList) raw() []error {
	return []error(l)
}

func (l errList) Slice() []error {
	return append([]error(nil), l...)
}

func (l errList) Len() int {
	return len(l)
}

func (l errList) Error() string {
	var b bytes.Buffer
	for i, err := range l {
		if i > 0 {
			fmt.Fprint(&b, "\n")
		}
		fmt.Fprint(&b, err)
	}
	return b.String()
}

// Append appends the given (possibly nil) error to the given (possibly nil) Errors.
// If the error is nil, the Errors is returned unchanged.
func Append(errs Errors, err error) Errors {
	if err == nil {
		return errs
	}
	var list errList
	if errs != nil {
		list = errList(errs.raw())
	}
	if multi, _ := err.(Errors); multi != nil {
		return errList(append(list, multi.raw()...))
	}
	return errList(append(list, err))
}

// Combine combines errors e & f into a single error
func Combine(e, f error) error {
	switch e := e.(type) {
	case nil:
		return f
	case Errors:
		// copy to avoid mutating the backing array
		return Append(errList(e.Slice()), f)
	default:
		if f == nil {
			return e
		}
		return Append(errList{e}, f)
	}
}

// Defer is a helper for deferring error-returning cleanup functions
func Defer(err *error, f func() error) {
	*err = Combine(*err, f())
}
