package errs

import "fmt"

// ErrPanic converts a recovered panic value into a CodeInternal CodeError
// carrying the value as its detail. tools/safe.SafeGo does not use it; it
// prints recovered values with fmt.Printf.
func ErrPanic(r any) error {
	if r == nil {
		return nil
	}
	return NewCodeError(CodeInternal, "panic error").WithDetail(fmt.Sprint(r))
}
