package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Error kinds, matching the handler-visible failure categories: validation,
// not-found, auth, store, blob, protocol.
const (
	CodeValidation = 1000 + iota
	CodeNotFound
	CodeAuth
	CodeStore
	CodeBlob
	CodeProtocol
	CodeInternal
)

type CodeErrorI interface {
	ECode() int
	EMsg() string
	DDetail() string
	WithDetail(detail string) CodeError
	error
}

func NewCodeError(code int, msg string) CodeError {
	return CodeError{Code: code, Msg: msg}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e CodeError) ECode() int    { return e.Code }
func (e CodeError) EMsg() string  { return e.Msg }
func (e CodeError) DDetail() string { return e.Detail }

func (e CodeError) WithDetail(detail string) CodeError {
	if e.Detail == "" {
		e.Detail = detail
	} else {
		e.Detail = e.Detail + ", " + detail
	}
	return e
}

func (e CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// Is reports whether err carries this CodeError's Code, unwrapping through
// any github.com/pkg/errors wrapping along the way.
func (e CodeError) Is(err error) bool {
	var codeErr CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return e.Code == codeErr.Code
}

var (
	ErrValidation = NewCodeError(CodeValidation, "validation error")
	ErrNotFound   = NewCodeError(CodeNotFound, "not found")
	ErrAuth       = NewCodeError(CodeAuth, "auth error")
	ErrStore      = NewCodeError(CodeStore, "store error")
	ErrBlob       = NewCodeError(CodeBlob, "blob error")
	ErrProtocol   = NewCodeError(CodeProtocol, "protocol error")
	ErrInternal   = NewCodeError(CodeInternal, "internal error")
)

// New builds a plain pkg/errors error (not a CodeError) carrying an
// immediate stack trace.
func New(msg string) error {
	return errors.New(msg)
}

// Wrap attaches a stack trace the first time err crosses a package boundary.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

// WrapMsg wraps err with an additional message, preserving the original
// error for errors.Is/As and attaching a stack trace.
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Unwrap returns the innermost error in err's pkg/errors chain.
func Unwrap(err error) error {
	return errors.Cause(err)
}
