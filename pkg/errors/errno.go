// Package errors provides the structured error codes used across the assistant.
//
// An Errno pairs a stable numeric code (layout in code.go) with English and
// Chinese messages plus HTTP and gRPC status mappings. Pipeline stages never
// return an Errno to the asker; they wrap the cause, log it and degrade.
//
//	logger.Warnw("index down", "error", errors.ErrIndexUnavailable.WithCause(err).Error())
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"google.golang.org/grpc/codes"
)

// Errno is a coded error. Values returned by Register are shared; use
// WithCause or WithMessage to derive a per-call copy.
type Errno struct {
	Code      int        `json:"code"`
	HTTP      int        `json:"-"`
	GRPCCode  codes.Code `json:"-"`
	MessageEN string     `json:"message"`
	MessageZH string     `json:"message_zh,omitempty"`

	cause error
}

// New creates an unregistered Errno.
func New(code, httpStatus int, grpcCode codes.Code, messageEN, messageZH string) *Errno {
	return &Errno{
		Code:      code,
		HTTP:      httpStatus,
		GRPCCode:  grpcCode,
		MessageEN: messageEN,
		MessageZH: messageZH,
	}
}

func (e *Errno) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("errno %d: %s", e.Code, e.MessageEN)
	}
	return fmt.Sprintf("errno %d: %s: %v", e.Code, e.MessageEN, e.cause)
}

func (e *Errno) Unwrap() error { return e.cause }

// Is matches any Errno with the same code, so derived copies still match.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && t.Code == e.Code
}

func (e *Errno) clone() *Errno {
	cp := *e
	return &cp
}

// WithCause returns a copy wrapping cause.
func (e *Errno) WithCause(cause error) *Errno {
	cp := e.clone()
	cp.cause = cause
	return cp
}

// WithMessage returns a copy with a different English message.
func (e *Errno) WithMessage(msg string) *Errno {
	cp := e.clone()
	cp.MessageEN = msg
	return cp
}

// WithMessagef is WithMessage with formatting.
func (e *Errno) WithMessagef(format string, args ...any) *Errno {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// Message returns the Chinese message for zh locales when one exists.
func (e *Errno) Message(lang string) string {
	if e.MessageZH != "" {
		switch lang {
		case "zh", "zh-CN", "zh_CN":
			return e.MessageZH
		}
	}
	return e.MessageEN
}

// HTTPStatus defaults to 500.
func (e *Errno) HTTPStatus() int {
	if e.HTTP == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTP
}

// GRPCStatus defaults to codes.Internal.
func (e *Errno) GRPCStatus() codes.Code {
	if e.GRPCCode == codes.OK {
		return codes.Internal
	}
	return e.GRPCCode
}

// Format supports %s, %q and %v; %+v adds status mappings and the cause chain.
func (e *Errno) Format(s fmt.State, verb rune) {
	switch {
	case verb == 'v' && s.Flag('+'):
		_, _ = fmt.Fprintf(s, "errno %d [HTTP %d, gRPC %s]: %s", e.Code, e.HTTP, e.GRPCCode, e.MessageEN)
		if e.MessageZH != "" {
			_, _ = fmt.Fprintf(s, " (%s)", e.MessageZH)
		}
		if e.cause != nil {
			_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
		}
	case verb == 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	default:
		_, _ = fmt.Fprint(s, e.Error())
	}
}

var registry = struct {
	sync.RWMutex
	byCode map[int]*Errno
}{byCode: make(map[int]*Errno)}

// Register records e under its code. A code can be registered only once.
func Register(e *Errno) *Errno {
	registry.Lock()
	defer registry.Unlock()

	if prev, ok := registry.byCode[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, prev.MessageEN))
	}
	registry.byCode[e.Code] = e
	return e
}

// Lookup returns the Errno registered under code.
func Lookup(code int) (*Errno, bool) {
	registry.RLock()
	defer registry.RUnlock()
	e, ok := registry.byCode[code]
	return e, ok
}

// Codes lists every registered code in ascending order.
func Codes() []int {
	registry.RLock()
	defer registry.RUnlock()
	out := make([]int, 0, len(registry.byCode))
	for c := range registry.byCode {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// FromError finds the first Errno in err's chain. Anything else becomes
// ErrInternal wrapping err.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}

// GetCode returns the code of the first Errno in err's chain, or -1.
func GetCode(err error) int {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code
	}
	return -1
}
