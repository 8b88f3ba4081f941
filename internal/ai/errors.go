package ai

import (
	"errors"
	"fmt"
)

// ErrProviderCallFailed matches every failure an adapter reports, whatever the cause.
var ErrProviderCallFailed = errors.New("provider call failed")

type CallError struct {
	Provider string
	Op       string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s: provider call failed: %v", e.Provider, e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func (e *CallError) Is(target error) bool { return target == ErrProviderCallFailed }

// Fail wraps any adapter-side error so callers only ever see a *CallError.
func Fail(provider, op string, err error) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}
	return &CallError{Provider: provider, Op: op, Err: err}
}
