package settings

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider = errors.New("provider does not exist")
	ErrRemovePrimary   = errors.New("cannot remove the primary provider; switch primary first")
	ErrProviderExists  = errors.New("provider already exists")
	ErrInvalidProvider = errors.New("invalid provider config")
)

// ConfigurationError is returned by every config mutation that was rejected. State is
// unchanged when one is returned.
type ConfigurationError struct {
	Op         string
	ProviderID string
	Err        error
}

func (e *ConfigurationError) Error() string {
	if e.ProviderID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.ProviderID, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(op, id string, err error) error {
	return &ConfigurationError{Op: op, ProviderID: id, Err: err}
}

func invalid(op, id string, cause error) error {
	return configErr(op, id, fmt.Errorf("%w: %v", ErrInvalidProvider, cause))
}
