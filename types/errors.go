package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is a caller bug detected before any assembly work:
	// invalid polynomial order, incompatible spaces, a real result type
	// with a complex wave number, duplicate elements.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupported is raised by the call that cannot handle an element
	// shape or grid dimension.
	ErrUnsupported = errors.New("unsupported geometry")
	// ErrNumerical is data dependent and reported per assembly call.
	ErrNumerical = errors.New("numerical degeneracy")
	// ErrAllocation reports a dense allocation beyond the configured limit.
	ErrAllocation = errors.New("allocation failure")
)

// NumericalError locates a numerical degeneracy at an element pair. Either
// index is -1 when the condition belongs to a single element.
type NumericalError struct {
	TestElement, TrialElement int
	Reason                    string
}

func (e *NumericalError) Error() string {
	switch {
	case e.TrialElement < 0:
		return fmt.Sprintf("%v: element %d: %s", ErrNumerical, e.TestElement, e.Reason)
	case e.TestElement < 0:
		return fmt.Sprintf("%v: element %d: %s", ErrNumerical, e.TrialElement, e.Reason)
	}
	return fmt.Sprintf("%v: element pair (%d, %d): %s",
		ErrNumerical, e.TestElement, e.TrialElement, e.Reason)
}

func (e *NumericalError) Unwrap() error { return ErrNumerical }

func NewElementError(element int, reason string) error {
	return &NumericalError{TestElement: element, TrialElement: -1, Reason: reason}
}

func NewPairError(testElement, trialElement int, reason string) error {
	return &NumericalError{TestElement: testElement, TrialElement: trialElement, Reason: reason}
}
