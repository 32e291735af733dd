package workflow

import "errors"

var (
	// ErrUnknownOperator is returned when a condition is built with an
	// operator outside the supported vocabulary.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrNotComparable is returned when a relational operator is applied
	// to operands that have no ordering.
	ErrNotComparable = errors.New("operands are not comparable")

	// ErrNilCallable is returned when a step is constructed without a
	// unit of work.
	ErrNilCallable = errors.New("step callable is required")

	// ErrInvalidTimestamp is returned for a delay timestamp that cannot
	// be interpreted as a point in time.
	ErrInvalidTimestamp = errors.New("invalid delay timestamp")

	// ErrDelayCancelled is returned to the waiter when a pending delay
	// is aborted through Cancel.
	ErrDelayCancelled = errors.New("delay cancelled")

	// ErrCancelled is returned by Execute when the workflow was
	// cancelled before reaching its final step.
	ErrCancelled = errors.New("workflow cancelled")

	// ErrStepNotFound is returned by step-list operations addressing an
	// unknown step id.
	ErrStepNotFound = errors.New("step not found")
)
