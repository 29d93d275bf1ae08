package delivery

import (
	"errors"
	"fmt"
)

// ErrInvalidLimit means the unit limit is not positive or leaves no room
// next to the part header.
var ErrInvalidLimit = errors.New("invalid unit limit")

// ErrEmptyInput means there is nothing to deliver.
var ErrEmptyInput = errors.New("nothing to deliver")

// ErrDeliveryUnitFailed matches every *UnitError.
var ErrDeliveryUnitFailed = errors.New("delivery unit failed")

// UnitError reports a failed send of one unit. Index is zero based.
type UnitError struct {
	Index int
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %d: %v", e.Index, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

func (e *UnitError) Is(target error) bool {
	return target == ErrDeliveryUnitFailed
}
