package detection

import (
	"errors"
	"fmt"
)

var (
	ErrPetNotFound      = errors.New("pet not found")
	ErrInsufficientData = errors.New("insufficient incident history")
)

// InsufficientDataError reports how many incidents a pet has against the
// number detection needs. It matches ErrInsufficientData under errors.Is.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("Need at least %d ABC logs for pattern detection. Currently have %d.", e.Need, e.Have)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
