package normalization

import (
	"errors"
	"fmt"
	"strings"
)

// Normalization errors.
var (
	// ErrMissingColumn is matched by MissingColumnError via errors.Is.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidRow is returned when an identifying cell (id, season, kickoff) cannot be parsed.
	ErrInvalidRow = errors.New("invalid row")

	// ErrDuplicateMatch is returned when a match id appears more than once.
	ErrDuplicateMatch = errors.New("duplicate match id")

	// ErrUnpairedMatch is returned when a match cannot be unfolded into one home
	// and one away appearance (missing or identical team identifiers).
	ErrUnpairedMatch = errors.New("match does not have a distinct home and away team")
)

// MissingColumnError lists required columns absent from the input table.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumn, strings.Join(e.Columns, ", "))
}

// Is makes errors.Is(err, ErrMissingColumn) true.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}
