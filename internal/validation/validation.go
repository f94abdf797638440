package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quantclear/fofnav/internal/apperrors"
)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidUUID, id)
	}
	return nil
}

// ValidateID checks that an identifier is non-empty. Product and fund IDs
// imported from upstream systems are not always UUIDs.
func ValidateID(id string) error {
	if id == "" {
		return apperrors.ErrEmptyID
	}
	return nil
}

// ParseDate parses an ISO date string.
func ParseDate(str string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", str)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a valid date", apperrors.ErrInvalidDateRange, str)
	}
	return t.UTC(), nil
}

// ValidateDateRange checks that start does not come after end.
func ValidateDateRange(start, end time.Time) error {
	if start.After(end) {
		return fmt.Errorf("%w: start %s after end %s",
			apperrors.ErrInvalidDateRange,
			start.Format("2006-01-02"),
			end.Format("2006-01-02"))
	}
	return nil
}
