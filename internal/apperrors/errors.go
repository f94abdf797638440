package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrProductNotFound indicates that a FOF product with the given ID does not exist.
	ErrProductNotFound = errors.New("fof product not found")

	// ErrFundNavNotFound indicates no NAV record for a specific fund and date combination.
	ErrFundNavNotFound = errors.New("fund nav not found")

	// ErrEventNotFound indicates that an event with the given ID does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrInvestorNotFound indicates that an investor position record does not exist.
	ErrInvestorNotFound = errors.New("investor not found")
)

// Inconsistent-event errors abort the run: no NAV row for the offending date
// or any later date is written.
var (
	// ErrDuplicateEventID indicates two events in the log share an ID.
	ErrDuplicateEventID = errors.New("duplicate event id")

	// ErrNonMonotoneEvents indicates the event log is not sorted by applied date.
	ErrNonMonotoneEvents = errors.New("event log not in applied-date order")

	// ErrConfirmedBeforeApplied indicates an event confirmed before it was applied.
	// The intent of such records is ambiguous and they are treated as data errors.
	ErrConfirmedBeforeApplied = errors.New("event confirmed before applied date")

	// ErrInsufficientCash indicates an asset purchase whose amount exceeds available cash.
	ErrInsufficientCash = errors.New("insufficient cash for purchase")

	// ErrInsufficientShares indicates a redemption exceeding the outstanding share count.
	ErrInsufficientShares = errors.New("insufficient shares for redemption")

	// ErrNegativeAmount indicates an amount field has an invalid negative value.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrUnknownEventType indicates an event type the ledger cannot apply.
	ErrUnknownEventType = errors.New("unknown event type")
)

// Run-level errors.
var (
	// ErrCalculationInProgress indicates a second run was attempted for a FOF
	// whose is_calculating flag is already set. The second attempt is refused.
	ErrCalculationInProgress = errors.New("calculation already in progress")

	// ErrRunCancelled indicates the run was cancelled at a day boundary.
	// State at the end of the last complete day is preserved.
	ErrRunCancelled = errors.New("run cancelled")

	// ErrNoPriceHistory indicates a fund has no observation at or before the
	// first date it is needed, so its series cannot be forward-filled.
	ErrNoPriceHistory = errors.New("no price history for fund")

	// ErrUnsupportedIncentiveMode indicates a product configured with an
	// incentive-fee mode the engine does not implement. Refusing the run is
	// safer than valuing holdings with the wrong water-line semantics.
	ErrUnsupportedIncentiveMode = errors.New("unsupported incentive-fee mode")
)

// Validation errors for CLI and API parameters.
var (
	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidWeights indicates backtest weights that are empty, negative,
	// or do not sum to one within tolerance.
	ErrInvalidWeights = errors.New("invalid weight vector")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")
)
