/*
errors.go - Centralized error taxonomy for the booking engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The taxonomy follows the three failure families of the engine:

  1. User-input errors    - rejected locally, no store round-trip
                            (no slot selected, self-booking, not logged in)
  2. Transactional errors - discovered inside the atomic section; no partial
                            state is ever persisted
                            (slot taken, insufficient balance, missing actor)
  3. Transient errors     - write conflicts; retried up to a bound, then
                            surfaced as retryable

USAGE:
  if errors.Is(err, booking.ErrSlotUnavailable) {
      // re-fetch the slot list and let the user pick again
  }
  var ib *booking.InsufficientBalanceError
  if errors.As(err, &ib) {
      fmt.Printf("short by %d points\n", ib.Shortfall)
  }

SEE ALSO:
  - engine.go: where the transactional errors originate
  - api/handlers.go: HTTP status mapping
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotAuthenticated is returned when no principal is attached to the
	// attempt. The caller must redirect to login. Non-retryable.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSelfBooking is returned when a student tries to book their own skill.
	ErrSelfBooking = errors.New("cannot book your own skill")

	// ErrNoSlotSelected indicates a caller-side validation gap: the attempt
	// arrived without a slot id.
	ErrNoSlotSelected = errors.New("no slot selected")

	// ErrSlotUnavailable is returned when the slot is already booked or
	// vanished between listing and the booking attempt. The caller should
	// re-fetch the open slots and let the user pick again.
	ErrSlotUnavailable = errors.New("slot is already booked or unavailable")

	// ErrInsufficientPoints is returned when the student's live balance does
	// not cover the price. Wrapped by InsufficientBalanceError.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrActorNotFound is returned when the student or instructor ledger
	// entry is missing mid-transaction. This is a data integrity problem,
	// surfaced as an internal error.
	ErrActorNotFound = errors.New("user ledger entry not found")

	// ErrTransactionConflict is a transient optimistic-concurrency failure.
	// Retried transparently a bounded number of times before surfacing.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrPermissionDenied is returned when the actor is not allowed to
	// perform the operation (not a party, not the owner, or the datastore's
	// access-control layer refused the write).
	ErrPermissionDenied = errors.New("permission denied")

	ErrSkillNotFound   = errors.New("skill not found")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")

	// ErrInvalidSlotWindow is returned when start >= end.
	ErrInvalidSlotWindow = errors.New("slot start must be before end")

	// ErrSlotInPast is returned when creating a slot that starts in the past.
	ErrSlotInPast = errors.New("slot start is in the past")

	// ErrSlotBooked is returned when deleting a booked slot. A booked slot is
	// referenced by exactly one booking and must keep existing.
	ErrSlotBooked = errors.New("slot is booked and cannot be deleted")

	// ErrSkillHasBookings is returned when deleting a skill that still has
	// booked slots.
	ErrSkillHasBookings = errors.New("skill has booked slots")

	// ErrInvalidTransition is returned when a lifecycle transition does not
	// apply to the booking's current status. completed and cancelled are
	// terminal.
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrBookingNotEnded is returned when completing a booking whose end time
	// has not passed yet.
	ErrBookingNotEnded = errors.New("booking has not ended yet")

	// ErrEmailTaken is returned on signup with an already-registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login with a wrong email/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports the exact shortfall so the UI can display
// it. Shortfall is always Price - Balance.
type InsufficientBalanceError struct {
	StudentID UserID
	Price     int64
	Balance   int64
	Shortfall int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient points: price %d, balance %d, short by %d",
		e.Price, e.Balance, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientPoints
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionConflict)
}

// IsClientError returns true if the error is due to invalid client input or
// state the client can recover from on its own.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSelfBooking) ||
		errors.Is(err, ErrNoSlotSelected) ||
		errors.Is(err, ErrSlotUnavailable) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrInvalidSlotWindow) ||
		errors.Is(err, ErrSlotInPast) ||
		errors.Is(err, ErrSlotBooked) ||
		errors.Is(err, ErrSkillHasBookings) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrBookingNotEnded) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrInvalidCredentials)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSkillNotFound) ||
		errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
