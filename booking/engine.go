/*
engine.go - The booking transaction engine

PURPOSE:
  Coordinates the atomic read-check-write that turns (student, slot, skill)
  into a confirmed Booking:

    1. Read the student and instructor ledger entries
    2. Read the target slot
    3. Validate: both actors exist, slot still available, balance covers price
    4. Debit student, credit instructor, flip the slot, insert the Booking
    5. Commit — or retry the whole attempt on a write conflict

CRITICAL INVARIANTS:
  - At-most-one booking per slot: the available-only check is re-validated
    inside the same atomic section that flips the slot to booked.
  - No negative balances: the live balance is re-read inside the transaction,
    never trusted from a subscription snapshot.
  - No partial effects: a failed attempt leaves every document untouched.

PRECONDITIONS vs TRANSACTION:
  Authentication, self-booking, and slot selection are checked before any
  store round-trip (fail fast, no side effects). Everything that depends on
  live state is checked inside the transaction, in a fixed order, failing
  fast on the first violation.

RETRY POLICY:
  ErrTransactionConflict is retried transparently up to MaxRetries. Each
  attempt runs under its own timeout; expiry is mapped to the same retryable
  failure. Nothing else is retried.

SEE ALSO:
  - store.go: the transaction primitive the engine relies on
  - lifecycle.go: what happens to a Booking after creation
*/
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENGINE
// =============================================================================

const (
	// DefaultMaxRetries bounds transparent retries on ErrTransactionConflict.
	DefaultMaxRetries = 3

	// DefaultAttemptTimeout caps a single transaction attempt. Expiry is
	// surfaced as a retryable conflict.
	DefaultAttemptTimeout = 5 * time.Second
)

// Engine executes booking attempts against a transactional store.
type Engine struct {
	store    TxStore
	notifier Notifier

	// Cancellation holds the refund-on-cancel policy for lifecycle.go.
	Cancellation CancellationPolicy

	MaxRetries     int
	AttemptTimeout time.Duration

	now func() time.Time
}

// NewEngine creates a booking engine. notifier may be nil.
func NewEngine(store TxStore, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		store:          store,
		notifier:       notifier,
		MaxRetries:     DefaultMaxRetries,
		AttemptTimeout: DefaultAttemptTimeout,
		now:            time.Now,
	}
}

// =============================================================================
// ATTEMPT BOOKING - The core operation
// =============================================================================

// AttemptBooking executes the booking protocol for the given input.
//
// Precondition failures (ErrNotAuthenticated, ErrNoSlotSelected,
// ErrSelfBooking, ErrSkillNotFound) are returned before the atomic section
// starts, with no side effects. Inside the transaction the checks run in
// order: actors exist, slot available, balance sufficient. On success the
// returned Booking carries the price and slot-time snapshots.
func (e *Engine) AttemptBooking(ctx context.Context, in BookingInput) (*Booking, error) {
	if in.StudentID == "" {
		return nil, ErrNotAuthenticated
	}
	if in.SlotID == "" {
		return nil, ErrNoSlotSelected
	}

	skill, err := e.store.GetSkill(ctx, in.SkillID)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return nil, ErrSkillNotFound
	}
	if in.StudentID == skill.InstructorID {
		return nil, ErrSelfBooking
	}

	var booked *Booking
	for attempt := 0; attempt <= e.MaxRetries; attempt++ {
		booked, err = e.tryOnce(ctx, in, *skill)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTransactionConflict) {
			return nil, err
		}
	}
	if err != nil {
		// Retries exhausted. Still a retryable failure from the caller's view.
		return nil, err
	}

	e.notifier.SlotsChanged(skill.ID)
	e.notifier.BalanceChanged(in.StudentID)
	e.notifier.BalanceChanged(skill.InstructorID)
	e.notifier.BookingsChanged(in.StudentID, skill.InstructorID)
	return booked, nil
}

// tryOnce runs a single transaction attempt under its own timeout.
func (e *Engine) tryOnce(ctx context.Context, in BookingInput, skill Skill) (*Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, e.AttemptTimeout)
	defer cancel()

	var booked *Booking
	err := e.store.WithTx(ctx, func(tx Store) error {
		student, err := tx.GetUser(ctx, in.StudentID)
		if err != nil {
			return err
		}
		instructor, err := tx.GetUser(ctx, skill.InstructorID)
		if err != nil {
			return err
		}
		if student == nil || instructor == nil {
			return ErrActorNotFound
		}

		slot, err := tx.GetSlot(ctx, skill.ID, in.SlotID)
		if err != nil {
			return err
		}
		if slot == nil || slot.Status != SlotAvailable {
			return ErrSlotUnavailable
		}

		if student.Points < skill.PointsPrice {
			return &InsufficientBalanceError{
				StudentID: student.ID,
				Price:     skill.PointsPrice,
				Balance:   student.Points,
				Shortfall: skill.PointsPrice - student.Points,
			}
		}

		if err := tx.SetUserPoints(ctx, student.ID, student.Points-skill.PointsPrice); err != nil {
			return err
		}
		if err := tx.SetUserPoints(ctx, instructor.ID, instructor.Points+skill.PointsPrice); err != nil {
			return err
		}
		if err := tx.MarkSlotBooked(ctx, skill.ID, slot.ID); err != nil {
			return err
		}

		b := Booking{
			ID:                 BookingID(uuid.NewString()),
			SkillID:            skill.ID,
			SkillTitle:         skill.Title,
			SkillPointsPrice:   skill.PointsPrice,
			InstructorID:       skill.InstructorID,
			StudentID:          student.ID,
			AvailabilitySlotID: slot.ID,
			BookingStart:       slot.StartTime,
			BookingEnd:         slot.EndTime,
			Status:             StatusConfirmed,
			CreatedAt:          e.now().UTC(),
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		booked = &b
		return nil
	})

	if err != nil {
		// Attempt-timeout expiry behaves like any other transient failure.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTransactionConflict
		}
		return nil, err
	}
	return booked, nil
}
