/*
lifecycle.go - Booking status transitions after creation

PURPOSE:
  A Booking is born confirmed inside the atomic booking transaction. From
  there its status moves exactly once:

    confirmed -> completed   either party, once BookingEnd has passed;
                             also deletes the chat transcript
    confirmed -> cancelled   instructor only

  completed and cancelled are terminal.

NOT PART OF THE ATOMIC CORE:
  Transitions are single-document conditional writes. They are deliberately
  NOT wrapped in the same transaction as any ledger mutation — with one
  explicit exception: when the refund-on-cancel policy is enabled, the refund
  runs in its own full atomic section.

REFUND POLICY:
  Whether cancelling returns the student's points is a policy decision, not
  an inferred behavior. The default is no refund: the points transferred at
  booking time stay with the instructor, which is what the system this one
  models actually does. Enable RefundOnCancel to reverse the transfer
  transactionally on cancellation.

SEE ALSO:
  - engine.go: creation path
  - chat.go: the transcript removed on completion
*/
package booking

import "context"

// CancellationPolicy makes the refund behavior explicit instead of implied.
type CancellationPolicy struct {
	// RefundOnCancel reverses the points transfer when the instructor
	// cancels: credit the student, debit the instructor, atomically with the
	// status flip. The debit re-checks the instructor's live balance and the
	// whole cancellation fails with InsufficientBalanceError rather than
	// driving the balance negative.
	RefundOnCancel bool
}

// =============================================================================
// COMPLETE
// =============================================================================

// Complete advances confirmed -> completed. Either party may trigger it, but
// only after the booking's end time has passed. The chat transcript for the
// booking is deleted on success.
func (e *Engine) Complete(ctx context.Context, id BookingID, actorID UserID) error {
	b, err := e.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrBookingNotFound
	}
	if !b.IsParty(actorID) {
		return ErrPermissionDenied
	}
	if e.now().Before(b.BookingEnd) {
		return ErrBookingNotEnded
	}

	if err := e.store.UpdateBookingStatus(ctx, id, StatusConfirmed, StatusCompleted); err != nil {
		return err
	}
	if err := e.store.DeleteChatTranscript(ctx, id); err != nil {
		return err
	}

	e.notifier.BookingsChanged(b.StudentID, b.InstructorID)
	return nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel advances confirmed -> cancelled. Instructor only. Refund behavior
// follows the engine's CancellationPolicy.
func (e *Engine) Cancel(ctx context.Context, id BookingID, actorID UserID) error {
	b, err := e.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrBookingNotFound
	}
	if actorID != b.InstructorID {
		return ErrPermissionDenied
	}

	if !e.Cancellation.RefundOnCancel {
		if err := e.store.UpdateBookingStatus(ctx, id, StatusConfirmed, StatusCancelled); err != nil {
			return err
		}
		e.notifier.BookingsChanged(b.StudentID, b.InstructorID)
		return nil
	}

	// Refund path: status flip and ledger reversal share one atomic section.
	err = e.store.WithTx(ctx, func(tx Store) error {
		student, err := tx.GetUser(ctx, b.StudentID)
		if err != nil {
			return err
		}
		instructor, err := tx.GetUser(ctx, b.InstructorID)
		if err != nil {
			return err
		}
		if student == nil || instructor == nil {
			return ErrActorNotFound
		}
		if instructor.Points < b.SkillPointsPrice {
			return &InsufficientBalanceError{
				StudentID: instructor.ID,
				Price:     b.SkillPointsPrice,
				Balance:   instructor.Points,
				Shortfall: b.SkillPointsPrice - instructor.Points,
			}
		}
		if err := tx.UpdateBookingStatus(ctx, id, StatusConfirmed, StatusCancelled); err != nil {
			return err
		}
		if err := tx.SetUserPoints(ctx, instructor.ID, instructor.Points-b.SkillPointsPrice); err != nil {
			return err
		}
		return tx.SetUserPoints(ctx, student.ID, student.Points+b.SkillPointsPrice)
	})
	if err != nil {
		return err
	}

	e.notifier.BalanceChanged(b.StudentID)
	e.notifier.BalanceChanged(b.InstructorID)
	e.notifier.BookingsChanged(b.StudentID, b.InstructorID)
	return nil
}

// =============================================================================
// READ VIEW
// =============================================================================

// BookingsForUser returns bookings where the user participates as student or
// instructor, ordered by start time.
func (e *Engine) BookingsForUser(ctx context.Context, userID UserID) ([]Booking, error) {
	return e.store.ListBookingsForUser(ctx, userID)
}

// GetBooking returns a booking by id, or ErrBookingNotFound.
func (e *Engine) GetBooking(ctx context.Context, id BookingID) (*Booking, error) {
	b, err := e.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	return b, nil
}
