/*
slots.go - Availability slot store operations

PURPOSE:
  Supporting operations around the slot sub-collection: instructors create
  windows ahead of time, students list the open ones, and instructors delete
  windows that nobody booked yet. The one transition that matters
  (available -> booked) does NOT live here — only the booking transaction in
  engine.go performs it.

RULES:
  - CreateSlot rejects start >= end and starts in the past (with a minute of
    clock-skew tolerance for "starts right now" entries).
  - ListOpenSlots returns only available slots with a future start, ascending.
  - DeleteSlot applies only while the slot is available; a booked slot is
    referenced by its booking and must keep existing.

SEE ALSO:
  - engine.go: the only writer of slot status
*/
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// pastSkew tolerates client clocks slightly behind the server when creating a
// slot that starts "now".
const pastSkew = time.Minute

// Slots manages the availability sub-collection of skills.
type Slots struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewSlots creates the slot service. notifier may be nil.
func NewSlots(store Store, notifier Notifier) *Slots {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Slots{store: store, notifier: notifier, now: time.Now}
}

// CreateSlot adds an available window for a skill. Only the skill's owner may
// create slots for it.
func (s *Slots) CreateSlot(ctx context.Context, skillID SkillID, actorID UserID, start, end time.Time) (*AvailabilitySlot, error) {
	if actorID == "" {
		return nil, ErrNotAuthenticated
	}
	if !start.Before(end) {
		return nil, ErrInvalidSlotWindow
	}
	if start.Before(s.now().Add(-pastSkew)) {
		return nil, ErrSlotInPast
	}

	skill, err := s.store.GetSkill(ctx, skillID)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return nil, ErrSkillNotFound
	}
	if skill.InstructorID != actorID {
		return nil, ErrPermissionDenied
	}

	slot := AvailabilitySlot{
		ID:           SlotID(uuid.NewString()),
		SkillID:      skillID,
		InstructorID: skill.InstructorID,
		StartTime:    start.UTC(),
		EndTime:      end.UTC(),
		Status:       SlotAvailable,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.SaveSlot(ctx, slot); err != nil {
		return nil, err
	}

	s.notifier.SlotsChanged(skillID)
	return &slot, nil
}

// ListOpenSlots returns bookable slots for a skill: available and starting in
// the future, ordered by start time ascending.
func (s *Slots) ListOpenSlots(ctx context.Context, skillID SkillID) ([]AvailabilitySlot, error) {
	return s.store.ListOpenSlots(ctx, skillID, s.now())
}

// DeleteSlot removes an available slot. Deleting a booked slot is rejected
// with ErrSlotBooked.
func (s *Slots) DeleteSlot(ctx context.Context, skillID SkillID, slotID SlotID, actorID UserID) error {
	slot, err := s.store.GetSlot(ctx, skillID, slotID)
	if err != nil {
		return err
	}
	if slot == nil {
		return ErrSlotNotFound
	}
	if slot.InstructorID != actorID {
		return ErrPermissionDenied
	}

	// The store re-checks the available-only condition; a booking racing this
	// delete wins and the delete fails with ErrSlotBooked.
	if err := s.store.DeleteSlot(ctx, skillID, slotID); err != nil {
		return err
	}

	s.notifier.SlotsChanged(skillID)
	return nil
}
