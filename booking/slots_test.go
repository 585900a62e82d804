/*
slots_test.go - Availability slot service tests
*/
package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/booking-engine/booking"
	"github.com/skillswap/booking-engine/booking/store"
)

func newTestSlots(t *testing.T) (*booking.Slots, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return booking.NewSlots(mem, nil), mem
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreateSlot_OwnerCreatesFutureWindow(t *testing.T) {
	// GIVEN: An instructor owning a skill
	// WHEN: They open a valid future window
	// THEN: The slot is stored available with UTC times

	slots, mem := newTestSlots(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedSkill(t, mem, "skill-1", "instructor", 20)

	start := time.Now().Add(2 * time.Hour)
	slot, err := slots.CreateSlot(ctx, "skill-1", "instructor", start, start.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, booking.SlotAvailable, slot.Status)
	assert.Equal(t, booking.UserID("instructor"), slot.InstructorID)
	assert.NotEmpty(t, slot.ID)

	stored, _ := mem.GetSlot(ctx, "skill-1", slot.ID)
	require.NotNil(t, stored)
}

func TestCreateSlot_InvalidWindow(t *testing.T) {
	slots, mem := newTestSlots(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedSkill(t, mem, "skill-1", "instructor", 20)

	start := time.Now().Add(2 * time.Hour)

	_, err := slots.CreateSlot(ctx, "skill-1", "instructor", start, start)
	assert.ErrorIs(t, err, booking.ErrInvalidSlotWindow, "zero-length window")

	_, err = slots.CreateSlot(ctx, "skill-1", "instructor", start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, booking.ErrInvalidSlotWindow, "end before start")
}

func TestCreateSlot_StartInPast_Rejected(t *testing.T) {
	// GIVEN: A window starting well before now
	// WHEN: Creating it
	// THEN: ErrSlotInPast; a start within the skew tolerance still passes

	slots, mem := newTestSlots(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedSkill(t, mem, "skill-1", "instructor", 20)

	_, err := slots.CreateSlot(ctx, "skill-1", "instructor",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, booking.ErrSlotInPast)

	// Just a few seconds behind "now" is tolerated clock skew.
	_, err = slots.CreateSlot(ctx, "skill-1", "instructor",
		time.Now().Add(-10*time.Second), time.Now().Add(time.Hour))
	assert.NoError(t, err)
}

func TestCreateSlot_NonOwner_Forbidden(t *testing.T) {
	slots, mem := newTestSlots(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedUser(t, mem, "intruder", 0)
	seedSkill(t, mem, "skill-1", "instructor", 20)

	start := time.Now().Add(2 * time.Hour)
	_, err := slots.CreateSlot(ctx, "skill-1", "intruder", start, start.Add(time.Hour))
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)
}

func TestCreateSlot_MissingSkill(t *testing.T) {
	slots, _ := newTestSlots(t)

	start := time.Now().Add(2 * time.Hour)
	_, err := slots.CreateSlot(context.Background(), "ghost", "instructor", start, start.Add(time.Hour))
	assert.ErrorIs(t, err, booking.ErrSkillNotFound)
}

// =============================================================================
// LIST
// =============================================================================

func TestListOpenSlots_FiltersBookedAndPast_OrdersAscending(t *testing.T) {
	// GIVEN: A booked slot, a past slot, and two future open slots
	// WHEN: Listing open slots
	// THEN: Only the future open slots return, earliest first

	slots, mem := newTestSlots(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedSkill(t, mem, "skill-1", "instructor", 20)

	save := func(id string, start time.Time, status booking.SlotStatus) {
		require.NoError(t, mem.SaveSlot(ctx, booking.AvailabilitySlot{
			ID:           booking.SlotID(id),
			SkillID:      "skill-1",
			InstructorID: "instructor",
			StartTime:    start.UTC(),
			EndTime:      start.Add(time.Hour).UTC(),
			Status:       status,
			CreatedAt:    time.Now().UTC(),
		}))
	}

	now := time.Now()
	save("past", now.Add(-3*time.Hour), booking.SlotAvailable)
	save("booked", now.Add(2*time.Hour), booking.SlotBooked)
	save("later", now.Add(5*time.Hour), booking.SlotAvailable)
	save("sooner", now.Add(1*time.Hour), booking.SlotAvailable)

	open, err := slots.ListOpenSlots(ctx, "skill-1")
	require.NoError(t, err)

	require.Len(t, open, 2)
	assert.Equal(t, booking.SlotID("sooner"), open[0].ID)
	assert.Equal(t, booking.SlotID("later"), open[1].ID)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteSlot_OpenSlot_Removed(t *testing.T) {
	slots, mem := newTestSlots(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	require.NoError(t, slots.DeleteSlot(ctx, "skill-1", "slot-1", "instructor"))

	got, _ := mem.GetSlot(ctx, "skill-1", "slot-1")
	assert.Nil(t, got)
}

func TestDeleteSlot_BookedSlot_Rejected(t *testing.T) {
	// GIVEN: A slot that has been booked
	// WHEN: The instructor tries to delete it
	// THEN: ErrSlotBooked; the slot keeps existing for its booking

	slots, mem := newTestSlots(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")
	require.NoError(t, mem.MarkSlotBooked(ctx, "skill-1", "slot-1"))

	err := slots.DeleteSlot(ctx, "skill-1", "slot-1", "instructor")
	assert.ErrorIs(t, err, booking.ErrSlotBooked)

	got, _ := mem.GetSlot(ctx, "skill-1", "slot-1")
	require.NotNil(t, got)
}

func TestDeleteSlot_NonOwner_Forbidden(t *testing.T) {
	slots, mem := newTestSlots(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	err := slots.DeleteSlot(ctx, "skill-1", "slot-1", "intruder")
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)
}

func TestDeleteSlot_Missing(t *testing.T) {
	slots, _ := newTestSlots(t)

	err := slots.DeleteSlot(context.Background(), "skill-1", "ghost", "instructor")
	assert.ErrorIs(t, err, booking.ErrSlotNotFound)
}
