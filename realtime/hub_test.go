/*
hub_test.go - Realtime snapshot push tests
*/
package realtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/booking-engine/booking"
	"github.com/skillswap/booking-engine/booking/store"
	"github.com/skillswap/booking-engine/realtime"
)

func newTestHub(t *testing.T) (*realtime.Hub, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return realtime.NewHub(mem), mem
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed before a value arrived")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		panic("unreachable")
	}
}

func seedOpenSlot(t *testing.T, mem *store.Memory, skillID, slotID string) {
	t.Helper()
	start := time.Now().Add(time.Hour).UTC()
	require.NoError(t, mem.SaveSlot(context.Background(), booking.AvailabilitySlot{
		ID:           booking.SlotID(slotID),
		SkillID:      booking.SkillID(skillID),
		InstructorID: "instructor",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		Status:       booking.SlotAvailable,
		CreatedAt:    time.Now().UTC(),
	}))
}

func TestWatchOpenSlots_InitialSnapshotThenPush(t *testing.T) {
	// GIVEN: A skill with one open slot and a subscriber
	// WHEN: A second slot appears and SlotsChanged fires
	// THEN: The subscriber sees the initial single-slot snapshot, then a
	//       fresh two-slot snapshot

	hub, mem := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seedOpenSlot(t, mem, "skill-1", "slot-1")

	ch := hub.WatchOpenSlots(ctx, "skill-1")

	initial := recv(t, ch)
	require.Len(t, initial, 1)

	seedOpenSlot(t, mem, "skill-1", "slot-2")
	hub.SlotsChanged("skill-1")

	updated := recv(t, ch)
	assert.Len(t, updated, 2)
}

func TestWatchBalance_PushesFreshBalance(t *testing.T) {
	hub, mem := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, mem.SaveUser(context.Background(), booking.User{
		ID: "student-a", Email: "a@example.com", Points: 30, CreatedAt: time.Now().UTC(),
	}))

	ch := hub.WatchBalance(ctx, "student-a")
	assert.Equal(t, int64(30), recv(t, ch))

	require.NoError(t, mem.SetUserPoints(context.Background(), "student-a", 10))
	hub.BalanceChanged("student-a")

	assert.Equal(t, int64(10), recv(t, ch))
}

func TestWatchBookings_PushesOnChange(t *testing.T) {
	hub, mem := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.WatchBookings(ctx, "student-a")
	assert.Empty(t, recv(t, ch), "initial snapshot is the empty list")

	now := time.Now().UTC()
	require.NoError(t, mem.CreateBooking(context.Background(), booking.Booking{
		ID:                 "b-1",
		SkillID:            "skill-1",
		SkillTitle:         "Guitar Lessons",
		SkillPointsPrice:   20,
		InstructorID:       "instructor",
		StudentID:          "student-a",
		AvailabilitySlotID: "slot-1",
		BookingStart:       now.Add(time.Hour),
		BookingEnd:         now.Add(2 * time.Hour),
		Status:             booking.StatusConfirmed,
		CreatedAt:          now,
	}))
	hub.BookingsChanged("student-a", "instructor")

	assert.Len(t, recv(t, ch), 1)
}

func TestWatch_SlowSubscriberGetsLatestOnly(t *testing.T) {
	// GIVEN: A subscriber that never drains between pushes
	// WHEN: The balance changes three times
	// THEN: The next read sees the latest value; intermediates are dropped

	hub, mem := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, mem.SaveUser(context.Background(), booking.User{
		ID: "student-a", Email: "a@example.com", Points: 30, CreatedAt: time.Now().UTC(),
	}))

	ch := hub.WatchBalance(ctx, "student-a")
	recv(t, ch) // drain the initial snapshot

	for _, points := range []int64{25, 20, 15} {
		require.NoError(t, mem.SetUserPoints(context.Background(), "student-a", points))
		hub.BalanceChanged("student-a")
	}

	assert.Equal(t, int64(15), recv(t, ch))
}

func TestWatch_CancelClosesChannel(t *testing.T) {
	hub, mem := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())

	seedOpenSlot(t, mem, "skill-1", "slot-1")
	ch := hub.WatchOpenSlots(ctx, "skill-1")
	recv(t, ch)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel closes after unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close")
	}

	// A push after unsubscribe must not panic.
	hub.SlotsChanged("skill-1")
}
