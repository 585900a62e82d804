/*
engine_test.go - Booking transaction tests

PURPOSE:
  Validates the atomic booking protocol: the success path with exact ledger
  arithmetic, every precondition and in-transaction failure, the all-or-
  nothing guarantee, and the retry behavior under injected write conflicts.
*/
package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/booking-engine/booking"
	"github.com/skillswap/booking-engine/booking/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*booking.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return booking.NewEngine(mem, nil), mem
}

func seedUser(t *testing.T, mem *store.Memory, id string, points int64) booking.User {
	t.Helper()
	u := booking.User{
		ID:        booking.UserID(id),
		Email:     id + "@example.com",
		Name:      id,
		Points:    points,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, mem.SaveUser(context.Background(), u))
	return u
}

func seedSkill(t *testing.T, mem *store.Memory, id, instructorID string, price int64) booking.Skill {
	t.Helper()
	s := booking.Skill{
		ID:              booking.SkillID(id),
		InstructorID:    booking.UserID(instructorID),
		Title:           "Guitar Lessons",
		PointsPrice:     price,
		DurationMinutes: 60,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, mem.SaveSkill(context.Background(), s))
	return s
}

func seedSlot(t *testing.T, mem *store.Memory, skillID, slotID, instructorID string) booking.AvailabilitySlot {
	t.Helper()
	start := time.Now().Add(24 * time.Hour).UTC()
	s := booking.AvailabilitySlot{
		ID:           booking.SlotID(slotID),
		SkillID:      booking.SkillID(skillID),
		InstructorID: booking.UserID(instructorID),
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		Status:       booking.SlotAvailable,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, mem.SaveSlot(context.Background(), s))
	return s
}

func attempt(e *booking.Engine, student, skill, slot string) (*booking.Booking, error) {
	return e.AttemptBooking(context.Background(), booking.BookingInput{
		StudentID: booking.UserID(student),
		SkillID:   booking.SkillID(skill),
		SlotID:    booking.SlotID(slot),
	})
}

// =============================================================================
// SUCCESS PATH
// =============================================================================

func TestAttemptBooking_Success_TransfersPointsAndFlipsSlot(t *testing.T) {
	// GIVEN: Instructor I with 50 points, student A with 30, price 20
	// WHEN: A books the open slot
	// THEN: A has 10, I has 70, the slot is booked, and a confirmed Booking
	//       exists with the price and time snapshots

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 50)
	seedUser(t, mem, "student-a", 30)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	slot := seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	booked, err := attempt(engine, "student-a", "skill-1", "slot-1")
	require.NoError(t, err)
	require.NotNil(t, booked)

	student, _ := mem.GetUser(ctx, "student-a")
	instructor, _ := mem.GetUser(ctx, "instructor")
	assert.Equal(t, int64(10), student.Points, "student debited by price")
	assert.Equal(t, int64(70), instructor.Points, "instructor credited by price")

	got, _ := mem.GetSlot(ctx, "skill-1", "slot-1")
	assert.Equal(t, booking.SlotBooked, got.Status)

	assert.Equal(t, booking.StatusConfirmed, booked.Status)
	assert.Equal(t, int64(20), booked.SkillPointsPrice, "price snapshot")
	assert.Equal(t, "Guitar Lessons", booked.SkillTitle)
	assert.True(t, booked.BookingStart.Equal(slot.StartTime))
	assert.True(t, booked.BookingEnd.Equal(slot.EndTime))
	assert.Equal(t, booking.UserID("student-a"), booked.StudentID)
	assert.Equal(t, booking.UserID("instructor"), booked.InstructorID)
}

func TestAttemptBooking_PriceSnapshot_SurvivesSkillRepricing(t *testing.T) {
	// GIVEN: A booking made at price 20
	// WHEN: The instructor reprices the skill to 100 afterwards
	// THEN: The stored booking still carries price 20

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedUser(t, mem, "student-a", 30)
	skill := seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	booked, err := attempt(engine, "student-a", "skill-1", "slot-1")
	require.NoError(t, err)

	skill.PointsPrice = 100
	require.NoError(t, mem.SaveSkill(ctx, skill))

	stored, _ := mem.GetBooking(ctx, booked.ID)
	assert.Equal(t, int64(20), stored.SkillPointsPrice)
}

// =============================================================================
// PRECONDITION FAILURES (no side effects)
// =============================================================================

func TestAttemptBooking_NotAuthenticated(t *testing.T) {
	// GIVEN: No authenticated student
	// WHEN: Attempting a booking
	// THEN: ErrNotAuthenticated, before any store access

	engine, _ := newTestEngine(t)

	_, err := attempt(engine, "", "skill-1", "slot-1")
	assert.ErrorIs(t, err, booking.ErrNotAuthenticated)
}

func TestAttemptBooking_NoSlotSelected(t *testing.T) {
	// GIVEN: A booking attempt without a slot id
	// WHEN: Attempting
	// THEN: ErrNoSlotSelected

	engine, _ := newTestEngine(t)

	_, err := attempt(engine, "student-a", "skill-1", "")
	assert.ErrorIs(t, err, booking.ErrNoSlotSelected)
}

func TestAttemptBooking_SkillNotFound(t *testing.T) {
	engine, mem := newTestEngine(t)
	seedUser(t, mem, "student-a", 30)

	_, err := attempt(engine, "student-a", "missing-skill", "slot-1")
	assert.ErrorIs(t, err, booking.ErrSkillNotFound)
}

func TestAttemptBooking_SelfBooking_Forbidden(t *testing.T) {
	// GIVEN: An instructor viewing their own skill
	// WHEN: They try to book their own slot
	// THEN: ErrSelfBooking, with no points moved

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 50)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	_, err := attempt(engine, "instructor", "skill-1", "slot-1")
	assert.ErrorIs(t, err, booking.ErrSelfBooking)

	u, _ := mem.GetUser(ctx, "instructor")
	assert.Equal(t, int64(50), u.Points, "balance untouched")
}

// =============================================================================
// IN-TRANSACTION FAILURES (all-or-nothing)
// =============================================================================

func TestAttemptBooking_InsufficientBalance_ReportsShortfallAndMutatesNothing(t *testing.T) {
	// GIVEN: Student with 5 points, price 20
	// WHEN: Attempting the booking
	// THEN: InsufficientBalanceError with shortfall 15, and no document changed

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 50)
	seedUser(t, mem, "student-a", 5)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	_, err := attempt(engine, "student-a", "skill-1", "slot-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrInsufficientPoints)

	var insufficient *booking.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(20), insufficient.Price)
	assert.Equal(t, int64(5), insufficient.Balance)
	assert.Equal(t, int64(15), insufficient.Shortfall)

	student, _ := mem.GetUser(ctx, "student-a")
	instructor, _ := mem.GetUser(ctx, "instructor")
	slot, _ := mem.GetSlot(ctx, "skill-1", "slot-1")
	assert.Equal(t, int64(5), student.Points)
	assert.Equal(t, int64(50), instructor.Points)
	assert.Equal(t, booking.SlotAvailable, slot.Status)

	bookings, _ := mem.ListBookingsForUser(ctx, "student-a")
	assert.Empty(t, bookings, "no booking record created")
}

func TestAttemptBooking_SlotAlreadyBooked(t *testing.T) {
	// GIVEN: A slot already flipped to booked
	// WHEN: A second student attempts it
	// THEN: ErrSlotUnavailable and their balance is untouched

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 0)
	seedUser(t, mem, "student-a", 30)
	seedUser(t, mem, "student-b", 30)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	_, err := attempt(engine, "student-a", "skill-1", "slot-1")
	require.NoError(t, err)

	_, err = attempt(engine, "student-b", "skill-1", "slot-1")
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)

	b, _ := mem.GetUser(ctx, "student-b")
	assert.Equal(t, int64(30), b.Points)
}

func TestAttemptBooking_MissingSlot_ReadsAsUnavailable(t *testing.T) {
	engine, mem := newTestEngine(t)

	seedUser(t, mem, "instructor", 0)
	seedUser(t, mem, "student-a", 30)
	seedSkill(t, mem, "skill-1", "instructor", 20)

	_, err := attempt(engine, "student-a", "skill-1", "ghost-slot")
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
}

func TestAttemptBooking_MissingInstructorLedger_ActorNotFound(t *testing.T) {
	// GIVEN: A skill whose instructor account no longer exists
	// WHEN: A student attempts a booking
	// THEN: ErrActorNotFound and the student's balance is untouched

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "student-a", 30)
	seedSkill(t, mem, "skill-1", "ghost-instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "ghost-instructor")

	_, err := attempt(engine, "student-a", "skill-1", "slot-1")
	assert.ErrorIs(t, err, booking.ErrActorNotFound)

	student, _ := mem.GetUser(ctx, "student-a")
	assert.Equal(t, int64(30), student.Points)
}

// =============================================================================
// CONCURRENCY AND RETRY
// =============================================================================

func TestAttemptBooking_ConcurrentSameSlot_ExactlyOneWins(t *testing.T) {
	// GIVEN: Two students racing for the last slot
	// WHEN: Both attempts run concurrently
	// THEN: Exactly one succeeds, the loser sees ErrSlotUnavailable, and the
	//       loser's balance is untouched

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 50)
	seedUser(t, mem, "student-a", 30)
	seedUser(t, mem, "student-b", 30)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, student := range []string{"student-a", "student-b"} {
		wg.Add(1)
		go func(i int, student string) {
			defer wg.Done()
			_, errs[i] = attempt(engine, student, "skill-1", "slot-1")
		}(i, student)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, winners, "exactly one attempt wins the slot")

	a, _ := mem.GetUser(ctx, "student-a")
	b, _ := mem.GetUser(ctx, "student-b")
	instructor, _ := mem.GetUser(ctx, "instructor")
	assert.Equal(t, int64(70), instructor.Points, "credited exactly once")
	assert.Equal(t, int64(40), a.Points+b.Points, "exactly one student debited")
}

func TestAttemptBooking_RetriesConflicts_ExactlyOneBooking(t *testing.T) {
	// GIVEN: The store reports write conflicts on the next two commits
	// WHEN: A booking is attempted
	// THEN: The retry loop absorbs both conflicts, the attempt succeeds, and
	//       exactly one booking exists (retries are not duplicated)

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 50)
	seedUser(t, mem, "student-a", 30)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	mem.ForceConflicts(2)

	booked, err := attempt(engine, "student-a", "skill-1", "slot-1")
	require.NoError(t, err)
	require.NotNil(t, booked)

	bookings, _ := mem.ListBookingsForUser(ctx, "student-a")
	require.Len(t, bookings, 1, "conflicted attempts left no residue")

	student, _ := mem.GetUser(ctx, "student-a")
	assert.Equal(t, int64(10), student.Points, "debited exactly once")
}

func TestAttemptBooking_ConflictRetriesExhausted(t *testing.T) {
	// GIVEN: More consecutive conflicts than MaxRetries allows
	// WHEN: A booking is attempted
	// THEN: ErrTransactionConflict surfaces and nothing changed

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	seedUser(t, mem, "instructor", 50)
	seedUser(t, mem, "student-a", 30)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	mem.ForceConflicts(10)

	_, err := attempt(engine, "student-a", "skill-1", "slot-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrTransactionConflict)
	assert.True(t, booking.IsRetryable(err))

	student, _ := mem.GetUser(ctx, "student-a")
	slot, _ := mem.GetSlot(ctx, "skill-1", "slot-1")
	assert.Equal(t, int64(30), student.Points)
	assert.Equal(t, booking.SlotAvailable, slot.Status)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

type recordingNotifier struct {
	mu       sync.Mutex
	slots    []booking.SkillID
	balances []booking.UserID
	bookings []booking.UserID
}

func (n *recordingNotifier) SlotsChanged(id booking.SkillID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.slots = append(n.slots, id)
}

func (n *recordingNotifier) BalanceChanged(id booking.UserID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances = append(n.balances, id)
}

func (n *recordingNotifier) BookingsChanged(ids ...booking.UserID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, ids...)
}

func TestAttemptBooking_NotifiesAfterCommit(t *testing.T) {
	// GIVEN: An engine wired to a notifier
	// WHEN: A booking succeeds
	// THEN: Slot, both balances, and both booking lists are signalled

	mem := store.NewMemory()
	notifier := &recordingNotifier{}
	engine := booking.NewEngine(mem, notifier)

	seedUser(t, mem, "instructor", 50)
	seedUser(t, mem, "student-a", 30)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	_, err := attempt(engine, "student-a", "skill-1", "slot-1")
	require.NoError(t, err)

	assert.Equal(t, []booking.SkillID{"skill-1"}, notifier.slots)
	assert.ElementsMatch(t, []booking.UserID{"student-a", "instructor"}, notifier.balances)
	assert.ElementsMatch(t, []booking.UserID{"student-a", "instructor"}, notifier.bookings)
}

func TestAttemptBooking_FailedAttempt_NoNotifications(t *testing.T) {
	mem := store.NewMemory()
	notifier := &recordingNotifier{}
	engine := booking.NewEngine(mem, notifier)

	seedUser(t, mem, "instructor", 50)
	seedUser(t, mem, "student-a", 5)
	seedSkill(t, mem, "skill-1", "instructor", 20)
	seedSlot(t, mem, "skill-1", "slot-1", "instructor")

	_, err := attempt(engine, "student-a", "skill-1", "slot-1")
	require.Error(t, err)

	assert.Empty(t, notifier.slots)
	assert.Empty(t, notifier.balances)
	assert.Empty(t, notifier.bookings)
}
