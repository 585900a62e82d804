/*
Package booking provides the core engine of the skill-sharing marketplace.

PURPOSE:
  This package contains the domain model and the booking transaction engine.
  Users list skills they can teach, advertise availability slots, and other
  users spend a points balance to reserve those slots. The hard part lives
  here: the atomic read-check-write that debits the student, credits the
  instructor, flips the slot, and emits a Booking record — all or nothing,
  under concurrent access.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: a ledger entry (points balance) plus profile fields
  - Skill: an offering owned by an instructor, priced in points
  - AvailabilitySlot: a bookable time window with a two-state lifecycle
  - Booking: the immutable record of a successful reservation

DESIGN PRINCIPLES:
  1. One monetary unit: integer points, system-wide. No fractions, no currency.
  2. Snapshotting: a Booking stores the price and slot times at booking time;
     later Skill edits never rewrite history.
  3. Type Safety: strong typing for IDs prevents mixing user/skill/slot IDs.
  4. One-way slot lifecycle: available -> booked, exactly once, transactional.

SEE ALSO:
  - engine.go: the atomic booking protocol
  - lifecycle.go: confirmed -> completed/cancelled transitions
  - store.go: persistence interface and the transaction primitive
*/
package booking

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type SkillID string
type SlotID string
type BookingID string

// =============================================================================
// USER - Ledger entry plus profile
// =============================================================================

// User is a marketplace account. Points is the ledger balance: a non-negative
// integer mutated only by the booking transaction (and signup initialization).
type User struct {
	ID           UserID
	Email        string
	Name         string
	PasswordHash string
	Points       int64
	CreatedAt    time.Time
}

// =============================================================================
// SKILL - An instructor's offering
// =============================================================================

// Skill is read-only input to the booking transaction. InstructorID is
// immutable after creation.
type Skill struct {
	ID              SkillID
	InstructorID    UserID
	Title           string
	Description     string
	Category        string
	PointsPrice     int64
	DurationMinutes int
	CreatedAt       time.Time
}

// =============================================================================
// AVAILABILITY SLOT - Bookable time window
// =============================================================================

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

// AvailabilitySlot is a time window advertised by an instructor for a skill.
// InstructorID is denormalized from the owning skill. Status transitions
// available -> booked exactly once, exclusively inside the booking
// transaction, and never back.
type AvailabilitySlot struct {
	ID           SlotID
	SkillID      SkillID
	InstructorID UserID
	StartTime    time.Time
	EndTime      time.Time
	Status       SlotStatus
	CreatedAt    time.Time
}

// =============================================================================
// BOOKING - Record of a successful reservation
// =============================================================================

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is created atomically alongside the ledger debit/credit and the
// slot transition. Everything except Status is immutable once written:
// SkillTitle and SkillPointsPrice are snapshots taken at booking time, and
// BookingStart/BookingEnd are copied from the slot.
//
// INVARIANT: AvailabilitySlotID maps 1:1 to exactly one Booking for its
// lifetime, guaranteed by the slot's one-way state transition.
type Booking struct {
	ID                 BookingID
	SkillID            SkillID
	SkillTitle         string
	SkillPointsPrice   int64
	InstructorID       UserID
	StudentID          UserID
	AvailabilitySlotID SlotID
	BookingStart       time.Time
	BookingEnd         time.Time
	Status             BookingStatus
	CreatedAt          time.Time
}

// IsParty reports whether id is the student or the instructor of the booking.
func (b Booking) IsParty(id UserID) bool {
	return id == b.StudentID || id == b.InstructorID
}

// =============================================================================
// CHAT MESSAGE - Per-booking transcript entry
// =============================================================================

// ChatMessage belongs to a booking's transcript. The transcript is deleted
// when the booking completes. Delivery guarantees are out of scope.
type ChatMessage struct {
	ID        string
	BookingID BookingID
	SenderID  UserID
	Text      string
	CreatedAt time.Time
}

// =============================================================================
// BOOKING INPUT - The (student, slot, skill) triple collected by the UI
// =============================================================================

// BookingInput identifies one booking attempt. StudentID comes from the
// authenticated principal, never from the request body.
type BookingInput struct {
	StudentID UserID
	SkillID   SkillID
	SlotID    SlotID
}
