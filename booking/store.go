/*
store.go - Persistence interface for the marketplace collections

PURPOSE:
  Defines the interface between the domain logic and the database. Four
  logical collections back the system: users (ledger entries), skills,
  availability slots (a per-skill sub-collection), and bookings, plus the
  per-booking chat transcript.

THE TRANSACTION PRIMITIVE:
  The only place true concurrency is resolved is the store. TxStore.WithTx
  runs a function against a snapshot-isolated view: reads inside fn are
  mutually consistent, writes commit together or not at all, and a write
  conflict with a concurrent transaction surfaces as ErrTransactionConflict.
  The engine never takes in-process locks of its own.

CONDITIONAL WRITES:
  The hot-path mutations are conditional so the database is the last line of
  defense even if a caller skips validation:
  - MarkSlotBooked only flips a slot that is still available
  - UpdateBookingStatus only applies when the current status matches

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite
  - booking/store/memory.go: in-memory for testing

SEE ALSO:
  - engine.go: the only writer of users/slots/bookings on the booking path
*/
package booking

import (
	"context"
	"time"
)

// =============================================================================
// STORE - One interface over the four collections
// =============================================================================

// Store handles persistence. Get* methods return (nil, nil) when the record
// does not exist; callers decide whether that is an error.
type Store interface {
	// Users (ledger entries)
	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id UserID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// SetUserPoints overwrites the balance with a value computed from a read
	// taken in the same atomic section. Returns ErrActorNotFound if the user
	// row is missing.
	SetUserPoints(ctx context.Context, id UserID, points int64) error

	// Skills
	SaveSkill(ctx context.Context, s Skill) error
	GetSkill(ctx context.Context, id SkillID) (*Skill, error)
	ListSkills(ctx context.Context) ([]Skill, error)
	ListSkillsByInstructor(ctx context.Context, instructorID UserID) ([]Skill, error)
	DeleteSkill(ctx context.Context, id SkillID) error

	// Availability slots (sub-collection of a skill)
	SaveSlot(ctx context.Context, s AvailabilitySlot) error
	GetSlot(ctx context.Context, skillID SkillID, slotID SlotID) (*AvailabilitySlot, error)

	// ListOpenSlots returns available slots starting after the given instant,
	// ordered by StartTime ascending.
	ListOpenSlots(ctx context.Context, skillID SkillID, after time.Time) ([]AvailabilitySlot, error)

	// HasBookedSlots reports whether any slot of the skill is booked.
	HasBookedSlots(ctx context.Context, skillID SkillID) (bool, error)

	// MarkSlotBooked flips available -> booked. Returns ErrSlotUnavailable
	// if the slot is missing or not available anymore.
	MarkSlotBooked(ctx context.Context, skillID SkillID, slotID SlotID) error

	// DeleteSlot removes a slot only while it is available. Returns
	// ErrSlotBooked for a booked slot, ErrSlotNotFound for a missing one.
	DeleteSlot(ctx context.Context, skillID SkillID, slotID SlotID) error

	// Bookings
	CreateBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id BookingID) (*Booking, error)

	// ListBookingsForUser returns bookings where the user is student or
	// instructor, ordered by BookingStart ascending.
	ListBookingsForUser(ctx context.Context, userID UserID) ([]Booking, error)

	// UpdateBookingStatus is a compare-and-swap on the status field. Returns
	// ErrInvalidTransition when the current status differs from `from`,
	// ErrBookingNotFound when the booking is missing.
	UpdateBookingStatus(ctx context.Context, id BookingID, from, to BookingStatus) error

	// Chat transcript
	AppendChatMessage(ctx context.Context, m ChatMessage) error
	ListChatMessages(ctx context.Context, bookingID BookingID) ([]ChatMessage, error)
	DeleteChatTranscript(ctx context.Context, bookingID BookingID) error
}

// =============================================================================
// TRANSACTIONAL STORE - The atomic section
// =============================================================================

// TxStore wraps Store with the multi-document transaction primitive.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back and no partial effect is observable. A
	// concurrent-write conflict at commit surfaces as ErrTransactionConflict.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// NOTIFIER - Post-commit change signals for the realtime view layer
// =============================================================================

// Notifier receives change signals after a commit. There is no ordering
// guarantee between a commit and the corresponding push reaching subscribers;
// subscription data is a rendering hint, never a correctness input.
type Notifier interface {
	SlotsChanged(skillID SkillID)
	BalanceChanged(userID UserID)
	BookingsChanged(userIDs ...UserID)
}

// NopNotifier discards all signals. Used when no realtime layer is attached.
type NopNotifier struct{}

func (NopNotifier) SlotsChanged(SkillID)      {}
func (NopNotifier) BalanceChanged(UserID)     {}
func (NopNotifier) BookingsChanged(...UserID) {}
