// Package store provides an in-memory booking.Store implementation for
// testing and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skillswap/booking-engine/booking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type slotKey struct {
	SkillID booking.SkillID
	SlotID  booking.SlotID
}

type Memory struct {
	mu       sync.RWMutex
	users    map[booking.UserID]booking.User
	skills   map[booking.SkillID]booking.Skill
	slots    map[slotKey]booking.AvailabilitySlot
	bookings map[booking.BookingID]booking.Booking
	messages map[booking.BookingID][]booking.ChatMessage

	// forcedConflicts makes the next N transactions roll back and report
	// ErrTransactionConflict after fn ran. Lets tests exercise the engine's
	// retry loop deterministically.
	forcedConflicts int
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[booking.UserID]booking.User),
		skills:   make(map[booking.SkillID]booking.Skill),
		slots:    make(map[slotKey]booking.AvailabilitySlot),
		bookings: make(map[booking.BookingID]booking.Booking),
		messages: make(map[booking.BookingID][]booking.ChatMessage),
	}
}

// ForceConflicts makes the next n calls to WithTx fail with
// ErrTransactionConflict after rolling back all effects.
func (m *Memory) ForceConflicts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forcedConflicts = n
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) SaveUser(_ context.Context, u booking.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email && existing.ID != u.ID {
			return booking.ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id booking.UserID) (*booking.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*booking.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Memory) SetUserPoints(_ context.Context, id booking.UserID, points int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setUserPointsLocked(id, points)
}

func (m *Memory) setUserPointsLocked(id booking.UserID, points int64) error {
	u, ok := m.users[id]
	if !ok {
		return booking.ErrActorNotFound
	}
	u.Points = points
	m.users[id] = u
	return nil
}

// =============================================================================
// SKILLS
// =============================================================================

func (m *Memory) SaveSkill(_ context.Context, s booking.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills[s.ID] = s
	return nil
}

func (m *Memory) GetSkill(_ context.Context, id booking.SkillID) (*booking.Skill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.skills[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) ListSkills(_ context.Context) ([]booking.Skill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]booking.Skill, 0, len(m.skills))
	for _, s := range m.skills {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) ListSkillsByInstructor(_ context.Context, instructorID booking.UserID) ([]booking.Skill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []booking.Skill
	for _, s := range m.skills {
		if s.InstructorID == instructorID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) DeleteSkill(_ context.Context, id booking.SkillID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.skills, id)
	for k := range m.slots {
		if k.SkillID == id {
			delete(m.slots, k)
		}
	}
	return nil
}

// =============================================================================
// AVAILABILITY SLOTS
// =============================================================================

func (m *Memory) SaveSlot(_ context.Context, s booking.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slotKey{s.SkillID, s.ID}] = s
	return nil
}

func (m *Memory) GetSlot(_ context.Context, skillID booking.SkillID, slotID booking.SlotID) (*booking.AvailabilitySlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.slots[slotKey{skillID, slotID}]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) ListOpenSlots(_ context.Context, skillID booking.SkillID, after time.Time) ([]booking.AvailabilitySlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []booking.AvailabilitySlot
	for k, s := range m.slots {
		if k.SkillID == skillID && s.Status == booking.SlotAvailable && s.StartTime.After(after) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (m *Memory) HasBookedSlots(_ context.Context, skillID booking.SkillID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, s := range m.slots {
		if k.SkillID == skillID && s.Status == booking.SlotBooked {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) MarkSlotBooked(_ context.Context, skillID booking.SkillID, slotID booking.SlotID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := slotKey{skillID, slotID}
	s, ok := m.slots[k]
	if !ok || s.Status != booking.SlotAvailable {
		return booking.ErrSlotUnavailable
	}
	s.Status = booking.SlotBooked
	m.slots[k] = s
	return nil
}

func (m *Memory) DeleteSlot(_ context.Context, skillID booking.SkillID, slotID booking.SlotID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := slotKey{skillID, slotID}
	s, ok := m.slots[k]
	if !ok {
		return booking.ErrSlotNotFound
	}
	if s.Status != booking.SlotAvailable {
		return booking.ErrSlotBooked
	}
	delete(m.slots, k)
	return nil
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (m *Memory) CreateBooking(_ context.Context, b booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id booking.BookingID) (*booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.bookings[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *Memory) ListBookingsForUser(_ context.Context, userID booking.UserID) ([]booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []booking.Booking
	for _, b := range m.bookings {
		if b.IsParty(userID) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookingStart.Before(result[j].BookingStart) })
	return result, nil
}

func (m *Memory) UpdateBookingStatus(_ context.Context, id booking.BookingID, from, to booking.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return booking.ErrBookingNotFound
	}
	if b.Status != from {
		return booking.ErrInvalidTransition
	}
	b.Status = to
	m.bookings[id] = b
	return nil
}

// =============================================================================
// CHAT TRANSCRIPT
// =============================================================================

func (m *Memory) AppendChatMessage(_ context.Context, msg booking.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.BookingID] = append(m.messages[msg.BookingID], msg)
	return nil
}

func (m *Memory) ListChatMessages(_ context.Context, bookingID booking.BookingID) ([]booking.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]booking.ChatMessage, len(m.messages[bookingID]))
	copy(result, m.messages[bookingID])
	return result, nil
}

func (m *Memory) DeleteChatTranscript(_ context.Context, bookingID booking.BookingID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, bookingID)
	return nil
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback
// =============================================================================

// WithTx executes fn against a serialized view of the store. The store mutex
// is held for the whole transaction, so concurrent transactions are fully
// serialized — which is exactly the contract the engine relies on. Rollback
// is simulated with a snapshot + restore.
func (m *Memory) WithTx(ctx context.Context, fn func(booking.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshotLocked()

	view := &txView{parent: m}
	if err := fn(view); err != nil {
		m.restoreLocked(snapshot)
		return err
	}

	if m.forcedConflicts > 0 {
		m.forcedConflicts--
		m.restoreLocked(snapshot)
		return booking.ErrTransactionConflict
	}
	return nil
}

type memorySnapshot struct {
	users    map[booking.UserID]booking.User
	skills   map[booking.SkillID]booking.Skill
	slots    map[slotKey]booking.AvailabilitySlot
	bookings map[booking.BookingID]booking.Booking
	messages map[booking.BookingID][]booking.ChatMessage
}

func (m *Memory) snapshotLocked() memorySnapshot {
	s := memorySnapshot{
		users:    make(map[booking.UserID]booking.User, len(m.users)),
		skills:   make(map[booking.SkillID]booking.Skill, len(m.skills)),
		slots:    make(map[slotKey]booking.AvailabilitySlot, len(m.slots)),
		bookings: make(map[booking.BookingID]booking.Booking, len(m.bookings)),
		messages: make(map[booking.BookingID][]booking.ChatMessage, len(m.messages)),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.skills {
		s.skills[k] = v
	}
	for k, v := range m.slots {
		s.slots[k] = v
	}
	for k, v := range m.bookings {
		s.bookings[k] = v
	}
	for k, v := range m.messages {
		s.messages[k] = append([]booking.ChatMessage{}, v...)
	}
	return s
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.users = s.users
	m.skills = s.skills
	m.slots = s.slots
	m.bookings = s.bookings
	m.messages = s.messages
}

// txView runs store operations against the parent without re-taking its
// mutex (WithTx already holds it).
type txView struct {
	parent *Memory
}

func (t *txView) SaveUser(_ context.Context, u booking.User) error {
	t.parent.users[u.ID] = u
	return nil
}

func (t *txView) GetUser(_ context.Context, id booking.UserID) (*booking.User, error) {
	if u, ok := t.parent.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (t *txView) GetUserByEmail(_ context.Context, email string) (*booking.User, error) {
	for _, u := range t.parent.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (t *txView) SetUserPoints(_ context.Context, id booking.UserID, points int64) error {
	return t.parent.setUserPointsLocked(id, points)
}

func (t *txView) SaveSkill(_ context.Context, s booking.Skill) error {
	t.parent.skills[s.ID] = s
	return nil
}

func (t *txView) GetSkill(_ context.Context, id booking.SkillID) (*booking.Skill, error) {
	if s, ok := t.parent.skills[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (t *txView) ListSkills(_ context.Context) ([]booking.Skill, error) {
	var result []booking.Skill
	for _, s := range t.parent.skills {
		result = append(result, s)
	}
	return result, nil
}

func (t *txView) ListSkillsByInstructor(_ context.Context, instructorID booking.UserID) ([]booking.Skill, error) {
	var result []booking.Skill
	for _, s := range t.parent.skills {
		if s.InstructorID == instructorID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (t *txView) DeleteSkill(_ context.Context, id booking.SkillID) error {
	delete(t.parent.skills, id)
	for k := range t.parent.slots {
		if k.SkillID == id {
			delete(t.parent.slots, k)
		}
	}
	return nil
}

func (t *txView) SaveSlot(_ context.Context, s booking.AvailabilitySlot) error {
	t.parent.slots[slotKey{s.SkillID, s.ID}] = s
	return nil
}

func (t *txView) GetSlot(_ context.Context, skillID booking.SkillID, slotID booking.SlotID) (*booking.AvailabilitySlot, error) {
	if s, ok := t.parent.slots[slotKey{skillID, slotID}]; ok {
		return &s, nil
	}
	return nil, nil
}

func (t *txView) ListOpenSlots(_ context.Context, skillID booking.SkillID, after time.Time) ([]booking.AvailabilitySlot, error) {
	var result []booking.AvailabilitySlot
	for k, s := range t.parent.slots {
		if k.SkillID == skillID && s.Status == booking.SlotAvailable && s.StartTime.After(after) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (t *txView) HasBookedSlots(_ context.Context, skillID booking.SkillID) (bool, error) {
	for k, s := range t.parent.slots {
		if k.SkillID == skillID && s.Status == booking.SlotBooked {
			return true, nil
		}
	}
	return false, nil
}

func (t *txView) MarkSlotBooked(_ context.Context, skillID booking.SkillID, slotID booking.SlotID) error {
	k := slotKey{skillID, slotID}
	s, ok := t.parent.slots[k]
	if !ok || s.Status != booking.SlotAvailable {
		return booking.ErrSlotUnavailable
	}
	s.Status = booking.SlotBooked
	t.parent.slots[k] = s
	return nil
}

func (t *txView) DeleteSlot(_ context.Context, skillID booking.SkillID, slotID booking.SlotID) error {
	k := slotKey{skillID, slotID}
	s, ok := t.parent.slots[k]
	if !ok {
		return booking.ErrSlotNotFound
	}
	if s.Status != booking.SlotAvailable {
		return booking.ErrSlotBooked
	}
	delete(t.parent.slots, k)
	return nil
}

func (t *txView) CreateBooking(_ context.Context, b booking.Booking) error {
	t.parent.bookings[b.ID] = b
	return nil
}

func (t *txView) GetBooking(_ context.Context, id booking.BookingID) (*booking.Booking, error) {
	if b, ok := t.parent.bookings[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (t *txView) ListBookingsForUser(_ context.Context, userID booking.UserID) ([]booking.Booking, error) {
	var result []booking.Booking
	for _, b := range t.parent.bookings {
		if b.IsParty(userID) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookingStart.Before(result[j].BookingStart) })
	return result, nil
}

func (t *txView) UpdateBookingStatus(_ context.Context, id booking.BookingID, from, to booking.BookingStatus) error {
	b, ok := t.parent.bookings[id]
	if !ok {
		return booking.ErrBookingNotFound
	}
	if b.Status != from {
		return booking.ErrInvalidTransition
	}
	b.Status = to
	t.parent.bookings[id] = b
	return nil
}

func (t *txView) AppendChatMessage(_ context.Context, msg booking.ChatMessage) error {
	t.parent.messages[msg.BookingID] = append(t.parent.messages[msg.BookingID], msg)
	return nil
}

func (t *txView) ListChatMessages(_ context.Context, bookingID booking.BookingID) ([]booking.ChatMessage, error) {
	return t.parent.messages[bookingID], nil
}

func (t *txView) DeleteChatTranscript(_ context.Context, bookingID booking.BookingID) error {
	delete(t.parent.messages, bookingID)
	return nil
}
