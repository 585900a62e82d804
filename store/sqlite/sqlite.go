/*
Package sqlite provides the SQLite-backed implementation of the booking store.

PURPOSE:
  Implements booking.Store and booking.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  booking.Store:   users, skills, availability slots, bookings, chat
  booking.TxStore: the multi-document atomic section (WithTx)

CONDITIONAL WRITES:
  The hot-path mutations use conditional UPDATE/DELETE so the database is
  the last line of defense even if a caller skips validation:
  - MarkSlotBooked:      UPDATE ... WHERE status = 'available'
  - UpdateBookingStatus: UPDATE ... WHERE status = ?  (compare-and-swap)
  - DeleteSlot:          DELETE ... WHERE status = 'available'
  A UNIQUE index on bookings(availability_slot_id) makes double-booking a
  constraint violation even if every other guard were bypassed.

CONCURRENCY:
  Uses sync.Mutex around WithTx so writer transactions are serialized within
  the process; the database serializes everything else. SQLITE_BUSY and
  "database is locked" errors are surfaced as booking.ErrTransactionConflict,
  which the engine treats as retryable.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/skillswap.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := booking.NewEngine(store, notifier)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - booking/store.go: interface definitions
  - booking/engine.go: the transaction that runs inside WithTx
  - booking/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/skillswap/booking-engine/booking"
)

// Store implements booking.Store and booking.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and avoids
	// writer self-contention under WAL.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users double as ledger entries: points is the live balance.
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		instructor_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		points_price INTEGER NOT NULL CHECK (points_price >= 0),
		duration_minutes INTEGER NOT NULL DEFAULT 60,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_skills_instructor
		ON skills(instructor_id);

	-- Slots are a sub-collection of a skill, so the key is composite.
	CREATE TABLE IF NOT EXISTS availability_slots (
		id TEXT NOT NULL,
		skill_id TEXT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
		instructor_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'available'
			CHECK (status IN ('available', 'booked')),
		created_at TEXT NOT NULL,
		PRIMARY KEY (skill_id, id)
	);

	-- Open-slot listing (hot path for the browse screen)
	CREATE INDEX IF NOT EXISTS idx_slots_skill_status_start
		ON availability_slots(skill_id, status, start_time);

	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		skill_id TEXT NOT NULL,
		skill_title TEXT NOT NULL,
		skill_points_price INTEGER NOT NULL,
		instructor_id TEXT NOT NULL REFERENCES users(id),
		student_id TEXT NOT NULL REFERENCES users(id),
		availability_slot_id TEXT NOT NULL,
		booking_start TEXT NOT NULL,
		booking_end TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'confirmed'
			CHECK (status IN ('confirmed', 'completed', 'cancelled')),
		created_at TEXT NOT NULL
	);

	-- Last line of defense against double-booking a slot.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_unique_slot
		ON bookings(availability_slot_id);

	CREATE INDEX IF NOT EXISTS idx_bookings_student
		ON bookings(student_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_instructor
		ON bookings(instructor_id);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_booking
		ON chat_messages(booking_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// helpers serve both the plain store and the in-transaction view.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u booking.User) error {
	return saveUser(ctx, s.db, u)
}

func saveUser(ctx context.Context, db dbtx, u booking.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			password_hash = excluded.password_hash,
			points = excluded.points
	`

	_, err := db.ExecContext(ctx, query,
		string(u.ID), u.Email, u.Name, u.PasswordHash, u.Points,
		u.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return booking.ErrEmailTaken
		}
		return fmt.Errorf("failed to save user: %w", mapBusy(err))
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id booking.UserID) (*booking.User, error) {
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, db dbtx, id booking.UserID) (*booking.User, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, points, created_at FROM users WHERE id = ?",
		string(id),
	)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*booking.User, error) {
	return getUserByEmail(ctx, s.db, email)
}

func getUserByEmail(ctx context.Context, db dbtx, email string) (*booking.User, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, points, created_at FROM users WHERE email = ?",
		email,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*booking.User, error) {
	var u booking.User
	var id, createdAt string

	err := row.Scan(&id, &u.Email, &u.Name, &u.PasswordHash, &u.Points, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapBusy(err)
	}

	u.ID = booking.UserID(id)
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

func (s *Store) SetUserPoints(ctx context.Context, id booking.UserID, points int64) error {
	return setUserPoints(ctx, s.db, id, points)
}

func setUserPoints(ctx context.Context, db dbtx, id booking.UserID, points int64) error {
	res, err := db.ExecContext(ctx,
		"UPDATE users SET points = ? WHERE id = ?",
		points, string(id),
	)
	if err != nil {
		return fmt.Errorf("failed to set points: %w", mapBusy(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrActorNotFound
	}
	return nil
}

// =============================================================================
// SKILLS
// =============================================================================

func (s *Store) SaveSkill(ctx context.Context, sk booking.Skill) error {
	return saveSkill(ctx, s.db, sk)
}

func saveSkill(ctx context.Context, db dbtx, sk booking.Skill) error {
	query := `
		INSERT INTO skills (id, instructor_id, title, description, category, points_price, duration_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			category = excluded.category,
			points_price = excluded.points_price,
			duration_minutes = excluded.duration_minutes
	`

	_, err := db.ExecContext(ctx, query,
		string(sk.ID), string(sk.InstructorID), sk.Title, sk.Description,
		sk.Category, sk.PointsPrice, sk.DurationMinutes,
		sk.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save skill: %w", mapBusy(err))
	}
	return nil
}

func (s *Store) GetSkill(ctx context.Context, id booking.SkillID) (*booking.Skill, error) {
	return getSkill(ctx, s.db, id)
}

func getSkill(ctx context.Context, db dbtx, id booking.SkillID) (*booking.Skill, error) {
	rows, err := db.QueryContext(ctx,
		selectSkill+" WHERE id = ?", string(id),
	)
	if err != nil {
		return nil, mapBusy(err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	sk, err := scanSkill(rows)
	if err != nil {
		return nil, err
	}
	return &sk, nil
}

const selectSkill = `
	SELECT id, instructor_id, title, description, category, points_price, duration_minutes, created_at
	FROM skills`

func (s *Store) ListSkills(ctx context.Context) ([]booking.Skill, error) {
	return querySkills(ctx, s.db, selectSkill+" ORDER BY created_at ASC")
}

func (s *Store) ListSkillsByInstructor(ctx context.Context, instructorID booking.UserID) ([]booking.Skill, error) {
	return querySkills(ctx, s.db,
		selectSkill+" WHERE instructor_id = ? ORDER BY created_at ASC",
		string(instructorID),
	)
}

func querySkills(ctx context.Context, db dbtx, query string, args ...any) ([]booking.Skill, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", mapBusy(err))
	}
	defer rows.Close()

	var skills []booking.Skill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

func scanSkill(rows *sql.Rows) (booking.Skill, error) {
	var sk booking.Skill
	var id, instructorID, createdAt string

	err := rows.Scan(&id, &instructorID, &sk.Title, &sk.Description,
		&sk.Category, &sk.PointsPrice, &sk.DurationMinutes, &createdAt)
	if err != nil {
		return sk, fmt.Errorf("failed to scan skill: %w", err)
	}

	sk.ID = booking.SkillID(id)
	sk.InstructorID = booking.UserID(instructorID)
	sk.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return sk, nil
}

func (s *Store) DeleteSkill(ctx context.Context, id booking.SkillID) error {
	return deleteSkill(ctx, s.db, id)
}

func deleteSkill(ctx context.Context, db dbtx, id booking.SkillID) error {
	// ON DELETE CASCADE removes the skill's slots with it.
	_, err := db.ExecContext(ctx, "DELETE FROM skills WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete skill: %w", mapBusy(err))
	}
	return nil
}

// =============================================================================
// AVAILABILITY SLOTS
// =============================================================================

func (s *Store) SaveSlot(ctx context.Context, slot booking.AvailabilitySlot) error {
	return saveSlot(ctx, s.db, slot)
}

func saveSlot(ctx context.Context, db dbtx, slot booking.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots (id, skill_id, instructor_id, start_time, end_time, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(skill_id, id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			status = excluded.status
	`

	_, err := db.ExecContext(ctx, query,
		string(slot.ID), string(slot.SkillID), string(slot.InstructorID),
		slot.StartTime.UTC().Format(time.RFC3339),
		slot.EndTime.UTC().Format(time.RFC3339),
		string(slot.Status),
		slot.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save slot: %w", mapBusy(err))
	}
	return nil
}

const selectSlot = `
	SELECT id, skill_id, instructor_id, start_time, end_time, status, created_at
	FROM availability_slots`

func (s *Store) GetSlot(ctx context.Context, skillID booking.SkillID, slotID booking.SlotID) (*booking.AvailabilitySlot, error) {
	return getSlot(ctx, s.db, skillID, slotID)
}

func getSlot(ctx context.Context, db dbtx, skillID booking.SkillID, slotID booking.SlotID) (*booking.AvailabilitySlot, error) {
	rows, err := db.QueryContext(ctx,
		selectSlot+" WHERE skill_id = ? AND id = ?",
		string(skillID), string(slotID),
	)
	if err != nil {
		return nil, mapBusy(err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	slot, err := scanSlot(rows)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (s *Store) ListOpenSlots(ctx context.Context, skillID booking.SkillID, after time.Time) ([]booking.AvailabilitySlot, error) {
	return listOpenSlots(ctx, s.db, skillID, after)
}

func listOpenSlots(ctx context.Context, db dbtx, skillID booking.SkillID, after time.Time) ([]booking.AvailabilitySlot, error) {
	rows, err := db.QueryContext(ctx,
		selectSlot+` WHERE skill_id = ? AND status = 'available' AND start_time > ?
		ORDER BY start_time ASC`,
		string(skillID), after.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", mapBusy(err))
	}
	defer rows.Close()

	var slots []booking.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func scanSlot(rows *sql.Rows) (booking.AvailabilitySlot, error) {
	var slot booking.AvailabilitySlot
	var id, skillID, instructorID, startTime, endTime, status, createdAt string

	err := rows.Scan(&id, &skillID, &instructorID, &startTime, &endTime, &status, &createdAt)
	if err != nil {
		return slot, fmt.Errorf("failed to scan slot: %w", err)
	}

	slot.ID = booking.SlotID(id)
	slot.SkillID = booking.SkillID(skillID)
	slot.InstructorID = booking.UserID(instructorID)
	slot.Status = booking.SlotStatus(status)
	slot.StartTime, _ = time.Parse(time.RFC3339, startTime)
	slot.EndTime, _ = time.Parse(time.RFC3339, endTime)
	slot.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return slot, nil
}

func (s *Store) HasBookedSlots(ctx context.Context, skillID booking.SkillID) (bool, error) {
	return hasBookedSlots(ctx, s.db, skillID)
}

func hasBookedSlots(ctx context.Context, db dbtx, skillID booking.SkillID) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM availability_slots WHERE skill_id = ? AND status = 'booked'",
		string(skillID),
	).Scan(&count)
	if err != nil {
		return false, mapBusy(err)
	}
	return count > 0, nil
}

func (s *Store) MarkSlotBooked(ctx context.Context, skillID booking.SkillID, slotID booking.SlotID) error {
	return markSlotBooked(ctx, s.db, skillID, slotID)
}

func markSlotBooked(ctx context.Context, db dbtx, skillID booking.SkillID, slotID booking.SlotID) error {
	res, err := db.ExecContext(ctx,
		"UPDATE availability_slots SET status = 'booked' WHERE skill_id = ? AND id = ? AND status = 'available'",
		string(skillID), string(slotID),
	)
	if err != nil {
		return fmt.Errorf("failed to book slot: %w", mapBusy(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Missing or already booked: both read the same to the caller.
		return booking.ErrSlotUnavailable
	}
	return nil
}

func (s *Store) DeleteSlot(ctx context.Context, skillID booking.SkillID, slotID booking.SlotID) error {
	return deleteSlot(ctx, s.db, skillID, slotID)
}

func deleteSlot(ctx context.Context, db dbtx, skillID booking.SkillID, slotID booking.SlotID) error {
	res, err := db.ExecContext(ctx,
		"DELETE FROM availability_slots WHERE skill_id = ? AND id = ? AND status = 'available'",
		string(skillID), string(slotID),
	)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", mapBusy(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		slot, err := getSlot(ctx, db, skillID, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return booking.ErrSlotNotFound
		}
		return booking.ErrSlotBooked
	}
	return nil
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (s *Store) CreateBooking(ctx context.Context, b booking.Booking) error {
	return createBooking(ctx, s.db, b)
}

func createBooking(ctx context.Context, db dbtx, b booking.Booking) error {
	query := `
		INSERT INTO bookings
		(id, skill_id, skill_title, skill_points_price, instructor_id, student_id,
		 availability_slot_id, booking_start, booking_end, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		string(b.ID), string(b.SkillID), b.SkillTitle, b.SkillPointsPrice,
		string(b.InstructorID), string(b.StudentID), string(b.AvailabilitySlotID),
		b.BookingStart.UTC().Format(time.RFC3339),
		b.BookingEnd.UTC().Format(time.RFC3339),
		string(b.Status),
		b.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			// The unique slot index caught a double-booking.
			return booking.ErrSlotUnavailable
		}
		return fmt.Errorf("failed to create booking: %w", mapBusy(err))
	}
	return nil
}

const selectBooking = `
	SELECT id, skill_id, skill_title, skill_points_price, instructor_id, student_id,
	       availability_slot_id, booking_start, booking_end, status, created_at
	FROM bookings`

func (s *Store) GetBooking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	return getBooking(ctx, s.db, id)
}

func getBooking(ctx context.Context, db dbtx, id booking.BookingID) (*booking.Booking, error) {
	rows, err := db.QueryContext(ctx, selectBooking+" WHERE id = ?", string(id))
	if err != nil {
		return nil, mapBusy(err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	b, err := scanBooking(rows)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBookingsForUser(ctx context.Context, userID booking.UserID) ([]booking.Booking, error) {
	return listBookingsForUser(ctx, s.db, userID)
}

func listBookingsForUser(ctx context.Context, db dbtx, userID booking.UserID) ([]booking.Booking, error) {
	rows, err := db.QueryContext(ctx,
		selectBooking+` WHERE student_id = ? OR instructor_id = ?
		ORDER BY booking_start ASC`,
		string(userID), string(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", mapBusy(err))
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(rows *sql.Rows) (booking.Booking, error) {
	var b booking.Booking
	var id, skillID, instructorID, studentID, slotID string
	var start, end, status, createdAt string

	err := rows.Scan(&id, &skillID, &b.SkillTitle, &b.SkillPointsPrice,
		&instructorID, &studentID, &slotID, &start, &end, &status, &createdAt)
	if err != nil {
		return b, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.ID = booking.BookingID(id)
	b.SkillID = booking.SkillID(skillID)
	b.InstructorID = booking.UserID(instructorID)
	b.StudentID = booking.UserID(studentID)
	b.AvailabilitySlotID = booking.SlotID(slotID)
	b.Status = booking.BookingStatus(status)
	b.BookingStart, _ = time.Parse(time.RFC3339, start)
	b.BookingEnd, _ = time.Parse(time.RFC3339, end)
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return b, nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id booking.BookingID, from, to booking.BookingStatus) error {
	return updateBookingStatus(ctx, s.db, id, from, to)
}

func updateBookingStatus(ctx context.Context, db dbtx, id booking.BookingID, from, to booking.BookingStatus) error {
	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ? AND status = ?",
		string(to), string(id), string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", mapBusy(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		b, err := getBooking(ctx, db, id)
		if err != nil {
			return err
		}
		if b == nil {
			return booking.ErrBookingNotFound
		}
		return booking.ErrInvalidTransition
	}
	return nil
}

// =============================================================================
// CHAT TRANSCRIPT
// =============================================================================

func (s *Store) AppendChatMessage(ctx context.Context, m booking.ChatMessage) error {
	return appendChatMessage(ctx, s.db, m)
}

func appendChatMessage(ctx context.Context, db dbtx, m booking.ChatMessage) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO chat_messages (id, booking_id, sender_id, text, created_at) VALUES (?, ?, ?, ?, ?)",
		m.ID, string(m.BookingID), string(m.SenderID), m.Text,
		m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", mapBusy(err))
	}
	return nil
}

func (s *Store) ListChatMessages(ctx context.Context, bookingID booking.BookingID) ([]booking.ChatMessage, error) {
	return listChatMessages(ctx, s.db, bookingID)
}

func listChatMessages(ctx context.Context, db dbtx, bookingID booking.BookingID) ([]booking.ChatMessage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, booking_id, sender_id, text, created_at
		 FROM chat_messages WHERE booking_id = ?
		 ORDER BY created_at ASC, id ASC`,
		string(bookingID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", mapBusy(err))
	}
	defer rows.Close()

	var messages []booking.ChatMessage
	for rows.Next() {
		var m booking.ChatMessage
		var bID, senderID, createdAt string
		if err := rows.Scan(&m.ID, &bID, &senderID, &m.Text, &createdAt); err != nil {
			return nil, err
		}
		m.BookingID = booking.BookingID(bID)
		m.SenderID = booking.UserID(senderID)
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) DeleteChatTranscript(ctx context.Context, bookingID booking.BookingID) error {
	return deleteChatTranscript(ctx, s.db, bookingID)
}

func deleteChatTranscript(ctx context.Context, db dbtx, bookingID booking.BookingID) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM chat_messages WHERE booking_id = ?", string(bookingID))
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", mapBusy(err))
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (booking.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store booking.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapBusy(err))
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", mapBusy(err))
	}
	return nil
}

// txStore routes Store calls through an open *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveUser(ctx context.Context, u booking.User) error {
	return saveUser(ctx, ts.tx, u)
}

func (ts *txStore) GetUser(ctx context.Context, id booking.UserID) (*booking.User, error) {
	return getUser(ctx, ts.tx, id)
}

func (ts *txStore) GetUserByEmail(ctx context.Context, email string) (*booking.User, error) {
	return getUserByEmail(ctx, ts.tx, email)
}

func (ts *txStore) SetUserPoints(ctx context.Context, id booking.UserID, points int64) error {
	return setUserPoints(ctx, ts.tx, id, points)
}

func (ts *txStore) SaveSkill(ctx context.Context, sk booking.Skill) error {
	return saveSkill(ctx, ts.tx, sk)
}

func (ts *txStore) GetSkill(ctx context.Context, id booking.SkillID) (*booking.Skill, error) {
	return getSkill(ctx, ts.tx, id)
}

func (ts *txStore) ListSkills(ctx context.Context) ([]booking.Skill, error) {
	return querySkills(ctx, ts.tx, selectSkill+" ORDER BY created_at ASC")
}

func (ts *txStore) ListSkillsByInstructor(ctx context.Context, instructorID booking.UserID) ([]booking.Skill, error) {
	return querySkills(ctx, ts.tx,
		selectSkill+" WHERE instructor_id = ? ORDER BY created_at ASC",
		string(instructorID),
	)
}

func (ts *txStore) DeleteSkill(ctx context.Context, id booking.SkillID) error {
	return deleteSkill(ctx, ts.tx, id)
}

func (ts *txStore) SaveSlot(ctx context.Context, slot booking.AvailabilitySlot) error {
	return saveSlot(ctx, ts.tx, slot)
}

func (ts *txStore) GetSlot(ctx context.Context, skillID booking.SkillID, slotID booking.SlotID) (*booking.AvailabilitySlot, error) {
	return getSlot(ctx, ts.tx, skillID, slotID)
}

func (ts *txStore) ListOpenSlots(ctx context.Context, skillID booking.SkillID, after time.Time) ([]booking.AvailabilitySlot, error) {
	return listOpenSlots(ctx, ts.tx, skillID, after)
}

func (ts *txStore) HasBookedSlots(ctx context.Context, skillID booking.SkillID) (bool, error) {
	return hasBookedSlots(ctx, ts.tx, skillID)
}

func (ts *txStore) MarkSlotBooked(ctx context.Context, skillID booking.SkillID, slotID booking.SlotID) error {
	return markSlotBooked(ctx, ts.tx, skillID, slotID)
}

func (ts *txStore) DeleteSlot(ctx context.Context, skillID booking.SkillID, slotID booking.SlotID) error {
	return deleteSlot(ctx, ts.tx, skillID, slotID)
}

func (ts *txStore) CreateBooking(ctx context.Context, b booking.Booking) error {
	return createBooking(ctx, ts.tx, b)
}

func (ts *txStore) GetBooking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	return getBooking(ctx, ts.tx, id)
}

func (ts *txStore) ListBookingsForUser(ctx context.Context, userID booking.UserID) ([]booking.Booking, error) {
	return listBookingsForUser(ctx, ts.tx, userID)
}

func (ts *txStore) UpdateBookingStatus(ctx context.Context, id booking.BookingID, from, to booking.BookingStatus) error {
	return updateBookingStatus(ctx, ts.tx, id, from, to)
}

func (ts *txStore) AppendChatMessage(ctx context.Context, m booking.ChatMessage) error {
	return appendChatMessage(ctx, ts.tx, m)
}

func (ts *txStore) ListChatMessages(ctx context.Context, bookingID booking.BookingID) ([]booking.ChatMessage, error) {
	return listChatMessages(ctx, ts.tx, bookingID)
}

func (ts *txStore) DeleteChatTranscript(ctx context.Context, bookingID booking.BookingID) error {
	return deleteChatTranscript(ctx, ts.tx, bookingID)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"chat_messages", "bookings", "availability_slots", "skills", "users"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapBusy converts SQLite contention errors into the retryable conflict the
// engine understands.
func mapBusy(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return booking.ErrTransactionConflict
	}
	return err
}
