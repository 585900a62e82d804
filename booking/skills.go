/*
skills.go - Skill catalog operations

Skills are read-only input to the booking transaction; this service covers
their own lifecycle: instructors create them, anyone lists them, and the
owner deletes them — unless a booked slot still references the skill.
*/
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Skills manages the skill catalog.
type Skills struct {
	store    TxStore
	notifier Notifier
	now      func() time.Time
}

// NewSkills creates the skill service. notifier may be nil.
func NewSkills(store TxStore, notifier Notifier) *Skills {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Skills{store: store, notifier: notifier, now: time.Now}
}

// SkillInput carries the fields an instructor submits for a new skill.
type SkillInput struct {
	Title           string
	Description     string
	Category        string
	PointsPrice     int64
	DurationMinutes int
}

var errInvalidSkill = errors.New("invalid skill: title and a positive points price are required")

// CreateSkill registers a new offering owned by the instructor.
func (s *Skills) CreateSkill(ctx context.Context, instructorID UserID, in SkillInput) (*Skill, error) {
	if instructorID == "" {
		return nil, ErrNotAuthenticated
	}
	if in.Title == "" || in.PointsPrice <= 0 {
		return nil, errInvalidSkill
	}

	owner, err := s.store.GetUser(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrUserNotFound
	}

	skill := Skill{
		ID:              SkillID(uuid.NewString()),
		InstructorID:    instructorID,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		PointsPrice:     in.PointsPrice,
		DurationMinutes: in.DurationMinutes,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.SaveSkill(ctx, skill); err != nil {
		return nil, err
	}
	return &skill, nil
}

// GetSkill returns a skill by id, or ErrSkillNotFound.
func (s *Skills) GetSkill(ctx context.Context, id SkillID) (*Skill, error) {
	skill, err := s.store.GetSkill(ctx, id)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return nil, ErrSkillNotFound
	}
	return skill, nil
}

// ListSkills returns the whole catalog.
func (s *Skills) ListSkills(ctx context.Context) ([]Skill, error) {
	return s.store.ListSkills(ctx)
}

// ListByInstructor returns the skills owned by one instructor.
func (s *Skills) ListByInstructor(ctx context.Context, instructorID UserID) ([]Skill, error) {
	return s.store.ListSkillsByInstructor(ctx, instructorID)
}

// DeleteSkill removes a skill and its open slots. Rejected while any slot of
// the skill is booked: a booked slot belongs to a booking and must keep
// resolving. The existence check and the delete share one atomic section so a
// concurrent booking cannot slip between them.
func (s *Skills) DeleteSkill(ctx context.Context, id SkillID, actorID UserID) error {
	skill, err := s.store.GetSkill(ctx, id)
	if err != nil {
		return err
	}
	if skill == nil {
		return ErrSkillNotFound
	}
	if skill.InstructorID != actorID {
		return ErrPermissionDenied
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		booked, err := tx.HasBookedSlots(ctx, id)
		if err != nil {
			return err
		}
		if booked {
			return ErrSkillHasBookings
		}
		return tx.DeleteSkill(ctx, id)
	})
	if err != nil {
		return err
	}

	s.notifier.SlotsChanged(id)
	return nil
}
