/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags; handlers run them
  through a shared validator instance before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - booking/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/skillswap/booking-engine/booking"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SignupRequest creates an account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateSkillRequest publishes a new skill listing.
type CreateSkillRequest struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	PointsPrice     int64  `json:"points_price" validate:"gte=0"`
	DurationMinutes int    `json:"duration_minutes" validate:"gt=0"`
}

// CreateSlotRequest opens a teaching window on a skill.
type CreateSlotRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// CreateBookingRequest books a slot. The student comes from the token.
type CreateBookingRequest struct {
	SkillID string `json:"skill_id" validate:"required"`
	SlotID  string `json:"slot_id"`
}

// SendMessageRequest appends to a booking's chat transcript.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AuthResponse carries the token plus the account it belongs to.
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// UserDTO represents an account in API responses. The password hash never
// leaves the server.
type UserDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Points    int64  `json:"points"`
	CreatedAt string `json:"created_at,omitempty"`
}

// BalanceDTO is the points balance of an account.
type BalanceDTO struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// SkillDTO represents a skill listing.
type SkillDTO struct {
	ID              string `json:"id"`
	InstructorID    string `json:"instructor_id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Category        string `json:"category,omitempty"`
	PointsPrice     int64  `json:"points_price"`
	DurationMinutes int    `json:"duration_minutes"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// SlotDTO represents an availability slot.
type SlotDTO struct {
	ID           string `json:"id"`
	SkillID      string `json:"skill_id"`
	InstructorID string `json:"instructor_id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
}

// BookingDTO represents a booking with its price and skill snapshots.
type BookingDTO struct {
	ID                 string `json:"id"`
	SkillID            string `json:"skill_id"`
	SkillTitle         string `json:"skill_title"`
	SkillPointsPrice   int64  `json:"skill_points_price"`
	InstructorID       string `json:"instructor_id"`
	StudentID          string `json:"student_id"`
	AvailabilitySlotID string `json:"availability_slot_id"`
	BookingStart       string `json:"booking_start"`
	BookingEnd         string `json:"booking_end"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// MessageDTO represents a chat message.
type MessageDTO struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(u booking.User) UserDTO {
	return UserDTO{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Points:    u.Points,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func toSkillDTO(s booking.Skill) SkillDTO {
	return SkillDTO{
		ID:              string(s.ID),
		InstructorID:    string(s.InstructorID),
		Title:           s.Title,
		Description:     s.Description,
		Category:        s.Category,
		PointsPrice:     s.PointsPrice,
		DurationMinutes: s.DurationMinutes,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}

func toSkillDTOs(skills []booking.Skill) []SkillDTO {
	dtos := make([]SkillDTO, len(skills))
	for i, s := range skills {
		dtos[i] = toSkillDTO(s)
	}
	return dtos
}

func toSlotDTO(s booking.AvailabilitySlot) SlotDTO {
	return SlotDTO{
		ID:           string(s.ID),
		SkillID:      string(s.SkillID),
		InstructorID: string(s.InstructorID),
		StartTime:    s.StartTime.Format(time.RFC3339),
		EndTime:      s.EndTime.Format(time.RFC3339),
		Status:       string(s.Status),
	}
}

func toSlotDTOs(slots []booking.AvailabilitySlot) []SlotDTO {
	dtos := make([]SlotDTO, len(slots))
	for i, s := range slots {
		dtos[i] = toSlotDTO(s)
	}
	return dtos
}

func toBookingDTO(b booking.Booking) BookingDTO {
	return BookingDTO{
		ID:                 string(b.ID),
		SkillID:            string(b.SkillID),
		SkillTitle:         b.SkillTitle,
		SkillPointsPrice:   b.SkillPointsPrice,
		InstructorID:       string(b.InstructorID),
		StudentID:          string(b.StudentID),
		AvailabilitySlotID: string(b.AvailabilitySlotID),
		BookingStart:       b.BookingStart.Format(time.RFC3339),
		BookingEnd:         b.BookingEnd.Format(time.RFC3339),
		Status:             string(b.Status),
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
	}
}

func toBookingDTOs(bookings []booking.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	return dtos
}

func toMessageDTO(m booking.ChatMessage) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		BookingID: string(m.BookingID),
		SenderID:  string(m.SenderID),
		Text:      m.Text,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func toMessageDTOs(msgs []booking.ChatMessage) []MessageDTO {
	dtos := make([]MessageDTO, len(msgs))
	for i, m := range msgs {
		dtos[i] = toMessageDTO(m)
	}
	return dtos
}
