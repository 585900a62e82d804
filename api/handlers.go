/*
handlers.go - HTTP API handlers for the skill marketplace

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/signup                 Create account
    POST   /api/auth/login                  Exchange credentials for token

  Users:
    GET    /api/me                          Current account
    GET    /api/me/balance                  Current points balance

  Skills:
    GET    /api/skills                      List all skill listings
    POST   /api/skills                      Publish a skill
    GET    /api/skills/{skillID}            Get a skill
    DELETE /api/skills/{skillID}            Remove a skill (owner only)

  Slots:
    GET    /api/skills/{skillID}/slots      List open slots
    POST   /api/skills/{skillID}/slots      Open a slot (owner only)
    DELETE /api/skills/{skillID}/slots/{slotID}  Remove an open slot

  Bookings:
    POST   /api/bookings                    Book a slot (the atomic core)
    GET    /api/bookings                    List my bookings
    GET    /api/bookings/{bookingID}        Get a booking (parties only)
    POST   /api/bookings/{bookingID}/complete
    POST   /api/bookings/{bookingID}/cancel
    GET    /api/bookings/{bookingID}/messages
    POST   /api/bookings/{bookingID}/messages

ERROR HANDLING:
  Domain errors map onto HTTP statuses in httpStatus():
  - 400: invalid input, no slot selected, self-booking
  - 401: not authenticated
  - 402: insufficient points (with the shortfall in details)
  - 403: permission denied
  - 404: missing skill/slot/booking/user
  - 409: slot unavailable, transaction conflict, invalid transition
  - 500: missing actor mid-transaction, everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - booking/engine.go: The transaction behind POST /api/bookings
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skillswap/booking-engine/auth"
	"github.com/skillswap/booking-engine/booking"
	"github.com/skillswap/booking-engine/realtime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Users  *booking.Users
	Skills *booking.Skills
	Slots  *booking.Slots
	Engine *booking.Engine
	Chat   *booking.Chat
	Hub    *realtime.Hub
	Tokens *auth.Manager

	validate *validator.Validate
}

// NewHandler creates a handler wired to the given services. hub may be nil
// when no realtime layer is mounted.
func NewHandler(users *booking.Users, skills *booking.Skills, slots *booking.Slots,
	engine *booking.Engine, chat *booking.Chat, hub *realtime.Hub, tokens *auth.Manager) *Handler {
	return &Handler{
		Users:    users,
		Skills:   skills,
		Slots:    slots,
		Engine:   engine,
		Chat:     chat,
		Hub:      hub,
		Tokens:   tokens,
		validate: validator.New(),
	}
}

// decode parses and validates a JSON request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// Signup creates an account and returns a token.
// POST /api/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, err := h.Users.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.Tokens.Issue(string(user.ID), user.Email, user.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: toUserDTO(*user)})
}

// Login exchanges credentials for a token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := h.Tokens.Issue(string(user.ID), user.Email, user.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: toUserDTO(*user)})
}

// =============================================================================
// USER ENDPOINTS
// =============================================================================

// Me returns the authenticated account.
// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Get(r.Context(), currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// GetBalance returns the authenticated account's points balance.
// GET /api/me/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	points, err := h.Users.Balance(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{UserID: string(userID), Points: points})
}

// =============================================================================
// SKILL ENDPOINTS
// =============================================================================

// ListSkills returns all skill listings.
// GET /api/skills
func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.Skills.ListSkills(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSkillDTOs(skills))
}

// CreateSkill publishes a skill owned by the authenticated user.
// POST /api/skills
func (h *Handler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	var req CreateSkillRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	skill, err := h.Skills.CreateSkill(r.Context(), currentUser(r), booking.SkillInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		PointsPrice:     req.PointsPrice,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSkillDTO(*skill))
}

// GetSkill returns a single skill listing.
// GET /api/skills/{skillID}
func (h *Handler) GetSkill(w http.ResponseWriter, r *http.Request) {
	skillID := booking.SkillID(chi.URLParam(r, "skillID"))
	skill, err := h.Skills.GetSkill(r.Context(), skillID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSkillDTO(*skill))
}

// DeleteSkill removes a skill. Owner only; fails while booked slots exist.
// DELETE /api/skills/{skillID}
func (h *Handler) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	skillID := booking.SkillID(chi.URLParam(r, "skillID"))
	if err := h.Skills.DeleteSkill(r.Context(), skillID, currentUser(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SLOT ENDPOINTS
// =============================================================================

// ListSlots returns the open future slots of a skill.
// GET /api/skills/{skillID}/slots
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	skillID := booking.SkillID(chi.URLParam(r, "skillID"))
	slots, err := h.Slots.ListOpenSlots(r.Context(), skillID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTOs(slots))
}

// CreateSlot opens a teaching window on a skill. Owner only.
// POST /api/skills/{skillID}/slots
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	skillID := booking.SkillID(chi.URLParam(r, "skillID"))
	slot, err := h.Slots.CreateSlot(r.Context(), skillID, currentUser(r), req.StartTime, req.EndTime)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSlotDTO(*slot))
}

// DeleteSlot removes a still-open slot. Owner only.
// DELETE /api/skills/{skillID}/slots/{slotID}
func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	skillID := booking.SkillID(chi.URLParam(r, "skillID"))
	slotID := booking.SlotID(chi.URLParam(r, "slotID"))
	if err := h.Slots.DeleteSlot(r.Context(), skillID, slotID, currentUser(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BOOKING ENDPOINTS
// =============================================================================

// CreateBooking runs the atomic booking transaction for the authenticated
// student.
// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	booked, err := h.Engine.AttemptBooking(r.Context(), booking.BookingInput{
		StudentID: currentUser(r),
		SkillID:   booking.SkillID(req.SkillID),
		SlotID:    booking.SlotID(req.SlotID),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(*booked))
}

// ListBookings returns the authenticated user's bookings, both roles.
// GET /api/bookings
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Engine.BookingsForUser(r.Context(), currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTOs(bookings))
}

// GetBooking returns a booking. Parties only.
// GET /api/bookings/{bookingID}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "bookingID"))
	b, err := h.Engine.GetBooking(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !b.IsParty(currentUser(r)) {
		writeDomainError(w, booking.ErrPermissionDenied)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*b))
}

// CompleteBooking advances confirmed -> completed.
// POST /api/bookings/{bookingID}/complete
func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "bookingID"))
	if err := h.Engine.Complete(r.Context(), id, currentUser(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelBooking advances confirmed -> cancelled. Instructor only.
// POST /api/bookings/{bookingID}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "bookingID"))
	if err := h.Engine.Cancel(r.Context(), id, currentUser(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CHAT ENDPOINTS
// =============================================================================

// ListMessages returns a booking's transcript. Parties only.
// GET /api/bookings/{bookingID}/messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := booking.BookingID(chi.URLParam(r, "bookingID"))
	msgs, err := h.Chat.List(r.Context(), id, currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageDTOs(msgs))
}

// SendMessage appends to a booking's transcript. Parties only, while the
// booking is still confirmed.
// POST /api/bookings/{bookingID}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	id := booking.BookingID(chi.URLParam(r, "bookingID"))
	msg, err := h.Chat.Send(r.Context(), id, currentUser(r), req.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageDTO(*msg))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error onto an HTTP status and JSON body.
func writeDomainError(w http.ResponseWriter, err error) {
	var insufficient *booking.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error: insufficient.Error(),
			Code:  "insufficient_points",
			Details: map[string]int64{
				"price":     insufficient.Price,
				"balance":   insufficient.Balance,
				"shortfall": insufficient.Shortfall,
			},
		})
		return
	}
	writeError(w, httpStatus(err), err.Error(), nil)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, booking.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, booking.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrInsufficientPoints):
		return http.StatusPaymentRequired
	case booking.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrSlotUnavailable),
		errors.Is(err, booking.ErrTransactionConflict),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrSlotBooked),
		errors.Is(err, booking.ErrSkillHasBookings),
		errors.Is(err, booking.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, booking.ErrSelfBooking),
		errors.Is(err, booking.ErrNoSlotSelected),
		errors.Is(err, booking.ErrInvalidSlotWindow),
		errors.Is(err, booking.ErrSlotInPast),
		errors.Is(err, booking.ErrBookingNotEnded):
		return http.StatusBadRequest
	default:
		// ErrActorNotFound mid-transaction is a data integrity problem, not a
		// client mistake.
		return http.StatusInternalServerError
	}
}
