/*
sse.go - Server-sent event streams over the realtime hub

PURPOSE:
  Exposes the hub's watch channels as Server-Sent Events, the HTTP shape of
  "subscribe and get fresh snapshots on change":

    GET /api/skills/{skillID}/slots/stream   open-slot list of a skill
    GET /api/me/balance/stream               the caller's points balance
    GET /api/bookings/stream                 the caller's booking list

  Each event carries a complete JSON snapshot. Clients render the latest
  event and nothing else; see the consistency model in realtime/hub.go.

SEE ALSO:
  - realtime/hub.go: the channels behind these endpoints
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillswap/booking-engine/booking"
)

// StreamSlots streams the open-slot snapshot of a skill.
// GET /api/skills/{skillID}/slots/stream
func (h *Handler) StreamSlots(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseSetup(w)
	if !ok {
		return
	}

	skillID := booking.SkillID(chi.URLParam(r, "skillID"))
	for slots := range h.Hub.WatchOpenSlots(r.Context(), skillID) {
		if !sseSend(w, flusher, "slots", toSlotDTOs(slots)) {
			return
		}
	}
}

// StreamBalance streams the caller's points balance.
// GET /api/me/balance/stream
func (h *Handler) StreamBalance(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseSetup(w)
	if !ok {
		return
	}

	userID := currentUser(r)
	for points := range h.Hub.WatchBalance(r.Context(), userID) {
		if !sseSend(w, flusher, "balance", BalanceDTO{UserID: string(userID), Points: points}) {
			return
		}
	}
}

// StreamBookings streams the caller's booking list.
// GET /api/bookings/stream
func (h *Handler) StreamBookings(w http.ResponseWriter, r *http.Request) {
	flusher, ok := sseSetup(w)
	if !ok {
		return
	}

	for bookings := range h.Hub.WatchBookings(r.Context(), currentUser(r)) {
		if !sseSend(w, flusher, "bookings", toBookingDTOs(bookings)) {
			return
		}
	}
}

func sseSetup(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

func sseSend(w http.ResponseWriter, flusher http.Flusher, event string, data any) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
