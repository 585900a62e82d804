/*
Package realtime pushes fresh snapshots to subscribers when data changes.

PURPOSE:
  The view layer of the marketplace: screens subscribe to open slots, a
  points balance, or a booking list, and get a full fresh snapshot whenever
  the underlying data changes. The Hub implements booking.Notifier, so the
  domain services publish into it after every commit.

CONSISTENCY MODEL:
  Pushes are rendering hints, never correctness inputs. There is no ordering
  guarantee between a commit and the push reaching a subscriber, and a slow
  subscriber may skip intermediate states: each channel holds at most one
  pending snapshot and a newer one replaces it. The booking transaction
  itself re-reads everything it depends on, so a stale view can never cause
  an incorrect booking - only a retryable conflict.

SEE ALSO:
  - booking/store.go: the Notifier interface
  - api/sse.go: the HTTP face of these streams
*/
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/skillswap/booking-engine/booking"
)

// Hub fans out change notifications as fresh snapshots.
type Hub struct {
	store booking.Store

	mu           sync.Mutex
	slotSubs     map[booking.SkillID]map[*subscriber[[]booking.AvailabilitySlot]]struct{}
	balanceSubs  map[booking.UserID]map[*subscriber[int64]]struct{}
	bookingSubs  map[booking.UserID]map[*subscriber[[]booking.Booking]]struct{}
}

// NewHub creates a hub reading snapshots from the given store.
func NewHub(store booking.Store) *Hub {
	return &Hub{
		store:       store,
		slotSubs:    make(map[booking.SkillID]map[*subscriber[[]booking.AvailabilitySlot]]struct{}),
		balanceSubs: make(map[booking.UserID]map[*subscriber[int64]]struct{}),
		bookingSubs: make(map[booking.UserID]map[*subscriber[[]booking.Booking]]struct{}),
	}
}

// subscriber holds a capacity-1 channel. send replaces a pending stale
// snapshot instead of blocking, so one slow consumer never stalls the hub.
type subscriber[T any] struct {
	mu     sync.Mutex
	ch     chan T
	closed bool
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{ch: make(chan T, 1)}
}

func (s *subscriber[T]) send(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- v:
	default:
		select {
		case <-s.ch:
		default:
		}
		s.ch <- v
	}
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	close(s.ch)
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// WatchOpenSlots streams the open-slot list of a skill. The current snapshot
// is delivered first; afterwards a fresh one arrives after every change. The
// channel closes when ctx is done.
func (h *Hub) WatchOpenSlots(ctx context.Context, skillID booking.SkillID) <-chan []booking.AvailabilitySlot {
	sub := newSubscriber[[]booking.AvailabilitySlot]()

	h.mu.Lock()
	if h.slotSubs[skillID] == nil {
		h.slotSubs[skillID] = make(map[*subscriber[[]booking.AvailabilitySlot]]struct{})
	}
	h.slotSubs[skillID][sub] = struct{}{}
	h.mu.Unlock()

	if slots, err := h.store.ListOpenSlots(ctx, skillID, time.Now()); err == nil {
		sub.send(slots)
	}

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.slotSubs[skillID], sub)
		if len(h.slotSubs[skillID]) == 0 {
			delete(h.slotSubs, skillID)
		}
		h.mu.Unlock()
		sub.close()
	}()

	return sub.ch
}

// WatchBalance streams a user's points balance.
func (h *Hub) WatchBalance(ctx context.Context, userID booking.UserID) <-chan int64 {
	sub := newSubscriber[int64]()

	h.mu.Lock()
	if h.balanceSubs[userID] == nil {
		h.balanceSubs[userID] = make(map[*subscriber[int64]]struct{})
	}
	h.balanceSubs[userID][sub] = struct{}{}
	h.mu.Unlock()

	if u, err := h.store.GetUser(ctx, userID); err == nil && u != nil {
		sub.send(u.Points)
	}

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.balanceSubs[userID], sub)
		if len(h.balanceSubs[userID]) == 0 {
			delete(h.balanceSubs, userID)
		}
		h.mu.Unlock()
		sub.close()
	}()

	return sub.ch
}

// WatchBookings streams the booking list of a user (as student or instructor).
func (h *Hub) WatchBookings(ctx context.Context, userID booking.UserID) <-chan []booking.Booking {
	sub := newSubscriber[[]booking.Booking]()

	h.mu.Lock()
	if h.bookingSubs[userID] == nil {
		h.bookingSubs[userID] = make(map[*subscriber[[]booking.Booking]]struct{})
	}
	h.bookingSubs[userID][sub] = struct{}{}
	h.mu.Unlock()

	if bookings, err := h.store.ListBookingsForUser(ctx, userID); err == nil {
		sub.send(bookings)
	}

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.bookingSubs[userID], sub)
		if len(h.bookingSubs[userID]) == 0 {
			delete(h.bookingSubs, userID)
		}
		h.mu.Unlock()
		sub.close()
	}()

	return sub.ch
}

// =============================================================================
// NOTIFIER (booking.Notifier interface)
// =============================================================================

// SlotsChanged pushes a fresh open-slot snapshot to every watcher of the skill.
func (h *Hub) SlotsChanged(skillID booking.SkillID) {
	h.mu.Lock()
	subs := make([]*subscriber[[]booking.AvailabilitySlot], 0, len(h.slotSubs[skillID]))
	for sub := range h.slotSubs[skillID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	slots, err := h.store.ListOpenSlots(context.Background(), skillID, time.Now())
	if err != nil {
		return
	}
	for _, sub := range subs {
		sub.send(slots)
	}
}

// BalanceChanged pushes the current balance to every watcher of the user.
func (h *Hub) BalanceChanged(userID booking.UserID) {
	h.mu.Lock()
	subs := make([]*subscriber[int64], 0, len(h.balanceSubs[userID]))
	for sub := range h.balanceSubs[userID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	u, err := h.store.GetUser(context.Background(), userID)
	if err != nil || u == nil {
		return
	}
	for _, sub := range subs {
		sub.send(u.Points)
	}
}

// BookingsChanged pushes fresh booking lists to watchers of each user.
func (h *Hub) BookingsChanged(userIDs ...booking.UserID) {
	for _, userID := range userIDs {
		h.mu.Lock()
		subs := make([]*subscriber[[]booking.Booking], 0, len(h.bookingSubs[userID]))
		for sub := range h.bookingSubs[userID] {
			subs = append(subs, sub)
		}
		h.mu.Unlock()

		if len(subs) == 0 {
			continue
		}

		bookings, err := h.store.ListBookingsForUser(context.Background(), userID)
		if err != nil {
			continue
		}
		for _, sub := range subs {
			sub.send(bookings)
		}
	}
}
