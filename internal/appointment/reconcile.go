// Package appointment turns a parsed appointment intent and a doctor's existing
// bookings into the free slots for the requested day.
package appointment

import (
	"context"
	"sort"
	"strings"
	"time"

	"HealthMate_V0.1/internal/pipeline"
)

// Booking statuses that occupy the calendar. Anything else (cancelled, completed,
// no-show) leaves the interval free.
const (
	StatusConfirmed = "CONFIRMED"
	StatusPending   = "PENDING"
)

const (
	DefaultDayStart   = 9 * time.Hour
	DefaultDayEnd     = 17 * time.Hour
	DefaultMinimumGap = 30 * time.Minute

	advisoryNoDate = "No date could be read from the request. Please pick a date to see available times."
)

// Booking is an existing appointment interval for one doctor.
type Booking struct {
	Start  time.Time
	End    time.Time
	Status string
}

func (b Booking) occupies() bool {
	switch strings.ToUpper(strings.TrimSpace(b.Status)) {
	case "", StatusConfirmed, StatusPending:
		return true
	}
	return false
}

// Slot is one free interval on the requested day.
type Slot struct {
	Date    string `json:"date"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Minutes int    `json:"minutes"`
}

// Availability is the result handed back to the booking flow.
type Availability struct {
	Date     *string `json:"date"`
	Slots    []Slot  `json:"slots"`
	Advisory string  `json:"advisory,omitempty"`
	// RequestedAvailable is set when the intent carried a time.
	RequestedAvailable *bool `json:"requested_available,omitempty"`
}

// BookingSource reads a doctor's bookings for one day. Implementations return
// CONFIRMED and PENDING rows; the reconciler filters again regardless.
type BookingSource interface {
	BookingsFor(ctx context.Context, doctorID string, day time.Time) ([]Booking, error)
}

// Reconciler computes free slots inside a daily working window.
type Reconciler struct {
	DayStart   time.Duration // offset from midnight
	DayEnd     time.Duration
	MinimumGap time.Duration
	Location   *time.Location
	Now        func() time.Time
}

func NewReconciler(loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.Local
	}
	return &Reconciler{
		DayStart:   DefaultDayStart,
		DayEnd:     DefaultDayEnd,
		MinimumGap: DefaultMinimumGap,
		Location:   loc,
		Now:        time.Now,
	}
}

type interval struct{ start, end time.Time }

// wallClock returns the local time-of-day offset on day. Adding the offset to
// midnight would drift by an hour across a DST change.
func (r *Reconciler) wallClock(day time.Time, offset time.Duration) time.Time {
	offset = offset.Truncate(time.Minute)
	h, m := int(offset/time.Hour), int(offset%time.Hour/time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, r.Location)
}

// day parses a canonical date and rejects days before today.
func (r *Reconciler) day(date string) (time.Time, error) {
	day, err := time.ParseInLocation(pipeline.DateLayout, date, r.Location)
	if err != nil {
		return time.Time{}, pipeline.InvalidInput("date %q is not in %s form", date, pipeline.DateLayout)
	}
	now := r.Now().In(r.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.Location)
	if day.Before(today) {
		return time.Time{}, pipeline.PastDateRequested(date)
	}
	return day, nil
}

// Reconcile returns the free slots for intent's day given bookings.
//
// A nil date yields no slots and an advisory; a date before today fails with
// PastDateRequested. Bookings may be unsorted, overlapping or partly outside the
// window. Slots are ascending, never overlap, and are never shorter than MinimumGap.
func (r *Reconciler) Reconcile(intent pipeline.AppointmentIntent, bookings []Booking) (Availability, error) {
	if intent.Date == nil {
		return Availability{Slots: []Slot{}, Advisory: advisoryNoDate}, nil
	}

	day, err := r.day(*intent.Date)
	if err != nil {
		return Availability{}, err
	}

	now := r.Now().In(r.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.Location)
	open := r.wallClock(day, r.DayStart)
	closing := r.wallClock(day, r.DayEnd)
	if day.Equal(today) && now.After(open) {
		open = now.Truncate(time.Minute)
		if now.After(open) {
			open = open.Add(time.Minute)
		}
	}

	free := r.freeIntervals(open, closing, bookings)

	date := day.Format(pipeline.DateLayout)
	out := Availability{Date: &date, Slots: make([]Slot, 0, len(free))}
	for _, iv := range free {
		out.Slots = append(out.Slots, Slot{
			Date:    date,
			Start:   iv.start.Format(pipeline.ClockLayout),
			End:     iv.end.Format(pipeline.ClockLayout),
			Minutes: int(iv.end.Sub(iv.start) / time.Minute),
		})
	}

	if intent.Time != nil {
		fits := r.fits(day, *intent.Time, free)
		out.RequestedAvailable = &fits
	}
	if len(out.Slots) == 0 {
		out.Advisory = "No free time is left on " + date + ". Please try another day."
	}
	return out, nil
}

// freeIntervals subtracts occupied bookings from [open, closing).
func (r *Reconciler) freeIntervals(open, closing time.Time, bookings []Booking) []interval {
	if !closing.After(open) {
		return nil
	}

	busy := make([]interval, 0, len(bookings))
	for _, b := range bookings {
		if !b.occupies() || !b.End.After(b.Start) {
			continue
		}
		start, end := b.Start.In(r.Location), b.End.In(r.Location)
		// Clip to the window.
		if start.Before(open) {
			start = open
		}
		if end.After(closing) {
			end = closing
		}
		if end.After(start) {
			busy = append(busy, interval{start, end})
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].start.Before(busy[j].start) })

	var free []interval
	cursor := open
	for _, b := range busy {
		if b.start.After(cursor) {
			free = r.keep(free, interval{cursor, b.start})
		}
		if b.end.After(cursor) {
			cursor = b.end
		}
	}
	if closing.After(cursor) {
		free = r.keep(free, interval{cursor, closing})
	}
	return free
}

func (r *Reconciler) keep(free []interval, iv interval) []interval {
	if iv.end.Sub(iv.start) < r.MinimumGap {
		return free
	}
	return append(free, iv)
}

// fits reports whether a MinimumGap appointment starting at clock lies inside a free interval.
func (r *Reconciler) fits(day time.Time, clock string, free []interval) bool {
	t, err := time.ParseInLocation(pipeline.ClockLayout, clock, r.Location)
	if err != nil {
		return false
	}
	start := r.wallClock(day, time.Duration(t.Hour())*time.Hour+time.Duration(t.Minute())*time.Minute)
	end := start.Add(r.MinimumGap)
	for _, iv := range free {
		if !start.Before(iv.start) && !end.After(iv.end) {
			return true
		}
	}
	return false
}

// Availability loads bookings from src and reconciles them for doctorID.
func (r *Reconciler) Availability(ctx context.Context, src BookingSource, doctorID string, intent pipeline.AppointmentIntent) (Availability, error) {
	if intent.Date == nil {
		return r.Reconcile(intent, nil)
	}
	day, err := r.day(*intent.Date)
	if err != nil {
		return Availability{}, err
	}

	bookings, err := src.BookingsFor(ctx, doctorID, day)
	if err != nil {
		return Availability{}, err
	}
	return r.Reconcile(intent, bookings)
}
