package voice

import (
	"strings"
	"time"
)

// BookingProposal tracks the appointment slot proposed to a caller during
// one session. A booking write may only go through when the caller
// explicitly confirmed the exact proposed slot: an optimistic, single-writer,
// session-scoped lock. State is owned by the session's event loop and
// cleared when the call ends.
type BookingProposal struct {
	date            string
	timeOfDay       string
	durationMinutes int
	proposedAt      time.Time
	confirmed       bool
}

// NewBookingProposal returns an empty proposal.
func NewBookingProposal() *BookingProposal {
	return &BookingProposal{}
}

// Propose stores a proposed appointment slot, replacing any earlier one.
func (b *BookingProposal) Propose(date, timeOfDay string, durationMinutes int) {
	if durationMinutes <= 0 {
		durationMinutes = 30
	}
	b.date = date
	b.timeOfDay = timeOfDay
	b.durationMinutes = durationMinutes
	b.proposedAt = time.Now()
	b.confirmed = false
}

// digits strips ISO separators so "15:00" and "15:00:00" compare equal.
func digits(s string) string {
	r := strings.NewReplacer(":", "", "-", "", "T", "")
	return r.Replace(s)
}

// VerifyConfirmation checks that the requested date and time match the
// proposed slot under tolerant normalization of ISO format variations.
func (b *BookingProposal) VerifyConfirmation(date, timeOfDay string) bool {
	if b.date == "" || b.timeOfDay == "" {
		return false
	}

	proposed := digits(b.date + "T" + b.timeOfDay)
	requested := digits(date + "T" + timeOfDay)

	dateMatch := b.date == date ||
		(len(proposed) >= 8 && len(requested) >= 8 && proposed[:8] == requested[:8])
	timeMatch := b.timeOfDay == timeOfDay ||
		(len(proposed) >= 12 && len(requested) >= 12 && proposed[8:12] == requested[8:12])

	return dateMatch && timeMatch
}

// MarkConfirmed records the caller's explicit confirmation.
func (b *BookingProposal) MarkConfirmed() {
	b.confirmed = true
}

// Confirmed reports whether the caller confirmed the proposal.
func (b *BookingProposal) Confirmed() bool {
	return b.confirmed
}

// HasProposal reports whether a slot is currently proposed.
func (b *BookingProposal) HasProposal() bool {
	return b.date != "" && b.timeOfDay != ""
}

// Details returns the proposed slot for building the booking write.
func (b *BookingProposal) Details() (date, timeOfDay string, durationMinutes int) {
	return b.date, b.timeOfDay, b.durationMinutes
}

// Clear wipes the proposal (called when the call ends).
func (b *BookingProposal) Clear() {
	*b = BookingProposal{}
}
