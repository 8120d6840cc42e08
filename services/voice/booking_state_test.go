package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingProposalConfirmExactSlot(t *testing.T) {
	b := NewBookingProposal()
	b.Propose("2026-09-03", "15:00", 45)

	assert.True(t, b.HasProposal())
	assert.True(t, b.VerifyConfirmation("2026-09-03", "15:00"))
	assert.False(t, b.Confirmed())

	b.MarkConfirmed()
	assert.True(t, b.Confirmed())

	date, timeOfDay, duration := b.Details()
	assert.Equal(t, "2026-09-03", date)
	assert.Equal(t, "15:00", timeOfDay)
	assert.Equal(t, 45, duration)
}

func TestBookingProposalToleratesFormatVariations(t *testing.T) {
	b := NewBookingProposal()
	b.Propose("2026-09-03", "15:00", 30)

	// Seconds and separator variations of the same instant still match.
	assert.True(t, b.VerifyConfirmation("2026-09-03", "15:00:00"))
	assert.True(t, b.VerifyConfirmation("20260903", "1500"))
}

func TestBookingProposalRejectsDifferentSlot(t *testing.T) {
	b := NewBookingProposal()
	b.Propose("2026-09-03", "15:00", 30)

	assert.False(t, b.VerifyConfirmation("2026-09-04", "15:00"), "different day")
	assert.False(t, b.VerifyConfirmation("2026-09-03", "16:00"), "different time")
}

func TestBookingProposalWithoutProposal(t *testing.T) {
	b := NewBookingProposal()
	assert.False(t, b.HasProposal())
	assert.False(t, b.VerifyConfirmation("2026-09-03", "15:00"))
}

func TestBookingProposalReplaceAndClear(t *testing.T) {
	b := NewBookingProposal()
	b.Propose("2026-09-03", "15:00", 30)
	b.MarkConfirmed()

	// A new proposal resets the confirmation.
	b.Propose("2026-09-05", "10:30", 0)
	assert.False(t, b.Confirmed())
	assert.False(t, b.VerifyConfirmation("2026-09-03", "15:00"))
	assert.True(t, b.VerifyConfirmation("2026-09-05", "10:30"))

	_, _, duration := b.Details()
	assert.Equal(t, 30, duration, "non-positive duration falls back to 30 minutes")

	b.Clear()
	assert.False(t, b.HasProposal())
	assert.False(t, b.Confirmed())
}
