package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-escrow-backend/internal/domain"
)

func selectedCount(h *harness, rentalID int32, kind domain.ScheduleKind) int {
	n := 0
	for _, sc := range h.store.schedules {
		if sc.RentalID == rentalID && sc.Kind == kind && sc.IsSelected {
			n++
		}
	}
	return n
}

func TestPickupNegotiation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	r := h.seedRental(t, domain.RentalStatusApproved, "2026-03-03", "2026-03-05", 1, 1000)

	at := func(hours int) *time.Time {
		ts := h.now.Add(time.Duration(hours) * time.Hour)
		return &ts
	}

	_, err := h.schedules.ProposeSchedule(ctx, lender, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, ScheduledAt: at(-1)})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	day := int32(2)
	_, err = h.schedules.ProposeSchedule(ctx, renter, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, DayOfWeek: &day, StartTime: "09:00", EndTime: "11:00"})
	var authErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authErr, "weekly availability is offered by the lender")

	_, err = h.schedules.ProposeSchedule(ctx, lender, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, DayOfWeek: &day, StartTime: "11:00", EndTime: "09:00"})
	require.ErrorAs(t, err, &verr)

	_, err = h.schedules.ProposeSchedule(ctx, outsider, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, ScheduledAt: at(24)})
	require.ErrorAs(t, err, &authErr)

	first, err := h.schedules.ProposeSchedule(ctx, lender, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, ScheduledAt: at(24)})
	require.NoError(t, err)
	second, err := h.schedules.ProposeSchedule(ctx, lender, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, ScheduledAt: at(48)})
	require.NoError(t, err)
	weekly, err := h.schedules.ProposeSchedule(ctx, lender, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, DayOfWeek: &day, StartTime: "09:00", EndTime: "11:00"})
	require.NoError(t, err)
	assert.Nil(t, weekly.ScheduledAt)

	require.NoError(t, h.schedules.DeleteSchedule(ctx, lender, weekly.ID))
	err = h.schedules.DeleteSchedule(ctx, renter, second.ID)
	require.ErrorAs(t, err, &authErr)

	_, err = h.schedules.SelectSchedule(ctx, lender, first.ID)
	require.ErrorAs(t, err, &authErr, "the proposer cannot select their own slot")

	selected, err := h.schedules.SelectSchedule(ctx, renter, first.ID)
	require.NoError(t, err)
	assert.True(t, selected.IsSelected)
	_, stillThere := h.store.schedules[second.ID]
	assert.False(t, stillThere, "siblings are deleted on selection")
	assert.Equal(t, 1, selectedCount(h, r.ID, domain.ScheduleKindPickup))

	err = h.schedules.DeleteSchedule(ctx, lender, first.ID)
	var ite *domain.InvalidTransitionError
	require.ErrorAs(t, err, &ite)

	counter, err := h.schedules.ProposeSchedule(ctx, renter, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, ScheduledAt: at(72)})
	require.NoError(t, err)
	_, err = h.schedules.SelectSchedule(ctx, lender, counter.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, selectedCount(h, r.ID, domain.ScheduleKindPickup))
	_, stillThere = h.store.schedules[first.ID]
	assert.False(t, stillThere)

	_, err = h.schedules.ConfirmSchedule(ctx, lender, counter.ID)
	require.ErrorAs(t, err, &authErr, "only the proposer confirms")

	confirmed, err := h.schedules.ConfirmSchedule(ctx, renter, counter.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed)
	assert.Equal(t, domain.RentalStatusApproved, h.rental(t, r.ID).Status)

	_, err = h.schedules.ProposeSchedule(ctx, lender, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, ScheduledAt: at(96)})
	require.ErrorAs(t, err, &ite)

	_, err = h.schedules.ProposeSchedule(ctx, lender, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindReturn, ScheduledAt: at(96)})
	require.ErrorAs(t, err, &ite, "return slots wait for pending_return")
}

func TestConfirmSchedule_RequiresSelection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	r := h.seedRental(t, domain.RentalStatusApproved, "2026-03-03", "2026-03-05", 1, 1000)
	at := h.now.Add(24 * time.Hour)

	sc, err := h.schedules.ProposeSchedule(ctx, lender, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindPickup, ScheduledAt: &at})
	require.NoError(t, err)

	_, err = h.schedules.ConfirmSchedule(ctx, lender, sc.ID)
	var ite *domain.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestHandover(t *testing.T) {
	ctx := context.Background()

	t.Run("Requires a confirmed pickup", func(t *testing.T) {
		h := newHarness(t)
		r := h.seedRental(t, domain.RentalStatusToHandover, "2026-03-01", "2026-03-03", 1, 1000)

		_, err := h.handover.SubmitHandoverProof(ctx, lender, r.ID, ProofInput{Image: image("handover.jpg")})
		var ite *domain.InvalidTransitionError
		require.ErrorAs(t, err, &ite)
		assert.Contains(t, ite.Error(), string(domain.RentalStatusToHandover))
		assert.Empty(t, h.blobs.stored)
	})

	t.Run("Handover then receipt", func(t *testing.T) {
		h := newHarness(t)
		r := h.seedRental(t, domain.RentalStatusToHandover, "2026-03-01", "2026-03-03", 1, 1000)
		h.confirmedPickup(t, r.ID, h.now.Add(-time.Hour))

		_, err := h.handover.ConfirmReceipt(ctx, renter, r.ID, ProofInput{Image: image("got-it.jpg")})
		var ite *domain.InvalidTransitionError
		require.ErrorAs(t, err, &ite, "receipt before the handover proof is out of order")

		_, err = h.handover.SubmitHandoverProof(ctx, renter, r.ID, ProofInput{Image: image("handover.jpg")})
		var authErr *domain.AuthorizationError
		require.ErrorAs(t, err, &authErr)

		_, err = h.handover.SubmitHandoverProof(ctx, lender, r.ID, ProofInput{})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)

		proof, err := h.handover.SubmitHandoverProof(ctx, lender, r.ID, ProofInput{Image: image("handover.jpg"), Notes: " boxed "})
		require.NoError(t, err)
		assert.Equal(t, domain.ProofTypeHandover, proof.Type)
		assert.Equal(t, "boxed", proof.Notes)
		assert.Equal(t, domain.RentalStatusPendingProof, h.rental(t, r.ID).Status)

		_, err = h.handover.SubmitHandoverProof(ctx, lender, r.ID, ProofInput{Image: image("handover-2.jpg")})
		require.NoError(t, err, "the lender may resubmit while the renter has not confirmed")

		receipt, err := h.handover.ConfirmReceipt(ctx, renter, r.ID, ProofInput{Image: image("got-it.jpg")})
		require.NoError(t, err)
		assert.Equal(t, domain.ProofTypeReceive, receipt.Type)

		rt := h.rental(t, r.ID)
		assert.Equal(t, domain.RentalStatusActive, rt.Status)
		require.NotNil(t, rt.HandoverAt)
		assert.Equal(t, h.now, *rt.HandoverAt)
		assert.False(t, h.store.listings[listingID].IsAvailable)
		assert.Len(t, h.store.proofs, 3)
	})

	t.Run("Failed transaction removes the stored image", func(t *testing.T) {
		h := newHarness(t)
		r := h.seedRental(t, domain.RentalStatusToHandover, "2026-03-01", "2026-03-03", 1, 1000)
		h.confirmedPickup(t, r.ID, h.now.Add(-time.Hour))
		h.store.failOn = "proofs.create"

		_, err := h.handover.SubmitHandoverProof(ctx, lender, r.ID, ProofInput{Image: image("handover.jpg")})
		require.ErrorIs(t, err, errInjected)
		assert.Empty(t, h.blobs.stored)
		require.Len(t, h.blobs.deleted, 1)
		assert.Contains(t, h.blobs.deleted[0], "handover")
		assert.Equal(t, domain.RentalStatusToHandover, h.rental(t, r.ID).Status)
	})
}

func TestReturnFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	listing := h.store.listings[listingID]
	listing.IsAvailable = false
	listing.ExclusivelyRented = true
	h.store.listings[listingID] = listing
	r := h.seedRental(t, domain.RentalStatusActive, "2026-02-25", "2026-03-05", 1, 1000)

	view, err := h.rentals.GetRental(ctx, renter, r.ID)
	require.NoError(t, err)
	assert.False(t, view.IsOverdue)
	assert.Equal(t, int32(5), view.RemainingDays)

	_, err = h.rentals.InitiateReturn(ctx, outsider, r.ID)
	var authErr *domain.AuthorizationError
	require.ErrorAs(t, err, &authErr)

	_, err = h.rentals.InitiateReturn(ctx, renter, r.ID)
	require.NoError(t, err)

	at := h.now.Add(6 * time.Hour)
	slot, err := h.schedules.ProposeSchedule(ctx, renter, r.ID, ProposeScheduleInput{Kind: domain.ScheduleKindReturn, ScheduledAt: &at})
	require.NoError(t, err)
	_, err = h.schedules.SelectSchedule(ctx, lender, slot.ID)
	require.NoError(t, err)
	_, err = h.schedules.ConfirmSchedule(ctx, renter, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusReturnScheduled, h.rental(t, r.ID).Status)

	_, err = h.handover.ConfirmReturn(ctx, lender, r.ID, ProofInput{Image: image("back.jpg")})
	var ite *domain.InvalidTransitionError
	require.ErrorAs(t, err, &ite)

	_, err = h.handover.SubmitReturnProof(ctx, renter, r.ID, ProofInput{Image: image("returned.jpg")})
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusPendingReturnConfirmation, h.rental(t, r.ID).Status)

	_, err = h.handover.ConfirmReturn(ctx, lender, r.ID, ProofInput{Image: image("back.jpg")})
	require.NoError(t, err)

	rt := h.rental(t, r.ID)
	assert.Equal(t, domain.RentalStatusPendingFinalConfirmation, rt.Status)
	require.NotNil(t, rt.ReturnAt)
	assert.True(t, h.store.listings[listingID].IsAvailable)
	assert.False(t, h.store.listings[listingID].ExclusivelyRented)

	events, err := h.rentals.GetTimeline(ctx, renter, r.ID)
	require.NoError(t, err)
	var types []domain.TimelineEventType
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []domain.TimelineEventType{
		domain.EventReturnInitiated,
		domain.EventScheduleProposed,
		domain.EventScheduleSelected,
		domain.EventScheduleConfirmed,
		domain.EventReturnProofSubmitted,
		domain.EventReturnConfirmed,
	}, types)
	assert.Equal(t, domain.RentalStatusPendingFinalConfirmation, events[len(events)-1].ResultingStatus)
}

func TestNoShow(t *testing.T) {
	ctx := context.Background()

	t.Run("Reschedule when the lender was absent", func(t *testing.T) {
		h := newHarness(t)
		r := h.seedRental(t, domain.RentalStatusToHandover, "2026-03-01", "2026-03-03", 1, 1000)
		future := h.confirmedPickup(t, r.ID, h.now.Add(time.Hour))

		_, err := h.schedules.ReportNoShow(ctx, renter, future.ID, "nobody came")
		var ite *domain.InvalidTransitionError
		require.ErrorAs(t, err, &ite, "the pickup time has not passed")

		h.now = h.now.Add(2 * time.Hour)
		report, err := h.schedules.ReportNoShow(ctx, renter, future.ID, "nobody came")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleLender, report.AbsentParty)

		_, err = h.schedules.ResolveNoShow(ctx, lender, report.ID, domain.NoShowResolutionReschedule, 0)
		var authErr *domain.AuthorizationError
		require.ErrorAs(t, err, &authErr)

		resolved, err := h.schedules.ResolveNoShow(ctx, admin, report.ID, domain.NoShowResolutionReschedule, 0)
		require.NoError(t, err)
		assert.Equal(t, domain.NoShowStatusResolved, resolved.Status)

		rt := h.rental(t, r.ID)
		assert.Equal(t, domain.RentalStatusToHandover, rt.Status)
		assert.Equal(t, "2026-03-04", rt.EndDate)
		assert.Equal(t, r.TotalPrice, rt.TotalPrice)
		assert.Empty(t, h.store.schedules)

		_, err = h.schedules.ResolveNoShow(ctx, admin, report.ID, domain.NoShowResolutionApproved, 0)
		require.ErrorAs(t, err, &ite)
	})

	t.Run("Approved no-show cancels with a refund", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Repos().Listings.SetExclusivelyRented(ctx, listingID, true))
		r := h.seedRental(t, domain.RentalStatusToHandover, "2026-03-01", "2026-03-03", 1, 1000)
		pickup := h.confirmedPickup(t, r.ID, h.now.Add(-time.Hour))

		report, err := h.schedules.ReportNoShow(ctx, lender, pickup.ID, "renter never showed up")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleRenter, report.AbsentParty)

		_, err = h.schedules.ReportNoShow(ctx, renter, pickup.ID, "lender was late")
		var ite *domain.InvalidTransitionError
		require.ErrorAs(t, err, &ite, "a pending report blocks a second one")
		assert.Equal(t, domain.RentalStatusToHandover, ite.Current)
		assert.Len(t, h.store.noShows, 1)

		_, err = h.schedules.ResolveNoShow(ctx, admin, report.ID, domain.NoShowResolutionApproved, r.TotalPrice+1)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)

		resolved, err := h.schedules.ResolveNoShow(ctx, admin, report.ID, domain.NoShowResolutionApproved, 800)
		require.NoError(t, err)
		assert.Equal(t, int64(800), resolved.RefundAmount)
		assert.Equal(t, domain.RentalStatusCancelled, h.rental(t, r.ID).Status)
		assert.False(t, h.store.listings[listingID].ExclusivelyRented)

		require.Len(t, h.store.reasons, 1)
		assert.Equal(t, domain.ReasonCategoryCancellation, h.store.reasons[0].Category)
		assert.Equal(t, domain.ReasonNoShow, h.store.reasons[0].Code)
	})
}
