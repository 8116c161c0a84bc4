package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

const clockLayout = "15:04"

type scheduleService struct {
	*core
}

func NewScheduleService(deps Dependencies) ScheduleService {
	return &scheduleService{core: newCore(deps)}
}

func (s *scheduleService) validateProposal(in ProposeScheduleInput) error {
	verr := &domain.ValidationError{}
	if in.Kind != domain.ScheduleKindPickup && in.Kind != domain.ScheduleKindReturn {
		verr.Add("kind", "must be PICKUP or RETURN")
	}
	switch {
	case in.ScheduledAt != nil && in.DayOfWeek != nil:
		verr.Add("schedule", "provide either a date and time or a weekly slot, not both")
	case in.ScheduledAt != nil:
		if !in.ScheduledAt.After(s.now()) {
			verr.Add("scheduled_at", "must be in the future")
		}
	case in.DayOfWeek != nil:
		if *in.DayOfWeek < 0 || *in.DayOfWeek > 6 {
			verr.Add("day_of_week", "must be between 0 and 6")
		}
		start, startErr := time.Parse(clockLayout, in.StartTime)
		end, endErr := time.Parse(clockLayout, in.EndTime)
		if startErr != nil {
			verr.Add("start_time", "must be HH:MM")
		}
		if endErr != nil {
			verr.Add("end_time", "must be HH:MM")
		}
		if startErr == nil && endErr == nil && !start.Before(end) {
			verr.Add("end_time", "must be after the start time")
		}
	default:
		verr.Add("schedule", "a date and time or a weekly slot is required")
	}
	return verr.OrNil()
}

// requireNegotiable checks the rental is in a status where slots of kind may change.
func requireNegotiable(r *domain.Rental, kind domain.ScheduleKind, cmd domain.Command) error {
	if kind == domain.ScheduleKindReturn {
		return domain.RequireStatus(r, cmd, domain.RentalStatusPendingReturn)
	}
	return domain.RequireStatus(r, cmd, domain.RentalStatusApproved, domain.RentalStatusToHandover)
}

func (s *scheduleService) ProposeSchedule(ctx context.Context, actor domain.Actor, rentalID int32, in ProposeScheduleInput) (*domain.Schedule, error) {
	logger.EnterMethod("scheduleService.ProposeSchedule", "userID", actor.UserID, "rentalID", rentalID, "kind", in.Kind)

	if err := s.validateProposal(in); err != nil {
		logger.ExitMethodWithError("scheduleService.ProposeSchedule", err)
		return nil, err
	}

	var schedule *domain.Schedule
	err := s.run(ctx, "propose_schedule", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, err := repos.Rentals.GetForUpdate(ctx, rentalID)
		if err != nil {
			return err
		}
		if err := domain.RequireParticipant(actor, r); err != nil {
			return err
		}
		if in.DayOfWeek != nil && actor.RoleIn(r) != domain.RoleLender {
			return &domain.AuthorizationError{ActorID: actor.UserID, Reason: "only the lender can offer weekly availability"}
		}
		if err := requireNegotiable(r, in.Kind, domain.CmdProposeSchedule); err != nil {
			return err
		}
		confirmed, err := hasConfirmedSchedule(ctx, repos, r.ID, in.Kind)
		if err != nil {
			return err
		}
		if confirmed {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdProposeSchedule,
				Reason: fmt.Sprintf("a %s slot is already confirmed", strings.ToLower(string(in.Kind)))}
		}

		sc := &domain.Schedule{
			RentalID:   r.ID,
			Kind:       in.Kind,
			ProposedBy: actor.UserID,
			DayOfWeek:  in.DayOfWeek,
		}
		if in.ScheduledAt != nil {
			at := in.ScheduledAt.UTC()
			sc.ScheduledAt = &at
		} else {
			sc.StartTime = in.StartTime
			sc.EndTime = in.EndTime
		}
		if err := repos.Schedules.Create(ctx, sc); err != nil {
			return err
		}
		if err := s.record(ctx, repos, out, r, actor, domain.EventScheduleProposed, map[string]any{
			"schedule_id": sc.ID, "kind": string(sc.Kind),
		}); err != nil {
			return err
		}
		out.notify(counterparty(actor, r), r, domain.EventScheduleProposed, "New Time Proposed",
			fmt.Sprintf("A %s time was proposed for rental #%d", strings.ToLower(string(sc.Kind)), r.ID))
		schedule = sc
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("scheduleService.ProposeSchedule", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("scheduleService.ProposeSchedule", "scheduleID", schedule.ID)
	return schedule, nil
}

// lockSchedule locks the owning rental and then reads the schedule again.
func lockSchedule(ctx context.Context, repos repository.Repos, scheduleID int32) (*domain.Rental, *domain.Schedule, error) {
	snapshot, err := repos.Schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, err
	}
	r, err := repos.Rentals.GetForUpdate(ctx, snapshot.RentalID)
	if err != nil {
		return nil, nil, err
	}
	sc, err := repos.Schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, err
	}
	return r, sc, nil
}

func (s *scheduleService) SelectSchedule(ctx context.Context, actor domain.Actor, scheduleID int32) (*domain.Schedule, error) {
	logger.EnterMethod("scheduleService.SelectSchedule", "userID", actor.UserID, "scheduleID", scheduleID)

	var schedule *domain.Schedule
	err := s.run(ctx, "select_schedule", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, sc, err := lockSchedule(ctx, repos, scheduleID)
		if err != nil {
			return err
		}
		if err := domain.RequireParticipant(actor, r); err != nil {
			return err
		}
		if sc.ProposedBy == actor.UserID {
			return &domain.AuthorizationError{ActorID: actor.UserID, Reason: "cannot select a slot they proposed"}
		}
		if err := requireNegotiable(r, sc.Kind, domain.CmdSelectSchedule); err != nil {
			return err
		}
		if sc.IsSelected {
			schedule = sc
			return nil
		}

		removed, err := repos.Schedules.DeleteSiblings(ctx, r.ID, sc.Kind, sc.ID)
		if err != nil {
			return err
		}
		sc.IsSelected = true
		sc.SelectedBy = actor.UserIDPtr()
		if err := repos.Schedules.Update(ctx, sc); err != nil {
			return err
		}
		if err := s.record(ctx, repos, out, r, actor, domain.EventScheduleSelected, map[string]any{
			"schedule_id": sc.ID, "kind": string(sc.Kind), "removed_proposals": removed,
		}); err != nil {
			return err
		}
		out.notify(sc.ProposedBy, r, domain.EventScheduleSelected, "Time Selected",
			fmt.Sprintf("Your proposed %s time for rental #%d was selected. Please confirm it.", strings.ToLower(string(sc.Kind)), r.ID))
		schedule = sc
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("scheduleService.SelectSchedule", err, "scheduleID", scheduleID)
		return nil, err
	}

	logger.ExitMethod("scheduleService.SelectSchedule", "scheduleID", scheduleID)
	return schedule, nil
}

func (s *scheduleService) ConfirmSchedule(ctx context.Context, actor domain.Actor, scheduleID int32) (*domain.Schedule, error) {
	logger.EnterMethod("scheduleService.ConfirmSchedule", "userID", actor.UserID, "scheduleID", scheduleID)

	var schedule *domain.Schedule
	err := s.run(ctx, "confirm_schedule", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, sc, err := lockSchedule(ctx, repos, scheduleID)
		if err != nil {
			return err
		}
		if err := domain.RequireParticipant(actor, r); err != nil {
			return err
		}
		if sc.ProposedBy != actor.UserID {
			return &domain.AuthorizationError{ActorID: actor.UserID, Reason: "only the proposer can confirm a slot"}
		}
		if sc.IsConfirmed {
			schedule = sc
			return nil
		}
		if err := requireNegotiable(r, sc.Kind, domain.CmdConfirmSchedule); err != nil {
			return err
		}
		if !sc.IsSelected {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdConfirmSchedule, Reason: "slot has not been selected"}
		}

		sc.IsConfirmed = true
		sc.ConfirmedBy = actor.UserIDPtr()
		if err := repos.Schedules.Update(ctx, sc); err != nil {
			return err
		}
		metadata := map[string]any{"schedule_id": sc.ID, "kind": string(sc.Kind)}
		if sc.Kind == domain.ScheduleKindReturn {
			err = s.transition(ctx, repos, out, r, actor, domain.CmdConfirmReturnSchedule, domain.EventScheduleConfirmed, metadata)
		} else {
			err = s.record(ctx, repos, out, r, actor, domain.EventScheduleConfirmed, metadata)
		}
		if err != nil {
			return err
		}
		out.notify(counterparty(actor, r), r, domain.EventScheduleConfirmed, "Time Confirmed",
			fmt.Sprintf("The %s time for rental #%d is confirmed", strings.ToLower(string(sc.Kind)), r.ID))
		schedule = sc
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("scheduleService.ConfirmSchedule", err, "scheduleID", scheduleID)
		return nil, err
	}

	logger.ExitMethod("scheduleService.ConfirmSchedule", "scheduleID", scheduleID)
	return schedule, nil
}

func (s *scheduleService) DeleteSchedule(ctx context.Context, actor domain.Actor, scheduleID int32) error {
	logger.EnterMethod("scheduleService.DeleteSchedule", "userID", actor.UserID, "scheduleID", scheduleID)

	err := s.run(ctx, "delete_schedule", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, sc, err := lockSchedule(ctx, repos, scheduleID)
		if err != nil {
			return err
		}
		if sc.ProposedBy != actor.UserID {
			return &domain.AuthorizationError{ActorID: actor.UserID, Reason: "only the proposer can delete a slot"}
		}
		if sc.IsSelected {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdDeleteSchedule, Reason: "slot is already selected"}
		}
		if err := repos.Schedules.Delete(ctx, sc.ID); err != nil {
			return err
		}
		return s.record(ctx, repos, out, r, actor, domain.EventScheduleDeleted, map[string]any{
			"schedule_id": sc.ID, "kind": string(sc.Kind),
		})
	})
	if err != nil {
		logger.ExitMethodWithError("scheduleService.DeleteSchedule", err, "scheduleID", scheduleID)
		return err
	}

	logger.ExitMethod("scheduleService.DeleteSchedule", "scheduleID", scheduleID)
	return nil
}

func (s *scheduleService) ReportNoShow(ctx context.Context, actor domain.Actor, scheduleID int32, description string) (*domain.HandoverDispute, error) {
	logger.EnterMethod("scheduleService.ReportNoShow", "userID", actor.UserID, "scheduleID", scheduleID)

	if strings.TrimSpace(description) == "" {
		err := domain.NewValidationError("description", "is required")
		logger.ExitMethodWithError("scheduleService.ReportNoShow", err)
		return nil, err
	}

	var report *domain.HandoverDispute
	err := s.run(ctx, "report_no_show", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, sc, err := lockSchedule(ctx, repos, scheduleID)
		if err != nil {
			return err
		}
		if err := domain.RequireParticipant(actor, r); err != nil {
			return err
		}
		if err := domain.RequireStatus(r, domain.CmdReportNoShow, domain.RentalStatusToHandover); err != nil {
			return err
		}
		if sc.Kind != domain.ScheduleKindPickup || !sc.IsConfirmed {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdReportNoShow, Reason: "slot is not a confirmed pickup"}
		}
		if sc.ScheduledAt == nil {
			return domain.NewValidationError("schedule_id", "a no-show can only be reported for a dated slot")
		}
		if !sc.ScheduledAt.Before(s.now()) {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdReportNoShow, Reason: "pickup time has not passed yet"}
		}
		reports, err := repos.Schedules.ListNoShows(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, existing := range reports {
			if existing.Status == domain.NoShowStatusPending {
				return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdReportNoShow, Reason: "a no-show report is already pending"}
			}
		}

		absent := domain.RoleLender
		if actor.RoleIn(r) == domain.RoleLender {
			absent = domain.RoleRenter
		}
		d := &domain.HandoverDispute{
			RentalID:    r.ID,
			ScheduleID:  sc.ID,
			ReportedBy:  actor.UserID,
			AbsentParty: absent,
			Description: strings.TrimSpace(description),
			Status:      domain.NoShowStatusPending,
		}
		if err := repos.Schedules.CreateNoShow(ctx, d); err != nil {
			return err
		}
		if err := s.record(ctx, repos, out, r, actor, domain.EventNoShowReported, map[string]any{
			"no_show_id": d.ID, "schedule_id": sc.ID, "absent_party": string(absent),
		}); err != nil {
			return err
		}
		out.notify(counterparty(actor, r), r, domain.EventNoShowReported, "No-Show Reported",
			fmt.Sprintf("You were reported absent at the pickup for rental #%d. An administrator will review it.", r.ID))
		report = d
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("scheduleService.ReportNoShow", err, "scheduleID", scheduleID)
		return nil, err
	}

	logger.ExitMethod("scheduleService.ReportNoShow", "noShowID", report.ID)
	return report, nil
}

func (s *scheduleService) ResolveNoShow(ctx context.Context, actor domain.Actor, noShowID int32, resolution domain.NoShowResolution, refundAmount int64) (*domain.HandoverDispute, error) {
	logger.EnterMethod("scheduleService.ResolveNoShow", "adminID", actor.UserID, "noShowID", noShowID, "resolution", resolution)

	if err := domain.RequireAdmin(actor); err != nil {
		logger.ExitMethodWithError("scheduleService.ResolveNoShow", err)
		return nil, err
	}
	if resolution != domain.NoShowResolutionApproved && resolution != domain.NoShowResolutionReschedule {
		err := domain.NewValidationError("resolution", "must be APPROVED or RESCHEDULE")
		logger.ExitMethodWithError("scheduleService.ResolveNoShow", err)
		return nil, err
	}

	var report *domain.HandoverDispute
	err := s.run(ctx, "resolve_no_show", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		snapshot, err := repos.Schedules.GetNoShow(ctx, noShowID)
		if err != nil {
			return err
		}
		r, listing, err := lockRentalWithListing(ctx, repos, snapshot.RentalID)
		if err != nil {
			return err
		}
		d, err := repos.Schedules.GetNoShowForUpdate(ctx, noShowID)
		if err != nil {
			return err
		}
		if d.Status == domain.NoShowStatusResolved {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdResolveNoShow, Reason: "no-show report is already resolved"}
		}

		metadata := map[string]any{"no_show_id": d.ID, "resolution": string(resolution), "absent_party": string(d.AbsentParty)}
		var body string
		if resolution == domain.NoShowResolutionApproved {
			if refundAmount < 0 || refundAmount > r.TotalPrice {
				return domain.NewValidationError("refund_amount", fmt.Sprintf("must be between 0 and %d", r.TotalPrice))
			}
			if _, err := domain.Transition(r.Status, domain.CmdNoShowCancel); err != nil {
				return err
			}
			d.RefundAmount = refundAmount
			if err := repos.Listings.SetExclusivelyRented(ctx, listing.ID, false); err != nil {
				return err
			}
			if err := repos.Reasons.Attach(ctx, &domain.ReasonAttachment{
				RentalID: r.ID,
				Category: domain.ReasonCategoryCancellation,
				Code:     domain.ReasonNoShow,
				Feedback: d.Description,
				AuthorID: actor.UserIDPtr(),
			}); err != nil {
				return err
			}
			metadata["refund_amount"] = refundAmount
			if err := s.transition(ctx, repos, out, r, actor, domain.CmdNoShowCancel, domain.EventNoShowResolved, metadata); err != nil {
				return err
			}
			body = fmt.Sprintf("Rental #%d was cancelled after a missed pickup. Refund: %d", r.ID, refundAmount)
		} else {
			if err := domain.RequireStatus(r, domain.CmdResolveNoShow, domain.RentalStatusToHandover); err != nil {
				return err
			}
			removed, err := repos.Schedules.DeleteByRental(ctx, r.ID, domain.ScheduleKindPickup)
			if err != nil {
				return err
			}
			metadata["removed_schedules"] = removed
			if d.AbsentParty == domain.RoleLender {
				end, err := time.Parse(domain.DateLayout, r.EndDate)
				if err != nil {
					return fmt.Errorf("rental %d has an invalid end date: %w", r.ID, err)
				}
				metadata["previous_end_date"] = r.EndDate
				r.EndDate = end.AddDate(0, 0, 1).Format(domain.DateLayout)
				if err := repos.Rentals.Update(ctx, r); err != nil {
					return err
				}
				metadata["end_date"] = r.EndDate
			}
			if err := s.record(ctx, repos, out, r, actor, domain.EventNoShowResolved, metadata); err != nil {
				return err
			}
			body = fmt.Sprintf("The pickup for rental #%d has to be scheduled again", r.ID)
		}

		now := s.now().UTC()
		d.Status = domain.NoShowStatusResolved
		d.Resolution = resolution
		d.ResolvedBy = actor.UserIDPtr()
		d.ResolvedAt = &now
		if err := repos.Schedules.UpdateNoShow(ctx, d); err != nil {
			return err
		}
		out.notify(r.RenterID, r, domain.EventNoShowResolved, "No-Show Resolved", body)
		out.notify(r.LenderID, r, domain.EventNoShowResolved, "No-Show Resolved", body)
		report = d
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("scheduleService.ResolveNoShow", err, "noShowID", noShowID)
		return nil, err
	}

	logger.ExitMethod("scheduleService.ResolveNoShow", "noShowID", noShowID)
	return report, nil
}
