package domain

import "time"

type ScheduleKind string

const (
	ScheduleKindPickup ScheduleKind = "PICKUP"
	ScheduleKindReturn ScheduleKind = "RETURN"
)

// Schedule is a proposed pickup or return slot. A slot is either a concrete
// datetime or a weekly availability window offered by the lender.
type Schedule struct {
	ID          int32        `json:"id"`
	RentalID    int32        `json:"rental_id"`
	Kind        ScheduleKind `json:"kind"`
	ProposedBy  int32        `json:"proposed_by"`
	ScheduledAt *time.Time   `json:"scheduled_at,omitempty"`
	DayOfWeek   *int32       `json:"day_of_week,omitempty"`
	StartTime   string       `json:"start_time,omitempty"`
	EndTime     string       `json:"end_time,omitempty"`
	IsSelected  bool         `json:"is_selected"`
	IsConfirmed bool         `json:"is_confirmed"`
	SelectedBy  *int32       `json:"selected_by,omitempty"`
	ConfirmedBy *int32       `json:"confirmed_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type NoShowStatus string

const (
	NoShowStatusPending  NoShowStatus = "PENDING"
	NoShowStatusResolved NoShowStatus = "RESOLVED"
)

type NoShowResolution string

const (
	NoShowResolutionApproved   NoShowResolution = "APPROVED"
	NoShowResolutionReschedule NoShowResolution = "RESCHEDULE"
)

// HandoverDispute is a no-show report against a confirmed pickup slot.
type HandoverDispute struct {
	ID           int32            `json:"id"`
	RentalID     int32            `json:"rental_id"`
	ScheduleID   int32            `json:"schedule_id"`
	ReportedBy   int32            `json:"reported_by"`
	AbsentParty  Role             `json:"absent_party"`
	Description  string           `json:"description"`
	Status       NoShowStatus     `json:"status"`
	Resolution   NoShowResolution `json:"resolution,omitempty"`
	RefundAmount int64            `json:"refund_amount"`
	ResolvedBy   *int32           `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
