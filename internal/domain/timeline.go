package domain

import "time"

type TimelineEventType string

const (
	EventRentalRequested        TimelineEventType = "RENTAL_REQUESTED"
	EventRentalApproved         TimelineEventType = "RENTAL_APPROVED"
	EventRentalRejected         TimelineEventType = "RENTAL_REJECTED"
	EventRentalAutoRejected     TimelineEventType = "RENTAL_AUTO_REJECTED"
	EventRentalCancelled        TimelineEventType = "RENTAL_CANCELLED"
	EventPaymentSubmitted       TimelineEventType = "PAYMENT_SUBMITTED"
	EventPaymentVerified        TimelineEventType = "PAYMENT_VERIFIED"
	EventPaymentRejected        TimelineEventType = "PAYMENT_REJECTED"
	EventScheduleProposed       TimelineEventType = "SCHEDULE_PROPOSED"
	EventScheduleSelected       TimelineEventType = "SCHEDULE_SELECTED"
	EventScheduleConfirmed      TimelineEventType = "SCHEDULE_CONFIRMED"
	EventScheduleDeleted        TimelineEventType = "SCHEDULE_DELETED"
	EventNoShowReported         TimelineEventType = "NO_SHOW_REPORTED"
	EventNoShowResolved         TimelineEventType = "NO_SHOW_RESOLVED"
	EventHandoverProofSubmitted TimelineEventType = "HANDOVER_PROOF_SUBMITTED"
	EventHandoverReceived       TimelineEventType = "HANDOVER_RECEIVED"
	EventReturnInitiated        TimelineEventType = "RETURN_INITIATED"
	EventReturnProofSubmitted   TimelineEventType = "RETURN_PROOF_SUBMITTED"
	EventReturnConfirmed        TimelineEventType = "RETURN_CONFIRMED"
	EventDisputeRaised          TimelineEventType = "DISPUTE_RAISED"
	EventDisputeReviewed        TimelineEventType = "DISPUTE_REVIEWED"
	EventDisputeResolved        TimelineEventType = "DISPUTE_RESOLVED"
	EventLenderPaid             TimelineEventType = "LENDER_PAID"
	EventDepositRefunded        TimelineEventType = "DEPOSIT_REFUNDED"
)

// TimelineEvent is the append-only audit trail of a rental.
type TimelineEvent struct {
	ID              int32             `json:"id"`
	RentalID        int32             `json:"rental_id"`
	ActorUserID     *int32            `json:"actor_user_id"` // NULL for system actions
	EventType       TimelineEventType `json:"event_type"`
	ResultingStatus RentalStatus      `json:"resulting_status"`
	Metadata        string            `json:"metadata"` // JSONB stored as string
	CreatedAt       time.Time         `json:"created_at"`
}
