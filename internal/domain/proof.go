package domain

import "time"

type ProofStage string

const (
	ProofStageHandover ProofStage = "HANDOVER"
	ProofStageReturn   ProofStage = "RETURN"
)

type ProofType string

const (
	// ProofTypeHandover is the lender releasing the item.
	ProofTypeHandover ProofType = "HANDOVER"
	// ProofTypeReturn is the renter giving the item back.
	ProofTypeReturn ProofType = "RETURN"
	// ProofTypeReceive is the counter-party confirming receipt in either stage.
	ProofTypeReceive ProofType = "RECEIVE"
)

// Proof is append-only.
type Proof struct {
	ID          int32      `json:"id"`
	RentalID    int32      `json:"rental_id"`
	Stage       ProofStage `json:"stage"`
	Type        ProofType  `json:"type"`
	SubmittedBy int32      `json:"submitted_by"`
	ImagePath   string     `json:"image_path"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
