package storage

import (
	"context"
)

// BlobStore keeps proof and payment images. Store returns a stable path
// reference that is saved on the owning row; Delete is used for cleanup when
// the surrounding transaction fails.
type BlobStore interface {
	Store(ctx context.Context, directory, filename string, content []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

// Directories used for the different image kinds.
const (
	DirPayments = "payments"
	DirHandover = "handover"
	DirReturns  = "returns"
	DirDisputes = "disputes"
	DirPayouts  = "payouts"
)
