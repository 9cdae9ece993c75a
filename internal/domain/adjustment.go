package domain

import (
	"context"
	"errors"
	"time"
)

var ErrAdjustmentAlreadyExists = errors.New("adjustment already exists")

// AdjustmentRecord is a correction scraped from the affiliate portal:
// a chargeback, cancellation, or duration-based payout change against a
// call that was previously recorded. Rows are append-only; a call-sid is
// stored at most once and never overwritten.
type AdjustmentRecord struct {
	CallSID    string    `bson:"_id" json:"callSid"`
	CallAt     time.Time `bson:"call_at" json:"callAt"`
	AdjustedAt time.Time `bson:"adjusted_at" json:"adjustedAt"`
	Amount     float64   `bson:"amount" json:"amount"`
	Class      string    `bson:"class" json:"class"`
	Duration   int       `bson:"duration" json:"duration"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

type AdjustmentRepository interface {
	Insert(ctx context.Context, adjustment *AdjustmentRecord) error
	GetByCallSID(ctx context.Context, callSID string) (*AdjustmentRecord, error)
	EnsureIndexes(ctx context.Context) error
}
