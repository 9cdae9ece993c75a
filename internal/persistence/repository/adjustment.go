package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type adjustmentRepository struct {
	db *mongo.Database
}

func NewAdjustmentRepository(db *mongo.Database) domain.AdjustmentRepository {
	return &adjustmentRepository{
		db: db,
	}
}

// Insert stores an adjustment once. The call-sid is the document id, so a
// duplicate insert surfaces as ErrAdjustmentAlreadyExists and the stored
// row is never overwritten.
func (r *adjustmentRepository) Insert(ctx context.Context, adjustment *domain.AdjustmentRecord) error {
	collection := r.db.Collection(db.AdjustmentsCollection)

	if adjustment.CreatedAt.IsZero() {
		adjustment.CreatedAt = time.Now()
	}

	_, err := collection.InsertOne(ctx, adjustment)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAdjustmentAlreadyExists
	}
	return err
}

func (r *adjustmentRepository) GetByCallSID(ctx context.Context, callSID string) (*domain.AdjustmentRecord, error) {
	collection := r.db.Collection(db.AdjustmentsCollection)

	var adjustment domain.AdjustmentRecord
	err := collection.FindOne(ctx, bson.M{"_id": callSID}).Decode(&adjustment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return &adjustment, nil
}

func (r *adjustmentRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.AdjustmentsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "call_at", Value: 1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
