package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type callRecordRepository struct {
	db *mongo.Database
}

func NewCallRecordRepository(db *mongo.Database) domain.CallRecordRepository {
	return &callRecordRepository{
		db: db,
	}
}

func (r *callRecordRepository) Insert(ctx context.Context, record *domain.CallRecord) error {
	collection := r.db.Collection(db.CallRecordsCollection)

	record.CallMinute = record.CallAt.Truncate(time.Minute)

	_, err := collection.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrRecordAlreadyExists
	}
	return err
}

func (r *callRecordRepository) GetByID(ctx context.Context, id string) (*domain.CallRecord, error) {
	collection := r.db.Collection(db.CallRecordsCollection)

	var record domain.CallRecord
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *callRecordRepository) FindByCallerOnDay(ctx context.Context, callerID string, day time.Time) ([]domain.CallRecord, error) {
	collection := r.db.Collection(db.CallRecordsCollection)

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	filter := bson.M{
		"caller_id": callerID,
		"call_at": bson.M{
			"$gte": dayStart,
			"$lt":  dayEnd,
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "call_at", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []domain.CallRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *callRecordRepository) FindByStatus(ctx context.Context, statuses []domain.SyncStatus, limit int64) ([]domain.CallRecord, error) {
	collection := r.db.Collection(db.CallRecordsCollection)

	filter := bson.M{"sync_status": bson.M{"$in": statuses}}
	opts := options.Find().
		SetSort(bson.D{{Key: "call_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []domain.CallRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// FindSyncable selects candidates for one sync pass. With
// onlyPendingAdjustment set, only rows whose adjustment postdates the last
// successful sync are returned; those are synced first for static traffic.
func (r *callRecordRepository) FindSyncable(ctx context.Context, category domain.TrafficCategory, statuses []domain.SyncStatus, onlyPendingAdjustment bool, limit int64) ([]domain.CallRecord, error) {
	collection := r.db.Collection(db.CallRecordsCollection)

	filter := bson.M{
		"category":    category,
		"sync_status": bson.M{"$in": statuses},
	}

	if onlyPendingAdjustment {
		filter["adjusted_at"] = bson.M{"$ne": nil}
		filter["$or"] = bson.A{
			bson.M{"synced_at": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$synced_at", "$adjusted_at"}}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "call_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []domain.CallRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *callRecordRepository) AttachAdjustment(ctx context.Context, id string, adjustment *domain.AdjustmentRecord) error {
	collection := r.db.Collection(db.CallRecordsCollection)

	update := bson.M{
		"$set": bson.M{
			"adjusted_at":         adjustment.AdjustedAt,
			"adjustment_amount":   adjustment.Amount,
			"adjustment_class":    adjustment.Class,
			"adjustment_duration": adjustment.Duration,
		},
	}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (r *callRecordRepository) SetPlatformCallID(ctx context.Context, id string, platformCallID string) error {
	collection := r.db.Collection(db.CallRecordsCollection)

	update := bson.M{"$set": bson.M{"platform_call_id": platformCallID}}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (r *callRecordRepository) MarkPending(ctx context.Context, id string) error {
	collection := r.db.Collection(db.CallRecordsCollection)

	update := bson.M{"$set": bson.M{"sync_status": domain.SyncPending}}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

// UpdateSyncResult writes the outcome of one sync attempt. syncedAt is only
// persisted when non-zero, so failed attempts never mask a pending
// adjustment.
func (r *callRecordRepository) UpdateSyncResult(ctx context.Context, id string, status domain.SyncStatus, responseBlob string, syncedAt time.Time) error {
	collection := r.db.Collection(db.CallRecordsCollection)

	fields := bson.M{
		"sync_status":   status,
		"last_response": responseBlob,
	}
	if !syncedAt.IsZero() {
		fields["synced_at"] = syncedAt
	}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (r *callRecordRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.CallRecordsCollection)

	indexes := []mongo.IndexModel{
		{
			// The record's soft identity: one row per caller, minute, and
			// campaign phone.
			Keys: bson.D{
				{Key: "caller_id", Value: 1},
				{Key: "call_minute", Value: 1},
				{Key: "campaign_phone", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "sync_status", Value: 1},
				{Key: "call_at", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "caller_id", Value: 1},
				{Key: "call_at", Value: 1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
