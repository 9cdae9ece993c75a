package repository

import (
	"context"
	"time"

	"github.com/ringledger/callsync/internal/domain"
	"github.com/ringledger/callsync/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// syncLogRepository is append-only: entries are never updated or deleted,
// so there is no TTL index on this collection.
type syncLogRepository struct {
	db *mongo.Database
}

func NewSyncLogRepository(db *mongo.Database) domain.SyncLogRepository {
	return &syncLogRepository{
		db: db,
	}
}

func (r *syncLogRepository) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	collection := r.db.Collection(db.SyncLogsCollection)

	_, err := collection.InsertOne(ctx, entry)
	return err
}

func (r *syncLogRepository) GetByRecordID(ctx context.Context, recordID string, limit int) ([]domain.SyncLogEntry, error) {
	collection := r.db.Collection(db.SyncLogsCollection)

	filter := bson.M{"record_id": recordID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	return r.find(ctx, collection, filter, opts)
}

func (r *syncLogRepository) GetByCallerID(ctx context.Context, callerID string, limit int) ([]domain.SyncLogEntry, error) {
	collection := r.db.Collection(db.SyncLogsCollection)

	filter := bson.M{"caller_id": callerID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	return r.find(ctx, collection, filter, opts)
}

func (r *syncLogRepository) GetByStatus(ctx context.Context, status domain.SyncStatus, from, to time.Time) ([]domain.SyncLogEntry, error) {
	collection := r.db.Collection(db.SyncLogsCollection)

	filter := bson.M{
		"status": status,
		"timestamp": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	return r.find(ctx, collection, filter, opts)
}

func (r *syncLogRepository) find(ctx context.Context, collection *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]domain.SyncLogEntry, error) {
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.SyncLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *syncLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.SyncLogsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "record_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "caller_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
