package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

const collectionActivity = "account_activity"

// ActivityRepository implements ports.ActivityRepository using MongoDB.
type ActivityRepository struct {
	col *mongo.Collection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{col: db.Collection(collectionActivity)}
}

type mongoActivity struct {
	AccountID   string    `bson:"account_id"`
	Event       string    `bson:"event"`
	ActorID     string    `bson:"actor_id,omitempty"`
	From        string    `bson:"from,omitempty"`
	To          string    `bson:"to,omitempty"`
	At          time.Time `bson:"at"`
	ProcessedAt time.Time `bson:"processed_at"`
}

// Insert appends a record to the account_activity audit collection.
func (r *ActivityRepository) Insert(ctx context.Context, rec *domain.ActivityRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoActivity{
		AccountID:   rec.AccountID,
		Event:       string(rec.Event),
		ActorID:     rec.ActorID,
		From:        rec.From,
		To:          rec.To,
		At:          rec.At.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListByAccount returns the most recent records of an account, newest first.
func (r *ActivityRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.ActivityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoActivity
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}

	out := make([]domain.ActivityRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.ActivityRecord{
			AccountID: d.AccountID,
			Event:     domain.Event(d.Event),
			ActorID:   d.ActorID,
			From:      d.From,
			To:        d.To,
			At:        d.At,
		})
	}
	return out, nil
}

// EnsureIndexes creates the (account_id, at) index used by ListByAccount.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "at", Value: -1}},
	})
	return err
}

var _ ports.ActivityRepository = (*ActivityRepository)(nil)
