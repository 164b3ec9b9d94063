package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tbourn/go-keyword-bot/internal/domain"
)

// RecipientRepo persists Recipient documents keyed by chat id. It owns both
// dedup structures: the all-time sent set and the per-day records.
type RecipientRepo struct {
	col *mongo.Collection
}

// NewRecipientRepo constructs a RecipientRepo over the given database.
func NewRecipientRepo(db *mongo.Database) *RecipientRepo {
	return &RecipientRepo{col: db.Collection(colRecipients)}
}

// UpsertContact creates or refreshes a recipient on interaction: display
// metadata and last_request_at are overwritten, joined_at only stamped on
// first contact.
func (r *RecipientRepo) UpsertContact(ctx context.Context, id int64, firstName, username string, now time.Time) error {
	_, err := r.col.UpdateByID(ctx, id,
		bson.M{
			"$set":         bson.M{"first_name": firstName, "username": username, "last_request_at": now},
			"$setOnInsert": bson.M{"joined_at": now},
		},
		options.Update().SetUpsert(true))
	return err
}

// Get returns the recipient for id, or (nil, nil) when unknown.
func (r *RecipientRepo) Get(ctx context.Context, id int64) (*domain.Recipient, error) {
	var rec domain.Recipient
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// All returns every known recipient. Broadcast fan-out iterates this; the
// set is expected to stay small enough for a single read.
func (r *RecipientRepo) All(ctx context.Context) ([]domain.Recipient, error) {
	cur, err := r.col.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var out []domain.Recipient
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSent adds keyword to the recipient's all-time sent set.
func (r *RecipientRepo) MarkSent(ctx context.Context, id int64, keyword string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$addToSet": bson.M{"sent": keyword}})
	return err
}

// MarkSentToday records keyword under the given date key for the recipient.
// The positional update covers the common case of an existing record for the
// date; the fallback push creates the day's record on first delivery.
func (r *RecipientRepo) MarkSentToday(ctx context.Context, id int64, date, keyword string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "daily.date": date},
		bson.M{"$addToSet": bson.M{"daily.$.keywords": keyword}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	_, err = r.col.UpdateByID(ctx, id,
		bson.M{"$push": bson.M{"daily": domain.DailyRecord{Date: date, Keywords: []string{keyword}}}})
	return err
}

// PruneDaily removes per-day records older than cutoffDate (exclusive) from
// all recipients and returns how many documents were touched.
func (r *RecipientRepo) PruneDaily(ctx context.Context, cutoffDate string) (int64, error) {
	res, err := r.col.UpdateMany(ctx, bson.D{},
		bson.M{"$pull": bson.M{"daily": bson.M{"date": bson.M{"$lt": cutoffDate}}}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Count returns the number of known recipients.
func (r *RecipientRepo) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.D{})
}
