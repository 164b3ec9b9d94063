package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tbourn/go-keyword-bot/internal/domain"
)

// KeywordRepo persists KeywordEntry documents keyed by normalized keyword.
type KeywordRepo struct {
	col *mongo.Collection
}

// NewKeywordRepo constructs a KeywordRepo over the given database.
func NewKeywordRepo(db *mongo.Database) *KeywordRepo {
	return &KeywordRepo{col: db.Collection(colKeywords)}
}

// Upsert creates or partially overwrites the entry for key. Only non-nil
// fields of upd are written; updated_at is stamped on every write and
// created_at only when the document is first inserted. The key must already
// be normalized.
func (r *KeywordRepo) Upsert(ctx context.Context, key string, upd domain.KeywordUpdate) error {
	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	if upd.Text != nil {
		set["text"] = *upd.Text
	}
	if upd.PosterID != nil {
		set["poster_id"] = *upd.PosterID
	}
	if upd.SampleID != nil {
		set["sample_id"] = *upd.SampleID
	}
	_, err := r.col.UpdateByID(ctx, key,
		bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": now}},
		options.Update().SetUpsert(true))
	return err
}

// Find returns the entry for key, or (nil, nil) when no entry exists.
// Absence is not an error.
func (r *KeywordRepo) Find(ctx context.Context, key string) (*domain.KeywordEntry, error) {
	var e domain.KeywordEntry
	err := r.col.FindOne(ctx, bson.M{"_id": key}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes the entry for key and reports whether one existed.
func (r *KeywordRepo) Delete(ctx context.Context, key string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// List returns all stored keywords.
func (r *KeywordRepo) List(ctx context.Context) ([]string, error) {
	raw, err := r.col.Distinct(ctx, "_id", bson.D{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// CreatedSince returns entries created at or after t, oldest first. Sweeps
// use this with the start of the current calendar day.
func (r *KeywordRepo) CreatedSince(ctx context.Context, t time.Time) ([]domain.KeywordEntry, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"created_at": bson.M{"$gte": t}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []domain.KeywordEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PurgeOlderThan removes entries whose creation timestamp predates t and
// returns how many were removed.
func (r *KeywordRepo) PurgeOlderThan(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": t}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
