package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tbourn/go-keyword-bot/internal/domain"
)

// AccessLogRepo persists the append-only audit trail of shortlink
// resolutions. Entries are inserted once and mutated exactly once when the
// scheduled deletion resolves; nothing is ever removed.
type AccessLogRepo struct {
	col *mongo.Collection
}

// NewAccessLogRepo constructs an AccessLogRepo over the given database.
func NewAccessLogRepo(db *mongo.Database) *AccessLogRepo {
	return &AccessLogRepo{col: db.Collection(colAccessLogs)}
}

// Insert writes a new audit entry and returns its generated id.
func (r *AccessLogRepo) Insert(ctx context.Context, e *domain.AccessLogEntry) (primitive.ObjectID, error) {
	res, err := r.col.InsertOne(ctx, e)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// MarkDeleted records the deletion outcome for the entry: the deleted flag,
// the time the timer resolved, and the error note when deletion failed.
func (r *AccessLogRepo) MarkDeleted(ctx context.Context, id primitive.ObjectID, deleted bool, errNote string, at time.Time) error {
	set := bson.M{"deleted": deleted, "deleted_at": at}
	if errNote != "" {
		set["delete_error"] = errNote
	}
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

// Recent returns the n most recent entries, newest first.
func (r *AccessLogRepo) Recent(ctx context.Context, n int64) ([]domain.AccessLogEntry, error) {
	cur, err := r.col.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "requested_at", Value: -1}}).SetLimit(n))
	if err != nil {
		return nil, err
	}
	var out []domain.AccessLogEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByKeyword aggregates entry counts per keyword for requests inside
// [since, until). Used by the usage report.
func (r *AccessLogRepo) CountByKeyword(ctx context.Context, since, until time.Time) (map[string]int64, error) {
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"requested_at": bson.M{"$gte": since, "$lt": until}}}},
		{{Key: "$group", Value: bson.M{"_id": "$keyword", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Keyword string `bson:"_id"`
		Count   int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Keyword] = row.Count
	}
	return out, nil
}
