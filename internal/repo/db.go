// Package repo implements the data persistence layer for keyword entries,
// recipients, and access logs, backed by the official MongoDB driver. Every
// mutation is a single keyed upsert/update so the store's per-document
// atomicity is the only concurrency control required.
package repo

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names within the configured database.
const (
	colKeywords   = "keywords"
	colRecipients = "recipients"
	colAccessLogs = "access_logs"
)

// Connect opens a MongoDB client and verifies the connection with a ping.
// The caller owns the client lifecycle and must Disconnect it on shutdown.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// Normalize lower-cases a keyword, trims it, and collapses internal
// whitespace runs to single spaces. It is idempotent; all repository
// operations expect keys in this form.
func Normalize(keyword string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(strings.ToLower(keyword)), " ")
}
