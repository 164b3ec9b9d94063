// Package domain defines the persistence models for keyword entries,
// recipients, and access-log entries. These types are mapped with BSON tags
// for MongoDB and form the core data layer of the bot.
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateKey is the calendar-date format used for per-day dedup records.
const DateKey = "2006-01-02"

// KeywordEntry is a stored content bundle addressed by its normalized
// keyword. At most one entry exists per normalized keyword; writes are
// upserts keyed on the _id.
//
// Fields:
//   - Keyword: the normalized keyword, used as the document _id.
//   - Text: rendered HTML body (bracket links already translated).
//   - PosterID: optional Telegram file id of a poster image.
//   - SampleID: optional Telegram file id of a sample video.
//   - CreatedAt: stamped once on insert; drives sweep and retention queries.
//   - UpdatedAt: stamped on every write.
type KeywordEntry struct {
	Keyword   string    `bson:"_id"`
	Text      string    `bson:"text"`
	PosterID  string    `bson:"poster_id,omitempty"`
	SampleID  string    `bson:"sample_id,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// KeywordUpdate enumerates the writable fields of a KeywordEntry for partial
// updates. A nil field is left unchanged by the upsert; a non-nil field is
// written as-is (an empty string clears the field).
type KeywordUpdate struct {
	Text     *string
	PosterID *string
	SampleID *string
}

// Recipient is a chat the bot has interacted with. It carries display
// metadata plus the two dedup structures: the all-time sent set used by
// manual broadcasts and the per-day records used by scheduled sweeps. The
// two are maintained and pruned independently.
type Recipient struct {
	ID            int64         `bson:"_id"`
	FirstName     string        `bson:"first_name,omitempty"`
	Username      string        `bson:"username,omitempty"`
	JoinedAt      time.Time     `bson:"joined_at"`
	LastRequestAt time.Time     `bson:"last_request_at"`
	Sent          []string      `bson:"sent,omitempty"`
	Daily         []DailyRecord `bson:"daily,omitempty"`
}

// DailyRecord holds the keywords delivered to a recipient on one calendar
// date. Stored as an array element (not a map entry) so retention pruning is
// a single $pull on the date field across all recipients.
type DailyRecord struct {
	Date     string   `bson:"date"` // DateKey format
	Keywords []string `bson:"keywords"`
}

// SentToday reports whether keyword was already delivered to the recipient
// under the given date key.
func (r *Recipient) SentToday(date, keyword string) bool {
	for _, d := range r.Daily {
		if d.Date != date {
			continue
		}
		for _, k := range d.Keywords {
			if k == keyword {
				return true
			}
		}
	}
	return false
}

// SentEver reports whether keyword is in the recipient's all-time sent set.
func (r *Recipient) SentEver(keyword string) bool {
	for _, k := range r.Sent {
		if k == keyword {
			return true
		}
	}
	return false
}

// AccessLogEntry is the audit record written for each shortlink resolution.
// Entries are inserted once, mutated exactly once by the ephemeral scheduler
// to record the deletion outcome, and never removed.
type AccessLogEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Keyword      string             `bson:"keyword"`
	OriginalLink string             `bson:"original_link"`
	ShortLink    string             `bson:"short_link"`
	UserID       int64              `bson:"user_id"`
	Username     string             `bson:"username,omitempty"`
	FirstName    string             `bson:"first_name,omitempty"`
	RequestedAt  time.Time          `bson:"requested_at"`
	ExpiresAt    time.Time          `bson:"expires_at"`
	ChatID       int64              `bson:"chat_id"`
	MessageID    int                `bson:"message_id"`
	Deleted      bool               `bson:"deleted"`
	DeletedAt    *time.Time         `bson:"deleted_at,omitempty"`
	DeleteError  string             `bson:"delete_error,omitempty"`
}

// MessageRef identifies an outbound message on the platform: the chat it was
// sent to plus the platform-assigned message id.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// ButtonLink is one interactive URL button on an outbound message.
type ButtonLink struct {
	Label string
	URL   string
}

// ContentBundle is the resolved content for a keyword: rendered HTML text
// plus optional media references and the action links extracted from the
// text. Primary precedes Secondary in the rendered button row; either may
// be empty.
type ContentBundle struct {
	Keyword   string
	Text      string
	PosterID  string
	SampleID  string
	Primary   string // primary action URL, "" when absent
	Secondary string // secondary action URL, "" when absent
}
