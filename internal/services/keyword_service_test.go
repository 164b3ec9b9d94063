package services

import (
	"context"
	"testing"

	"github.com/tbourn/go-keyword-bot/internal/domain"
)

// fakeKeywordStore is a hand-rolled KeywordStore capturing calls.
type fakeKeywordStore struct {
	upsertKey string
	upsertUpd domain.KeywordUpdate
	upsertErr error

	findEntry *domain.KeywordEntry
	findErr   error
	findKey   string

	deleteKey     string
	deleteExisted bool

	listOut []string
}

func (f *fakeKeywordStore) Upsert(_ context.Context, key string, upd domain.KeywordUpdate) error {
	f.upsertKey, f.upsertUpd = key, upd
	return f.upsertErr
}

func (f *fakeKeywordStore) Find(_ context.Context, key string) (*domain.KeywordEntry, error) {
	f.findKey = key
	return f.findEntry, f.findErr
}

func (f *fakeKeywordStore) Delete(_ context.Context, key string) (bool, error) {
	f.deleteKey = key
	return f.deleteExisted, nil
}

func (f *fakeKeywordStore) List(_ context.Context) ([]string, error) {
	return f.listOut, nil
}

func strPtr(s string) *string { return &s }

// --- Attach ---

func TestAttach_NormalizesAndRendersMarkup(t *testing.T) {
	store := &fakeKeywordStore{}
	svc := NewKeywordService(store)

	key, err := svc.Attach(context.Background(), "  Movie  ONE ", AttachInput{
		Text:     strPtr("Watch Here[https://x.io/a]"),
		PosterID: strPtr("poster-1"),
	})
	if err != nil {
		t.Fatalf("Attach error: %v", err)
	}
	if key != "movie one" {
		t.Errorf("key = %q, want normalized 'movie one'", key)
	}
	if store.upsertKey != "movie one" {
		t.Errorf("store key = %q", store.upsertKey)
	}
	if store.upsertUpd.Text == nil || *store.upsertUpd.Text != `<a href="https://x.io/a">Watch Here</a>` {
		t.Errorf("stored text = %v, markup not rendered", store.upsertUpd.Text)
	}
	if store.upsertUpd.PosterID == nil || *store.upsertUpd.PosterID != "poster-1" {
		t.Errorf("PosterID = %v", store.upsertUpd.PosterID)
	}
	if store.upsertUpd.SampleID != nil {
		t.Errorf("SampleID should stay nil for a partial update")
	}
}

func TestAttach_InputErrors(t *testing.T) {
	svc := NewKeywordService(&fakeKeywordStore{})

	cases := map[string]struct {
		keyword string
		in      AttachInput
		wantErr error
	}{
		"blank keyword":   {"   ", AttachInput{Text: strPtr("x")}, ErrEmptyKeyword},
		"no content":      {"movie", AttachInput{}, ErrNoContent},
		"media only okay": {"movie", AttachInput{SampleID: strPtr("v1")}, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Attach(context.Background(), tc.keyword, tc.in)
			if err != tc.wantErr {
				t.Errorf("Attach err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// --- Delete / List ---

func TestDelete_NormalizesKey(t *testing.T) {
	store := &fakeKeywordStore{deleteExisted: true}
	svc := NewKeywordService(store)

	existed, err := svc.Delete(context.Background(), "  Movie ONE ")
	if err != nil || !existed {
		t.Fatalf("Delete = %v, %v", existed, err)
	}
	if store.deleteKey != "movie one" {
		t.Errorf("delete key = %q", store.deleteKey)
	}

	if _, err := svc.Delete(context.Background(), " "); err != ErrEmptyKeyword {
		t.Errorf("blank keyword err = %v, want ErrEmptyKeyword", err)
	}
}

// --- Resolve ---

func TestResolve_AbsentIsSilent(t *testing.T) {
	svc := NewKeywordService(&fakeKeywordStore{})

	bundle, err := svc.Resolve(context.Background(), "unknown")
	if err != nil || bundle != nil {
		t.Errorf("absent keyword should yield (nil, nil), got (%v, %v)", bundle, err)
	}
	bundle, err = svc.Resolve(context.Background(), "   ")
	if err != nil || bundle != nil {
		t.Errorf("blank input should yield (nil, nil), got (%v, %v)", bundle, err)
	}
}

func TestResolve_BuildsBundleWithSlots(t *testing.T) {
	store := &fakeKeywordStore{
		findEntry: &domain.KeywordEntry{
			Keyword:  "movie one",
			Text:     "Watch now: https://x.io/a\nJoin our channel: https://t.me/c",
			PosterID: "p1",
			SampleID: "v1",
		},
	}
	svc := NewKeywordService(store)

	bundle, err := svc.Resolve(context.Background(), "  Movie   One ")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if store.findKey != "movie one" {
		t.Errorf("lookup key = %q, want normalized", store.findKey)
	}
	if bundle.Primary != "https://x.io/a" {
		t.Errorf("Primary = %q", bundle.Primary)
	}
	if bundle.Secondary != "https://t.me/c" {
		t.Errorf("Secondary = %q", bundle.Secondary)
	}
	if bundle.PosterID != "p1" || bundle.SampleID != "v1" {
		t.Errorf("media ids = %q/%q", bundle.PosterID, bundle.SampleID)
	}
}

// --- extractSlots ---

func TestExtractSlots(t *testing.T) {
	cases := map[string]struct {
		text                    string
		wantPrimary, wantSecond string
	}{
		"empty": {"", "", ""},
		"primary only": {
			"Download: https://x.io/a", "https://x.io/a", "",
		},
		"first match wins": {
			"Watch https://x.io/a\nWatch https://x.io/b", "https://x.io/a", "",
		},
		"both slots": {
			"watch https://x.io/a\njoin https://t.me/c", "https://x.io/a", "https://t.me/c",
		},
		"both markers feed primary": {
			"watch and join https://x.io/a", "https://x.io/a", "",
		},
		"url without marker ignored": {
			"here: https://x.io/a", "", "",
		},
		"marker without url ignored": {
			"watch it soon", "", "",
		},
		"href form": {
			`<a href="https://x.io/a">Watch Now</a>`, "https://x.io/a", "",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p, s := extractSlots(tc.text)
			if p != tc.wantPrimary || s != tc.wantSecond {
				t.Errorf("extractSlots = (%q, %q), want (%q, %q)", p, s, tc.wantPrimary, tc.wantSecond)
			}
		})
	}
}
