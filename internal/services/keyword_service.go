// Package services – KeywordService
//
// This file implements the KeywordService, which owns the admin-facing
// lifecycle of keyword entries (attach, delete, list) and the user-facing
// resolution path. Attach renders the bracket-link markup once at write time
// and stores the result; Resolve returns the stored bundle together with the
// action slots extracted from it.
//
// Resolution treats absence as a non-event: ordinary chat text that matches
// no entry must produce no reply at all, so Resolve returns (nil, nil)
// rather than an error.
package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/tbourn/go-keyword-bot/internal/domain"
	"github.com/tbourn/go-keyword-bot/internal/markup"
	"github.com/tbourn/go-keyword-bot/internal/repo"
)

// KeywordStore defines the repository contract required by KeywordService.
type KeywordStore interface {
	// Upsert creates or partially overwrites the entry for a normalized key.
	Upsert(ctx context.Context, key string, upd domain.KeywordUpdate) error

	// Find returns the entry for a normalized key, or (nil, nil) when absent.
	Find(ctx context.Context, key string) (*domain.KeywordEntry, error)

	// Delete removes the entry and reports whether one existed.
	Delete(ctx context.Context, key string) (bool, error)

	// List returns all stored keywords.
	List(ctx context.Context) ([]string, error)
}

// KeywordService provides keyword attach/delete/resolve operations on top of
// the keyword store.
type KeywordService struct {
	Repo KeywordStore
}

// NewKeywordService constructs a KeywordService.
func NewKeywordService(r KeywordStore) *KeywordService {
	return &KeywordService{Repo: r}
}

// AttachInput carries the writable fields of an attach command. Nil fields
// are left unchanged on an existing entry (partial update); Text is raw
// admin input and is rendered to HTML before storage.
type AttachInput struct {
	Text     *string
	PosterID *string
	SampleID *string
}

// Attach creates or updates the entry for keyword and returns the
// normalized key. At least one field must be supplied.
func (s *KeywordService) Attach(ctx context.Context, keyword string, in AttachInput) (string, error) {
	key := repo.Normalize(keyword)
	if key == "" {
		return "", ErrEmptyKeyword
	}
	if in.Text == nil && in.PosterID == nil && in.SampleID == nil {
		return "", ErrNoContent
	}
	upd := domain.KeywordUpdate{PosterID: in.PosterID, SampleID: in.SampleID}
	if in.Text != nil {
		rendered := markup.Render(*in.Text)
		upd.Text = &rendered
	}
	return key, s.Repo.Upsert(ctx, key, upd)
}

// Delete removes the entry for keyword, reporting whether one existed.
func (s *KeywordService) Delete(ctx context.Context, keyword string) (bool, error) {
	key := repo.Normalize(keyword)
	if key == "" {
		return false, ErrEmptyKeyword
	}
	return s.Repo.Delete(ctx, key)
}

// List returns all stored keywords.
func (s *KeywordService) List(ctx context.Context) ([]string, error) {
	return s.Repo.List(ctx)
}

// Resolve normalizes keyword and returns its content bundle with action
// slots extracted, or (nil, nil) when no entry exists. Callers must stay
// silent on absence.
func (s *KeywordService) Resolve(ctx context.Context, keyword string) (*domain.ContentBundle, error) {
	key := repo.Normalize(keyword)
	if key == "" {
		return nil, nil
	}
	e, err := s.Repo.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	primary, secondary := extractSlots(e.Text)
	return &domain.ContentBundle{
		Keyword:   e.Keyword,
		Text:      e.Text,
		PosterID:  e.PosterID,
		SampleID:  e.SampleID,
		Primary:   primary,
		Secondary: secondary,
	}, nil
}

// Marker words that bind a line's first URL to an action slot.
var (
	primaryMarkers   = []string{"watch", "download"}
	secondaryMarkers = []string{"join", "channel"}
)

// urlRE finds the first URL on a line, whether it appears as plain text or
// inside a rendered href attribute.
var urlRE = regexp.MustCompile(`https?://[^\s"<>]+`)

// extractSlots scans text line by line and assigns the first URL of a line
// to the primary or secondary slot based on the marker words present on that
// line. The first match per slot wins; later matches are ignored. A line
// carrying both kinds of markers feeds the primary slot.
func extractSlots(text string) (primary, secondary string) {
	for _, line := range strings.Split(text, "\n") {
		url := urlRE.FindString(line)
		if url == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case primary == "" && containsAny(lower, primaryMarkers):
			primary = url
		case secondary == "" && containsAny(lower, secondaryMarkers):
			secondary = url
		}
		if primary != "" && secondary != "" {
			break
		}
	}
	return primary, secondary
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
