// Package services defines the business logic for keyword content, delivery,
// and broadcasts. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing replies happens at the bot handler layer;
// NotFound conditions are deliberately not errors (see Resolve) so ordinary
// chat text never produces a false error reply.
package services

import "errors"

var (
	// ErrEmptyKeyword is returned when an admin command supplies a keyword
	// that normalizes to the empty string.
	ErrEmptyKeyword = errors.New("keyword is empty")

	// ErrNoContent is returned when an attach call carries neither text nor
	// any media reference to store.
	ErrNoContent = errors.New("nothing to attach")
)
