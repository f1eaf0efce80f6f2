// Package entity defines the link entity and the errors shared by the
// store, the use case and the delivery layers.
package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrValidation is the parent of every error caused by malformed input.
	ErrValidation = errors.New("validation error")
	// ErrTargetURLRequired is returned when a link is created without a target URL.
	ErrTargetURLRequired = fmt.Errorf("%w: target url is required", ErrValidation)
	// ErrInvalidURL is returned when the target URL is not a well-formed absolute URL.
	ErrInvalidURL = fmt.Errorf("%w: invalid url format", ErrValidation)
	// ErrInvalidCode is returned when a custom code is not 6-8 alphanumeric characters.
	ErrInvalidCode = fmt.Errorf("%w: invalid code format", ErrValidation)

	// ErrCodeExists is returned when a link with the same code is already stored.
	ErrCodeExists = errors.New("code exists")
	// ErrLinkNotFound is returned when no link has the requested code.
	ErrLinkNotFound = errors.New("link not found")
)

// Link maps a short code to a target URL.
type Link struct {
	ID            uuid.UUID  // ID is the opaque identifier assigned at creation.
	Code          string     // Code is the short alphanumeric code, unique across links.
	TargetURL     string     // TargetURL is the address the code resolves to.
	Clicks        int64      // Clicks is the number of successful redirects.
	CreatedAt     time.Time  // CreatedAt is the timestamp when the link was created.
	UpdatedAt     time.Time  // UpdatedAt is the timestamp of the last change, clicks included.
	LastClickedAt *time.Time // LastClickedAt is nil until the first redirect.
}
