package mentorship

import "errors"

var (
	// ErrOfferNotMapped means the webhook's offer id has no active mapping
	// to an instructor. Surfaced as 404 and reported to operators.
	ErrOfferNotMapped = errors.New("mentorship: offer is not mapped to an instructor")
	// ErrMenteeNotFound means a cancellation named an email with no mentee.
	ErrMenteeNotFound = errors.New("mentorship: no mentee for email")
	// ErrInvalidJoinState means the OAuth callback state matches no pending join.
	ErrInvalidJoinState = errors.New("mentorship: unknown oauth state")
	// ErrJoinExpired means the pending join's linking window has closed.
	ErrJoinExpired = errors.New("mentorship: identity-linking invitation expired")
)
