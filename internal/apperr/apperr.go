// Package apperr defines the application error taxonomy. Services wrap
// these sentinels with context via fmt.Errorf("%w: ..."); handlers
// translate them to HTTP status codes with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound signals an absent channel, expense, user or invite code.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied signals the caller is not a member of the channel.
	ErrAccessDenied = errors.New("access denied")

	// ErrForbidden signals the caller lacks the role or ownership a
	// mutation requires (payer-or-admin, admin-only, creator-only).
	ErrForbidden = errors.New("forbidden")

	// ErrValidation signals a field constraint violation.
	ErrValidation = errors.New("validation failed")

	// ErrSplitMismatch signals split amounts that do not sum to the
	// expense amount within tolerance.
	ErrSplitMismatch = errors.New("split amounts must equal the total expense amount")

	// ErrAlreadyMember signals a duplicate join attempt.
	ErrAlreadyMember = errors.New("already a member of this channel")

	// ErrConflict signals a storage-level uniqueness violation, e.g. an
	// invite code collision or a duplicate email.
	ErrConflict = errors.New("conflict")
)
