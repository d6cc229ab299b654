package sessionauth

import "errors"

var (
	// ErrUserIDRequired is returned by Issue when the subject has no user ID.
	ErrUserIDRequired = errors.New("user id is required")
	// ErrInvalidRole is returned by Issue for a role outside user, advisor and admin.
	ErrInvalidRole = errors.New("invalid role")
	// ErrSessionCreationFailed is returned by Issue when the session table rejects the new row.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrTokenSigningFailed is returned by Issue when a token cannot be signed.
	ErrTokenSigningFailed = errors.New("token signing failed")
	// ErrSigningKeyMissing is returned by Build when no signing secret is configured.
	ErrSigningKeyMissing = errors.New("signing key is required")
	// ErrBuilderUsed is returned by a second call to Build.
	ErrBuilderUsed = errors.New("builder already used")
)
