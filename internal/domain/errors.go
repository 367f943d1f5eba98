package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Verification errors. Each one also matches its generic class above with
// errors.Is, so callers that only care about the class keep working.
var (
	ErrNotAnArtist       = newKindError("not_an_artist", "user is not an artist", ErrForbidden)
	ErrNotAnAdmin        = newKindError("not_an_admin", "reviewer is not an admin", ErrForbidden)
	ErrUserNotFound      = newKindError("user_not_found", "user not found", ErrNotFound)
	ErrRecordNotFound    = newKindError("record_not_found", "verification record not found", ErrNotFound)
	ErrMissingDocument   = newKindError("missing_document", "identity document and face verification are required", ErrBadRequest)
	ErrEmptyReason       = newKindError("empty_reason", "a rejection reason is required", ErrBadRequest)
	ErrInvalidTransition = newKindError("invalid_transition", "invalid verification status transition", ErrConflict)
)

type kindError struct {
	code  string
	msg   string
	class error
}

func newKindError(code, msg string, class error) *kindError {
	return &kindError{code: code, msg: msg, class: class}
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.class }

// ErrorCode returns the stable machine-readable code of the first verification
// error in err's chain, or "" when err carries none.
func ErrorCode(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.code
	}
	return ""
}
