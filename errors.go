package gcpimg

import (
	"errors"

	"github.com/pthm/gcpimg/lib/cdn"
)

// Sentinel errors for component operations.
var (
	ErrNotFound         = errors.New("gcpimg: resource not found")
	ErrDecryptFailed    = errors.New("gcpimg: parameter decryption failed")
	ErrSignatureInvalid = errors.New("gcpimg: signature verification failed")
	ErrInvalidFormat    = errors.New("gcpimg: invalid parameter format")
	ErrMissingSource    = errors.New("gcpimg: missing src attribute")
	ErrHydrationFailed  = errors.New("gcpimg: hydration failed")

	// ErrParse matches malformed sizes/config literals.
	ErrParse = cdn.ErrParse
)

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid)
}

// IsBadRequest checks if err was caused by the request's attributes.
func IsBadRequest(err error) bool {
	return IsDecryptionError(err) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrMissingSource) ||
		errors.Is(err, cdn.ErrUnknownAttribute)
}
