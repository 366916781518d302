package provider

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized is returned when the provider rejects the credentials
	// or tokens backing a call.
	ErrUnauthorized = errors.New("provider rejected credentials")

	// ErrMFACodeRejected is returned by MFAFlow.Submit when the code was
	// wrong but the flow is still open for another attempt.
	ErrMFACodeRejected = errors.New("provider rejected mfa code")

	// ErrMFAAttemptsExhausted is returned when the provider's own retry
	// budget for a flow is used up. The flow is dead; login must restart.
	ErrMFAAttemptsExhausted = errors.New("mfa attempts exhausted")
)

// APIError is a non-2xx response from the provider. The provider reports
// most conditions, including the need for MFA, only through the free-text
// Message field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

// mfaIndicators are the substrings the provider is known to use when a
// sign-in fails because a second factor is needed. The vendor emits no
// structured code for this, so detection is a heuristic over the error
// text. Kept in one place so a vendor wording change is a one-line fix.
var mfaIndicators = []string{
	"mfa",
	"multi-factor",
	"two-factor",
	"verification code",
	"security code",
	"totp",
}

// IsMFARequired reports whether a login failure is actually the provider
// asking for a second factor. This is the single classification point;
// nothing downstream re-inspects error text.
func IsMFARequired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	msg := strings.ToLower(apiErr.Message)
	for _, indicator := range mfaIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
