package domain

import "time"

// CredentialBundle holds the two long-lived provider tokens that allow
// session restoration without re-entering a password. The token payloads are
// opaque blobs issued by the provider; this service never looks inside them.
// A bundle is either absent or fully populated, never partial.
type CredentialBundle struct {
	UserID         string    `json:"user_id" db:"user_id"`
	PrimaryToken   []byte    `json:"-" db:"primary_token"`
	SecondaryToken []byte    `json:"-" db:"secondary_token"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Complete reports whether both token blobs are present.
func (b CredentialBundle) Complete() bool {
	return len(b.PrimaryToken) > 0 && len(b.SecondaryToken) > 0
}
