package tokenfamily

import "time"

// Issued is the result of issuing or rotating a refresh token. RawToken goes
// to the client (an HTTP-only cookie in the usual deployment) and is never
// stored server-side.
type Issued struct {
	// RawToken is the opaque single-use refresh token.
	RawToken string
	// TokenID is the lookup half of RawToken, safe for logs.
	TokenID string
	// FamilyID identifies the lineage started at login; it survives every
	// rotation unchanged.
	FamilyID string
	// UserID is the opaque owner identifier supplied at issuance.
	UserID string
	// ExpiresAt is the refresh token's absolute deadline, for cookie max-age
	// alignment.
	ExpiresAt time.Time
	// AccessToken is a signed short-lived credential, present only when the
	// engine was built with JWT issuance enabled.
	AccessToken string
}
