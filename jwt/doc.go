// Package jwt manages short-lived access-token issuance and verification.
// The rotation engine treats it as an external collaborator: access tokens are
// stateless, separately signed, and never consulted by the refresh-token state
// machine.
package jwt
