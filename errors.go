package tokenfamily

import "errors"

var (
	// ErrTokenInvalid is an exported constant or variable used by the rotation engine.
	// Malformed tokens, unknown IDs, and secret mismatches all collapse to this
	// one value so callers cannot build an oracle out of refresh failures.
	ErrTokenInvalid = errors.New("invalid refresh token")
	// ErrTokenExpired is an exported constant or variable used by the rotation engine.
	ErrTokenExpired = errors.New("refresh token expired")
	// ErrReplayDetected is an exported constant or variable used by the rotation engine.
	ErrReplayDetected = errors.New("refresh token replay detected")
	// ErrStoreUnavailable is an exported constant or variable used by the rotation engine.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the rotation engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
