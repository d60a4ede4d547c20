package errdefs

import "errors"

var (
	// ErrAuth signals that the token exchange failed, or that a request kept
	// failing with 403 after the token was refreshed once.
	ErrAuth = errors.New("authentication failed")

	// ErrNetwork signals a transport-level failure talking to the registry.
	ErrNetwork = errors.New("network failure")

	// ErrTimeout signals that a single request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrMalformedResponse signals that a response body was not valid JSON or
	// that a response header could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrPaginationBound signals that the pagination loop guard tripped,
	// which usually means the registry served a cyclic Link chain.
	ErrPaginationBound = errors.New("pagination bound exceeded")

	// ErrConfiguration signals an invalid filter rule, e.g. a regex that does
	// not compile. Surfaced before any network activity.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotFound signals that the requested object doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameter signals that the user input is invalid.
	ErrInvalidParameter = errors.New("invalid parameter")
)
