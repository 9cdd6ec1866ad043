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

	// ErrUnknownNotificationKind means a (kind, channel) pair has no preference flag.
	// It is a programming error and is never worth retrying.
	ErrUnknownNotificationKind = errors.New("unknown notification kind")
	// ErrUnroutableEvent is returned for bus kinds no component knows how to handle.
	ErrUnroutableEvent = errors.New("unroutable event kind")
	// ErrTransport marks a channel transport that could not be reached at all.
	ErrTransport = errors.New("transport unavailable")
)
