package store

import "errors"

// Sentinel errors surfaced to the API layer, which maps them onto the wire
// contract's status codes and messages.
var (
	ErrNotFound        = errors.New("not found")
	ErrSessionActive   = errors.New("an active session already exists for this zone")
	ErrSessionEnded    = errors.New("session already ended")
	ErrPortInUse       = errors.New("source port already in use")
	ErrAlreadyDeployed = errors.New("item already deployed in another zone")
	ErrBadStatus       = errors.New("deployment status does not allow this operation")
)
