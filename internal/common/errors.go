// Package common defines shared constants and sentinel errors used across
// front-end and back-end controllers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Protocol errors. Both are fatal for the current exchange: there is
	// no resynchronization opcode, so the controller must be restarted.
	ErrDesync           = errors.New("protocol desynchronized")
	ErrUnexpectedOpcode = errors.New("unexpected opcode")

	// Credential errors.
	ErrInvalidCredential = errors.New("invalid credential")
	ErrNotProvisioned    = errors.New("credential not provisioned")

	// Storage errors.
	ErrStorageMismatch = errors.New("storage read-back mismatch")
	ErrAddressRange    = errors.New("storage address out of range")

	// Lockout errors.
	ErrCooldown = errors.New("attempts suspended during cooldown")

	// Link errors.
	ErrLinkClosed = errors.New("link closed")
	ErrLinkBusy   = errors.New("link already has an active session")
)
