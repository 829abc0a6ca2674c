package common

// CredentialLength is the fixed number of digits in a credential.
const CredentialLength = 4

// DefaultFailureThreshold is the number of consecutive rejected
// verifications that triggers a lockout.
const DefaultFailureThreshold = 3

// Canonical interval lengths, in ticks of roughly 64.5 ms.
const (
	DoorOpenCloseTicks = 233 // ~15 s
	DoorHoldTicks      = 46  // ~3 s
	LockoutTicks       = 930 // ~60 s
	NoticeTicks        = 8   // ~0.5 s
	LongNoticeTicks    = 16  // ~1 s
)

// CredentialBaseAddress is the first storage address of the persisted
// credential.
const CredentialBaseAddress uint16 = 0x0300
