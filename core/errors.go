package core

import "errors"

// Validation and admission failures surfaced to callers. The HTTP layer
// maps these to 400-class responses; inbound gossip logs and drops them.
var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrBadNonce          = errors.New("bad nonce")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownSender     = errors.New("unknown sender")
	ErrPoolFull          = errors.New("transaction pool is full")
)

// DAG insertion failures.
var (
	ErrMissingParent = errors.New("unknown parent block")
	ErrCycleRejected = errors.New("block would create a cycle")
	ErrParentInvalid = errors.New("parent block failed confirmation")
)

// ErrUnknownBlock is returned by hash lookups that miss.
var ErrUnknownBlock = errors.New("unknown block")
