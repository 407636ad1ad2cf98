package service

import "errors"

// Submission and claim failures the handlers translate into HTTP
// rejection reasons. Cryptographic failures are terminal: callers must
// not retry them, and a claim retry needs fresh blinding factors.
var (
	ErrAlreadyClaimed   = errors.New("already claimed this cycle")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTokenAlreadyUsed = errors.New("token already used")
	ErrInvalidCycle     = errors.New("cycle is not current")
	ErrUnknownProfessor = errors.New("unknown professor")
	ErrEmptyBatch       = errors.New("empty claim batch")
)
