package service

import "errors"

var (
	// ErrConnection covers missing connection profiles or credential
	// material; fatal for the request.
	ErrConnection = errors.New("ledger connection failed")
	// ErrAuthentication is a missing or invalid bearer credential.
	ErrAuthentication = errors.New("unauthorized")
	// ErrPermissionDenied is a role not permitted for the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidInput is a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLedger is a transaction the smart contract rejected or failed to
	// commit. Never retried here; the chaincode message is preserved.
	ErrLedger = errors.New("ledger transaction failed")
	// ErrTimeout is surfaced distinctly so callers can decide to retry
	// with a fresh idempotency key.
	ErrTimeout = errors.New("ledger operation timed out")
	ErrNotFound = errors.New("not found")
)
