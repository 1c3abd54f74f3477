package domain

import "errors"

var (
	ErrNotRecognized    = errors.New("message is not a transaction")
	ErrNumeralNotFound  = errors.New("no numeral found")
	ErrAmountOverflow   = errors.New("amount out of range")
	ErrDuplicateMessage = errors.New("transaction already recorded for message")
	ErrMessageNotFound  = errors.New("no transaction recorded for message")
	ErrLockTimeout      = errors.New("ledger busy, lock wait timed out")
	ErrCorruptSnapshot  = errors.New("ledger snapshot is corrupt")
	ErrInvalidChat      = errors.New("invalid chat id")
	ErrInvalidRequest   = errors.New("invalid request")
)
