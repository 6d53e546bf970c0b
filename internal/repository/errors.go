package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrInvalidArgument indicates the store rejected the written values.
var ErrInvalidArgument = errors.New("repository: invalid argument")

// ErrInsufficientBalance indicates a conditional debit found less balance
// than requested.
var ErrInsufficientBalance = errors.New("repository: insufficient balance")

// ErrDuplicate indicates a uniqueness violation (webhook replay, duplicate
// pick, duplicate entry).
var ErrDuplicate = errors.New("repository: duplicate")
