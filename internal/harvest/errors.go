package harvest

import "errors"

// ErrLocked is returned by Run when another run holds the ledger lock.
var ErrLocked = errors.New("ledger is locked by another run")
