package repository

import "errors"

// ErrLockNotAcquired indicates the lock could not be acquired before the
// retry budget ran out.
var ErrLockNotAcquired = errors.New("lock not acquired")
