package realtime

import "errors"

// ErrNoIdentity is returned when an operation needs a signed-in user.
var ErrNoIdentity = errors.New("realtime: no identity")

// TransientStoreError reports a read that failed while setting up
// subscriptions. Nothing is activated when one is returned; the caller
// decides whether and when to retry.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return "realtime: " + e.Op + ": " + e.Err.Error()
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// IsTransient reports whether err is, or wraps, a TransientStoreError.
func IsTransient(err error) bool {
	var t *TransientStoreError
	return errors.As(err, &t)
}
