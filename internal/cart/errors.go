package cart

import "errors"

// ErrPersistence wraps every failure of the backing store. Callers must treat
// the operation as not applied.
var ErrPersistence = errors.New("cart persistence failed")
