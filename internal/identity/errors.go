package identity

import "errors"

// ErrFieldTooLong is returned before submission when an identity field
// exceeds the ledger limit.
var ErrFieldTooLong = errors.New("identity field too long")
