package analytics

import "errors"

// ErrBadDate is returned for a date selector that does not match DateLayout.
var ErrBadDate = errors.New("invalid date")
