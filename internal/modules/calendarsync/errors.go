package calendarsync

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrNotConnected = errors.New("calendar not connected")
)
