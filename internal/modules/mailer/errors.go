package mailer

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("template not found")
)
