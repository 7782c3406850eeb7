package domain

import "errors"

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUserNotFound      = errors.New("user not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrSelfMessage       = errors.New("cannot send a message to yourself")
	ErrEmptyContent      = errors.New("message content is empty")
	ErrContentTooLong    = errors.New("message content exceeds the length limit")
)
