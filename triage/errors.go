package triage

import "errors"

var (
	ErrRequestNotFound = errors.New("request not in current snapshot")
	ErrUnknownIntent   = errors.New("unknown or expired confirmation")
	ErrAlreadyAccepted = errors.New("request already accepted")
)
