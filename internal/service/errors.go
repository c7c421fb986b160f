package service

import "errors"

var (
	// ErrInvalidSignature means the webhook signature did not verify
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload means the webhook body could not be understood
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrInvalidScore means a submitted score was negative
	ErrInvalidScore = errors.New("invalid score")
)
