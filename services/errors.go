package services

import "errors"

// Booking-flow errors surfaced to handlers. Handlers translate these into
// HTTP statuses; gateway failures are wrapped and carry their cause.
var (
	ErrClassNotFound       = errors.New("class not found")
	ErrAlreadyEnrolled     = errors.New("already signed up for this class")
	ErrPaymentNotFound     = errors.New("payment record not found")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded yet")
)
