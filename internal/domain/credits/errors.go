package credits

import "errors"

var (
	// ErrInsufficientCredits is returned when the balance cannot cover a debit
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrAmountMismatch is returned when the claimed payment amount differs
	// from the independently extracted one
	ErrAmountMismatch = errors.New("claimed amount does not match extracted amount")

	// ErrAlreadyProcessed is returned when a payment reference was already credited
	ErrAlreadyProcessed = errors.New("payment reference already processed")

	// ErrUnknownFeature is returned for feature names outside the closed set
	ErrUnknownFeature = errors.New("unknown feature")

	ErrInternal = errors.New("internal error")
)
