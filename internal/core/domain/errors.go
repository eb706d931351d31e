package domain

import "errors"

// Errors returned by the marketplace core. All of them are caller errors:
// the call is rejected, state is left untouched and the caller may retry
// with corrected inputs.
var (
	ErrInvalidPrice        = errors.New("listing price must be a positive amount")
	ErrCustodyTransfer     = errors.New("custody transfer rejected")
	ErrItemNotFound        = errors.New("item not found")
	ErrItemAlreadySold     = errors.New("item already sold")
	ErrInsufficientPayment = errors.New("payment is below the total price")
	ErrInsufficientFunds   = errors.New("insufficient account balance")
)
