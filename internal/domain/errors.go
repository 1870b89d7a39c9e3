package domain

import "errors"

// One sentinel per rejection rule. Every failed operation surfaces exactly one
// of these and commits nothing.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("event not found")
	ErrInvalidCapacity     = errors.New("capacity must be greater than 0")
	ErrInvalidDate         = errors.New("event date must be in the future")
	ErrEventAlreadyStarted = errors.New("event already started")
	ErrSoldOut             = errors.New("tickets sold out")
	ErrInsufficientPayment = errors.New("insufficient payment sent")
	ErrTokenTransferFailed = errors.New("token transfer failed")
	ErrEventNotEnded       = errors.New("event not yet ended")
	ErrNoFunds             = errors.New("no funds to withdraw")
	ErrBlacklisted         = errors.New("address is blacklisted")
	ErrTicketsAlreadySold  = errors.New("event already has tickets sold")

	ErrSerializationFailure = errors.New("serialization failure")
)

// Code returns the stable identifier callers match on.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidCapacity):
		return "InvalidCapacity"
	case errors.Is(err, ErrInvalidDate):
		return "InvalidDate"
	case errors.Is(err, ErrEventAlreadyStarted):
		return "EventAlreadyStarted"
	case errors.Is(err, ErrSoldOut):
		return "SoldOut"
	case errors.Is(err, ErrInsufficientPayment):
		return "InsufficientPayment"
	case errors.Is(err, ErrTokenTransferFailed):
		return "TokenTransferFailed"
	case errors.Is(err, ErrEventNotEnded):
		return "EventNotEnded"
	case errors.Is(err, ErrNoFunds):
		return "NoFunds"
	case errors.Is(err, ErrBlacklisted):
		return "Blacklisted"
	case errors.Is(err, ErrTicketsAlreadySold):
		return "TicketsAlreadySold"
	default:
		return "Internal"
	}
}
