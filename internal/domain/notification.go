package domain

import (
	"encoding/json"
	"math/big"
	"time"
)

// Routing keys for observable side effects, one per successful mutating
// operation.
const (
	NoteEventCreated     = "event.created"
	NoteEventUpdated     = "event.updated"
	NoteTicketPurchased  = "ticket.purchased"
	NoteFundsWithdrawn   = "funds.withdrawn"
	NoteAdminFeeWithdraw = "admin_fee.withdrawn"
	NoteEventSettleable  = "event.settleable"
)

// Notification is committed to the outbox in the same transaction as the state
// change it announces.
type Notification struct {
	Name    string
	Payload []byte
}

func note(name string, fields map[string]any) Notification {
	payload, _ := json.Marshal(fields)
	return Notification{Name: name, Payload: payload}
}

func NewEventCreated(eventID uint64, creator Address) Notification {
	return note(NoteEventCreated, map[string]any{
		"event_id": eventID,
		"creator":  creator,
	})
}

func NewEventUpdated(eventID uint64, newDate time.Time, newPriceUSD, newCapacity uint64) Notification {
	return note(NoteEventUpdated, map[string]any{
		"event_id":      eventID,
		"new_date":      newDate.UTC().Format(time.RFC3339),
		"new_price_usd": newPriceUSD,
		"new_capacity":  newCapacity,
	})
}

func NewTicketPurchased(eventID uint64, buyer Address) Notification {
	return note(NoteTicketPurchased, map[string]any{
		"event_id": eventID,
		"buyer":    buyer,
	})
}

func NewFundsWithdrawn(eventID uint64, recipient Address, amount *big.Int) Notification {
	return note(NoteFundsWithdrawn, map[string]any{
		"event_id":   eventID,
		"recipient":  recipient,
		"amount_wei": amount.String(),
	})
}

func NewAdminFeeWithdrawn(admin Address, amount *big.Int) Notification {
	return note(NoteAdminFeeWithdraw, map[string]any{
		"admin":      admin,
		"amount_wei": amount.String(),
	})
}

func NewEventSettleable(eventID uint64, escrow *big.Int) Notification {
	return note(NoteEventSettleable, map[string]any{
		"event_id":   eventID,
		"escrow_wei": escrow.String(),
	})
}
