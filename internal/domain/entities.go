package domain

import (
	"math/big"
	"time"
)

// Address identifies an account (owner, creator or buyer). Authentication of
// callers happens upstream; the ledger treats addresses as opaque.
type Address string

// Event is a sellable occasion. Escrow holds the proceeds collected for this
// event net of admin fee, in wei, and is only ever debited by this event's own
// withdrawal.
type Event struct {
	ID          uint64
	Name        string
	StartsAt    time.Time
	PriceUSD    uint64
	Capacity    uint64
	TicketsSold uint64
	Creator     Address
	Escrow      *big.Int
}

// Started reports whether sales are closed and withdrawal is open. The start
// time is the single boundary for both.
func (e *Event) Started(now time.Time) bool {
	return !now.Before(e.StartsAt)
}

func (e *Event) SoldOut() bool {
	return e.TicketsSold >= e.Capacity
}

// Clone returns a deep copy so stores can hand out snapshots without sharing
// the escrow big.Int.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Escrow != nil {
		clone.Escrow = new(big.Int).Set(e.Escrow)
	}
	return &clone
}

// EventView is the read-only projection returned to callers.
type EventView struct {
	ID          uint64    `json:"event_id"`
	Name        string    `json:"name"`
	StartsAt    time.Time `json:"starts_at"`
	PriceUSD    uint64    `json:"price_usd"`
	Capacity    uint64    `json:"capacity"`
	TicketsSold uint64    `json:"tickets_sold"`
	Creator     Address   `json:"creator"`
	EscrowWei   string    `json:"escrow_wei"`
}

func (e *Event) View() EventView {
	escrow := "0"
	if e.Escrow != nil {
		escrow = e.Escrow.String()
	}
	return EventView{
		ID:          e.ID,
		Name:        e.Name,
		StartsAt:    e.StartsAt,
		PriceUSD:    e.PriceUSD,
		Capacity:    e.Capacity,
		TicketsSold: e.TicketsSold,
		Creator:     e.Creator,
		EscrowWei:   escrow,
	}
}
