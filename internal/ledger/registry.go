package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/ticketvault/ticketvault/internal/domain"
)

// CreateEvent registers a new event for a whitelisted creator and returns its
// id. Ids are sequential starting at 0 and never reused.
func (l *Ledger) CreateEvent(ctx context.Context, caller domain.Address, name string, startsAt time.Time, priceUSD, capacity uint64) (uint64, error) {
	var id uint64
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.IsCreator(ctx, caller)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnauthorized
		}
		if capacity == 0 {
			return domain.ErrInvalidCapacity
		}
		if !startsAt.After(l.clock.Now()) {
			return domain.ErrInvalidDate
		}

		id, err = tx.NextEventID(ctx)
		if err != nil {
			return err
		}
		ev := &domain.Event{
			ID:       id,
			Name:     name,
			StartsAt: startsAt.UTC(),
			PriceUSD: priceUSD,
			Capacity: capacity,
			Creator:  caller,
			Escrow:   new(big.Int),
		}
		if err := tx.PutEvent(ctx, ev); err != nil {
			return err
		}
		return tx.AddNotification(ctx, domain.NewEventCreated(id, caller))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// EditEvent replaces the event's date, price and capacity atomically. Only the
// creator may edit, and only while no tickets have been sold: lowering the
// capacity under a sold count would break the capacity invariant retroactively.
func (l *Ledger) EditEvent(ctx context.Context, caller domain.Address, id uint64, newDate time.Time, newPriceUSD, newCapacity uint64) error {
	return l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		ev, err := tx.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		if caller != ev.Creator {
			return domain.ErrUnauthorized
		}
		if ev.TicketsSold > 0 {
			return domain.ErrTicketsAlreadySold
		}
		if newCapacity == 0 {
			return domain.ErrInvalidCapacity
		}
		if !newDate.After(l.clock.Now()) {
			return domain.ErrInvalidDate
		}

		ev.StartsAt = newDate.UTC()
		ev.PriceUSD = newPriceUSD
		ev.Capacity = newCapacity
		if err := tx.PutEvent(ctx, ev); err != nil {
			return err
		}
		return tx.AddNotification(ctx, domain.NewEventUpdated(id, newDate, newPriceUSD, newCapacity))
	})
}

func (l *Ledger) GetEvent(ctx context.Context, id uint64) (domain.EventView, error) {
	var view domain.EventView
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		ev, err := tx.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		view = ev.View()
		return nil
	})
	if err != nil {
		return domain.EventView{}, err
	}
	return view, nil
}

// GetAttendees returns the buyers of an event in purchase order, one entry per
// ticket sold.
func (l *Ledger) GetAttendees(ctx context.Context, id uint64) ([]domain.Address, error) {
	var attendees []domain.Address
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetEvent(ctx, id); err != nil {
			return err
		}
		var err error
		attendees, err = tx.Attendees(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return attendees, nil
}
