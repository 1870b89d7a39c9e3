// Package ledger implements the event-ticketing escrow state machine: event
// lifecycle, pricing, capacity and time-window enforcement, access control and
// per-event fund custody. Every public operation runs as a single store
// transaction; either all of its effects commit or none do.
package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/ticketvault/ticketvault/internal/clock"
	"github.com/ticketvault/ticketvault/internal/domain"
)

// Tx is the view of ledger state inside one transaction. Implementations map
// domain.ErrNotFound for unknown event ids.
type Tx interface {
	NextEventID(ctx context.Context) (uint64, error)
	GetEvent(ctx context.Context, id uint64) (*domain.Event, error)
	PutEvent(ctx context.Context, ev *domain.Event) error

	AppendAttendee(ctx context.Context, eventID uint64, buyer domain.Address) error
	Attendees(ctx context.Context, eventID uint64) ([]domain.Address, error)

	FeePool(ctx context.Context) (*big.Int, error)
	SetFeePool(ctx context.Context, amount *big.Int) error

	AddCreator(ctx context.Context, addr domain.Address) error
	IsCreator(ctx context.Context, addr domain.Address) (bool, error)
	SetBlacklisted(ctx context.Context, addr domain.Address, blacklisted bool) error
	IsBlacklisted(ctx context.Context, addr domain.Address) (bool, error)

	SettleableEvents(ctx context.Context, now time.Time) ([]*domain.Event, error)

	AddNotification(ctx context.Context, n domain.Notification) error
}

// Store runs fn in one atomic transaction. A non-nil error from fn discards
// every change made through the Tx.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Bank is the runtime's native-value transfer primitive, used for refunds and
// withdrawals. A transfer failure aborts the surrounding transaction.
type Bank interface {
	Transfer(ctx context.Context, to domain.Address, amount *big.Int) error
}

// Token is the external fungible-token contract, consumed only through its
// transfer-from capability.
type Token interface {
	TransferFrom(ctx context.Context, from, to domain.Address, amount *big.Int) error
}

type Ledger struct {
	store Store
	bank  Bank
	token Token
	clock clock.Clock
	conv  domain.Converter

	owner domain.Address
	// self is the address token payments are pulled to.
	self domain.Address
}

func New(store Store, bank Bank, token Token, clk clock.Clock, conv domain.Converter, owner, self domain.Address) *Ledger {
	return &Ledger{
		store: store,
		bank:  bank,
		token: token,
		clock: clk,
		conv:  conv,
		owner: owner,
		self:  self,
	}
}

func (l *Ledger) Converter() domain.Converter { return l.conv }

// SettleableEvents lists events whose start time has passed while escrow is
// still unwithdrawn.
func (l *Ledger) SettleableEvents(ctx context.Context) ([]domain.EventView, error) {
	var views []domain.EventView
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		events, err := tx.SettleableEvents(ctx, l.clock.Now())
		if err != nil {
			return err
		}
		views = make([]domain.EventView, 0, len(events))
		for _, ev := range events {
			views = append(views, ev.View())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}
