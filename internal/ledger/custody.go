package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ticketvault/ticketvault/internal/domain"
)

// WithdrawEventFunds pays the event's escrow balance out to its creator once
// the event has started. The balance is zeroed before the transfer and no
// other event's balance is read or written.
func (l *Ledger) WithdrawEventFunds(ctx context.Context, caller domain.Address, eventID uint64) (*big.Int, error) {
	var amount *big.Int
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if caller != ev.Creator {
			return domain.ErrUnauthorized
		}
		if !ev.Started(l.clock.Now()) {
			return domain.ErrEventNotEnded
		}
		if ev.Escrow.Sign() == 0 {
			return domain.ErrNoFunds
		}

		amount = ev.Escrow
		ev.Escrow = new(big.Int)
		if err := tx.PutEvent(ctx, ev); err != nil {
			return err
		}
		if err := tx.AddNotification(ctx, domain.NewFundsWithdrawn(eventID, caller, amount)); err != nil {
			return err
		}
		if err := l.bank.Transfer(ctx, caller, amount); err != nil {
			return fmt.Errorf("transfer event funds: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// WithdrawAdminFee pays the accumulated fee pool out to the owner.
func (l *Ledger) WithdrawAdminFee(ctx context.Context, caller domain.Address) (*big.Int, error) {
	if caller != l.owner {
		return nil, domain.ErrUnauthorized
	}
	var amount *big.Int
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		pool, err := tx.FeePool(ctx)
		if err != nil {
			return err
		}
		if pool.Sign() == 0 {
			return domain.ErrNoFunds
		}

		amount = pool
		if err := tx.SetFeePool(ctx, new(big.Int)); err != nil {
			return err
		}
		if err := tx.AddNotification(ctx, domain.NewAdminFeeWithdrawn(caller, amount)); err != nil {
			return err
		}
		if err := l.bank.Transfer(ctx, caller, amount); err != nil {
			return fmt.Errorf("transfer admin fee: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}
