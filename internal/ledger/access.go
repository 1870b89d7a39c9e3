package ledger

import (
	"context"

	"github.com/ticketvault/ticketvault/internal/domain"
)

// AddWhitelistedCreator grants addr permission to create and edit events.
// Owner only; adding an address twice is a no-op.
func (l *Ledger) AddWhitelistedCreator(ctx context.Context, caller, addr domain.Address) error {
	if caller != l.owner {
		return domain.ErrUnauthorized
	}
	return l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.AddCreator(ctx, addr)
	})
}

// UpdateBlacklist sets or clears addr's purchase ban. Owner only.
func (l *Ledger) UpdateBlacklist(ctx context.Context, caller, addr domain.Address, blacklisted bool) error {
	if caller != l.owner {
		return domain.ErrUnauthorized
	}
	return l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.SetBlacklisted(ctx, addr, blacklisted)
	})
}

func (l *Ledger) IsWhitelistedCreator(ctx context.Context, addr domain.Address) (bool, error) {
	var ok bool
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		ok, err = tx.IsCreator(ctx, addr)
		return err
	})
	return ok, err
}

func (l *Ledger) IsBlacklisted(ctx context.Context, addr domain.Address) (bool, error) {
	var ok bool
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		ok, err = tx.IsBlacklisted(ctx, addr)
		return err
	})
	return ok, err
}
