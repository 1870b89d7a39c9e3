package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ticketvault/ticketvault/internal/domain"
)

// PurchaseReceipt reports what a successful purchase cost the buyer.
type PurchaseReceipt struct {
	EventID   uint64
	Buyer     domain.Address
	PriceWei  *big.Int
	RefundWei *big.Int
}

// checkSellable runs the preconditions shared by both payment paths.
func (l *Ledger) checkSellable(ctx context.Context, tx Tx, eventID uint64, buyer domain.Address) (*domain.Event, error) {
	ev, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	blacklisted, err := tx.IsBlacklisted(ctx, buyer)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, domain.ErrBlacklisted
	}
	if ev.Started(l.clock.Now()) {
		return nil, domain.ErrEventAlreadyStarted
	}
	if ev.SoldOut() {
		return nil, domain.ErrSoldOut
	}
	return ev, nil
}

// recordSale credits the event escrow and the admin fee pool, increments the
// sold counter and appends the buyer. Called with the quote already settled.
func (l *Ledger) recordSale(ctx context.Context, tx Tx, ev *domain.Event, buyer domain.Address, q domain.Quote) error {
	ev.Escrow.Add(ev.Escrow, q.Net)
	ev.TicketsSold++
	if err := tx.PutEvent(ctx, ev); err != nil {
		return err
	}
	pool, err := tx.FeePool(ctx)
	if err != nil {
		return err
	}
	if err := tx.SetFeePool(ctx, pool.Add(pool, q.Fee)); err != nil {
		return err
	}
	if err := tx.AppendAttendee(ctx, ev.ID, buyer); err != nil {
		return err
	}
	return tx.AddNotification(ctx, domain.NewTicketPurchased(ev.ID, buyer))
}

// BuyWithNative sells one ticket paid in the native asset. The sent amount
// must cover the gross quote; any excess is refunded to the buyer inside the
// same transaction, so a failed refund fails the whole purchase.
func (l *Ledger) BuyWithNative(ctx context.Context, buyer domain.Address, eventID uint64, sent *big.Int) (PurchaseReceipt, error) {
	if sent == nil || sent.Sign() < 0 {
		return PurchaseReceipt{}, domain.ErrInsufficientPayment
	}
	var receipt PurchaseReceipt
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		ev, err := l.checkSellable(ctx, tx, eventID, buyer)
		if err != nil {
			return err
		}
		q := l.conv.Price(ev.PriceUSD)
		if sent.Cmp(q.Gross) < 0 {
			return domain.ErrInsufficientPayment
		}
		if err := l.recordSale(ctx, tx, ev, buyer, q); err != nil {
			return err
		}
		refund := new(big.Int).Sub(sent, q.Gross)
		if refund.Sign() > 0 {
			// Escrow is already credited at this point; a refund failure
			// rolls the whole transaction back.
			if err := l.bank.Transfer(ctx, buyer, refund); err != nil {
				return fmt.Errorf("refund overpayment: %w", err)
			}
		}
		receipt = PurchaseReceipt{EventID: eventID, Buyer: buyer, PriceWei: q.Gross, RefundWei: refund}
		return nil
	})
	if err != nil {
		return PurchaseReceipt{}, err
	}
	return receipt, nil
}

// BuyWithToken sells one ticket paid in the payment token, pulling exactly the
// gross quote from the buyer's allowance. There is no refund path: the buyer
// approves the computed amount.
func (l *Ledger) BuyWithToken(ctx context.Context, buyer domain.Address, eventID uint64) (PurchaseReceipt, error) {
	var receipt PurchaseReceipt
	err := l.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		ev, err := l.checkSellable(ctx, tx, eventID, buyer)
		if err != nil {
			return err
		}
		q := l.conv.Price(ev.PriceUSD)
		if err := l.token.TransferFrom(ctx, buyer, l.self, q.Gross); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTokenTransferFailed, err)
		}
		if err := l.recordSale(ctx, tx, ev, buyer, q); err != nil {
			return err
		}
		receipt = PurchaseReceipt{EventID: eventID, Buyer: buyer, PriceWei: q.Gross, RefundWei: new(big.Int)}
		return nil
	})
	if err != nil {
		return PurchaseReceipt{}, err
	}
	return receipt, nil
}
