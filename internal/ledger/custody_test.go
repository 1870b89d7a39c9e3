package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ticketvault/ticketvault/internal/domain"
)

func TestWithdrawEventFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createEvent(t, 50, 10)

	if _, err := f.ledger.BuyWithNative(ctx, buyer, id, gross50); err != nil {
		t.Fatal(err)
	}
	f.clock.advance(2 * time.Hour)

	amount, err := f.ledger.WithdrawEventFunds(ctx, creator, id)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(net50) != 0 {
		t.Errorf("expected withdrawal of %s, got %s", net50, amount)
	}
	if len(f.bank.transfers) != 1 || f.bank.transfers[0].to != creator {
		t.Fatalf("expected one transfer to the creator, got %v", f.bank.transfers)
	}
	if f.bank.transfers[0].amount.Cmp(net50) != 0 {
		t.Errorf("expected transfer of %s, got %s", net50, f.bank.transfers[0].amount)
	}

	view := f.event(t, id)
	if view.EscrowWei != "0" {
		t.Errorf("escrow must be zero after withdrawal, got %s", view.EscrowWei)
	}
	if got := f.notified(domain.NoteFundsWithdrawn); got != 1 {
		t.Errorf("expected 1 funds.withdrawn notification, got %d", got)
	}

	// Draining twice is rejected.
	if _, err := f.ledger.WithdrawEventFunds(ctx, creator, id); !errors.Is(err, domain.ErrNoFunds) {
		t.Errorf("expected ErrNoFunds on second withdrawal, got %v", err)
	}
}

func TestWithdrawEventFundsBeforeStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createEvent(t, 50, 10)

	if _, err := f.ledger.BuyWithNative(ctx, buyer, id, gross50); err != nil {
		t.Fatal(err)
	}

	_, err := f.ledger.WithdrawEventFunds(ctx, creator, id)
	if !errors.Is(err, domain.ErrEventNotEnded) {
		t.Errorf("expected ErrEventNotEnded, got %v", err)
	}
}

func TestWithdrawEventFundsAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createEvent(t, 50, 10)
	f.clock.advance(2 * time.Hour)

	if _, err := f.ledger.WithdrawEventFunds(ctx, buyer, id); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for non-creator, got %v", err)
	}
	// The owner is not the creator either.
	if _, err := f.ledger.WithdrawEventFunds(ctx, owner, id); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for owner, got %v", err)
	}
	if _, err := f.ledger.WithdrawEventFunds(ctx, creator, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWithdrawEventFundsEmptyEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createEvent(t, 50, 10)
	f.clock.advance(2 * time.Hour)

	if _, err := f.ledger.WithdrawEventFunds(ctx, creator, id); !errors.Is(err, domain.ErrNoFunds) {
		t.Errorf("expected ErrNoFunds, got %v", err)
	}
}

func TestWithdrawEventFundsTransferFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createEvent(t, 50, 10)

	if _, err := f.ledger.BuyWithNative(ctx, buyer, id, gross50); err != nil {
		t.Fatal(err)
	}
	f.clock.advance(2 * time.Hour)

	f.bank.err = errors.New("transfer rejected")
	if _, err := f.ledger.WithdrawEventFunds(ctx, creator, id); err == nil {
		t.Fatal("expected withdrawal to fail when the transfer fails")
	}

	view := f.event(t, id)
	if view.EscrowWei != net50.String() {
		t.Errorf("escrow must be restored after rollback, got %s", view.EscrowWei)
	}
}

// Regression guard: withdrawing one event's funds must not touch any other
// event's escrow. A pooled contract-wide balance once allowed exactly that.
func TestWithdrawEventFundsIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.ledger.CreateEvent(ctx, creator, "First", f.clock.now.Add(time.Hour), 50, 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.ledger.CreateEvent(ctx, creator, "Second", f.clock.now.Add(24*time.Hour), 50, 10)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.ledger.BuyWithNative(ctx, buyer, first, gross50); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.BuyWithNative(ctx, buyer, second, gross50); err != nil {
		t.Fatal(err)
	}

	// Past the first event's start only.
	f.clock.advance(2 * time.Hour)

	amount, err := f.ledger.WithdrawEventFunds(ctx, creator, first)
	if err != nil {
		t.Fatal(err)
	}
	if amount.Cmp(net50) != 0 {
		t.Errorf("first event must pay out exactly its own escrow %s, got %s", net50, amount)
	}

	view := f.event(t, second)
	if view.EscrowWei != net50.String() {
		t.Errorf("second event's escrow changed: expected %s, got %s", net50, view.EscrowWei)
	}
	if _, err := f.ledger.WithdrawEventFunds(ctx, creator, second); !errors.Is(err, domain.ErrEventNotEnded) {
		t.Errorf("second event has not started, expected ErrEventNotEnded, got %v", err)
	}

	// Conservation: remaining escrow plus the fee pool equals everything
	// received minus everything withdrawn.
	fees, err := f.ledger.WithdrawAdminFee(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	received := new(big.Int).Mul(gross50, big.NewInt(2))
	remaining := new(big.Int).Set(net50) // second event's escrow
	withdrawn := new(big.Int).Add(amount, fees)
	if got := new(big.Int).Add(remaining, withdrawn); got.Cmp(received) != 0 {
		t.Errorf("value leaked: received %s, accounted %s", received, got)
	}
}

func TestWithdrawAdminFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createEvent(t, 50, 10)

	if _, err := f.ledger.WithdrawAdminFee(ctx, creator); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for non-owner, got %v", err)
	}
	if _, err := f.ledger.WithdrawAdminFee(ctx, owner); !errors.Is(err, domain.ErrNoFunds) {
		t.Errorf("expected ErrNoFunds on empty pool, got %v", err)
	}

	if _, err := f.ledger.BuyWithNative(ctx, buyer, id, gross50); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.BuyWithToken(ctx, buyer, id); err != nil {
		t.Fatal(err)
	}

	amount, err := f.ledger.WithdrawAdminFee(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	expected := new(big.Int).Mul(fee50, big.NewInt(2))
	if amount.Cmp(expected) != 0 {
		t.Errorf("expected fee pool %s, got %s", expected, amount)
	}
	if len(f.bank.transfers) != 1 || f.bank.transfers[0].to != owner {
		t.Fatalf("expected one transfer to the owner, got %v", f.bank.transfers)
	}
	if got := f.notified(domain.NoteAdminFeeWithdraw); got != 1 {
		t.Errorf("expected 1 admin_fee.withdrawn notification, got %d", got)
	}

	if _, err := f.ledger.WithdrawAdminFee(ctx, owner); !errors.Is(err, domain.ErrNoFunds) {
		t.Errorf("expected ErrNoFunds after draining the pool, got %v", err)
	}
}
