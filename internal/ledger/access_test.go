package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ticketvault/ticketvault/internal/domain"
)

func TestAddWhitelistedCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newcomer := domain.Address("0xnewcreator")

	if err := f.ledger.AddWhitelistedCreator(ctx, creator, newcomer); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for non-owner, got %v", err)
	}

	if err := f.ledger.AddWhitelistedCreator(ctx, owner, newcomer); err != nil {
		t.Fatal(err)
	}
	// Adding twice is a no-op.
	if err := f.ledger.AddWhitelistedCreator(ctx, owner, newcomer); err != nil {
		t.Fatal(err)
	}

	ok, err := f.ledger.IsWhitelistedCreator(ctx, newcomer)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected newcomer to be whitelisted")
	}

	if _, err := f.ledger.CreateEvent(ctx, newcomer, "By Newcomer", f.clock.now.Add(time.Hour), 50, 5); err != nil {
		t.Errorf("whitelisted creator should create events, got %v", err)
	}
}

func TestUpdateBlacklist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.ledger.UpdateBlacklist(ctx, buyer, buyer, true); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for non-owner, got %v", err)
	}

	if err := f.ledger.UpdateBlacklist(ctx, owner, buyer, true); err != nil {
		t.Fatal(err)
	}
	banned, err := f.ledger.IsBlacklisted(ctx, buyer)
	if err != nil {
		t.Fatal(err)
	}
	if !banned {
		t.Error("expected buyer to be blacklisted")
	}

	if err := f.ledger.UpdateBlacklist(ctx, owner, buyer, false); err != nil {
		t.Fatal(err)
	}
	banned, err = f.ledger.IsBlacklisted(ctx, buyer)
	if err != nil {
		t.Fatal(err)
	}
	if banned {
		t.Error("expected blacklist entry to be cleared")
	}
}
