package memory_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ticketvault/ticketvault/internal/adapters/memory"
	"github.com/ticketvault/ticketvault/internal/domain"
	"github.com/ticketvault/ticketvault/internal/ledger"
)

func TestWithTxCommit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		id, err := tx.NextEventID(ctx)
		if err != nil {
			return err
		}
		if id != 0 {
			t.Errorf("expected first id 0, got %d", id)
		}
		return tx.PutEvent(ctx, &domain.Event{ID: id, Name: "Committed", Capacity: 1, Escrow: new(big.Int)})
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		ev, err := tx.GetEvent(ctx, 0)
		if err != nil {
			return err
		}
		if ev.Name != "Committed" {
			t.Errorf("expected committed event, got %+v", ev)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWithTxRollback(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.NextEventID(ctx); err != nil {
			return err
		}
		if err := tx.PutEvent(ctx, &domain.Event{ID: 0, Name: "Doomed", Capacity: 1, Escrow: new(big.Int)}); err != nil {
			return err
		}
		if err := tx.AppendAttendee(ctx, 0, "0xbuyer"); err != nil {
			return err
		}
		if err := tx.SetFeePool(ctx, big.NewInt(99)); err != nil {
			return err
		}
		if err := tx.AddNotification(ctx, domain.NewEventCreated(0, "0xcreator")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.GetEvent(ctx, 0); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("rolled back event must not exist, got %v", err)
		}
		pool, err := tx.FeePool(ctx)
		if err != nil {
			return err
		}
		if pool.Sign() != 0 {
			t.Errorf("fee pool must be restored, got %s", pool)
		}
		// The id allocation rolled back too: the next event still gets 0.
		id, err := tx.NextEventID(ctx)
		if err != nil {
			return err
		}
		if id != 0 {
			t.Errorf("expected id 0 after rollback, got %d", id)
		}
		return errors.New("discard")
	})
	if err == nil {
		t.Fatal("expected discard error")
	}

	if notes := store.Notifications(); len(notes) != 0 {
		t.Errorf("rolled back notifications must not persist, got %d", len(notes))
	}
}

func TestSettleableEvents(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		events := []*domain.Event{
			{ID: 0, Name: "Ended, funded", StartsAt: now.Add(-time.Hour), Capacity: 1, Escrow: big.NewInt(5)},
			{ID: 1, Name: "Ended, drained", StartsAt: now.Add(-time.Hour), Capacity: 1, Escrow: new(big.Int)},
			{ID: 2, Name: "Upcoming", StartsAt: now.Add(time.Hour), Capacity: 1, Escrow: big.NewInt(5)},
		}
		for _, ev := range events {
			if _, err := tx.NextEventID(ctx); err != nil {
				return err
			}
			if err := tx.PutEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		settleable, err := tx.SettleableEvents(ctx, now)
		if err != nil {
			return err
		}
		if len(settleable) != 1 || settleable[0].ID != 0 {
			t.Errorf("expected only event 0, got %+v", settleable)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotsDoNotShareState(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.NextEventID(ctx); err != nil {
			return err
		}
		return tx.PutEvent(ctx, &domain.Event{ID: 0, Capacity: 1, Escrow: big.NewInt(100)})
	})
	if err != nil {
		t.Fatal(err)
	}

	// Mutating a read copy must not leak into the store.
	err = store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		ev, err := tx.GetEvent(ctx, 0)
		if err != nil {
			return err
		}
		ev.Escrow.SetInt64(0)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		ev, err := tx.GetEvent(ctx, 0)
		if err != nil {
			return err
		}
		if ev.Escrow.Cmp(big.NewInt(100)) != 0 {
			t.Errorf("escrow mutated through a snapshot: %s", ev.Escrow)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
