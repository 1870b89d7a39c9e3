// Package memory holds the in-memory Store used by unit tests and DSN-less
// dev runs. Transactions take a deep snapshot of the state on entry and
// restore it when the closure fails, under a single writer lock.
package memory

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ticketvault/ticketvault/internal/domain"
	"github.com/ticketvault/ticketvault/internal/ledger"
)

type state struct {
	nextEventID   uint64
	events        map[uint64]*domain.Event
	attendees     map[uint64][]domain.Address
	feePool       *big.Int
	creators      map[domain.Address]struct{}
	blacklist     map[domain.Address]struct{}
	notifications []domain.Notification
}

func (s *state) clone() *state {
	c := &state{
		nextEventID:   s.nextEventID,
		events:        make(map[uint64]*domain.Event, len(s.events)),
		attendees:     make(map[uint64][]domain.Address, len(s.attendees)),
		feePool:       new(big.Int).Set(s.feePool),
		creators:      make(map[domain.Address]struct{}, len(s.creators)),
		blacklist:     make(map[domain.Address]struct{}, len(s.blacklist)),
		notifications: append([]domain.Notification(nil), s.notifications...),
	}
	for id, ev := range s.events {
		c.events[id] = ev.Clone()
	}
	for id, list := range s.attendees {
		c.attendees[id] = append([]domain.Address(nil), list...)
	}
	for a := range s.creators {
		c.creators[a] = struct{}{}
	}
	for a := range s.blacklist {
		c.blacklist[a] = struct{}{}
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: &state{
		events:    make(map[uint64]*domain.Event),
		attendees: make(map[uint64][]domain.Address),
		feePool:   new(big.Int),
		creators:  make(map[domain.Address]struct{}),
		blacklist: make(map[domain.Address]struct{}),
	}}
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &tx{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Notifications returns everything committed to the outbox so far.
func (s *Store) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.st.notifications...)
}

type tx struct {
	st *state
}

var _ ledger.Tx = (*tx)(nil)

func (t *tx) NextEventID(ctx context.Context) (uint64, error) {
	id := t.st.nextEventID
	t.st.nextEventID++
	return id, nil
}

func (t *tx) GetEvent(ctx context.Context, id uint64) (*domain.Event, error) {
	ev, ok := t.st.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev.Clone(), nil
}

func (t *tx) PutEvent(ctx context.Context, ev *domain.Event) error {
	t.st.events[ev.ID] = ev.Clone()
	return nil
}

func (t *tx) AppendAttendee(ctx context.Context, eventID uint64, buyer domain.Address) error {
	t.st.attendees[eventID] = append(t.st.attendees[eventID], buyer)
	return nil
}

func (t *tx) Attendees(ctx context.Context, eventID uint64) ([]domain.Address, error) {
	return append([]domain.Address(nil), t.st.attendees[eventID]...), nil
}

func (t *tx) FeePool(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(t.st.feePool), nil
}

func (t *tx) SetFeePool(ctx context.Context, amount *big.Int) error {
	t.st.feePool = new(big.Int).Set(amount)
	return nil
}

func (t *tx) AddCreator(ctx context.Context, addr domain.Address) error {
	t.st.creators[addr] = struct{}{}
	return nil
}

func (t *tx) IsCreator(ctx context.Context, addr domain.Address) (bool, error) {
	_, ok := t.st.creators[addr]
	return ok, nil
}

func (t *tx) SetBlacklisted(ctx context.Context, addr domain.Address, blacklisted bool) error {
	if blacklisted {
		t.st.blacklist[addr] = struct{}{}
	} else {
		delete(t.st.blacklist, addr)
	}
	return nil
}

func (t *tx) IsBlacklisted(ctx context.Context, addr domain.Address) (bool, error) {
	_, ok := t.st.blacklist[addr]
	return ok, nil
}

func (t *tx) SettleableEvents(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	for id := uint64(0); id < t.st.nextEventID; id++ {
		ev, ok := t.st.events[id]
		if !ok {
			continue
		}
		if ev.Started(now) && ev.Escrow.Sign() > 0 {
			out = append(out, ev.Clone())
		}
	}
	return out, nil
}

func (t *tx) AddNotification(ctx context.Context, n domain.Notification) error {
	t.st.notifications = append(t.st.notifications, n)
	return nil
}
