// Package crdb persists ledger state in Postgres/CockroachDB. Every ledger
// operation runs in one SERIALIZABLE transaction; wei amounts are NUMERIC
// columns moved as decimal strings.
package crdb

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/google/uuid"
	"github.com/ticketvault/ticketvault/internal/domain"
	"github.com/ticketvault/ticketvault/internal/ledger"
)

const serializationFailureCode = "40001"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ ledger.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_meta (
	id INT PRIMARY KEY CHECK (id = 0),
	next_event_id BIGINT NOT NULL DEFAULT 0,
	fee_pool_wei NUMERIC NOT NULL DEFAULT 0
);
INSERT INTO ledger_meta (id) VALUES (0) ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS events (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	starts_at TIMESTAMPTZ NOT NULL,
	price_usd BIGINT NOT NULL,
	capacity BIGINT NOT NULL CHECK (capacity > 0),
	tickets_sold BIGINT NOT NULL DEFAULT 0 CHECK (tickets_sold <= capacity),
	creator TEXT NOT NULL,
	escrow_wei NUMERIC NOT NULL DEFAULT 0 CHECK (escrow_wei >= 0)
);

CREATE TABLE IF NOT EXISTS attendees (
	event_id BIGINT NOT NULL REFERENCES events (id),
	position BIGINT NOT NULL,
	buyer TEXT NOT NULL,
	PRIMARY KEY (event_id, position)
);

CREATE TABLE IF NOT EXISTS creators (
	addr TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS blacklist (
	addr TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	routing_key TEXT NOT NULL,
	payload_json BYTES NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'NEW',
	dedupe_key TEXT NOT NULL
);
`

// EnsureSchema creates the ledger tables and the singleton meta row.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return errors.Wrap(err, "ensure schema")
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return err
	}

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

var _ ledger.Tx = (*pgTx)(nil)

func (t *pgTx) NextEventID(ctx context.Context) (uint64, error) {
	var next int64
	err := t.tx.QueryRow(ctx, `
		UPDATE ledger_meta SET next_event_id = next_event_id + 1
		WHERE id = 0
		RETURNING next_event_id - 1
	`).Scan(&next)
	if err != nil {
		return 0, errors.Wrap(err, "allocate event id")
	}
	return uint64(next), nil
}

func (t *pgTx) GetEvent(ctx context.Context, id uint64) (*domain.Event, error) {
	var (
		ev     domain.Event
		escrow string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, starts_at, price_usd, capacity, tickets_sold, creator, escrow_wei::TEXT
		FROM events WHERE id = $1
	`, int64(id)).Scan(&ev.ID, &ev.Name, &ev.StartsAt, &ev.PriceUSD, &ev.Capacity, &ev.TicketsSold, &ev.Creator, &escrow)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get event")
	}
	wei, ok := new(big.Int).SetString(escrow, 10)
	if !ok {
		return nil, errors.Newf("malformed escrow amount %q for event %d", escrow, id)
	}
	ev.Escrow = wei
	return &ev, nil
}

func (t *pgTx) PutEvent(ctx context.Context, ev *domain.Event) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO events (id, name, starts_at, price_usd, capacity, tickets_sold, creator, escrow_wei)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::NUMERIC)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			starts_at = excluded.starts_at,
			price_usd = excluded.price_usd,
			capacity = excluded.capacity,
			tickets_sold = excluded.tickets_sold,
			escrow_wei = excluded.escrow_wei
	`, int64(ev.ID), ev.Name, ev.StartsAt, int64(ev.PriceUSD), int64(ev.Capacity), int64(ev.TicketsSold), ev.Creator, ev.Escrow.String())
	return errors.Wrap(err, "put event")
}

func (t *pgTx) AppendAttendee(ctx context.Context, eventID uint64, buyer domain.Address) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO attendees (event_id, position, buyer)
		VALUES ($1, (SELECT COALESCE(MAX(position) + 1, 0) FROM attendees WHERE event_id = $1), $2)
	`, int64(eventID), buyer)
	return errors.Wrap(err, "append attendee")
}

func (t *pgTx) Attendees(ctx context.Context, eventID uint64) ([]domain.Address, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT buyer FROM attendees WHERE event_id = $1 ORDER BY position
	`, int64(eventID))
	if err != nil {
		return nil, errors.Wrap(err, "list attendees")
	}
	defer rows.Close()

	var attendees []domain.Address
	for rows.Next() {
		var buyer domain.Address
		if err := rows.Scan(&buyer); err != nil {
			return nil, err
		}
		attendees = append(attendees, buyer)
	}
	return attendees, rows.Err()
}

func (t *pgTx) FeePool(ctx context.Context) (*big.Int, error) {
	var pool string
	if err := t.tx.QueryRow(ctx, `SELECT fee_pool_wei::TEXT FROM ledger_meta WHERE id = 0`).Scan(&pool); err != nil {
		return nil, errors.Wrap(err, "get fee pool")
	}
	wei, ok := new(big.Int).SetString(pool, 10)
	if !ok {
		return nil, errors.Newf("malformed fee pool amount %q", pool)
	}
	return wei, nil
}

func (t *pgTx) SetFeePool(ctx context.Context, amount *big.Int) error {
	_, err := t.tx.Exec(ctx, `UPDATE ledger_meta SET fee_pool_wei = $1::NUMERIC WHERE id = 0`, amount.String())
	return errors.Wrap(err, "set fee pool")
}

func (t *pgTx) AddCreator(ctx context.Context, addr domain.Address) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO creators (addr) VALUES ($1) ON CONFLICT (addr) DO NOTHING`, addr)
	return errors.Wrap(err, "add creator")
}

func (t *pgTx) IsCreator(ctx context.Context, addr domain.Address) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM creators WHERE addr = $1)`, addr).Scan(&ok)
	return ok, errors.Wrap(err, "check creator")
}

func (t *pgTx) SetBlacklisted(ctx context.Context, addr domain.Address, blacklisted bool) error {
	var err error
	if blacklisted {
		_, err = t.tx.Exec(ctx, `INSERT INTO blacklist (addr) VALUES ($1) ON CONFLICT (addr) DO NOTHING`, addr)
	} else {
		_, err = t.tx.Exec(ctx, `DELETE FROM blacklist WHERE addr = $1`, addr)
	}
	return errors.Wrap(err, "update blacklist")
}

func (t *pgTx) IsBlacklisted(ctx context.Context, addr domain.Address) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blacklist WHERE addr = $1)`, addr).Scan(&ok)
	return ok, errors.Wrap(err, "check blacklist")
}

func (t *pgTx) SettleableEvents(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, starts_at, price_usd, capacity, tickets_sold, creator, escrow_wei::TEXT
		FROM events WHERE starts_at <= $1 AND escrow_wei > 0 ORDER BY id
	`, now)
	if err != nil {
		return nil, errors.Wrap(err, "list settleable events")
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var (
			ev     domain.Event
			escrow string
		)
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.StartsAt, &ev.PriceUSD, &ev.Capacity, &ev.TicketsSold, &ev.Creator, &escrow); err != nil {
			return nil, err
		}
		wei, ok := new(big.Int).SetString(escrow, 10)
		if !ok {
			return nil, errors.Newf("malformed escrow amount %q for event %d", escrow, ev.ID)
		}
		ev.Escrow = wei
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (t *pgTx) AddNotification(ctx context.Context, n domain.Notification) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO outbox (id, routing_key, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, 'NEW', $4)
	`, uuid.New(), n.Name, n.Payload, uuid.New().String())
	return errors.Wrap(err, "insert outbox")
}
