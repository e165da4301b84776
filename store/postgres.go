package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const SLOT_TABLE = "raffle_slots"

type Postgres struct {
	connection *sql.DB
	table      string
}

func OpenPostgres(dburl string) (*Postgres, error) {
	c, err := sql.Open("postgres", dburl)
	if err != nil {
		return nil, err
	}

	p := &Postgres{connection: c, table: pq.QuoteIdentifier(SLOT_TABLE)}
	_, err = c.Exec(p.createTable())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create %s: %w", SLOT_TABLE, err)
	}
	return p, nil
}

func (p *Postgres) createTable() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	slot_key   TEXT PRIMARY KEY,
	slot_value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, p.table)
}

func (p *Postgres) upsert() string {
	return fmt.Sprintf(`INSERT INTO %s (slot_key, slot_value) VALUES ($1, $2)
ON CONFLICT (slot_key) DO UPDATE SET slot_value = EXCLUDED.slot_value, updated_at = now()`, p.table)
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	row := p.connection.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT slot_value FROM %s WHERE slot_key = $1`, p.table), key)
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	return Transact(ctx, p.connection, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, p.upsert(), key, string(value))
		return err
	})
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	return Transact(ctx, p.connection, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE slot_key = $1`, p.table), key)
		return err
	})
}

func (p *Postgres) Close() error {
	return p.connection.Close()
}
