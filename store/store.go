package store

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	DRIVER_MEMORY   = "memory"
	DRIVER_BADGER   = "badger"
	DRIVER_SQLITE   = "sqlite"
	DRIVER_POSTGRES = "postgres"

	SLOT_PREFIX = "cakeRaffleParticipants"
)

// Slots holds named, opaque values. A missing slot is not an error.
type Slots interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Options struct {
	Driver string `yaml:"driver" validate:"required,oneof=memory badger sqlite postgres"`
	Path   string `yaml:"path"`
	Url    string `yaml:"url"`
}

func Open(opts Options) (Slots, error) {
	switch opts.Driver {
	case DRIVER_MEMORY, "":
		return NewMemory(), nil
	case DRIVER_BADGER:
		return OpenBadger(opts.Path)
	case DRIVER_SQLITE:
		return OpenGorm(opts.Path)
	case DRIVER_POSTGRES:
		return OpenPostgres(opts.Url)
	}
	return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
}

func SlotKey(raffle_id string) string {
	return SLOT_PREFIX + ":" + raffle_id
}

// Transact runs db_func inside a transaction, rolling back on any error.
func Transact(ctx context.Context, connection *sql.DB, db_func func(*sql.Tx) error) error {
	tx, err := connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = db_func(tx)
	if err != nil {
		tx.Rollback()
		return err
	}

	err = tx.Commit()
	if err != nil {
		tx.Rollback()
		return err
	}

	return nil
}
