package store

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

type Slot struct {
	gorm.Model
	SlotKey string `gorm:"unique_index;not null"`
	Value   string
}

type Gorm struct {
	db *gorm.DB
}

// OpenGorm opens (and migrates) a sqlite file. ":memory:" works for tests.
func OpenGorm(path string) (*Gorm, error) {
	if path == "" {
		path = "raffle.db"
	}
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	// sqlite takes one writer; ":memory:" is also per connection
	db.DB().SetMaxOpenConns(1)

	err = db.AutoMigrate(&Slot{}).Error
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate slots: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var slot Slot
	err := g.db.Where(Slot{SlotKey: key}).First(&slot).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(slot.Value), true, nil
}

func (g *Gorm) Put(ctx context.Context, key string, value []byte) error {
	var slot Slot
	return g.db.Where(Slot{SlotKey: key}).Assign(Slot{Value: string(value)}).FirstOrCreate(&slot).Error
}

func (g *Gorm) Delete(ctx context.Context, key string) error {
	return g.db.Unscoped().Where(Slot{SlotKey: key}).Delete(&Slot{}).Error
}

func (g *Gorm) Close() error {
	return g.db.Close()
}
