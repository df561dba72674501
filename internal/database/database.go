package database

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/entities"
)

type Database struct {
	DB *gorm.DB

	mu            sync.Mutex
	wordbookLocks map[uint]*sync.Mutex
}

func NewDatabase(dbPath string) (*Database, error) {
	dsn := dbPath + "?_journal=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Wordbook{},
		&entities.Word{},
		&entities.Card{},
		&entities.SRSState{},
		&entities.Review{},
		&entities.ImportJob{},
		&entities.Setting{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{
		DB:            db,
		wordbookLocks: make(map[uint]*sync.Mutex),
	}

	if err := database.initSearchIndex(); err != nil {
		return nil, fmt.Errorf("failed to initialize search index: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// initSearchIndex creates the words_fts FTS5 table and the triggers
// that keep it in sync with words. The meanings column is fed from
// words.search_text, the denormalized gloss text the repositories
// compose before every write.
func (d *Database) initSearchIndex() error {
	statements := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS words_fts USING fts5(
			lemma,
			meanings,
			content='words',
			content_rowid='id'
		);`,
		`CREATE TRIGGER IF NOT EXISTS words_fts_insert AFTER INSERT ON words BEGIN
			INSERT INTO words_fts(rowid, lemma, meanings)
			VALUES (new.id, new.lemma, ifnull(new.search_text, ''));
		END;`,
		`CREATE TRIGGER IF NOT EXISTS words_fts_delete AFTER DELETE ON words BEGIN
			INSERT INTO words_fts(words_fts, rowid, lemma, meanings)
			VALUES ('delete', old.id, old.lemma, ifnull(old.search_text, ''));
		END;`,
		`CREATE TRIGGER IF NOT EXISTS words_fts_update AFTER UPDATE ON words BEGIN
			INSERT INTO words_fts(words_fts, rowid, lemma, meanings)
			VALUES ('delete', old.id, old.lemma, ifnull(old.search_text, ''));
			INSERT INTO words_fts(rowid, lemma, meanings)
			VALUES (new.id, new.lemma, ifnull(new.search_text, ''));
		END;`,
	}
	for _, stmt := range statements {
		if err := d.DB.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// OptimizeSearchIndex merges the FTS b-tree segments. Maintenance only.
func (d *Database) OptimizeSearchIndex() error {
	return d.DB.Exec(`INSERT INTO words_fts(words_fts) VALUES ('optimize')`).Error
}

// RebuildSearchIndex repopulates words_fts from the words table.
// Maintenance escape hatch; the triggers keep the index correct in
// normal operation.
func (d *Database) RebuildSearchIndex() error {
	return d.DB.Exec(`INSERT INTO words_fts(words_fts) VALUES ('rebuild')`).Error
}

// LockWordbook serializes writes for one wordbook. Writes across
// wordbooks proceed in parallel. The returned func releases the lock.
func (d *Database) LockWordbook(wordbookID uint) func() {
	d.mu.Lock()
	lock, ok := d.wordbookLocks[wordbookID]
	if !ok {
		lock = &sync.Mutex{}
		d.wordbookLocks[wordbookID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// IsTransient reports whether the error is a busy/locked condition
// worth one retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// WithRetry runs fn, retrying once when the failure looks transient.
// A second failure is reported as apperr.Transient.
func (d *Database) WithRetry(fn func() error) error {
	err := fn()
	if err == nil || !IsTransient(err) {
		return err
	}
	time.Sleep(50 * time.Millisecond)
	if err = fn(); err != nil {
		if IsTransient(err) {
			return apperr.Wrap(apperr.Transient, err, "database busy")
		}
		return err
	}
	return nil
}

// IsDuplicate reports a unique-constraint violation. Upserts treat it
// as the "skipped" signal, not an error.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
