package database

import (
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"simbay/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentModification means the row version changed between
	// read and write.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// SlotTakenError is returned when an insert or reschedule would
// overlap an existing booking in the same bay. Existing is the booking
// that won the slot.
type SlotTakenError struct {
	Existing models.Booking
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot taken by booking %d (%s, bay %d)",
		e.Existing.ID, e.Existing.OwnerName, e.Existing.Bay)
}

// partitionLocks is the number of mutex stripes guarding
// (club, bay, date) partitions. Distinct partitions may share a stripe;
// that only costs throughput, never correctness.
const partitionLocks = 64

// DB wraps the SQLite connection. Conflicting writes to the same
// (club, bay, date) partition are serialized through striped mutexes,
// and the overlap check runs again inside the write transaction, so
// the winner of two racing requests is decided here and the loser gets
// a SlotTakenError.
type DB struct {
	*sql.DB
	locks  [partitionLocks]sync.Mutex
	logger *zerolog.Logger
}

// NewDB opens the database, applying WAL mode and creating tables on
// first use.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{
		DB:     db,
		logger: logger,
	}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			club_id TEXT NOT NULL,
			owner_id INTEGER NOT NULL,
			owner_name TEXT NOT NULL,
			bay INTEGER NOT NULL,
			date TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			mode TEXT NOT NULL,
			participants TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_club_date ON bookings(club_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_partition ON bookings(club_id, bay, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_owner ON bookings(owner_id)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			booking_id INTEGER NOT NULL,
			member_id INTEGER NOT NULL,
			club_id TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}

	return db.migrate()
}

// migrate applies additive schema changes to databases created by
// older releases.
func (db *DB) migrate() error {
	alters := []string{
		`ALTER TABLE bookings ADD COLUMN version INTEGER NOT NULL DEFAULT 1`,
		`ALTER TABLE bookings ADD COLUMN participants TEXT NOT NULL DEFAULT '[]'`,
	}

	for _, q := range alters {
		if _, err := db.Exec(q); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return err
		}
	}
	return nil
}

// partitionLock returns the stripe guarding one (club, bay, date)
// partition.
func (db *DB) partitionLock(clubID string, bay int, date time.Time) *sync.Mutex {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%d|%s", clubID, bay, date.Format("2006-01-02"))
	return &db.locks[h.Sum32()%partitionLocks]
}
