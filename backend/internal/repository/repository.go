package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Database holds the database connection
type Database struct {
	*sql.DB
	sqlxDB *sqlx.DB
}

// NewDatabase creates a new database connection
func NewDatabase(databaseURL string) (*Database, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, sqlxDB: sqlx.NewDb(db, "postgres")}, nil
}

// NewDatabaseFromConn wraps an already-open connection, used by tests
// that drive the repositories against sqlmock.
func NewDatabaseFromConn(db *sql.DB) *Database {
	return &Database{DB: db, sqlxDB: sqlx.NewDb(db, "postgres")}
}

// SQLX exposes the sqlx wrapper for struct-scanning reads.
func (d *Database) SQLX() *sqlx.DB {
	return d.sqlxDB
}

// WithTx runs fn inside a transaction, rolling back on error or panic
// and committing otherwise. Every schedule-mutating write goes through
// here so each mutation gets its all-or-nothing guarantee.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repositories holds all repository instances
type Repositories struct {
	Job          *JobRepository
	Staff        *StaffRepository
	Availability *AvailabilityRepository
	Appointment  *AppointmentRepository
	ClearAudit   *ClearAuditRepository
}

// NewRepositories creates a new repositories instance
func NewRepositories(db *Database) *Repositories {
	return &Repositories{
		Job:          NewJobRepository(db),
		Staff:        NewStaffRepository(db),
		Availability: NewAvailabilityRepository(db),
		Appointment:  NewAppointmentRepository(db),
		ClearAudit:   NewClearAuditRepository(db),
	}
}
