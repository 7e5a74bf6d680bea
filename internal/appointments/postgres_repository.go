package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used for reads.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool adds transactions; satisfied by *pgxpool.Pool and pgxmock pools.
type PgxPool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

const appointmentColumns = `id::text, full_name, email, session_type,
	to_char(date, 'YYYY-MM-DD'), to_char(time, 'HH24:MI'), status, created_at, updated_at`

// updated_at always moves forward, even when two writes land in the same microsecond.
const bumpUpdatedAt = `updated_at = GREATEST(now(), updated_at + interval '1 microsecond')`

// PostgresRepository stores appointments in the hosted Postgres database.
type PostgresRepository struct {
	db PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db PgxPool) *PostgresRepository {
	if db == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	status := appt.Status
	if status == "" {
		status = StatusPending
	}
	query := `
		INSERT INTO appointments (full_name, email, session_type, date, time, status)
		VALUES ($1, $2, $3, $4::date, $5::time, $6)
		RETURNING ` + appointmentColumns
	out, err := scanAppointment(r.db.QueryRow(ctx, query,
		appt.FullName, appt.Email, appt.SessionType, appt.Date, appt.Time, string(status),
	))
	if err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	out, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE lower(email) = lower($1)
		ORDER BY date, time`
	rows, err := r.db.Query(ctx, query, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("appointments: list by email: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list by email: %w", err)
	}
	return out, nil
}

// Reschedule locks the row, captures the previous slot, and writes the new
// slot and updated_at in one statement.
func (r *PostgresRepository) Reschedule(ctx context.Context, id string, to Schedule) (Change, error) {
	return r.mutate(ctx, id, func(ctx context.Context, tx pgx.Tx, before *Appointment) (*Appointment, error) {
		if before.Status == StatusCancelled {
			return nil, ErrCancelled
		}
		query := `
			UPDATE appointments
			SET date = $2::date, time = $3::time, ` + bumpUpdatedAt + `
			WHERE id = $1
			RETURNING ` + appointmentColumns
		return scanAppointment(tx.QueryRow(ctx, query, id, to.Date, to.Time))
	})
}

func (r *PostgresRepository) Cancel(ctx context.Context, id string) (Change, error) {
	return r.mutate(ctx, id, func(ctx context.Context, tx pgx.Tx, before *Appointment) (*Appointment, error) {
		if before.Status == StatusCancelled {
			return before, nil
		}
		query := `
			UPDATE appointments
			SET status = $2, ` + bumpUpdatedAt + `
			WHERE id = $1
			RETURNING ` + appointmentColumns
		return scanAppointment(tx.QueryRow(ctx, query, id, string(StatusCancelled)))
	})
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("appointments: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("appointments: scan count: %w", err)
		}
		counts[Status(status)] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: count by status: %w", err)
	}
	return counts, nil
}

type mutation func(ctx context.Context, tx pgx.Tx, before *Appointment) (*Appointment, error)

func (r *PostgresRepository) mutate(ctx context.Context, id string, apply mutation) (Change, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Change{}, fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	before, err := scanAppointment(tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Change{}, ErrNotFound
	}
	if err != nil {
		return Change{}, fmt.Errorf("appointments: lock row: %w", err)
	}

	after, err := apply(ctx, tx, before)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return Change{}, err
		}
		return Change{}, fmt.Errorf("appointments: update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Change{}, fmt.Errorf("appointments: commit: %w", err)
	}
	return Change{Before: *before, After: *after}, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	var status string
	if err := row.Scan(
		&appt.ID,
		&appt.FullName,
		&appt.Email,
		&appt.SessionType,
		&appt.Date,
		&appt.Time,
		&status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	if !appt.Status.Valid() {
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownStatus, status, appt.ID)
	}
	return &appt, nil
}
